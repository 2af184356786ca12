package featureflow

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
)

// byteReadCloser adapts a bytes.Reader into a ReadableStream for in-memory
// capture results, where there is no underlying resource to close.
type byteReadCloser struct {
	*bytes.Reader
}

func (byteReadCloser) Close() error { return nil }

// FeatureSpec is the immutable declaration of component F: an extractor
// constructor, its dependencies, whether to persist it, and the
// encoder/decoder pair governing its on-disk shape. Key is the feature's
// name; NewModelSpec (model.go) registers the feature under it as given and
// rejects duplicates.
type FeatureSpec struct {
	Key string

	// NewExtractor builds the extractor Node given its dependency nodes, in
	// the same order as Needs.
	NewExtractor func(needs []*Node) (*Node, error)

	// ExtractorType and ExtractorArgs together determine Version: it must be
	// a pure function of the two, stable across runs so cache hits survive
	// restart but invalidation is a version bump (§3).
	ExtractorType string
	ExtractorArgs string

	Needs []*FeatureSpec

	Store   bool
	Encoder Encoder
	Decoder Decoder

	// Persistence overrides the Model's PersistenceSettings for this feature
	// alone, e.g. to point a feature at an alternate Database while
	// inheriting the IdProvider/KeyBuilder (§6 "Persistence settings").
	Persistence *PersistenceSettings
}

// Version derives a short, stable string from (ExtractorType, ExtractorArgs)
// — the same sha1-then-base64 technique used to build a strong ETag from a
// content hash (frontend.go's populate), applied here to a feature's
// identity instead of its bytes.
func (f *FeatureSpec) Version() string {
	sum := sha1.Sum([]byte(f.ExtractorType + "\x00" + f.ExtractorArgs))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// IsRoot reports whether the feature has no declared dependencies.
func (f *FeatureSpec) IsRoot() bool { return len(f.Needs) == 0 }

func (f *FeatureSpec) database(p PersistenceSettings) Database {
	if f.Persistence != nil && f.Persistence.Database != nil {
		return f.Persistence.Database
	}
	return p.Database
}

func (f *FeatureSpec) keyBuilder(p PersistenceSettings) KeyBuilder {
	if f.Persistence != nil && f.Persistence.KeyBuilder != nil {
		return f.Persistence.KeyBuilder
	}
	return p.KeyBuilder
}

func (f *FeatureSpec) composedKey(docId DocId, p PersistenceSettings) string {
	return f.keyBuilder(p).Build(docId, f.Key, f.Version())
}

func (f *FeatureSpec) stored(docId DocId, p PersistenceSettings) bool {
	return f.database(p).Exists(f.composedKey(docId, p))
}

// canCompute reports whether the feature is stored, or is unstored but every
// dependency can (transitively) be computed — §4.F. An unstored feature with
// no dependencies cannot be computed.
func (f *FeatureSpec) canCompute() bool {
	if f.Store {
		return true
	}
	if f.IsRoot() {
		return false
	}
	for _, n := range f.Needs {
		if !n.canCompute() {
			return false
		}
	}
	return true
}

// decoder returns the decoder to use, honoring a per-fetch override.
func (f *FeatureSpec) decoder(override Decoder) Decoder {
	if override != nil {
		return override
	}
	if f.Decoder != nil {
		return f.Decoder
	}
	return RawDecoder
}

// buildExtractor compiles f and its dependencies into g, idempotently: if
// f.Key is already present the existing node is returned. For a stored
// feature it additionally appends an Encoder node and a DataWriter node,
// per §4.F.
func (f *FeatureSpec) buildExtractor(docId DocId, g *Graph, p PersistenceSettings) (*Node, error) {
	if n, ok := g.Get(f.Key); ok {
		return n, nil
	}

	needs := make([]*Node, len(f.Needs))
	for i, dep := range f.Needs {
		n, err := dep.buildExtractor(docId, g, p)
		if err != nil {
			return nil, err
		}
		needs[i] = n
	}

	e, err := f.NewExtractor(needs)
	if err != nil {
		return nil, fmt.Errorf("featureflow: building extractor %q: %w", f.Key, err)
	}
	g.Set(f.Key, e)

	if !f.Store {
		return e, nil
	}
	g.Keep(e)

	enc := f.encoderOrDefault()
	encNode, err := enc.NewNode(e)
	if err != nil {
		return nil, fmt.Errorf("featureflow: building encoder for %q: %w", f.Key, err)
	}
	g.Set(f.Key+"_encoder", encNode)
	g.Keep(encNode)

	dw, err := newDataWriter(encNode, f.database(p), f.composedKey(docId, p), enc.ContentType)
	if err != nil {
		return nil, fmt.Errorf("featureflow: building data writer for %q: %w", f.Key, err)
	}
	g.Set(f.Key+"_writer", dw)
	g.Keep(dw)

	return e, nil
}

func (f *FeatureSpec) encoderOrDefault() Encoder {
	if f.Encoder.NewNode != nil {
		return f.Encoder
	}
	return IdentityEncoder
}

// compilePartial recursively compiles the minimal sub-DAG needed to produce
// f's value given the current cache state — §4.F's partial-graph table.
// rootReaders accumulates, by graph key, the already-open ReadableStream for
// every DecoderNode root created anywhere in the walk, so the caller can
// assemble Graph.Process's kwargs. It returns the in-memory capture sink
// when f is the overall fetch root and is itself unstored.
func (f *FeatureSpec) compilePartial(
	docId DocId,
	p PersistenceSettings,
	g *Graph,
	isRoot bool,
	rootReaders map[string]interface{},
) (*captureWriter, error) {
	if _, ok := g.Get(f.Key); ok {
		return nil, nil
	}

	stored := f.stored(docId, p)
	isCached := f.Store && stored

	if isCached {
		reader, err := f.database(p).ReadStream(f.composedKey(docId, p))
		if err != nil {
			return nil, err
		}
		dn, err := newDecoderNode(f.decoder(nil))
		if err != nil {
			return nil, err
		}
		g.Set(f.Key, dn)
		g.Keep(dn)
		rootReaders[f.Key] = reader
		return nil, nil
	}

	needNodes := make([]*Node, len(f.Needs))
	for i, dep := range f.Needs {
		if _, err := dep.compilePartial(docId, p, g, false, rootReaders); err != nil {
			return nil, err
		}
		n, ok := g.Get(dep.Key)
		if !ok {
			return nil, fmt.Errorf("featureflow: dependency %q of %q did not compile", dep.Key, f.Key)
		}
		needNodes[i] = n
	}

	e, err := f.NewExtractor(needNodes)
	if err != nil {
		return nil, fmt.Errorf("featureflow: building extractor %q: %w", f.Key, err)
	}
	g.Set(f.Key, e)

	shouldStore := f.Store && !stored
	if shouldStore {
		g.Keep(e)
		enc := f.encoderOrDefault()
		encNode, err := enc.NewNode(e)
		if err != nil {
			return nil, err
		}
		g.Set(f.Key+"_encoder", encNode)
		g.Keep(encNode)

		dw, err := newDataWriter(encNode, f.database(p), f.composedKey(docId, p), enc.ContentType)
		if err != nil {
			return nil, err
		}
		g.Set(f.Key+"_writer", dw)
		g.Keep(dw)
	}

	if isRoot && !f.Store {
		encNode, err := f.encoderOrDefault().NewNode(e)
		if err != nil {
			return nil, err
		}
		g.Set(f.Key+"_encoder", encNode)
		capNode, capture, err := newCaptureNode(encNode)
		if err != nil {
			return nil, err
		}
		g.Set(f.Key+"_capture", capNode)
		g.Keep(capNode)
		return capture, nil
	}

	return nil, nil
}

// Fetch implements component F's `__call__`: try the Database first; on a
// miss, verify the feature can be computed, build and run the minimal
// partial graph, then decode and return the result.
func (f *FeatureSpec) Fetch(docId DocId, p PersistenceSettings, decoder ...Decoder) (interface{}, error) {
	var override Decoder
	if len(decoder) > 0 {
		override = decoder[0]
	}
	dec := f.decoder(override)

	key := f.composedKey(docId, p)
	if r, err := f.database(p).ReadStream(key); err == nil {
		return dec(r)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("featureflow: reading %q: %w", f.Key, err)
	}

	if !f.canCompute() {
		return nil, fmt.Errorf("%w: %q", ErrNotComputable, f.Key)
	}

	g := NewGraph()
	rootReaders := make(map[string]interface{})
	capture, err := f.compilePartial(docId, p, g, true, rootReaders)
	if err != nil {
		return nil, err
	}
	g.PruneDeadNodes()

	kwargs := make(map[string]interface{}, len(g.Roots()))
	for k := range g.Roots() {
		if v, ok := rootReaders[k]; ok {
			kwargs[k] = v
		}
	}

	if err := g.Process(kwargs); err != nil {
		return nil, fmt.Errorf("featureflow: computing %q: %w", f.Key, err)
	}

	if capture != nil {
		return dec(byteReadCloser{bytes.NewReader(capture.data)})
	}

	r, err := f.database(p).ReadStream(key)
	if err != nil {
		return nil, fmt.Errorf("featureflow: reading freshly written %q: %w", f.Key, err)
	}
	return dec(r)
}
