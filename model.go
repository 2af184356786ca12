package featureflow

import (
	"fmt"
	"sync"
)

// ModelSpec is component G: an ordered collection of FeatureSpecs bound to a
// single PersistenceSettings, replacing the original's metaclass-collected
// `cls.features` (model.py) with explicit composition — Design Note #1 ("no
// metaclasses: a Model is built by listing its features, not by a class body
// being scanned").
type ModelSpec struct {
	persistence PersistenceSettings
	features    map[string]*FeatureSpec
	order       []string
}

// NewModelSpec binds persistence settings to an ordered list of features.
// Feature keys must be unique within a ModelSpec.
func NewModelSpec(persistence PersistenceSettings, features ...*FeatureSpec) (*ModelSpec, error) {
	if persistence.IsZero() {
		return nil, ErrNoPersistenceSettings
	}
	m := &ModelSpec{
		persistence: persistence,
		features:    make(map[string]*FeatureSpec, len(features)),
	}
	for _, f := range features {
		if _, dup := m.features[f.Key]; dup {
			return nil, fmt.Errorf("featureflow: duplicate feature key %q", f.Key)
		}
		m.features[f.Key] = f
		m.order = append(m.order, f.Key)
	}
	return m, nil
}

// buildFullGraph compiles every declared feature, in declaration order, into
// one Graph for a single document id — the full (non-partial) compilation
// path used by Process, as opposed to Feature.Fetch's partial one.
func (m *ModelSpec) buildFullGraph(docId DocId) (*Graph, error) {
	g := NewGraph()
	for _, k := range m.order {
		if _, err := m.features[k].buildExtractor(docId, g, m.persistence); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// rollback best-effort deletes every stored feature's key for docId, mirroring
// the original's BaseModel._rollback (model.py): a failed Delete on an
// already-absent key is swallowed rather than compounding the original error.
func (m *ModelSpec) rollback(docId DocId) {
	for _, k := range m.order {
		f := m.features[k]
		if !f.Store {
			continue
		}
		_ = f.database(m.persistence).Delete(f.composedKey(docId, m.persistence))
	}
}

// Process mints a new DocId via the bound IdProvider, compiles the full
// feature graph, prunes dead (unstored, unconsumed) nodes, and runs it to
// completion. On any failure it rolls back every feature that had already
// been persisted for this docId before returning the error, so a failed
// process() run never leaves a partially-populated document behind.
func (m *ModelSpec) Process(kwargs map[string]interface{}) (DocId, error) {
	docId, err := m.persistence.IdProvider.NewId(kwargs)
	if err != nil {
		return "", fmt.Errorf("featureflow: minting document id: %w", err)
	}

	g, err := m.buildFullGraph(docId)
	if err != nil {
		return "", err
	}
	g.PruneDeadNodes()

	if err := g.Process(kwargs); err != nil {
		m.rollback(docId)
		return "", err
	}

	return docId, nil
}

// Iterate calls fn once for every DocId present in the bound Database,
// stopping at the first error fn returns, corresponding to the original's
// support for iterating over all previously processed documents.
func (m *ModelSpec) Iterate(fn func(DocId) error) error {
	ids, err := m.persistence.Database.IterIds(m.persistence.KeyBuilder)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}

// Feature returns the FeatureSpec registered under key, for callers building
// their own typed accessor methods on top of a Document (see Document).
func (m *ModelSpec) Feature(key string) (*FeatureSpec, bool) {
	f, ok := m.features[key]
	return f, ok
}

// Persistence returns the settings this ModelSpec is bound to.
func (m *ModelSpec) Persistence() PersistenceSettings { return m.persistence }

// Document is one processed instance of a ModelSpec: a DocId plus a memoized
// cache of fetched feature values. It is deliberately not a reflective
// "record" — Design Note #7 ("feature accessors are explicit methods, not
// __getattribute__ magic; memoization is an explicit map"). Callers embed
// Document in their own type and add one typed method per feature, e.g.:
//
//	type Article struct{ *featureflow.Document }
//	func (a *Article) WordCount() (int, error) {
//		v, err := a.Fetch("word_count")
//		if err != nil { return 0, err }
//		return v.(int), nil
//	}
type Document struct {
	spec  *ModelSpec
	docId DocId

	mu    sync.Mutex
	cache map[string]interface{}
}

// NewDocument wraps an already-minted DocId (typically the return value of
// ModelSpec.Process, or one yielded by ModelSpec.Iterate) for lazy feature
// access.
func NewDocument(spec *ModelSpec, docId DocId) *Document {
	return &Document{spec: spec, docId: docId, cache: make(map[string]interface{})}
}

// Id returns the wrapped DocId.
func (d *Document) Id() DocId { return d.docId }

// Fetch returns the value of the named feature, computing and persisting it
// lazily on first access if needed, then memoizing the result for the
// lifetime of the Document.
func (d *Document) Fetch(key string) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.cache[key]; ok {
		return v, nil
	}
	f, ok := d.spec.Feature(key)
	if !ok {
		return nil, fmt.Errorf("featureflow: unknown feature %q", key)
	}
	v, err := f.Fetch(d.docId, d.spec.persistence)
	if err != nil {
		return nil, err
	}
	d.cache[key] = v
	return v, nil
}
