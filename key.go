package featureflow

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// DocId is the opaque identifier minted for one document (one process() run).
type DocId string

// KeyBuilder composes and decomposes the (DocId, FeatureName, FeatureVersion)
// tuple into a single opaque string key suitable for use against a Database.
// Implementations must be a bijection: Decompose(Build(a, b, c)) == (a, b, c).
type KeyBuilder interface {
	Build(docId DocId, featureName, featureVersion string) string
	Decompose(key string) (docId DocId, featureName, featureVersion string, err error)
}

// StringDelimitedKeyBuilder is the default KeyBuilder. It joins the three
// parts with a single reserved separator, mirroring the original's
// StringDelimitedKeyBuilder (`data.py`). Parts containing the separator are
// rejected rather than silently mangled, since the original's naive
// str.join/str.split round-trip is not actually a bijection once a part
// contains the separator.
type StringDelimitedKeyBuilder struct {
	Separator string
}

// NewKeyBuilder returns a StringDelimitedKeyBuilder using ":" as the
// separator, the original's default.
func NewKeyBuilder() StringDelimitedKeyBuilder {
	return StringDelimitedKeyBuilder{Separator: ":"}
}

func (b StringDelimitedKeyBuilder) sep() string {
	if b.Separator == "" {
		return ":"
	}
	return b.Separator
}

// Build joins the three parts with the separator. It panics if any part
// contains the separator — this is a programmer error (feature/doc-id naming
// clashing with the key scheme), not a runtime condition callers are
// expected to recover from; callers that want a returned error use BuildSafe
// instead.
func (b StringDelimitedKeyBuilder) Build(docId DocId, featureName, featureVersion string) string {
	key, err := b.BuildSafe(docId, featureName, featureVersion)
	if err != nil {
		panic(err)
	}
	return key
}

// BuildSafe is like Build, but returns ErrKeyContainsSeparator instead of
// panicking.
func (b StringDelimitedKeyBuilder) BuildSafe(docId DocId, featureName, featureVersion string) (string, error) {
	sep := b.sep()
	parts := [3]string{string(docId), featureName, featureVersion}
	for _, p := range parts {
		if strings.Contains(p, sep) {
			return "", fmt.Errorf("%w: %q contains %q", ErrKeyContainsSeparator, p, sep)
		}
	}
	return strings.Join(parts[:], sep), nil
}

// Decompose splits a composed key back into its three parts.
func (b StringDelimitedKeyBuilder) Decompose(key string) (DocId, string, string, error) {
	parts := strings.SplitN(key, b.sep(), 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("featureflow: malformed composed key %q", key)
	}
	return DocId(parts[0]), parts[1], parts[2], nil
}

// IdProvider mints the DocId used for one process() run. ctx carries the
// kwargs passed to process(), so caller-supplied providers can read from it.
type IdProvider interface {
	NewId(ctx map[string]interface{}) (DocId, error)
}

// IdProviderFunc adapts a plain function to an IdProvider.
type IdProviderFunc func(ctx map[string]interface{}) (DocId, error)

func (f IdProviderFunc) NewId(ctx map[string]interface{}) (DocId, error) { return f(ctx) }

// MonotonicIdProvider mints increasing integer ids, process-local. It
// corresponds to the original's IntegerIdProvider (`data.py`).
type MonotonicIdProvider struct {
	counter int64
}

func (p *MonotonicIdProvider) NewId(map[string]interface{}) (DocId, error) {
	n := atomic.AddInt64(&p.counter, 1)
	return DocId(strconv.FormatInt(n, 10)), nil
}

// CallerSuppliedIdProvider reads the id from ctx[Key], corresponding to the
// original's UserSpecifiedIdProvider.
type CallerSuppliedIdProvider struct {
	Key string
}

func NewCallerSuppliedIdProvider(key string) (CallerSuppliedIdProvider, error) {
	if key == "" {
		return CallerSuppliedIdProvider{}, fmt.Errorf("featureflow: CallerSuppliedIdProvider requires a non-empty key")
	}
	return CallerSuppliedIdProvider{Key: key}, nil
}

func (p CallerSuppliedIdProvider) NewId(ctx map[string]interface{}) (DocId, error) {
	v, ok := ctx[p.Key]
	if !ok {
		return "", fmt.Errorf("featureflow: process() kwargs missing id key %q", p.Key)
	}
	switch t := v.(type) {
	case DocId:
		return t, nil
	case string:
		return DocId(t), nil
	default:
		return DocId(fmt.Sprint(v)), nil
	}
}

// StaticIdProvider always returns the same id, regardless of ctx.
type StaticIdProvider struct {
	Id DocId
}

func (p StaticIdProvider) NewId(map[string]interface{}) (DocId, error) { return p.Id, nil }
