package featureflow

import "errors"

// Sentinel errors for the conditions enumerated in the design's error
// handling section. They are returned (optionally wrapped with %w for
// context) rather than panicked, except where construction itself cannot
// proceed.
var (
	// ErrInvalidProcessMethod is returned by NewNode when a NodeConfig's
	// Process field is nil, i.e. the node has no lazy chunk-producer.
	ErrInvalidProcessMethod = errors.New("featureflow: node Process method must be a lazy chunk producer")

	// ErrNotFound is returned by a Database when a lookup misses.
	ErrNotFound = errors.New("featureflow: key not found")

	// ErrNotComputable is returned by Feature.Fetch when the feature is
	// unstored and at least one of its dependencies cannot be computed
	// either (transitively stored or root-derivable).
	ErrNotComputable = errors.New("featureflow: feature cannot be computed from stored dependencies")

	// ErrMissingRoots is returned by Graph.Process/Model.Process when the
	// supplied kwargs do not cover every root node's key.
	ErrMissingRoots = errors.New("featureflow: kwargs do not cover every root node")

	// ErrNoPersistenceSettings is returned by NewModelSpec when the given
	// PersistenceSettings has no field set, so no ModelSpec exists without
	// bound settings.
	ErrNoPersistenceSettings = errors.New("featureflow: model has no persistence settings")

	// ErrEmptyStream is returned by source adapters that received zero bytes.
	ErrEmptyStream = errors.New("featureflow: source produced an empty stream")

	// ErrKeyContainsSeparator is returned by a KeyBuilder when a part to be
	// composed contains the reserved separator byte sequence.
	ErrKeyContainsSeparator = errors.New("featureflow: key part contains the reserved separator")
)
