package featureflow

// PersistenceSettings is the {IdProvider, KeyBuilder, Database} bundle a
// Model is bound to, per §6. A Feature may override any subset of it with
// Clone to point at an alternate Database while inheriting the rest.
type PersistenceSettings struct {
	IdProvider IdProvider
	KeyBuilder KeyBuilder
	Database   Database
}

// Clone returns a copy of s with any non-zero fields in overrides replacing
// the corresponding field.
func (s PersistenceSettings) Clone(overrides PersistenceSettings) PersistenceSettings {
	out := s
	if overrides.IdProvider != nil {
		out.IdProvider = overrides.IdProvider
	}
	if overrides.KeyBuilder != nil {
		out.KeyBuilder = overrides.KeyBuilder
	}
	if overrides.Database != nil {
		out.Database = overrides.Database
	}
	return out
}

// IsZero reports whether s has no fields set at all, used to detect a Model
// used without persistence settings bound (ErrNoPersistenceSettings).
func (s PersistenceSettings) IsZero() bool {
	return s.IdProvider == nil && s.KeyBuilder == nil && s.Database == nil
}
