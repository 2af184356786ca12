// Package idgen collects IdProvider implementations beyond the
// dependency-free ones kept in the core package.
package idgen

import (
	"github.com/colinsongf/featureflow"
	uuid "github.com/satori/go.uuid"
)

// UUIDProvider mints a fresh random (v4) uuid per call, ignoring ctx. It is
// the recommended default for any Model where documents are not identified
// by caller-supplied input, corresponding to the original's UuidProvider
// (data.py) and grounded on the existing use of satori/go.uuid for
// frontend/record identity.
type UUIDProvider struct{}

func (UUIDProvider) NewId(map[string]interface{}) (featureflow.DocId, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return featureflow.DocId(id.String()), nil
}
