package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	dErrors "didregistry/pkg/domain-errors"
)

// CoordinateLength is the fixed width of a public key point coordinate.
const CoordinateLength = 32

// Key is one entry in a record's key set. Coordinates are fixed-width so the
// external read contract can expose homogeneous byte arrays.
type Key struct {
	X       [CoordinateLength]byte
	Y       [CoordinateLength]byte
	Purpose KeyPurpose
	Curve   string
}

// NewKey validates and constructs a key entry.
func NewKey(x, y []byte, purpose KeyPurpose, curve string) (Key, error) {
	if len(x) != CoordinateLength || len(y) != CoordinateLength {
		return Key{}, dErrors.New(dErrors.CodeInvalidInput, "key coordinates must be 32 bytes")
	}
	if !purpose.Valid() {
		return Key{}, dErrors.New(dErrors.CodeInvalidInput, "unknown key purpose")
	}
	if curve == "" {
		return Key{}, dErrors.New(dErrors.CodeInvalidInput, "curve name is required")
	}
	k := Key{Purpose: purpose, Curve: curve}
	copy(k.X[:], x)
	copy(k.Y[:], y)
	return k, nil
}

// DIDRecord is the aggregate stored per identifier.
//
// Invariants:
//   - Controller and Subject are non-zero while the record exists
//   - Subject is immutable after creation
//   - Created <= Updated, Created is immutable
//   - Keys grow append-only in insertion order; never reordered or deduplicated
type DIDRecord struct {
	ID         common.Hash
	Controller common.Address
	Subject    common.Address
	Created    time.Time
	Updated    time.Time
	Keys       []Key
}

// NewDIDRecord constructs a record with an empty key set.
func NewDIDRecord(id common.Hash, subject, controller common.Address, now time.Time) (*DIDRecord, error) {
	if subject == (common.Address{}) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subject cannot be the zero identity")
	}
	if controller == (common.Address{}) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "controller cannot be the zero identity")
	}
	return &DIDRecord{
		ID:         id,
		Controller: controller,
		Subject:    subject,
		Created:    now,
		Updated:    now,
	}, nil
}

// AuthorizeController checks that caller is the record's current controller.
// Use as the validate callback in store Execute/Delete so the check and the
// mutation share one atomic section.
func (r *DIDRecord) AuthorizeController(caller common.Address) error {
	if r.Controller != caller {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the record controller")
	}
	return nil
}

// ApplyControllerChange overwrites the controller and touches Updated.
// Validate with AuthorizeController first.
func (r *DIDRecord) ApplyControllerChange(newController common.Address, now time.Time) {
	r.Controller = newController
	r.Updated = now
}

// ApplyKey appends a key and touches Updated, same as a controller change.
func (r *DIDRecord) ApplyKey(key Key, now time.Time) {
	r.Keys = append(r.Keys, key)
	r.Updated = now
}

// Clone returns a deep copy so store snapshots never alias live state.
func (r *DIDRecord) Clone() *DIDRecord {
	cp := *r
	cp.Keys = append([]Key(nil), r.Keys...)
	return &cp
}
