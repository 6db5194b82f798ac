// Package store owns the identifier-to-record mapping.
//
// Error Contract:
// All store methods follow this pattern:
//   - Return sentinel.ErrNotFound (wrapped) when the identifier has no record
//   - Return sentinel.ErrConflict (wrapped) when Create hits an existing identifier
//   - Pass validate-callback errors through unchanged so services keep their codes
//   - Return wrapped errors with context for infrastructure failures
package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"didregistry/internal/registry/models"
)

// RecordStore is the authoritative identifier-to-record mapping. Implementations
// must make Execute and Delete atomic per identifier: the validate callback and
// the subsequent mutation run in one critical section, so an authorization
// check cannot go stale between check and mutation.
type RecordStore interface {
	// Create inserts a fully-populated record. ErrConflict if the identifier
	// already maps to a record.
	Create(ctx context.Context, record *models.DIDRecord) error

	// Find returns a snapshot of the record. ErrNotFound if absent. The
	// returned record never aliases store-internal state.
	Find(ctx context.Context, id common.Hash) (*models.DIDRecord, error)

	// Execute runs validate then apply against the live record under the
	// record's lock. A validate error aborts with no state change. Returns a
	// snapshot of the record after apply.
	Execute(ctx context.Context, id common.Hash,
		validate func(*models.DIDRecord) error,
		apply func(*models.DIDRecord)) (*models.DIDRecord, error)

	// Delete removes the record and its entire key set atomically after
	// validate passes. ErrNotFound if absent; a validate error aborts with no
	// state change.
	Delete(ctx context.Context, id common.Hash, validate func(*models.DIDRecord) error) error
}
