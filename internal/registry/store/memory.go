package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"didregistry/internal/registry/models"
	"didregistry/pkg/platform/sentinel"
)

// InMemory stores records in a map for tests and single-node deployments.
// A single RWMutex serializes mutation; reads share the lock. Correctness
// over parallelism - this is a low-volume trust-critical path.
type InMemory struct {
	mu      sync.RWMutex
	records map[common.Hash]*models.DIDRecord
}

// NewInMemory constructs an empty in-memory record store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[common.Hash]*models.DIDRecord)}
}

func (s *InMemory) Create(_ context.Context, record *models.DIDRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("identifier %s already registered: %w", record.ID, sentinel.ErrConflict)
	}
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *InMemory) Find(_ context.Context, id common.Hash) (*models.DIDRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[id]; ok {
		return record.Clone(), nil
	}
	return nil, fmt.Errorf("identifier %s: %w", id, sentinel.ErrNotFound)
}

// Execute holds the store lock across validate and apply so the caller's
// check-then-mutate is atomic with respect to other mutations on the same
// identifier.
func (s *InMemory) Execute(_ context.Context, id common.Hash,
	validate func(*models.DIDRecord) error,
	apply func(*models.DIDRecord)) (*models.DIDRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("identifier %s: %w", id, sentinel.ErrNotFound)
	}
	if err := validate(record); err != nil {
		return nil, err
	}
	apply(record)
	return record.Clone(), nil
}

func (s *InMemory) Delete(_ context.Context, id common.Hash, validate func(*models.DIDRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return fmt.Errorf("identifier %s: %w", id, sentinel.ErrNotFound)
	}
	if err := validate(record); err != nil {
		return err
	}
	delete(s.records, id)
	return nil
}
