//go:build integration

package store_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"didregistry/internal/registry/models"
	"didregistry/internal/registry/store"
	"didregistry/pkg/platform/sentinel"
	"didregistry/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	nonces   *store.PostgresNonceSource
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.nonces = store.NewPostgresNonceSource(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "did_keys", "did_records"))
}

var (
	pgSubject    = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	pgController = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func (s *PostgresStoreSuite) newRecord(seed byte) *models.DIDRecord {
	id := common.BytesToHash(bytes.Repeat([]byte{seed}, common.HashLength))
	record, err := models.NewDIDRecord(id, pgSubject, pgController, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return record
}

func (s *PostgresStoreSuite) newKey(seed byte) models.Key {
	key, err := models.NewKey(
		bytes.Repeat([]byte{seed}, models.CoordinateLength),
		bytes.Repeat([]byte{seed + 1}, models.CoordinateLength),
		models.PurposeSigning, "P-256")
	s.Require().NoError(err)
	return key
}

func (s *PostgresStoreSuite) TestCreateFindDelete() {
	ctx := context.Background()
	record := s.newRecord(1)

	s.Require().NoError(s.store.Create(ctx, record))

	found, err := s.store.Find(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record.Controller, found.Controller)
	s.Equal(record.Subject, found.Subject)
	s.Empty(found.Keys)

	s.Require().ErrorIs(s.store.Create(ctx, record), sentinel.ErrConflict)

	s.Require().NoError(s.store.Delete(ctx, record.ID, func(*models.DIDRecord) error { return nil }))
	_, err = s.store.Find(ctx, record.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecutePersistsKeysInOrder() {
	ctx := context.Background()
	record := s.newRecord(2)
	s.Require().NoError(s.store.Create(ctx, record))

	for i := byte(0); i < 3; i++ {
		key := s.newKey(10 + i)
		_, err := s.store.Execute(ctx, record.ID,
			func(*models.DIDRecord) error { return nil },
			func(r *models.DIDRecord) { r.ApplyKey(key, time.Now().UTC()) },
		)
		s.Require().NoError(err)
	}

	found, err := s.store.Find(ctx, record.ID)
	s.Require().NoError(err)
	s.Require().Len(found.Keys, 3)
	for i := byte(0); i < 3; i++ {
		s.Equal(bytes.Repeat([]byte{10 + i}, models.CoordinateLength), found.Keys[i].X[:])
	}
}

// TestConcurrentExecuteSerializes verifies the FOR UPDATE row lock makes
// check-then-mutate atomic: concurrent appends never lose writes.
func (s *PostgresStoreSuite) TestConcurrentExecuteSerializes() {
	ctx := context.Background()
	record := s.newRecord(3)
	s.Require().NoError(s.store.Create(ctx, record))

	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(seed byte) {
			defer wg.Done()
			key := s.newKey(seed)
			_, err := s.store.Execute(ctx, record.ID,
				func(*models.DIDRecord) error { return nil },
				func(r *models.DIDRecord) { r.ApplyKey(key, time.Now().UTC()) },
			)
			s.NoError(err)
		}(byte(i))
	}
	wg.Wait()

	found, err := s.store.Find(ctx, record.ID)
	s.Require().NoError(err)
	s.Len(found.Keys, goroutines)
}

func (s *PostgresStoreSuite) TestNonceSourceNeverRepeats() {
	ctx := context.Background()

	const goroutines = 30
	var mu sync.Mutex
	seen := make(map[uint64]struct{}, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.nonces.Next(ctx)
			s.NoError(err)
			mu.Lock()
			seen[n] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Len(seen, goroutines)
}
