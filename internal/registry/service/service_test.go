package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didregistry/internal/registry/alloc"
	"didregistry/internal/registry/models"
	"didregistry/internal/registry/notify"
	"didregistry/internal/registry/store"
	dErrors "didregistry/pkg/domain-errors"
	"didregistry/pkg/requestcontext"
)

var (
	alice   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bob     = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	subject = common.HexToAddress("0x0000000000000000000000000000000000000051")
)

func newTestService() *Service {
	return New(store.NewInMemory(), alloc.New(alloc.NewMemoryNonceSource()))
}

func testKey(t *testing.T, fill byte, purpose models.KeyPurpose) models.Key {
	t.Helper()
	key, err := models.NewKey(
		bytes.Repeat([]byte{fill}, models.CoordinateLength),
		bytes.Repeat([]byte{fill + 1}, models.CoordinateLength),
		purpose,
		"P-256",
	)
	require.NoError(t, err)
	return key
}

func TestCreateDID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, id)

	controller, err := svc.GetController(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, controller)

	got, err := svc.GetSubject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, subject, got)
}

func TestCreateDIDDistinctIdentifiers(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	seen := make(map[common.Hash]bool)
	for range 10 {
		id, err := svc.CreateDID(ctx, alice, subject)
		require.NoError(t, err)
		assert.False(t, seen[id], "identifier repeated")
		seen[id] = true
	}
}

func TestCreateDIDRejectsZeroSubject(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateDID(context.Background(), alice, common.Address{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCreateDIDRejectsZeroCaller(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateDID(context.Background(), common.Address{}, subject)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestReadsOnAbsentIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	unknown := common.HexToHash("0xdead")

	controller, err := svc.GetController(ctx, unknown)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, controller)

	subj, err := svc.GetSubject(ctx, unknown)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, subj)

	keyList, err := svc.GetKeys(ctx, unknown)
	require.NoError(t, err)
	assert.Empty(t, keyList.Xs)
	assert.Empty(t, keyList.Ys)
	assert.Empty(t, keyList.Purposes)
	assert.Empty(t, keyList.Curves)
}

func TestMutationsOnAbsentIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	unknown := common.HexToHash("0xdead")

	err := svc.SetController(ctx, alice, unknown, bob)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	err = svc.AddKey(ctx, alice, unknown, testKey(t, 1, models.PurposeSigning))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	err = svc.DeleteDID(ctx, alice, unknown)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSetControllerRejectsZeroController(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)

	err = svc.SetController(ctx, alice, id, common.Address{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	controller, err := svc.GetController(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, controller)
}

func TestControllerHandoff(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)

	err = svc.AddKey(ctx, alice, id, testKey(t, 1, models.PurposeAuthentication))
	require.NoError(t, err)

	// Bob is not the controller yet.
	err = svc.SetController(ctx, bob, id, bob)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	err = svc.SetController(ctx, alice, id, bob)
	require.NoError(t, err)

	// Alice's authority is gone the moment the transfer commits.
	err = svc.AddKey(ctx, alice, id, testKey(t, 3, models.PurposeSigning))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	err = svc.AddKey(ctx, bob, id, testKey(t, 5, models.PurposeSigning))
	require.NoError(t, err)

	keyList, err := svc.GetKeys(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, keyList.Len())
	assert.Equal(t, bytes.Repeat([]byte{1}, models.CoordinateLength), keyList.Xs[0])
	assert.Equal(t, bytes.Repeat([]byte{5}, models.CoordinateLength), keyList.Xs[1])
	assert.Equal(t, []int32{1, 2}, keyList.Purposes)
	assert.Equal(t, []string{"P-256", "P-256"}, keyList.Curves)
}

func TestAddKeyAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)

	for i := byte(0); i < 4; i += 2 {
		err = svc.AddKey(ctx, alice, id, testKey(t, i+1, models.PurposeEncryption))
		require.NoError(t, err)
	}

	keyList, err := svc.GetKeys(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, keyList.Len())
	assert.Equal(t, bytes.Repeat([]byte{1}, models.CoordinateLength), keyList.Xs[0])
	assert.Equal(t, bytes.Repeat([]byte{2}, models.CoordinateLength), keyList.Ys[0])
	assert.Equal(t, bytes.Repeat([]byte{3}, models.CoordinateLength), keyList.Xs[1])
}

func TestAddKeyAllowsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)

	key := testKey(t, 7, models.PurposeSigning)
	require.NoError(t, svc.AddKey(ctx, alice, id, key))
	require.NoError(t, svc.AddKey(ctx, alice, id, key))

	keyList, err := svc.GetKeys(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, keyList.Len())
}

func TestDeleteDIDRemovesAllState(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)
	require.NoError(t, svc.AddKey(ctx, alice, id, testKey(t, 1, models.PurposeSigning)))

	require.NoError(t, svc.DeleteDID(ctx, alice, id))

	controller, err := svc.GetController(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, controller)

	keyList, err := svc.GetKeys(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, keyList.Len())
}

func TestDeleteDIDRequiresController(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)

	err = svc.DeleteDID(ctx, bob, id)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	controller, err := svc.GetController(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, controller)
}

func TestCounterAdvancesPastDeletedIdentifiers(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	first, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteDID(ctx, alice, first))

	second, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "counter reuse after delete")
}

func TestEventsEmittedInCommitOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	var events []notify.Event
	svc.Stream().Subscribe(func(e notify.Event) {
		events = append(events, e)
	})

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)
	require.NoError(t, svc.SetController(ctx, alice, id, bob))
	require.NoError(t, svc.DeleteDID(ctx, bob, id))

	require.Len(t, events, 3)
	assert.Equal(t, notify.EventCreated, events[0].Type)
	assert.Equal(t, notify.EventControllerChanged, events[1].Type)
	assert.Equal(t, bob, events[1].NewController)
	assert.Equal(t, notify.EventDeleted, events[2].Type)
	for i, e := range events {
		assert.Equal(t, uint64(i+1), e.Sequence)
		assert.Equal(t, id, e.ID)
	}
}

func TestNoEventsOnFailedMutations(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)

	var count int
	svc.Stream().Subscribe(func(notify.Event) {
		count++
	})

	_ = svc.SetController(ctx, bob, id, bob)
	_ = svc.DeleteDID(ctx, bob, id)
	_ = svc.AddKey(ctx, bob, id, testKey(t, 1, models.PurposeSigning))

	assert.Zero(t, count)
}

func TestNoEventOnAddKey(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)

	var count int
	svc.Stream().Subscribe(func(notify.Event) {
		count++
	})

	require.NoError(t, svc.AddKey(ctx, alice, id, testKey(t, 1, models.PurposeSigning)))
	assert.Zero(t, count)
}

func TestTimestampsFromRequestContext(t *testing.T) {
	svc := newTestService()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), created)

	var events []notify.Event
	svc.Stream().Subscribe(func(e notify.Event) {
		events = append(events, e)
	})

	id, err := svc.CreateDID(ctx, alice, subject)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, created, events[0].Timestamp)

	updated := created.Add(time.Hour)
	ctx = requestcontext.WithTime(context.Background(), updated)
	require.NoError(t, svc.SetController(ctx, alice, id, bob))
	require.Len(t, events, 2)
	assert.Equal(t, updated, events[1].Timestamp)
}
