package keys

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didregistry/internal/registry/models"
	"didregistry/internal/registry/store"
)

func coord(b byte) []byte {
	return bytes.Repeat([]byte{b}, models.CoordinateLength)
}

func TestListKeysAbsentRecord(t *testing.T) {
	mgr := NewManager(store.NewInMemory())

	list, err := mgr.ListKeys(context.Background(), common.HexToHash("0xff"))
	require.NoError(t, err)

	assert.Zero(t, list.Len())
	assert.NotNil(t, list.Xs)
	assert.NotNil(t, list.Ys)
	assert.NotNil(t, list.Purposes)
	assert.NotNil(t, list.Curves)
}

func TestListKeysAlignedWithInsertionOrder(t *testing.T) {
	ctx := context.Background()
	records := store.NewInMemory()
	mgr := NewManager(records)

	subject := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	record, err := models.NewDIDRecord(common.HexToHash("0x01"), subject, subject, time.Now())
	require.NoError(t, err)
	require.NoError(t, records.Create(ctx, record))

	entries := []struct {
		seed    byte
		purpose models.KeyPurpose
		curve   string
	}{
		{1, models.PurposeSigning, "P-256"},
		{2, models.PurposeEncryption, "P-256"},
		{3, models.PurposeAuthentication, "secp256k1"},
	}
	for _, e := range entries {
		key, err := models.NewKey(coord(e.seed), coord(e.seed+100), e.purpose, e.curve)
		require.NoError(t, err)
		_, err = records.Execute(ctx, record.ID,
			func(*models.DIDRecord) error { return nil },
			func(r *models.DIDRecord) { r.ApplyKey(key, time.Now()) },
		)
		require.NoError(t, err)
	}

	list, err := mgr.ListKeys(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, len(entries), list.Len())
	require.Len(t, list.Xs, len(entries))
	require.Len(t, list.Ys, len(entries))
	require.Len(t, list.Purposes, len(entries))
	require.Len(t, list.Curves, len(entries))

	for i, e := range entries {
		assert.Equal(t, coord(e.seed), list.Xs[i])
		assert.Equal(t, coord(e.seed+100), list.Ys[i])
		assert.Equal(t, e.purpose.Code(), list.Purposes[i])
		assert.Equal(t, e.curve, list.Curves[i])
	}
}

func TestFlattenCopiesCoordinates(t *testing.T) {
	key, err := models.NewKey(coord(7), coord(8), models.PurposeSigning, "P-256")
	require.NoError(t, err)

	source := []models.Key{key}
	list := Flatten(source)

	list.Xs[0][0] = 0xFF
	assert.Equal(t, byte(7), source[0].X[0])
}
