// Package keys formats the key-set read path.
//
// The external read contract exposes four homogeneous, index-aligned arrays
// (coordinates, purpose codes, curve names) rather than a list of key
// records, so downstream callers that speak that shape keep working.
package keys

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"didregistry/internal/registry/models"
	"didregistry/pkg/platform/sentinel"
)

// RecordFinder is the slice of the record store the read path needs.
type RecordFinder interface {
	Find(ctx context.Context, id common.Hash) (*models.DIDRecord, error)
}

// KeyList is the parallel-array view of a record's key set. All four slices
// are always the same length and aligned by insertion order.
type KeyList struct {
	Xs       [][]byte
	Ys       [][]byte
	Purposes []int32
	Curves   []string
}

// Len returns the number of keys in the list.
func (l KeyList) Len() int {
	return len(l.Curves)
}

// Manager serves the key-set read path.
type Manager struct {
	records RecordFinder
}

func NewManager(records RecordFinder) *Manager {
	return &Manager{records: records}
}

// ListKeys returns the record's keys as four aligned arrays. A missing record
// or an empty key set both yield four empty arrays, never an error - absence
// is not distinguishable from keylessness on this path.
func (m *Manager) ListKeys(ctx context.Context, id common.Hash) (KeyList, error) {
	record, err := m.records.Find(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return emptyKeyList(), nil
		}
		return KeyList{}, err
	}
	return Flatten(record.Keys), nil
}

// Flatten converts an ordered key slice into the parallel-array shape.
// Output slices are pre-sized to the exact key count.
func Flatten(recordKeys []models.Key) KeyList {
	n := len(recordKeys)
	list := KeyList{
		Xs:       make([][]byte, 0, n),
		Ys:       make([][]byte, 0, n),
		Purposes: make([]int32, 0, n),
		Curves:   make([]string, 0, n),
	}
	for _, key := range recordKeys {
		x := make([]byte, models.CoordinateLength)
		y := make([]byte, models.CoordinateLength)
		copy(x, key.X[:])
		copy(y, key.Y[:])
		list.Xs = append(list.Xs, x)
		list.Ys = append(list.Ys, y)
		list.Purposes = append(list.Purposes, key.Purpose.Code())
		list.Curves = append(list.Curves, key.Curve)
	}
	return list
}

func emptyKeyList() KeyList {
	return KeyList{
		Xs:       [][]byte{},
		Ys:       [][]byte{},
		Purposes: []int32{},
		Curves:   []string{},
	}
}
