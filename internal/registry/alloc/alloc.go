// Package alloc derives fresh registry identifiers.
//
// An identifier is keccak256(caller || counter) where the counter is a
// process-wide (or, with the Postgres source, registry-wide) sequence that
// starts at zero and advances by exactly one per successful allocation,
// regardless of caller. The hash makes identifiers unpredictable; the
// never-repeating counter makes them collision-free for the registry's
// lifetime.
package alloc

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NonceSource hands out the monotonically increasing counter values.
// Implementations must never return the same value twice.
type NonceSource interface {
	Next(ctx context.Context) (uint64, error)
}

// Allocator derives identifiers from caller identity and the shared counter.
type Allocator struct {
	nonces NonceSource
}

func New(nonces NonceSource) *Allocator {
	return &Allocator{nonces: nonces}
}

// Allocate returns a fresh identifier for the caller. The counter advances
// exactly once per call; nothing downstream of allocation can roll it back.
func (a *Allocator) Allocate(ctx context.Context, caller common.Address) (common.Hash, error) {
	nonce, err := a.nonces.Next(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	buf := make([]byte, 0, common.AddressLength+8)
	buf = append(buf, caller.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return common.BytesToHash(crypto.Keccak256(buf)), nil
}

// MemoryNonceSource is the in-process counter: explicit owned state, starts
// at zero, no package-level singleton.
type MemoryNonceSource struct {
	mu   sync.Mutex
	next uint64
}

func NewMemoryNonceSource() *MemoryNonceSource {
	return &MemoryNonceSource{}
}

func (s *MemoryNonceSource) Next(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next
	s.next++
	return n, nil
}
