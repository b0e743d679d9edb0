// Package store provides in-process ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/trade-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a map-backed store. Values are copied on the way in and out so
// callers can never mutate stored bytes.
type Memory struct {
	mu    sync.RWMutex
	state map[string][]byte
}

var _ ledger.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{state: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.state[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state[key] = clone(value)
	return nil
}

// ScanPrefix visits matching pairs in key order. The lock is released
// before fn runs so fn may call back into the store.
func (m *Memory) ScanPrefix(ctx context.Context, prefix string, fn ledger.ScanFunc) error {
	for _, kv := range m.matching(prefix) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(kv.key, kv.value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state)
}

// Snapshot returns a copy of the whole state.
func (m *Memory) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(m.state))
	for k, v := range m.state {
		out[k] = clone(v)
	}
	return out
}

type pair struct {
	key   string
	value []byte
}

func (m *Memory) matching(prefix string) []pair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []pair
	for k, v := range m.state {
		if strings.HasPrefix(k, prefix) {
			out = append(out, pair{key: k, value: clone(v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
