package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/warp/trade-ledger/ledger"
	"github.com/warp/trade-ledger/ledger/store"
)

// =============================================================================
// TEST STORES
// =============================================================================

// spyStore counts every call made to the wrapped store.
type spyStore struct {
	inner ledger.Store

	mu    sync.Mutex
	gets  int
	puts  int
	scans int
}

func newSpyStore() *spyStore {
	return &spyStore{inner: store.NewMemory()}
}

func (s *spyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.inner.Get(ctx, key)
}

func (s *spyStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.inner.Put(ctx, key, value)
}

func (s *spyStore) ScanPrefix(ctx context.Context, prefix string, fn ledger.ScanFunc) error {
	s.mu.Lock()
	s.scans++
	s.mu.Unlock()
	return s.inner.ScanPrefix(ctx, prefix, fn)
}

func (s *spyStore) accesses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets + s.puts + s.scans
}

func (s *spyStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// orderedStore visits scan results in a chosen order instead of key order.
type orderedStore struct {
	*store.Memory
	reorder func(pairs []kv)
}

type kv struct {
	key   string
	value []byte
}

func (s *orderedStore) ScanPrefix(ctx context.Context, prefix string, fn ledger.ScanFunc) error {
	var pairs []kv
	err := s.Memory.ScanPrefix(ctx, prefix, func(key string, value []byte) error {
		pairs = append(pairs, kv{key: key, value: value})
		return nil
	})
	if err != nil {
		return err
	}
	s.reorder(pairs)
	for _, p := range pairs {
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

func reversed(pairs []kv) {
	for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}
}

func shuffled(seed int64) func([]kv) {
	r := rand.New(rand.NewSource(seed))
	return func(pairs []kv) {
		r.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
	}
}

var errBackend = errors.New("backend unavailable")

// failingStore fails the selected operations.
type failingStore struct {
	*store.Memory
	failGet  bool
	failPut  bool
	failScan bool
}

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.failGet {
		return nil, false, errBackend
	}
	return s.Memory.Get(ctx, key)
}

func (s *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if s.failPut {
		return errBackend
	}
	return s.Memory.Put(ctx, key, value)
}

func (s *failingStore) ScanPrefix(ctx context.Context, prefix string, fn ledger.ScanFunc) error {
	if s.failScan {
		return errBackend
	}
	return s.Memory.ScanPrefix(ctx, prefix, fn)
}

// =============================================================================
// ARGUMENT BUILDERS
// =============================================================================

func orderPayArgs(orderID, points, cash string) []string {
	return []string{orderID, "M1", "U1", points, cash, "t0"}
}

func refundArgs(refundID, orderID, points, cash string) []string {
	return []string{refundID, orderID, "M1", "U1", points, cash, "t1"}
}
