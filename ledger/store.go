/*
store.go - Host store interface

PURPOSE:
  Defines the boundary between the engine and the replicated key-value
  store that hosts the ledger. The engine needs exactly three primitives:
  point read, point write and prefix scan.

CONTRACT:
  - Get returns found=false for an absent key. An empty value is treated
    as absent by the engine.
  - Put stores a value. Only init ever overwrites an existing key.
  - ScanPrefix visits every pair whose key starts with prefix. Visit order
    is unspecified and the engine never depends on it.
  - Implementations must be deterministic: the same sequence of writes
    produces the same reads.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory for tests and single-process use
  - store/sqlite/sqlite.go: SQLite-backed
  - store/redis/redis.go: Redis-backed

SEE ALSO:
  - guard.go: Idempotency check built on Get
  - refund.go: Aggregation built on ScanPrefix
*/
package ledger

import "context"

// ScanFunc receives one key/value pair during a prefix scan. Returning an
// error stops the scan and is returned from ScanPrefix.
type ScanFunc func(key string, value []byte) error

// Store is the host ledger state.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	ScanPrefix(ctx context.Context, prefix string, fn ScanFunc) error
}
