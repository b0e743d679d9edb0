/*
Package redis provides a Redis-backed implementation of ledger.Store.

PURPOSE:
  Lets several ledger processes share one world state. Every ledger key is
  stored as a plain Redis string under an optional namespace prefix.

KEY LAYOUT:
  <namespace><ledger key>   e.g. "ledger:ORDERPAY_o1"

PREFIX SCANS:
  ScanPrefix walks SCAN with MATCH <namespace><prefix>*, sorts the keys,
  then fetches values in MGET batches. Keys deleted between SCAN and MGET
  are skipped. Glob metacharacters in the prefix are escaped.

CONSISTENCY:
  No transactions are used. The engine issues at most one Put per call and
  relies on the host to serialize calls, so Redis only has to provide
  single-key read-after-write.

SEE ALSO:
  - ledger/store.go: Interface definition
  - store/sqlite/sqlite.go: File-backed implementation
*/
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/trade-ledger/ledger"
)

const defaultScanCount = 256

// Store implements ledger.Store over a Redis client.
type Store struct {
	client    goredis.UniversalClient
	namespace string
	scanCount int64
	logger    *zap.Logger
}

var _ ledger.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithNamespace prefixes every key written by the store.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		s.namespace = ns
	}
}

// WithScanCount sets the COUNT hint for SCAN and the MGET batch size.
func WithScanCount(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.scanCount = n
		}
	}
}

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New wraps an existing client. The client is owned by the caller.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, scanCount: defaultScanCount}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// NewClient connects to addr and checks the connection with PING.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect redis %s: %w", addr, err)
	}
	return client, nil
}

// =============================================================================
// STATE STORE (ledger.Store interface)
// =============================================================================

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key with no expiry.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if err := s.client.Set(ctx, s.namespace+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// ScanPrefix visits every pair whose key starts with prefix, in key order.
func (s *Store) ScanPrefix(ctx context.Context, prefix string, fn ledger.ScanFunc) error {
	keys, err := s.keys(ctx, prefix)
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += int(s.scanCount) {
		end := start + int(s.scanCount)
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		values, err := s.client.MGet(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("failed to mget under %s: %w", prefix, err)
		}
		for i, v := range values {
			if v == nil {
				s.logger.Debug("key vanished during scan", zap.String("key", batch[i]))
				continue
			}
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("unexpected value type %T for %s", v, batch[i])
			}
			if err := fn(strings.TrimPrefix(batch[i], s.namespace), []byte(str)); err != nil {
				return err
			}
		}
	}
	return nil
}

// keys returns every namespaced key under prefix, sorted.
func (s *Store) keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(s.namespace+prefix) + "*"

	seen := make(map[string]struct{})
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, s.scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", prefix, err)
		}
		for _, k := range batch {
			seen[k] = struct{}{}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
