// Package store opens the configured ledger.Store backend.
package store

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/warp/trade-ledger/config"
	"github.com/warp/trade-ledger/ledger"
	memstore "github.com/warp/trade-ledger/ledger/store"
	"github.com/warp/trade-ledger/store/redis"
	"github.com/warp/trade-ledger/store/sqlite"
)

// Open returns the backend named by cfg and a closer that releases it.
func Open(ctx context.Context, cfg config.Store, logger *zap.Logger) (ledger.Store, io.Closer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case config.BackendMemory:
		logger.Info("using memory store")
		return memstore.NewMemory(), io.NopCloser(nil), nil

	case config.BackendSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return s, s, nil

	case config.BackendRedis:
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis store",
			zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB),
			zap.String("namespace", cfg.RedisNamespace),
		)
		s := redis.New(client, redis.WithNamespace(cfg.RedisNamespace), redis.WithLogger(logger))
		return s, client, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
