package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/trade-ledger/config"
	"github.com/warp/trade-ledger/store"
)

func TestOpen_Backends(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  config.Store
	}{
		{name: "memory", cfg: config.Store{Backend: config.BackendMemory}},
		{name: "sqlite", cfg: config.Store{Backend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "ledger.db")}},
		{name: "redis", cfg: config.Store{Backend: config.BackendRedis, RedisAddr: mr.Addr(), RedisNamespace: "t:"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st, closer, err := store.Open(ctx, tt.cfg, nil)
			require.NoError(t, err)
			defer closer.Close()

			require.NoError(t, st.Put(ctx, "RECHARGE_C1", []byte("v")))
			got, found, err := st.Get(ctx, "RECHARGE_C1")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "v", string(got))
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, _, err := store.Open(context.Background(), config.Store{Backend: "etcd"}, nil)
	assert.Error(t, err)
}
