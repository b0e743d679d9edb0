/*
Package config loads the service configuration from YAML.

PURPOSE:
  One file describes the server, the store backend, the refund ceiling
  policy and logging. Fields left out of the file keep their defaults;
  command-line flags are applied on top by the binaries.

EXAMPLE:
  server:
    port: 8080
    allowed_origins: ["http://localhost:5173"]
  store:
    backend: sqlite
    sqlite_path: ./data/ledger.db
  engine:
    refund_policy: strict
  log:
    level: info
    format: json

SEE ALSO:
  - cmd/server/main.go: Flag overrides
  - store/open.go: Backend selection
*/
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/warp/trade-ledger/ledger"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the full service configuration.
type Config struct {
	Server Server `yaml:"server"`
	Store  Store  `yaml:"store"`
	Engine Engine `yaml:"engine"`
	Log    Log    `yaml:"log"`
}

// Server configures the HTTP listener.
type Server struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// Store selects and configures the world state backend.
type Store struct {
	Backend        string `yaml:"backend"`
	SQLitePath     string `yaml:"sqlite_path"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	RedisNamespace string `yaml:"redis_namespace"`
}

// Engine configures ledger rules.
type Engine struct {
	RefundPolicy string `yaml:"refund_policy"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Store: Store{
			Backend:    BackendSQLite,
			SQLitePath: "ledger.db",
			RedisAddr:  "localhost:6379",
		},
		Engine: Engine{RefundPolicy: string(ledger.CeilingStrict)},
		Log:    Log{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if _, err := ledger.ParseCeilingPolicy(c.Engine.RefundPolicy); err != nil {
		return fmt.Errorf("engine.refund_policy: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}

// RefundPolicy returns the parsed engine.refund_policy.
func (c Config) RefundPolicy() ledger.CeilingPolicy {
	p, err := ledger.ParseCeilingPolicy(c.Engine.RefundPolicy)
	if err != nil {
		return ledger.CeilingStrict
	}
	return p
}
