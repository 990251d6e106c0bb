package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/graft/pkg/adapters/filedoc"
	"github.com/aretw0/graft/pkg/adapters/memory"
	"github.com/aretw0/graft/pkg/adapters/mongo"
	"github.com/aretw0/graft/pkg/adapters/pgdoc"
	"github.com/aretw0/graft/pkg/adapters/rediscache"
	"github.com/aretw0/graft/pkg/observability"
	"github.com/aretw0/graft/pkg/persistence/middleware"
	"github.com/aretw0/graft/pkg/ports"
)

// Config drives the CLI. Values come from three layers, each overriding the
// previous one: built-in defaults, the YAML file, GRAFT_* environment
// variables.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Cache      CacheConfig      `yaml:"cache"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Encryption EncryptionConfig `yaml:"encryption"`
	PII        PIIConfig        `yaml:"pii"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	// Backend is one of "memory", "file", "mongo" or "postgres".
	Backend  string `yaml:"backend" env:"GRAFT_STORE_BACKEND"`
	URI      string `yaml:"uri" env:"GRAFT_STORE_URI"`
	Database string `yaml:"database" env:"GRAFT_STORE_DATABASE"`
	Table    string `yaml:"table" env:"GRAFT_STORE_TABLE"`
	Path     string `yaml:"path" env:"GRAFT_STORE_PATH"`
}

// CacheConfig selects the read-through cache. Backend "none" disables it.
type CacheConfig struct {
	Backend  string        `yaml:"backend" env:"GRAFT_CACHE_BACKEND"`
	Address  string        `yaml:"address" env:"GRAFT_CACHE_ADDRESS"`
	Password string        `yaml:"password" env:"GRAFT_CACHE_PASSWORD"`
	DB       int           `yaml:"db" env:"GRAFT_CACHE_DB"`
	TTL      time.Duration `yaml:"ttl" env:"GRAFT_CACHE_TTL"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"GRAFT_SERVER_ADDR"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"GRAFT_LOG_LEVEL"`
}

// EncryptionConfig enables at-rest encryption when ActiveKey is set.
// Keys are hex encoded and must decode to 32 bytes.
type EncryptionConfig struct {
	ActiveKey    string   `yaml:"active_key" env:"GRAFT_ENCRYPTION_KEY"`
	FallbackKeys []string `yaml:"fallback_keys" env:"GRAFT_ENCRYPTION_FALLBACK_KEYS" envSeparator:","`
}

// PIIConfig lists field name patterns to mask before documents are stored.
type PIIConfig struct {
	Patterns []string `yaml:"patterns" env:"GRAFT_PII_PATTERNS" envSeparator:","`
}

// Defaults live here rather than in envDefault tags: env.Parse applies
// envDefault whenever the variable is unset, which would stomp values read
// from the file.
func defaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend:  "memory",
			Database: "graft",
		},
		Cache: CacheConfig{
			Backend: "none",
			Address: "localhost:6379",
			TTL:     5 * time.Minute,
		},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// loadConfig reads the YAML file at path and applies environment overrides.
// A missing file is not an error; defaults and the environment still apply.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// buildStore constructs the configured store backend. The caller owns the
// returned store and must Close it.
func buildStore(ctx context.Context, cfg Config) (ports.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memory.NewStore(), nil
	case "file":
		return filedoc.NewStore(cfg.Store.Path)
	case "mongo":
		if cfg.Store.URI == "" {
			return nil, fmt.Errorf("store.uri is required for the mongo backend")
		}
		return mongo.NewStore(ctx, cfg.Store.URI, cfg.Store.Database)
	case "postgres":
		if cfg.Store.URI == "" {
			return nil, fmt.Errorf("store.uri is required for the postgres backend")
		}
		var opts []pgdoc.StoreOption
		if cfg.Store.Table != "" {
			opts = append(opts, pgdoc.WithTable(cfg.Store.Table))
		}
		return pgdoc.NewStore(ctx, cfg.Store.URI, opts...)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildCache constructs the configured cache, or nil when caching is
// disabled.
func buildCache(cfg Config) (ports.Cache, error) {
	switch cfg.Cache.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return memory.NewCache(), nil
	case "redis":
		return rediscache.New(cfg.Cache.Address, cfg.Cache.Password, cfg.Cache.DB), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// buildMiddleware assembles the store middleware chain from the
// configuration. Order matters: masking runs before sealing so PII never
// reaches the crypto layer in the clear, and the cache sits between the
// sealed layer and the store so cached entries are ciphertext envelopes.
func buildMiddleware(cfg Config, logger *slog.Logger, metrics *observability.Metrics) ([]middleware.Middleware, error) {
	var chain []middleware.Middleware

	if metrics != nil {
		chain = append(chain, middleware.NewMetricsMiddleware(metrics))
	}
	if logger != nil {
		chain = append(chain, middleware.NewLoggingMiddleware(logger))
	}

	if len(cfg.PII.Patterns) > 0 {
		for _, p := range cfg.PII.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("pii.patterns: %w", err)
			}
		}
		chain = append(chain, middleware.NewPIIMiddleware(cfg.PII.Patterns))
	}

	if cfg.Encryption.ActiveKey != "" {
		encCfg, err := encryptionKeys(cfg.Encryption)
		if err != nil {
			return nil, err
		}
		chain = append(chain, middleware.NewEncryptionMiddleware(encCfg))
	}

	cache, err := buildCache(cfg)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		chain = append(chain, middleware.NewCacheMiddleware(cache, cfg.Cache.TTL, middleware.WithCacheLogger(logger)))
	}

	return chain, nil
}

func encryptionKeys(cfg EncryptionConfig) (middleware.EncryptionConfig, error) {
	active, err := decodeKey(cfg.ActiveKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("encryption.active_key: %w", err)
	}
	out := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("encryption.fallback_keys[%d]: %w", i, err)
		}
		out.FallbackKeys = append(out.FallbackKeys, key)
	}
	return out, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
