package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the samplecache CLI needs to build a model.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Model    ModelConfig    `yaml:"model"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ProviderConfig defines the upstream OpenAI-compatible endpoint.
// Name is a preset ("fireworks", "302ai", "closeai", "xmcp", "openai") or
// any other label when BaseURL is given.
type ProviderConfig struct {
	Name    string        `yaml:"name"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// ModelConfig is the sampling identity plus provider limits.
type ModelConfig struct {
	Name        string            `yaml:"name"`
	Alias       string            `yaml:"alias"`
	Temperature float64           `yaml:"temperature"`
	Params      map[string]string `yaml:"params"`
	MaxBatch    int               `yaml:"max_batch"`
	Parallelism int               `yaml:"parallelism"`
}

// CacheConfig selects where samples are kept. With Inner set, Store is the
// outer store of a nested cache and collects only what a run reads.
type CacheConfig struct {
	Store            StoreConfig  `yaml:"store"`
	Inner            *StoreConfig `yaml:"inner"`
	Replication      bool         `yaml:"replication"`
	InnerReplication bool         `yaml:"inner_replication"`
	Memo             MemoConfig   `yaml:"memo"`
}

// StoreConfig describes one store backend.
// Backend is "fs" (default), "sqlite", "redis" or "memory".
type StoreConfig struct {
	Backend   string        `yaml:"backend"`
	Dir       string        `yaml:"dir"`       // fs
	Path      string        `yaml:"path"`      // sqlite
	Addr      string        `yaml:"addr"`      // redis
	Password  string        `yaml:"password"`  // redis
	DB        int           `yaml:"db"`        // redis
	Namespace string        `yaml:"namespace"` // redis
	Busy      time.Duration `yaml:"busy_timeout"`
}

// MemoConfig puts a prefix memo in front of the (outer) store.
// Backend is "ristretto" (default), "bigcache", or "none" to read the
// store directly.
type MemoConfig struct {
	Backend  string `yaml:"backend"`
	Codec    string `yaml:"codec"`     // cbor (default), json, msgpack, protobuf
	MaxBytes int    `yaml:"max_bytes"` // per memoized prefix; 0 = no limit
	SizeMB   int    `yaml:"size_mb"`
}

// LogConfig selects the logging backend: "logrus" (default), "zap" or "slog".
type LogConfig struct {
	Backend string `yaml:"backend"`
	Level   string `yaml:"level"`
}

// MetricsConfig enables a Prometheus /metrics listener when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Timeout: 2 * time.Minute,
		},
		Model: ModelConfig{
			Temperature: 1,
			MaxBatch:    1,
			Parallelism: 4,
		},
		Cache: CacheConfig{
			Store: StoreConfig{Backend: "fs", Dir: "cache"},
			Memo:  MemoConfig{Backend: "ristretto", SizeMB: 64},
		},
		Log: LogConfig{Backend: "logrus", Level: "info"},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Provider.Name == "" && c.Provider.BaseURL == "" {
		errs = append(errs, errors.New("provider: name or base_url is required"))
	}
	if c.Model.Name == "" {
		errs = append(errs, errors.New("model: name is required"))
	}
	if c.Model.MaxBatch < 1 {
		errs = append(errs, fmt.Errorf("model: max_batch must be >= 1, got %d", c.Model.MaxBatch))
	}
	if c.Model.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("model: parallelism must be >= 0, got %d", c.Model.Parallelism))
	}
	errs = append(errs, c.Cache.Store.validate("cache.store"))
	if c.Cache.Inner != nil {
		errs = append(errs, c.Cache.Inner.validate("cache.inner"))
	}
	switch c.Cache.Memo.Backend {
	case "", "none", "ristretto", "bigcache":
	default:
		errs = append(errs, fmt.Errorf("cache.memo: unknown backend %q", c.Cache.Memo.Backend))
	}
	switch c.Log.Backend {
	case "", "logrus", "zap", "slog":
	default:
		errs = append(errs, fmt.Errorf("log: unknown backend %q", c.Log.Backend))
	}
	return errors.Join(errs...)
}

func (s *StoreConfig) validate(where string) error {
	switch s.Backend {
	case "", "fs":
		if s.Dir == "" {
			return fmt.Errorf("%s: fs backend needs dir", where)
		}
	case "sqlite":
		if s.Path == "" {
			return fmt.Errorf("%s: sqlite backend needs path", where)
		}
	case "redis":
		if s.Addr == "" {
			return fmt.Errorf("%s: redis backend needs addr", where)
		}
	case "memory":
	default:
		return fmt.Errorf("%s: unknown backend %q", where, s.Backend)
	}
	return nil
}
