// Package config loads and validates the runtime configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler, accepting both duration
// strings and plain nanosecond integers.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String formats the duration like time.Duration.
func (d Duration) String() string { return time.Duration(d).String() }

// SupervisorConfig tunes the orchestration layer.
type SupervisorConfig struct {
	MaxConcurrentAgents int      `yaml:"max_concurrent_agents"`
	MaxRetries          int      `yaml:"max_retries"`
	StageTimeout        Duration `yaml:"stage_timeout"`
	MaxRefineIterations int      `yaml:"max_refine_iterations"`
	BreakerThreshold    int      `yaml:"breaker_threshold"`
	BreakerRecovery     Duration `yaml:"breaker_recovery"`
}

// QualityConfig tunes the validation engine.
type QualityConfig struct {
	Threshold    float64 `yaml:"threshold"`
	StrictMode   bool    `yaml:"strict_mode"`
	CacheSize    int     `yaml:"cache_size"`
	HistoryLimit int     `yaml:"history_limit"`
}

// PoolConfig tunes the per-user agent pools.
type PoolConfig struct {
	MinSize        int      `yaml:"min_size"`
	MaxSize        int      `yaml:"max_size"`
	AcquireTimeout Duration `yaml:"acquire_timeout"`
}

// StoreConfig selects the metrics store backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	// Path is the database file for the sqlite backend.
	Path string `yaml:"path"`
}

// Config is the full runtime configuration.
type Config struct {
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Quality    QualityConfig    `yaml:"quality"`
	Pool       PoolConfig       `yaml:"pool"`
	Store      StoreConfig      `yaml:"store"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Supervisor: SupervisorConfig{
			MaxConcurrentAgents: 4,
			MaxRetries:          3,
			StageTimeout:        Duration(30 * time.Second),
			MaxRefineIterations: 2,
			BreakerThreshold:    5,
			BreakerRecovery:     Duration(30 * time.Second),
		},
		Quality: QualityConfig{
			Threshold:    0.5,
			CacheSize:    1024,
			HistoryLimit: 1000,
		},
		Pool: PoolConfig{
			MinSize:        1,
			MaxSize:        4,
			AcquireTimeout: Duration(10 * time.Millisecond),
		},
		Store: StoreConfig{
			Backend: "memory",
		},
	}
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the runtime cannot honor.
func (c Config) Validate() error {
	if c.Supervisor.MaxConcurrentAgents < 1 {
		return fmt.Errorf("supervisor.max_concurrent_agents must be at least 1, got %d", c.Supervisor.MaxConcurrentAgents)
	}
	if c.Supervisor.MaxRetries < 1 {
		return fmt.Errorf("supervisor.max_retries must be at least 1, got %d", c.Supervisor.MaxRetries)
	}
	if c.Supervisor.StageTimeout <= 0 {
		return fmt.Errorf("supervisor.stage_timeout must be positive, got %s", c.Supervisor.StageTimeout)
	}
	if c.Supervisor.MaxRefineIterations < 0 {
		return fmt.Errorf("supervisor.max_refine_iterations must not be negative, got %d", c.Supervisor.MaxRefineIterations)
	}
	if c.Quality.Threshold < 0 || c.Quality.Threshold > 1 {
		return fmt.Errorf("quality.threshold must be within [0, 1], got %g", c.Quality.Threshold)
	}
	if c.Pool.MaxSize < 1 {
		return fmt.Errorf("pool.max_size must be at least 1, got %d", c.Pool.MaxSize)
	}
	if c.Pool.MinSize < 0 || c.Pool.MinSize > c.Pool.MaxSize {
		return fmt.Errorf("pool.min_size must be within [0, max_size], got %d", c.Pool.MinSize)
	}
	if c.Pool.AcquireTimeout <= 0 {
		return fmt.Errorf("pool.acquire_timeout must be positive, got %s", c.Pool.AcquireTimeout)
	}
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}
