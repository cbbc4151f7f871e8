// Package config loads node-process configuration from YAML with
// environment-variable overrides, and builds the zap logger used at the
// outermost composition point. Precedence: defaults, then file, then
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/jsphon/node-process/store"
)

// envPrefix namespaces every override variable.
const envPrefix = "NODE_PROCESS_"

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format: json, console.
	Format string `yaml:"format"`
}

// WorkerConfig sets pooled-worker defaults.
type WorkerConfig struct {
	// PoolSize is the execution-worker count per async node.
	PoolSize int `yaml:"pool_size"`
}

// MetricsConfig enables Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Config is the complete node-process configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Worker  WorkerConfig  `yaml:"worker"`
	Metrics MetricsConfig `yaml:"metrics"`
	Store   store.Config  `yaml:"store"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "console"},
		Worker:  WorkerConfig{PoolSize: 10},
		Metrics: MetricsConfig{Enabled: false, Namespace: "node_process"},
		Store:   store.DefaultConfig(),
	}
}

// Load reads path (optional) over the defaults, then applies environment
// overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from NODE_PROCESS_* variables.
func (c *Config) applyEnv() {
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(envPrefix + "POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Worker.PoolSize = n
		}
	}
	if v := os.Getenv(envPrefix + "METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = b
		}
	}
	if v := os.Getenv(envPrefix + "STORE_TYPE"); v != "" {
		c.Store.Type = store.Type(v)
	}
	if v := os.Getenv(envPrefix + "STORE_DIR"); v != "" {
		c.Store.Dir = v
	}
	if v := os.Getenv(envPrefix + "STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(envPrefix + "REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv(envPrefix + "REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv(envPrefix + "REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Store.Redis.DB = n
		}
	}
}

// Validate rejects configurations that cannot be composed.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Worker.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be positive, got %d", c.Worker.PoolSize)
	}
	switch c.Store.Type {
	case store.TypeMemory, store.TypeFile, store.TypeRedis, store.TypeSQLite, "":
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	return nil
}

// BuildLogger constructs the zap logger described by Log.
func (c Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
