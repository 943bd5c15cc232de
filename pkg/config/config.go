// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/airmood/go-exposure-timeline/pkg/temporal"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Temporal TemporalConfig `yaml:"temporal"`
	Worker   WorkerConfig   `yaml:"worker"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig controls the HTTP listener.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// TemporalConfig contains connection settings for the Temporal cluster.
type TemporalConfig struct {
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"taskQueue"`
}

// WorkerConfig bounds worker concurrency; zero keeps the SDK default.
type WorkerConfig struct {
	MaxConcurrentActivities int `yaml:"maxConcurrentActivities"`
	MaxConcurrentWorkflows  int `yaml:"maxConcurrentWorkflows"`
}

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file and environment variables.
// An empty path falls back to EXPOSURE_CONFIG, then to configs/config.yaml
// when that file exists.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv("EXPOSURE_CONFIG")
	}
	if path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EXPOSURE_HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("EXPOSURE_TEMPORAL_ADDRESS"); v != "" {
		cfg.Temporal.Address = v
	}
	if v := os.Getenv("EXPOSURE_TEMPORAL_NAMESPACE"); v != "" {
		cfg.Temporal.Namespace = v
	}
	if v := os.Getenv("EXPOSURE_TASK_QUEUE"); v != "" {
		cfg.Temporal.TaskQueue = v
	}
	if v := os.Getenv("EXPOSURE_WORKER_MAX_ACTIVITIES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Worker.MaxConcurrentActivities = parsed
		}
	}
	if v := os.Getenv("EXPOSURE_WORKER_MAX_WORKFLOWS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Worker.MaxConcurrentWorkflows = parsed
		}
	}
	if v := os.Getenv("EXPOSURE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EXPOSURE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address: ":8080",
		},
		Temporal: TemporalConfig{
			Address:   "localhost:7233",
			Namespace: "default",
			TaskQueue: temporal.DefaultTaskQueue,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.Temporal.Address == "" {
		return errors.New("temporal.address cannot be empty")
	}
	if c.Temporal.Namespace == "" {
		return errors.New("temporal.namespace cannot be empty")
	}
	if c.Temporal.TaskQueue == "" {
		return errors.New("temporal.taskQueue cannot be empty")
	}
	if c.Worker.MaxConcurrentActivities < 0 {
		return errors.New("worker.maxConcurrentActivities cannot be negative")
	}
	if c.Worker.MaxConcurrentWorkflows < 0 {
		return errors.New("worker.maxConcurrentWorkflows cannot be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}
