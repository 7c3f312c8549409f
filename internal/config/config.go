// Package config loads the manager's runtime configuration from an optional
// YAML file with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration for the attest manager.
type Config struct {
	Env       string          `yaml:"env"`
	Port      int             `yaml:"port"`
	Database  string          `yaml:"database"`
	LogLevel  string          `yaml:"log_level"`
	Worker    WorkerConfig    `yaml:"worker"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// WorkerConfig bounds outbound worker calls.
type WorkerConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// SchedulerConfig controls cron-driven runs.
type SchedulerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	SyncInterval time.Duration `yaml:"sync_interval"`
	RunTimeout   time.Duration `yaml:"run_timeout"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		Env:      "development",
		Port:     3002,
		Database: "attest.db",
		LogLevel: "info",
		Worker: WorkerConfig{
			Timeout: 30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			SyncInterval: time.Minute,
			RunTimeout:   5 * time.Minute,
		},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist, then applies environment overrides. An empty path
// skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays ATTEST_* environment variables. Env vars win over the
// file, matching how the service is deployed.
func (c *Config) applyEnv() error {
	if v := os.Getenv("ATTEST_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("ATTEST_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ATTEST_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("ATTEST_DB"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("ATTEST_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}
