// Package config loads photocat settings.
//
// Precedence: defaults, then the YAML file, then PHOTOCAT_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvPrefix = "PHOTOCAT"

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type StorageConfig struct {
	// Backend is "file", "badger" or "memory".
	Backend string `yaml:"backend"`
	// Path is the catalog JSON file used by the file backend.
	Path string `yaml:"path"`
	// BadgerDir is the database directory used by the badger backend.
	BadgerDir string `yaml:"badger_dir"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RateLimit is requests per second across all clients; 0 disables it.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend:   "file",
			Path:      "photos.json",
			BadgerDir: "data/badger",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "photocat",
		},
	}
}

// Load merges the YAML file at path over the defaults, then applies
// environment overrides. An empty or missing path leaves the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + "_" + name); ok {
			*dst = v
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + "_" + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s_%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("STORAGE_BACKEND", &cfg.Storage.Backend)
	str("STORAGE_PATH", &cfg.Storage.Path)
	str("STORAGE_BADGER_DIR", &cfg.Storage.BadgerDir)
	str("SERVER_ADDR", &cfg.Server.Addr)
	dur("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	dur("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	dur("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("METRICS_NAMESPACE", &cfg.Metrics.Namespace)

	if v, ok := lookup(EnvPrefix + "_SERVER_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s_SERVER_RATE_LIMIT: %w", EnvPrefix, err))
		} else {
			cfg.Server.RateLimit = f
		}
	}
	if v, ok := lookup(EnvPrefix + "_SERVER_RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s_SERVER_RATE_BURST: %w", EnvPrefix, err))
		} else {
			cfg.Server.RateBurst = n
		}
	}
	if v, ok := lookup(EnvPrefix + "_METRICS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s_METRICS_ENABLED: %w", EnvPrefix, err))
		} else {
			cfg.Metrics.Enabled = b
		}
	}

	return errors.Join(errs...)
}

// normalize folds case-insensitive names to the spelling the rest of the
// program switches on.
func (c *Config) normalize() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate expects normalized names; Load normalizes before calling it.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "file":
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the file backend")
		}
	case "badger":
		if c.Storage.BadgerDir == "" {
			return errors.New("storage.badger_dir is required for the badger backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("server rate limit must not be negative")
	}
	return nil
}
