// loader.go reads configuration sources in order: defaults, TOML file,
// .env file, then DESKERR_* environment variables.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DESKERR_"

// ConfigPaths returns the locations searched when no path is given.
func ConfigPaths() []string {
	paths := []string{"deskerr.toml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "deskerr", "config.toml"))
	}
	return append(paths, "/etc/deskerr/config.toml")
}

// Load builds the configuration. An empty path searches ConfigPaths and
// falls back to defaults; envFile, when non-empty, must exist, otherwise a
// ".env" in the working directory is loaded if present. Variables already
// set in the process environment win over the .env file.
func Load(path, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		for _, p := range ConfigPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}

	str("VERSION", &cfg.App.Version)
	str("INSTANCE_ID", &cfg.App.InstanceID)
	str("LANGUAGE", &cfg.App.Language)
	str("COUNTRY_CODE", &cfg.App.CountryCode)
	integer("OPEN_COUNT", &cfg.App.OpenCount)
	boolean("DEV_MODE", &cfg.App.DevMode)

	str("NATS_URL", &cfg.NATS.URL)
	str("NATS_PREFIX", &cfg.NATS.Prefix)
	str("NATS_NAME", &cfg.NATS.Name)
	str("NATS_QUEUE_GROUP", &cfg.NATS.QueueGroup)
	duration("NATS_TIMEOUT", &cfg.NATS.Timeout)

	str("COLLECTOR_DATA_DIR", &cfg.Collector.DataDir)
	str("COLLECTOR_HTTP_ADDR", &cfg.Collector.HTTPAddr)
	duration("COLLECTOR_RETENTION", &cfg.Collector.Retention)
	boolean("COLLECTOR_IN_MEMORY", &cfg.Collector.InMemory)

	str("STORE_PATH", &cfg.Store.Path)
	integer("STORE_KEEP", &cfg.Store.Keep)

	str("ISSUE_BASE_URL", &cfg.Issue.BaseURL)
	str("ISSUE_LABEL", &cfg.Issue.Label)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	boolean("TRACING_ENABLED", &cfg.Tracing.Enabled)
	str("TRACING_ENDPOINT", &cfg.Tracing.Endpoint)
	boolean("TRACING_INSECURE", &cfg.Tracing.Insecure)
	float("TRACING_SAMPLING_RATIO", &cfg.Tracing.SamplingRatio)

	return errors.Join(errs...)
}
