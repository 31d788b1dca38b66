// Package config loads deskerr configuration from a TOML file, an optional
// .env file and DESKERR_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

// Config is the root configuration.
type Config struct {
	App       AppConfig       `toml:"app"`
	NATS      NATSConfig      `toml:"nats"`
	Collector CollectorConfig `toml:"collector"`
	Store     StoreConfig     `toml:"store"`
	Issue     IssueConfig     `toml:"issue"`
	Logging   LoggingConfig   `toml:"logging"`
	Tracing   TracingConfig   `toml:"tracing"`
}

// AppConfig is the application state attached to reports.
type AppConfig struct {
	Version     string `toml:"version"`
	InstanceID  string `toml:"instance_id"`
	Language    string `toml:"language"`
	CountryCode string `toml:"country_code"`
	OpenCount   int    `toml:"open_count"`
	DevMode     bool   `toml:"dev_mode"`
}

// NATSConfig configures the inter-process transport.
type NATSConfig struct {
	URL        string        `toml:"url"`
	Prefix     string        `toml:"prefix"`
	Name       string        `toml:"name"`
	QueueGroup string        `toml:"queue_group"`
	Timeout    time.Duration `toml:"timeout"`
}

// CollectorConfig configures the collector service.
type CollectorConfig struct {
	DataDir   string        `toml:"data_dir"`
	HTTPAddr  string        `toml:"http_addr"`
	Retention time.Duration `toml:"retention"`
	InMemory  bool          `toml:"in_memory"`
}

// StoreConfig configures the on-disk copy of the error log.
type StoreConfig struct {
	Path string `toml:"path"`
	Keep int    `toml:"keep"`
}

// IssueConfig configures the issue tracker.
type IssueConfig struct {
	BaseURL string `toml:"base_url"`
	Label   string `toml:"label"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled       bool    `toml:"enabled"`
	Endpoint      string  `toml:"endpoint"`
	Insecure      bool    `toml:"insecure"`
	SamplingRatio float64 `toml:"sampling_ratio"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Version: "dev",
		},
		NATS: NATSConfig{
			URL:        "nats://127.0.0.1:4222",
			Prefix:     "deskerr",
			Name:       "deskerr",
			QueueGroup: "deskerr-collectors",
			Timeout:    5 * time.Second,
		},
		Collector: CollectorConfig{
			DataDir:   filepath.Join(defaultDataDir(), "collector"),
			HTTPAddr:  "127.0.0.1:8089",
			Retention: 30 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Path: filepath.Join(defaultDataDir(), "errors.db"),
			Keep: 5000,
		},
		Issue: IssueConfig{
			BaseURL: deskerr.DefaultIssueBaseURL,
			Label:   deskerr.DefaultIssueLabel,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Endpoint:      "localhost:4317",
			Insecure:      true,
			SamplingRatio: 1.0,
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "deskerr")
	}
	return filepath.Join(os.TempDir(), "deskerr")
}

// Validate checks the configuration and canonicalizes the language tag.
func (c *Config) Validate() error {
	var errs []error

	if c.NATS.URL == "" {
		errs = append(errs, errors.New("nats.url is required"))
	}
	if c.NATS.Prefix == "" {
		errs = append(errs, errors.New("nats.prefix is required"))
	}
	if c.NATS.Timeout < 0 {
		errs = append(errs, errors.New("nats.timeout must not be negative"))
	}
	if c.Collector.HTTPAddr == "" {
		errs = append(errs, errors.New("collector.http_addr is required"))
	}
	if !c.Collector.InMemory && c.Collector.DataDir == "" {
		errs = append(errs, errors.New("collector.data_dir is required unless in_memory is set"))
	}
	if c.Store.Keep < 0 {
		errs = append(errs, errors.New("store.keep must not be negative"))
	}
	if c.Tracing.SamplingRatio < 0 || c.Tracing.SamplingRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sampling_ratio must be within [0, 1], got %v", c.Tracing.SamplingRatio))
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("tracing.endpoint is required when tracing is enabled"))
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format))
	}
	if u, err := url.Parse(c.Issue.BaseURL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("issue.base_url must be an absolute URL, got %q", c.Issue.BaseURL))
	}

	lang, err := NormalizeLanguage(c.App.Language)
	if err != nil {
		errs = append(errs, err)
	} else {
		c.App.Language = lang
	}

	return errors.Join(errs...)
}

// NormalizeLanguage canonicalizes a BCP 47 tag, e.g. "EN_us" -> "en-US".
// The empty string is allowed and stays empty.
func NormalizeLanguage(tag string) (string, error) {
	if tag == "" {
		return "", nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("app.language %q is not a valid language tag: %w", tag, err)
	}
	return t.String(), nil
}

// Environment converts the app section into the snapshot reports carry.
func (c *Config) Environment() deskerr.Environment {
	return deskerr.Environment{
		Platform:    deskerr.DefaultPlatform(),
		Version:     c.App.Version,
		Language:    c.App.Language,
		InstanceID:  c.App.InstanceID,
		OpenCount:   c.App.OpenCount,
		CountryCode: c.App.CountryCode,
		DevMode:     c.App.DevMode,
	}
}

// IssueTracker converts the issue section.
func (c *Config) IssueTracker() deskerr.IssueConfig {
	return deskerr.IssueConfig{BaseURL: c.Issue.BaseURL, Label: c.Issue.Label}
}
