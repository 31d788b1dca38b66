package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "deskerr", cfg.NATS.Prefix)
	assert.Equal(t, 5*time.Second, cfg.NATS.Timeout)
	assert.Equal(t, "bug", cfg.Issue.Label)
}

func TestLoad_TOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "deskerr.toml", `
[app]
version = "1.4.0"
language = "de_de"
country_code = "de"

[nats]
url = "nats://example:4222"
timeout = "750ms"

[collector]
in_memory = true
retention = "48h"

[issue]
base_url = "https://tracker.example/new"
label = "crash"
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "1.4.0", cfg.App.Version)
	assert.Equal(t, "de-DE", cfg.App.Language)
	assert.Equal(t, "nats://example:4222", cfg.NATS.URL)
	assert.Equal(t, 750*time.Millisecond, cfg.NATS.Timeout)
	assert.Equal(t, 48*time.Hour, cfg.Collector.Retention)
	assert.True(t, cfg.Collector.InMemory)
	assert.Equal(t, "crash", cfg.IssueTracker().Label)

	// Unset sections keep their defaults.
	assert.Equal(t, "deskerr", cfg.NATS.Prefix)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "deskerr.toml", `
[app]
version = "1.0.0"
`)
	t.Setenv("DESKERR_VERSION", "2.0.0")
	t.Setenv("DESKERR_DEV_MODE", "true")
	t.Setenv("DESKERR_OPEN_COUNT", "7")
	t.Setenv("DESKERR_TRACING_SAMPLING_RATIO", "0.25")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", cfg.App.Version)
	assert.True(t, cfg.App.DevMode)
	assert.Equal(t, 7, cfg.App.OpenCount)
	assert.Equal(t, 0.25, cfg.Tracing.SamplingRatio)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, "test.env", "DESKERR_INSTANCE_ID=from-dotenv\nDESKERR_NATS_PREFIX=acme\n")
	t.Setenv("DESKERR_NATS_PREFIX", "from-process")
	// godotenv sets variables; make sure the test does not leak them.
	t.Setenv("DESKERR_INSTANCE_ID", "")
	require.NoError(t, os.Unsetenv("DESKERR_INSTANCE_ID"))

	cfg, err := Load(writeFile(t, dir, "empty.toml", ""), envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.App.InstanceID)
	assert.Equal(t, "from-process", cfg.NATS.Prefix, "process environment wins over .env")
}

func TestLoad_MissingEnvFile(t *testing.T) {
	_, err := Load(writeFile(t, t.TempDir(), "empty.toml", ""), "/nonexistent/.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load env file")
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("DESKERR_NATS_TIMEOUT", "soon")

	_, err := Load(writeFile(t, t.TempDir(), "empty.toml", ""), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DESKERR_NATS_TIMEOUT")
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.toml", "[app\nversion=")

	_, err := Load(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing nats url", func(c *Config) { c.NATS.URL = "" }, "nats.url"},
		{"missing prefix", func(c *Config) { c.NATS.Prefix = "" }, "nats.prefix"},
		{"bad ratio", func(c *Config) { c.Tracing.SamplingRatio = 1.5 }, "sampling_ratio"},
		{"tracing without endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Endpoint = ""
		}, "tracing.endpoint"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"relative issue url", func(c *Config) { c.Issue.BaseURL = "issues/new" }, "issue.base_url"},
		{"bad language", func(c *Config) { c.App.Language = "not a tag!" }, "app.language"},
		{"no data dir", func(c *Config) { c.Collector.DataDir = "" }, "collector.data_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeLanguage(t *testing.T) {
	got, err := NormalizeLanguage("")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = NormalizeLanguage("en-us")
	require.NoError(t, err)
	assert.Equal(t, "en-US", got)

	got, err = NormalizeLanguage("pt_BR")
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", got)
}

func TestEnvironment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.App.Version = "3.1.0"
	cfg.App.InstanceID = "inst-1"
	cfg.App.OpenCount = 4

	env := cfg.Environment()
	assert.Equal(t, "3.1.0", env.Version)
	assert.Equal(t, "inst-1", env.InstanceID)
	assert.Equal(t, 4, env.OpenCount)
	assert.NotEmpty(t, env.Platform)
}
