package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:8080", cfg.Address())
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "*/15 * * * *", cfg.Scratch.PurgeSchedule)
	assert.Equal(t, 3, cfg.Analysis.DefaultK)
	assert.Equal(t, int64(42), cfg.Analysis.SampleSeed)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SALESDASH_SERVER_PORT", "9090")
	t.Setenv("SALESDASH_LOGGER_FORMAT", "text")
	t.Setenv("SALESDASH_CACHE_TTL", "5m")
	t.Setenv("SALESDASH_SERVER_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "text", cfg.Logger.Format)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	content := "server:\n  port: 7070\nanalysis:\n  default_k: 4\n  sample_fallback: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Analysis.DefaultK)
	assert.True(t, cfg.Analysis.SampleFallback)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad level", func(c *Config) { c.Logger.Level = "loud" }, "logger.level"},
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
		{"short session key", func(c *Config) { c.Server.SessionKey = "abc" }, "session_key"},
		{"zero k", func(c *Config) { c.Analysis.DefaultK = 0 }, "default_k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
