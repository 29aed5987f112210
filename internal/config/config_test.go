package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:6142", cfg.Server.Address())
	assert.Equal(t, 20, cfg.Pipeline.MaxSuggestions)
	assert.Equal(t, DefaultMarker, cfg.Pipeline.Marker)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prlens.toml")
	require.NoError(t, os.WriteFile(path, []byte("[pipeline]\nmax_suggestions = 7\n\n[server]\nport = 9000\n"), 0o644))

	t.Setenv("PRLENS_LOG_LEVEL", "debug")
	t.Setenv("PRLENS_JOBS_QUEUE_SIZE", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.MaxSuggestions)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Jobs.QueueSize)
	assert.Equal(t, 1000000, cfg.Pipeline.MaxContentBytes)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prlens.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nformat = \"xml\"\n"), 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)

	t.Setenv("PRLENS_PIPELINE_MAX_SUGGESTIONS", "0")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty marker", func(c *Config) { c.Pipeline.Marker = "  " }},
		{"zero patch limit", func(c *Config) { c.Pipeline.MaxPatchBytes = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no workers", func(c *Config) { c.Jobs.Workers = 0 }},
		{"unbuffered queue", func(c *Config) { c.Jobs.QueueSize = 0 }},
		{"no finished jobs kept", func(c *Config) { c.Jobs.MaxFinished = 0 }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prlens.toml")
	require.NoError(t, Init(path))
	assert.Error(t, Init(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, *Default(), *cfg)
}
