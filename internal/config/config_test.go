package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce.Duration)
	assert.Equal(t, time.Minute, cfg.CacheTTL.Duration)
	assert.Equal(t, 100, cfg.MaxWidgets)
	assert.Zero(t, cfg.FetchTimeout.Duration)
	assert.True(t, strings.HasPrefix(cfg.DBPath, home))
}

func TestLoad_ParsesValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(writeConfig(t, `
db_path = " ~/idx/names.db "
listen = ":9000"
remote_url = "http://runs.internal:7480"
project = "vision"
debounce = "150ms"
cache_ttl = "2m"
max_widgets = 40
fetch_timeout = "5s"
log_level = "debug"
log_format = "JSON"
`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "idx/names.db"), cfg.DBPath)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "http://runs.internal:7480", cfg.RemoteURL)
	assert.Equal(t, "vision", cfg.Project)
	assert.Equal(t, 150*time.Millisecond, cfg.Debounce.Duration)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL.Duration)
	assert.Equal(t, 40, cfg.MaxWidgets)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout.Duration)
	assert.Equal(t, "json", cfg.LogFormat)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(writeConfig(t, `
project = "  "
max_widgets = 0
db_path = ":memory:"
`))
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Project)
	assert.Equal(t, 100, cfg.MaxWidgets)
	assert.Equal(t, ":memory:", cfg.DBPath)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := Load(writeConfig(t, `debounce = "soon"`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `colour = "blue"`))
	assert.ErrorContains(t, err, "unknown keys colour")

	_, err = Load(writeConfig(t, `debounce = "-1s"`))
	assert.ErrorContains(t, err, "debounce")

	_, err = Load(writeConfig(t, `log_level = "loud"`))
	assert.ErrorContains(t, err, "log_level")

	_, err = Load(writeConfig(t, `log_format = "xml"`))
	assert.ErrorContains(t, err, "log_format")
}
