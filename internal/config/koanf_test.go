package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, unknown, err := Load(filepath.Join(t.TempDir(), "settings.json"))

	require.NoError(t, err)
	assert.Empty(t, unknown)
	assert.Equal(t, 8743, cfg.Server.Port)
	assert.True(t, cfg.Server.LANOnly)
	assert.Equal(t, "llama3.1", cfg.Assistant.Model)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	doc := map[string]any{
		"server": map[string]any{"port": 9000},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	cfg, unknown, err := Load(path)

	require.NoError(t, err)
	assert.Empty(t, unknown)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoad_FlagsUnknownTopLevelKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	doc := map[string]any{
		"server":        map[string]any{"port": 9100},
		"totally_wrong": true,
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	cfg, unknown, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"totally_wrong"}, unknown)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoad_EnvOverridesAllowlistOnly(t *testing.T) {
	t.Setenv("videocatalog_api_key", "secret-key")
	t.Setenv("log_level", "debug")
	t.Setenv("not_a_recognized_var", "ignored")

	cfg, _, err := Load(filepath.Join(t.TempDir(), "settings.json"))

	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.Server.APIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestMigrate_NoOpAtCurrentVersion(t *testing.T) {
	raw := map[string]any{"version": 1}

	doc, version, err := Migrate(raw)

	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, version)
	assert.Equal(t, CurrentVersion, doc["version"])
}

func TestMigrate_MissingVersionTreatedAsZero(t *testing.T) {
	raw := map[string]any{}

	_, version, err := Migrate(raw)

	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
}
