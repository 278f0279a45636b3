package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "dossier.db", cfg.Store.Path)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Anthropic.Key)
	assert.Empty(t, cfg.Server.AuthToken)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DOSSIER_STORE_DRIVER", "postgres")
	t.Setenv("DOSSIER_STORE_DATABASE_URL", "postgres://localhost/dossier")
	t.Setenv("DOSSIER_ANTHROPIC_KEY", "sk-test")
	t.Setenv("DOSSIER_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/dossier", cfg.Store.DatabaseURL)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	body := `store:
  driver: postgres
  database_url: postgres://db/dossier
server:
  port: 3000
redaction:
  rules_path: custom-rules.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "custom-rules.yaml", cfg.Redaction.RulesPath)
	// Values the file omits keep their defaults.
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
