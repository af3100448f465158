package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 400.0, cfg.Canvas.CenterX)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
port: 9090
ai:
  provider: ollama
  model: llama3.1
  timeout: 15s
canvas:
  center_x: 10
`)

	cfg, err := Load(path, envMap(nil))

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, "llama3.1", cfg.AI.Model)
	assert.Equal(t, 15*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 10.0, cfg.Canvas.CenterX)
	// Untouched keys keep their defaults.
	assert.Equal(t, "./scribe.db", cfg.DBPath)
	assert.Equal(t, 300.0, cfg.Canvas.CenterY)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "port: 9090\nai:\n  provider: ollama\n")

	cfg, err := Load(path, envMap(map[string]string{
		"SCRIBE_PORT":        "7070",
		"SCRIBE_AI_PROVIDER": "Bedrock",
		"SCRIBE_AI_TIMEOUT":  "5s",
	}))

	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "bedrock", cfg.AI.Provider)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load(writeFile(t, "port: [1"), nil)
	assert.Error(t, err)

	_, err = Load(writeFile(t, "port: 1"), envMap(map[string]string{"SCRIBE_PORT": "abc"}))
	assert.ErrorContains(t, err, "SCRIBE_PORT")

	_, err = Load(writeFile(t, "ai:\n  provider: gemini\n"), nil)
	assert.ErrorContains(t, err, "unknown ai provider")
}

func TestLoadWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
