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

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.ResultTTL)
	assert.Equal(t, ".rowflow/results", cfg.StoreDir)
	assert.Empty(t, cfg.EncryptionKey)
	assert.Empty(t, cfg.Redact)
	assert.Equal(t, []any{-9.0, -1.0}, cfg.NoAnswerValues())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rowflow.yaml")
	content := []byte(`
log_level: debug
auto_fill: true
no_answer: [99, "NS"]
port: 9000
result_ttl: 1h
redact: ["^name$", "phone"]
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	t.Setenv("ROWFLOW_PORT", "9100")
	t.Setenv("ROWFLOW_STORE_DIR", "/tmp/results")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.AutoFill)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, time.Hour, cfg.ResultTTL)
	assert.Equal(t, "/tmp/results", cfg.StoreDir)
	assert.Equal(t, []string{"^name$", "phone"}, cfg.Redact)
	assert.Equal(t, []any{99.0, "NS"}, cfg.NoAnswerValues())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
