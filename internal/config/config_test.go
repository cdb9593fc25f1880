package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	v, err := New(nil)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, "/tmp/online-editor", cfg.WorkspaceRoot)
	assert.Equal(t, "gopls", cfg.GoplsPath)
	assert.Equal(t, "typescript-language-server", cfg.TSServerPath)
	assert.Equal(t, "http://localhost:3000", cfg.CORSOrigin)
	assert.Equal(t, 300, cfg.IdleTimeoutSeconds)
	assert.EqualValues(t, 16<<20, cfg.MaxFrameBytes)
}

// TestNewReadsUnprefixedEnvVars locks in that AutomaticEnv has no
// SetEnvPrefix: bennypowers-cem/cmd/root.go reads bare environment
// variables, and so must this proxy's documented PORT/WORKSPACE_ROOT
// contract.
func TestNewReadsUnprefixedEnvVars(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("WORKSPACE_ROOT", "/srv/workspace")
	t.Setenv("GOPLS_PATH", "/usr/local/bin/gopls")
	t.Setenv("TS_SERVER_PATH", "/usr/local/bin/ts-language-server")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGIN", "https://example.com")

	v, err := New(nil)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "/srv/workspace", cfg.WorkspaceRoot)
	assert.Equal(t, "/usr/local/bin/gopls", cfg.GoplsPath)
	assert.Equal(t, "/usr/local/bin/ts-language-server", cfg.TSServerPath)
	assert.Equal(t, "https://example.com", cfg.CORSOrigin)
}

func TestLoadRejectsEmptyWorkspaceRoot(t *testing.T) {
	v, err := New(nil)
	require.NoError(t, err)
	v.Set(keyWorkspaceRoot, "")

	_, err = Load(v)
	assert.Error(t, err)
}

func TestLoadRejectsPortOutOfRange(t *testing.T) {
	v, err := New(nil)
	require.NoError(t, err)
	v.Set(keyPort, 70000)

	_, err = Load(v)
	assert.Error(t, err)
}
