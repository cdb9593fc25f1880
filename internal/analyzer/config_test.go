package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.Defaults()
	assert.Equal(t, 10*time.Second, cfg.InitTimeout)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 3, cfg.RestartBudget)
	assert.Equal(t, 60*time.Second, cfg.RestartWindow)
	assert.Equal(t, time.Second, cfg.RestartDelay)
	assert.Equal(t, 2*time.Second, cfg.ShutdownGrace)
}

func TestConfigDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{IdleTimeout: 30 * time.Second, RestartBudget: 1}.Defaults()
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 1, cfg.RestartBudget)
}

func TestNewRegistryCoversAllLanguages(t *testing.T) {
	reg := NewRegistry("gopls", "typescript-language-server", time.Minute)

	goCfg, ok := reg["go"]
	assert.True(t, ok)
	assert.Equal(t, "gopls", goCfg.Command)
	assert.Equal(t, []string{"serve"}, goCfg.Args)

	for _, lang := range []string{"typescript", "typescriptreact", "javascript", "javascriptreact"} {
		cfg, ok := reg[lang]
		assert.True(t, ok, "expected registry entry for %s", lang)
		assert.Equal(t, "typescript-language-server", cfg.Command)
		assert.Equal(t, []string{"--stdio"}, cfg.Args)
		assert.Equal(t, lang, cfg.LanguageID)
	}

	_, ok = reg["rust"]
	assert.False(t, ok)
}
