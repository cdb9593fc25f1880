package analyzer

import "time"

// Config is the per-language spawn configuration the manager looks up
// a Process from (GOPLS_PATH, TS_SERVER_PATH).
type Config struct {
	LanguageID string
	Command    string
	Args       []string

	// InitTimeout bounds the initialize handshake (default 10s).
	InitTimeout time.Duration
	// IdleTimeout is how long an analyzer may go without an outbound
	// message before it is stopped (default 5m).
	IdleTimeout time.Duration
	// RestartBudget is the number of crash-restarts allowed within
	// RestartWindow before the process gives up and stays Stopped
	// (default 3 within 60s).
	RestartBudget int
	RestartWindow time.Duration
	// RestartDelay is the pause before a post-crash respawn (default 1s).
	RestartDelay time.Duration
	// ShutdownGrace bounds how long Stop waits for the analyzer's
	// shutdown/exit handshake to finish before killing the process
	// outright (default 2s).
	ShutdownGrace time.Duration
}

// Defaults fills in any zero-valued duration/budget fields with
// sensible defaults.
func (c Config) Defaults() Config {
	if c.InitTimeout <= 0 {
		c.InitTimeout = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.RestartBudget <= 0 {
		c.RestartBudget = 3
	}
	if c.RestartWindow <= 0 {
		c.RestartWindow = 60 * time.Second
	}
	if c.RestartDelay <= 0 {
		c.RestartDelay = 1 * time.Second
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 2 * time.Second
	}
	return c
}

// Registry maps a languageId to the Config used to spawn its analyzer.
type Registry map[string]Config

// NewRegistry builds the two analyzers the proxy ships with out of
// the box: gopls for Go, typescript-language-server for TS/JS.
func NewRegistry(goplsPath, tsServerPath string, idleTimeout time.Duration) Registry {
	base := Config{IdleTimeout: idleTimeout}.Defaults()

	goCfg := base
	goCfg.LanguageID = "go"
	goCfg.Command = goplsPath
	goCfg.Args = []string{"serve"}

	tsCfg := base
	tsCfg.Command = tsServerPath
	tsCfg.Args = []string{"--stdio"}

	reg := Registry{
		"go": goCfg,
	}
	for _, lang := range []string{"typescript", "typescriptreact", "javascript", "javascriptreact"} {
		c := tsCfg
		c.LanguageID = lang
		reg[lang] = c
	}
	return reg
}
