// Package config loads the proxy's runtime configuration, following
// bennypowers-cem/cmd's wiring: flags bound onto viper keys via
// viper.BindPFlag, environment variables picked up with
// viper.AutomaticEnv, defaults set with viper.SetDefault. Unlike cem
// (a project-local config.yaml reader), this proxy has no project
// config file — every value is process-wide, so the config lives on
// its own *viper.Viper instance rather than the package-global one.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Lewin671/oneline-editor/internal/logging"
)

// Config is the fully resolved set of values the supervisor needs to
// wire up the transport, workspace and analyzer manager.
type Config struct {
	// Port is the TCP port the HTTP/WebSocket server listens on.
	Port int
	// WorkspaceRoot is the absolute path the workspace store resolves
	// every document URI against.
	WorkspaceRoot string
	// GoplsPath is the executable used to spawn the Go analyzer.
	GoplsPath string
	// TSServerPath is the executable used to spawn the TypeScript
	// analyzer.
	TSServerPath string
	// LogLevel gates the leveled logger.
	LogLevel logging.Level
	// CORSOrigin is the single allowed Origin for both the HTTP API
	// and the WebSocket upgrade's Origin check; "*" disables the
	// check (development only).
	CORSOrigin string
	// IdleTimeoutSeconds is how long an analyzer may go without an
	// outbound message before its own idle timer stops it.
	IdleTimeoutSeconds int
	// MaxFrameBytes bounds a single WebSocket frame.
	MaxFrameBytes int64
}

const (
	keyPort          = "port"
	keyWorkspaceRoot = "workspace_root"
	keyGoplsPath     = "gopls_path"
	keyTSServerPath  = "ts_server_path"
	keyLogLevel      = "log_level"
	keyCORSOrigin    = "cors_origin"
	keyIdleTimeout   = "idle_timeout_seconds"
	keyMaxFrameBytes = "max_frame_bytes"
)

// New builds the *viper.Viper instance the proxy reads its settings
// from: defaults first, then bare environment variables (PORT,
// WORKSPACE_ROOT, GOPLS_PATH, TS_SERVER_PATH, LOG_LEVEL, CORS_ORIGIN),
// then any flags bound by the caller (see internal/cmd). No env prefix
// is set, matching bennypowers-cem/cmd/root.go's unprefixed
// viper.AutomaticEnv() wiring.
func New(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault(keyPort, 3001)
	v.SetDefault(keyWorkspaceRoot, "/tmp/online-editor")
	v.SetDefault(keyGoplsPath, "gopls")
	v.SetDefault(keyTSServerPath, "typescript-language-server")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyCORSOrigin, "http://localhost:3000")
	v.SetDefault(keyIdleTimeout, 300)
	v.SetDefault(keyMaxFrameBytes, 16<<20) // 16 MiB

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	return v, nil
}

// Load resolves a Config from an already-populated *viper.Viper (see
// New). Kept separate from New so tests can build a Config directly
// from a viper.Viper populated with v.Set(...), without touching flags
// or the environment.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:               v.GetInt(keyPort),
		WorkspaceRoot:      v.GetString(keyWorkspaceRoot),
		GoplsPath:          v.GetString(keyGoplsPath),
		TSServerPath:       v.GetString(keyTSServerPath),
		LogLevel:           logging.ParseLevel(v.GetString(keyLogLevel)),
		CORSOrigin:         v.GetString(keyCORSOrigin),
		IdleTimeoutSeconds: v.GetInt(keyIdleTimeout),
		MaxFrameBytes:      v.GetInt64(keyMaxFrameBytes),
	}
	if cfg.WorkspaceRoot == "" {
		return Config{}, fmt.Errorf("workspace_root must not be empty")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.IdleTimeoutSeconds <= 0 {
		return Config{}, fmt.Errorf("idle_timeout_seconds must be positive")
	}
	if cfg.MaxFrameBytes <= 0 {
		return Config{}, fmt.Errorf("max_frame_bytes must be positive")
	}
	return cfg, nil
}

// RegisterFlags adds the CLI flags bound into the returned viper
// instance by New, grounded on serveCmd's Flags()/BindPFlag pairing.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.Int(keyPort, 3001, "TCP port to listen on")
	flags.String(keyWorkspaceRoot, "/tmp/online-editor", "root directory documents are resolved against")
	flags.String(keyGoplsPath, "gopls", "path to the gopls executable")
	flags.String(keyTSServerPath, "typescript-language-server", "path to the typescript-language-server executable")
	flags.String(keyLogLevel, "info", "log level: debug|info|warning|error")
	flags.String(keyCORSOrigin, "http://localhost:3000", "allowed CORS/WebSocket origin ('*' to allow any)")
	flags.Int(keyIdleTimeout, 300, "seconds an idle analyzer is kept alive before shutdown")
	flags.Int64(keyMaxFrameBytes, 16<<20, "maximum accepted WebSocket frame size in bytes")
}
