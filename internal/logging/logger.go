// Package logging provides the leveled, pterm-backed logger shared by
// every core component. It is adapted from bennypowers-cem's
// internal/logging package: same LogLevel enum and pterm prefix
// styling, minus that package's dual CLI/LSP "mode" (this proxy
// never embeds an LSP server framework itself, so there is no
// glsp.Context to notify through — server-initiated user messages
// instead flow through the analyzer manager's bound session sink,
// see internal/analyzer).
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"
)

func init() {
	pterm.Info = *pterm.Info.WithPrefix(pterm.Prefix{
		Text:  "INFO",
		Style: pterm.NewStyle(pterm.FgBlue),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Warning = *pterm.Warning.WithPrefix(pterm.Prefix{
		Text:  "WARN",
		Style: pterm.NewStyle(pterm.FgYellow),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Error = *pterm.Error.WithPrefix(pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.FgRed),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Debug = *pterm.Debug.WithPrefix(pterm.Prefix{
		Text:  "DEBUG",
		Style: pterm.NewStyle(pterm.FgCyan),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)
}

// Level is the severity of a log message, matching the LOG_LEVEL
// configuration values (error|warning|info|debug).
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses the LOG_LEVEL configuration value, defaulting to
// LevelInfo for an empty or unrecognized string.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a minimal leveled logger: messages below the configured
// level are dropped, everything else is printed via pterm.
type Logger struct {
	mu    sync.RWMutex
	level Level
	// component is prefixed onto every message, e.g. "[analyzer:go]".
	component string
}

func New(level Level) *Logger {
	return &Logger{level: level}
}

// With returns a derived logger that prefixes every message with a
// component tag, the way bennypowers-cem's logging.GetLogger() is
// scoped per concern via its WithFields-style callers.
func (l *Logger) With(component string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{level: l.level, component: component}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) enabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

func (l *Logger) format(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		return fmt.Sprintf("[%s] %s", l.component, msg)
	}
	return msg
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.enabled(LevelDebug) {
		return
	}
	pterm.Debug.Println(l.format(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	if !l.enabled(LevelInfo) {
		return
	}
	pterm.Info.Println(l.format(format, args...))
}

func (l *Logger) Warning(format string, args ...any) {
	if !l.enabled(LevelWarning) {
		return
	}
	pterm.Warning.Println(l.format(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	if !l.enabled(LevelError) {
		return
	}
	pterm.Error.Println(l.format(format, args...))
}

// Fallback is used when pterm's styled output isn't appropriate (for
// example, a signal handler already tearing the terminal down);
// writes straight to stderr.
func (l *Logger) Fallback(format string, args ...any) {
	fmt.Fprintln(os.Stderr, l.format(format, args...))
}
