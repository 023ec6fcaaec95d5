// Package logging builds the process logger: slog with a runtime adjustable
// level, text or JSON output, and optional rotating file output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jmylchreest/hapd/internal/config"
)

// level is shared by every logger built here so the admin API and config
// reloads can change verbosity without rebuilding handlers.
var level slog.LevelVar

// Rotation limits for file output.
const (
	maxSizeMB  = 20
	maxBackups = 5
	maxAgeDays = 28
)

// GetLogLevel converts a string log level to slog.Level
func GetLogLevel(s string) slog.Level {
	switch s {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelToString converts a slog.Level to its configuration name.
func LevelToString(l slog.Level) string {
	switch {
	case l <= slog.LevelDebug:
		return config.LogLevelDebug
	case l <= slog.LevelInfo:
		return config.LogLevelInfo
	case l <= slog.LevelWarn:
		return config.LogLevelWarn
	default:
		return config.LogLevelError
	}
}

// ValidateLogLevel ensures the provided level is valid, returning a default if not
func ValidateLogLevel(s string) string {
	switch s {
	case config.LogLevelDebug, config.LogLevelInfo, config.LogLevelWarn, config.LogLevelError:
		return s
	default:
		return config.LogLevelInfo
	}
}

// ValidateLogFormat ensures the provided format is valid, returning a default if not
func ValidateLogFormat(format string) string {
	switch format {
	case config.LogFormatText, config.LogFormatJSON:
		return format
	default:
		return config.LogFormatText
	}
}

// SetLevel changes the level of every logger built by SetupLogger.
func SetLevel(s string) {
	level.Set(GetLogLevel(ValidateLogLevel(s)))
}

// Level returns the current level name.
func Level() string {
	return LevelToString(level.Level())
}

// SetupLogger creates the process logger from cfg. The returned close
// function flushes and closes the log file, if any.
func SetupLogger(cfg config.LoggingConfig) (*slog.Logger, func() error, error) {
	SetLevel(cfg.Level)

	var out io.Writer = os.Stderr
	closeFn := func() error { return nil }
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, err
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
			LocalTime:  true,
		}
		out, closeFn = lj, lj.Close
	}

	return New(out, ValidateLogFormat(cfg.Format)), closeFn, nil
}

// New returns a logger writing to w in the given format at the shared level.
func New(w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: &level, AddSource: true}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetupErrorLogger creates a simple text logger for reporting errors during startup.
func SetupErrorLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// SetAsDefaultLogger sets a logger as the default logger
func SetAsDefaultLogger(logger *slog.Logger) {
	slog.SetDefault(logger)
}
