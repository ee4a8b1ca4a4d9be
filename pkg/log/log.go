// Package log configures the process-wide slog logger.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger. Level names are case-insensitive;
// anything unrecognized falls back to info. LOG_FORMAT=json switches the
// handler to JSON output for log shippers.
func Setup(logLevel string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, options)
	} else {
		handler = slog.NewTextHandler(os.Stderr, options)
	}

	slog.SetDefault(slog.New(handler))
}

// WithModule derives a logger tagged with the component name. Every
// long-lived component takes one so log lines are attributable.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
