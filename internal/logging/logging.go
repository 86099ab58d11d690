// Package logging builds the structured logger shared by every heifbox
// subcommand: slog with a tint handler for readable, leveled console output.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// New returns an slog.Logger writing level-colored, timestamped lines to w.
// An unrecognized level falls back to info rather than erroring, since
// logger construction happens before command-line validation has run.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      parseLevel(level),
		TimeFormat: time.Kitchen,
	}))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
