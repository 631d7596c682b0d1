// Package logging builds the slog.Logger used by the CLI and the gateway.
// Records are rendered by charmbracelet/log, which implements slog.Handler.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func New(w io.Writer, level string) *slog.Logger {
	h := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
	})
	return slog.New(h)
}

// ParseLevel converts a level name to a log.Level.
func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
