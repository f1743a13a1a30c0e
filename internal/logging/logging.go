// Package logging builds the structured loggers used by userland.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// New creates a logger writing to w. Format is "json" or "text" (the
// default). Level is "debug", "info", "warn" or "error"; anything else
// means info. Debug logging adds source locations.
func New(w io.Writer, format, level string) *slog.Logger {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// NewForFile is New with one more format, "auto": text when f is a
// terminal and json otherwise.
func NewForFile(f *os.File, format, level string) *slog.Logger {
	if strings.EqualFold(format, "auto") {
		format = "json"
		if term.IsTerminal(int(f.Fd())) {
			format = "text"
		}
	}
	return New(f, format, level)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
