// Package logger provides structured logging setup for the storefront.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/config"
)

// New creates a *slog.Logger from the given Logging config.
// Output goes to stdout with a "service" attribute on every record: JSON when
// stdout is redirected, human-readable text when attached to a terminal.
func New(cfg config.Logging) *slog.Logger {
	return newWithWriter(cfg, os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
}

func newWithWriter(cfg config.Logging, w io.Writer, tty bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if tty {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With("service", cfg.Service)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
