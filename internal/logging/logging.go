package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// New builds a logger from the configured level and format. Format
// "json" forces machine-readable output, "text" forces the colored
// console handler, anything else decides by terminal detection.
// Handlers write to STDERR so record output on STDOUT stays parseable.
func New(level, format string) *slog.Logger {
	lvl := parseLevel(level)
	var h slog.Handler
	switch {
	case format == "text":
		h = tint.NewHandler(os.Stderr, &tint.Options{Level: lvl, TimeFormat: time.RFC3339})
	case format == "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	case term.IsTerminal(int(os.Stderr.Fd())):
		h = tint.NewHandler(os.Stderr, &tint.Options{Level: lvl, TimeFormat: time.RFC3339})
	default:
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}

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

type ctxKey struct{}

// NewContext returns a copy of ctx with the logger stored.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves a logger from ctx or returns slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
