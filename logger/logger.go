// Package logger configures the process logger and carries request loggers through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Accepted LOG_FORMAT values
const (
	FormatText = "text"
	FormatJSON = "json"
)

// L is the process logger. Request handlers should prefer FromContext.
var L = slog.Default()

type requestLoggerKey struct{}

// New builds a logger writing to w. Unknown formats fall back to text.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init installs a stdout logger as L and as the slog default
func Init(level, format string) {
	Set(New(os.Stdout, level, format))
}

// Set installs l as L and as the slog default
func Set(l *slog.Logger) {
	L = l
	slog.SetDefault(l)
}

// Component returns L tagged with the name of the subsystem that logs through it
func Component(name string) *slog.Logger {
	return L.With(slog.String("component", name))
}

// FromContext returns the request logger stored in ctx, or L
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(requestLoggerKey{}).(*slog.Logger); ok {
		return l
	}
	return L
}

// WithContext returns a copy of ctx carrying l
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, requestLoggerKey{}, l)
}

// ParseLevel maps a LOG_LEVEL value; anything unrecognized logs at info
func ParseLevel(level string) slog.Level {
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
