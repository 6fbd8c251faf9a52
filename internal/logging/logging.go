// Package logging provides a component-scoped structured logger shared by
// every package in the harness, the same role the teacher's own logging
// package plays for its git hook handlers.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

type contextKey string

const componentKey contextKey = "component"

var (
	mu      sync.RWMutex
	base    *slog.Logger
	initted bool
)

// Init installs the process-wide base logger, writing JSON lines to w (or
// stderr if w is nil). Safe to call once at process start; if Init is never
// called (e.g. in unit tests), an info-level text logger writing to stderr
// is used.
func Init(w io.Writer, level slog.Level) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	defer mu.Unlock()
	base = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	initted = true
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !initted {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return base
}

// WithComponent returns a context tagged with the given component name
// (e.g. "daemon", "orchestrator", "checkpoint"), attached to every record
// logged through that context afterward.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

func componentFrom(ctx context.Context) string {
	if c, ok := ctx.Value(componentKey).(string); ok {
		return c
	}
	return ""
}

func withComponentAttr(ctx context.Context, attrs []any) []any {
	if c := componentFrom(ctx); c != "" {
		return append([]any{slog.String("component", c)}, attrs...)
	}
	return attrs
}

// Debug, Info, Warn, and Error log at the given level, tagging the record
// with the component stashed in ctx by WithComponent, if any.
func Debug(ctx context.Context, msg string, attrs ...any) {
	logger().DebugContext(ctx, msg, withComponentAttr(ctx, attrs)...)
}

func Info(ctx context.Context, msg string, attrs ...any) {
	logger().InfoContext(ctx, msg, withComponentAttr(ctx, attrs)...)
}

func Warn(ctx context.Context, msg string, attrs ...any) {
	logger().WarnContext(ctx, msg, withComponentAttr(ctx, attrs)...)
}

func Error(ctx context.Context, msg string, attrs ...any) {
	logger().ErrorContext(ctx, msg, withComponentAttr(ctx, attrs)...)
}
