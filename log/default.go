package log

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// defaultLog is the process-wide Logger used by the package-level
// convenience functions (Debug, Info, Warn, Error and their Context
// variants). It writes to stderr with the package defaults until
// reconfigured via Config.
var (
	defaultLogMu sync.RWMutex
	defaultLog   = Make(os.Stderr)
)

// Config reconfigures the default logger used by the package-level logging
// functions, applying opts over its current configuration.
func Config(opts ...Option) {
	defaultLogMu.Lock()
	defer defaultLogMu.Unlock()

	defaultLog = defaultLog.Wrap(opts...)
}

func current() Logger {
	defaultLogMu.RLock()
	defer defaultLogMu.RUnlock()

	return defaultLog
}

// DefaultContextProvider supplies the context used by the non-Context
// logging variants (Debug, Info, Warn, Error). It returns context.TODO by
// default.
func DefaultContextProvider() context.Context { return context.TODO() }

// Trace logs a trace-level message using the default logger.
func Trace(msg string, attrs ...slog.Attr) { current().Trace(msg, attrs...) }

// TraceContext logs a trace-level message using the default logger.
func TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	current().TraceContext(ctx, msg, attrs...)
}

// Debug logs a debug-level message using the default logger.
func Debug(msg string, attrs ...slog.Attr) { current().Debug(msg, attrs...) }

// DebugContext logs a debug-level message using the default logger.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	current().DebugContext(ctx, msg, attrs...)
}

// Info logs an info-level message using the default logger.
func Info(msg string, attrs ...slog.Attr) { current().Info(msg, attrs...) }

// InfoContext logs an info-level message using the default logger.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	current().InfoContext(ctx, msg, attrs...)
}

// Warn logs a warn-level message using the default logger.
func Warn(msg string, attrs ...slog.Attr) { current().Warn(msg, attrs...) }

// WarnContext logs a warn-level message using the default logger.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	current().WarnContext(ctx, msg, attrs...)
}

// Error logs an error-level message using the default logger.
func Error(msg string, attrs ...slog.Attr) { current().Error(msg, attrs...) }

// ErrorContext logs an error-level message using the default logger.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	current().ErrorContext(ctx, msg, attrs...)
}
