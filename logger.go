package slabkit

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with slabkit-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithClass adds a slot_size field to the logger.
func (l *Logger) WithClass(slotSize int) *Logger {
	return &Logger{
		Logger: l.Logger.With("slot_size", slotSize),
	}
}

// LogClassInit logs the construction of a size class.
func (l *Logger) LogClassInit(slotSize, slots, regionBytes int) {
	l.Debug("slab class initialized",
		"slot_size", slotSize,
		"slots", slots,
		"region_bytes", regionBytes,
	)
}

// LogFallback logs that an exhausted class degraded to the fallback allocator.
// suppressed counts the notices dropped since the previous one.
func (l *Logger) LogFallback(slotSize int, suppressed uint64) {
	l.Warn("slab class exhausted, using fallback allocator",
		"slot_size", slotSize,
		"suppressed", suppressed,
	)
}

// LogVerify logs the outcome of an integrity check of one class.
func (l *Logger) LogVerify(slotSize, free int, err error) {
	if err != nil {
		l.Error("slab class verification failed",
			"slot_size", slotSize,
			"error", err,
		)
	} else {
		l.Debug("slab class verified",
			"slot_size", slotSize,
			"free", free,
		)
	}
}

// LogFatal logs an unrecoverable allocator error. The caller panics next.
func (l *Logger) LogFatal(op string, err error) {
	l.Error("fatal allocator error",
		"op", op,
		"error", err,
	)
}
