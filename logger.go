package songrec

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with songrec-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

type requestIDKey struct{}

// ContextWithRequestID attaches a request id that WithContext adds to log records.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id attached by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext adds context values (the request id) to the logger.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if id, ok := RequestIDFromContext(ctx); ok {
		return &Logger{Logger: l.Logger.With("request_id", id)}
	}
	return l
}

// WithK adds a k (result count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithVersion adds a catalog version field to the logger.
func (l *Logger) WithVersion(version string) *Logger {
	return &Logger{
		Logger: l.Logger.With("version", version),
	}
}

// LogCatalogLoad logs a catalog build.
func (l *Logger) LogCatalogLoad(ctx context.Context, c *Catalog, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "catalog load failed",
			"duration", duration,
			"error", err,
		)
		return
	}
	stats := c.Index.Stats()
	l.InfoContext(ctx, "catalog loaded",
		"version", c.Version,
		"entries", stats.Entries,
		"duplicates", stats.Duplicates,
		"dimension", stats.Dimension,
		"genres", stats.Genres,
		"duration", duration,
	)
}

// LogRecommend logs a recommendation.
func (l *Logger) LogRecommend(ctx context.Context, k, results int, duration time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "recommend failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "recommend completed",
			"k", k,
			"results", results,
			"duration", duration,
		)
	}
}

// LogEmbed logs an embedding generator call.
func (l *Logger) LogEmbed(ctx context.Context, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "embedding generator failed",
			"duration", duration,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "embedding generated",
			"duration", duration,
		)
	}
}
