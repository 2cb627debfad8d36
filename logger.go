package bsvm

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/bsvm/budget"
)

// Logger wraps slog.Logger with bsvm-specific fields.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, a text handler on stderr at info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger discards everything.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

// WithDataset tags records with a dataset name.
func (l *Logger) WithDataset(name string) *Logger {
	return &Logger{Logger: l.Logger.With("dataset", name)}
}

// WithDimension adds a dimension field.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{Logger: l.Logger.With("dimension", dim)}
}

// WithBudget adds a budget field.
func (l *Logger) WithBudget(b int) *Logger {
	return &Logger{Logger: l.Logger.With("budget", b)}
}

// LogChunk logs one chunk load.
func (l *Logger) LogChunk(ctx context.Context, rows int, more bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "chunk load failed", "rows", rows, "error", err)
		return
	}
	l.DebugContext(ctx, "chunk loaded", "rows", rows, "more", more)
}

// LogMaintenance logs one maintenance run.
func (l *Logger) LogMaintenance(ctx context.Context, r budget.Report, err error) {
	if err != nil {
		l.ErrorContext(ctx, "budget maintenance failed",
			"before", r.Before,
			"error", err,
		)
		return
	}
	if len(r.Steps) == 0 {
		return
	}
	l.InfoContext(ctx, "budget maintained",
		"before", r.Before,
		"after", r.After,
		"steps", len(r.Steps),
		"degradation", r.Degradation(),
	)
}

// LogDimensionGrowth logs a model dimensionality extension.
func (l *Logger) LogDimensionGrowth(ctx context.Context, from, to int) {
	l.InfoContext(ctx, "model dimensionality extended", "from", from, "to", to)
}
