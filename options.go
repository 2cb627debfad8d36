package bsvm

import (
	"log/slog"

	"github.com/hupe1980/bsvm/diag"
	"github.com/hupe1980/bsvm/kernel"
)

type options struct {
	logger  *Logger
	metrics MetricsCollector
	sink    diag.Sink
	user    *kernel.UserFunc
	seed    int64
}

// Option configures a Toolkit.
type Option func(*options)

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
//	tk, _ := bsvm.New(p, bsvm.WithLogger(bsvm.NewJSONLogger(slog.LevelDebug)))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector reports chunk loads and maintenance runs to mc.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithSink sets the diagnostic sink. By default warnings go to the logger
// and fatal errors are returned to the caller.
func WithSink(s diag.Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithUserKernel installs the implementation of the user-defined kernel.
func WithUserKernel(f kernel.UserFunc) Option {
	return func(o *options) {
		o.user = &f
	}
}

// WithSeed fixes the seed of landmark sampling. It is ignored when the
// parameters ask for randomization.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}
