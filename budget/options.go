package budget

import (
	"log/slog"
	"time"

	"github.com/hupe1980/bsvm/internal/cache"
	"github.com/hupe1980/bsvm/model"
)

// Scorer rates the usefulness of an element. Removal drops the element with
// the smallest score.
type Scorer func(b *model.Budgeted) float64

// Observer receives one event per Maintain call that changed the set.
type Observer interface {
	OnMaintenance(strategy Strategy, steps int, degradation float64, elapsed time.Duration)
}

type options struct {
	scorer    Scorer
	cache     *cache.KernelCache
	observer  Observer
	logger    *slog.Logger
	tolerance float64
}

// Option configures a Maintainer.
type Option func(*options)

// WithScorer replaces the default removal score.
func WithScorer(s Scorer) Option {
	return func(o *options) { o.scorer = s }
}

// WithKernelCache caches pairwise kernel values across Maintain calls.
func WithKernelCache(c *cache.KernelCache) Option {
	return func(o *options) { o.cache = c }
}

// WithObserver registers a maintenance observer, typically a metrics collector.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTolerance sets the interval width at which the golden-section search
// for the merge coefficient stops.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		if tol > 0 {
			o.tolerance = tol
		}
	}
}
