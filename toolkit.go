package bsvm

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/bsvm/budget"
	"github.com/hupe1980/bsvm/config"
	"github.com/hupe1980/bsvm/dataset"
	"github.com/hupe1980/bsvm/diag"
	"github.com/hupe1980/bsvm/internal/cache"
	"github.com/hupe1980/bsvm/kernel"
	"github.com/hupe1980/bsvm/landmark"
	"github.com/hupe1980/bsvm/model"
	"github.com/hupe1980/bsvm/resource"
	"github.com/hupe1980/bsvm/vector"
)

// Toolkit owns the shared infrastructure of one training run: the
// normalized parameters, the resource controller, the kernel evaluator and
// kernel cache, and the diagnostics.
//
// A Toolkit is meant for a single trainer goroutine; the datasets and
// maintainers it creates share its controller and cache.
type Toolkit struct {
	mu     sync.RWMutex
	params config.Params
	eval   *kernel.Evaluator

	opts   options
	rc     *resource.Controller
	cache  *cache.KernelCache
	logger *Logger
	sink   diag.Sink
}

// New validates and normalizes p and builds the shared components.
func New(p config.Params, optFns ...Option) (*Toolkit, error) {
	var o options
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsCollector{}
	}
	if o.sink == nil {
		o.sink = diag.NewSlogSink(o.logger.Logger)
	}

	if err := p.Validate(); err != nil {
		return nil, translateError(err)
	}
	p = p.Normalize(o.sink)

	t := &Toolkit{
		params: p,
		opts:   o,
		logger: o.logger,
		sink:   o.sink,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:   p.MemoryLimitBytes,
			MaxWorkers:         int64(p.Parallelism),
			IOLimitBytesPerSec: p.IOLimitBytesPerSec,
		}),
	}
	t.cache = cache.NewKernelCache(p.KernelCacheEntries, t.rc)

	eval, err := t.newEvaluator(p)
	if err != nil {
		return nil, err
	}
	t.eval = eval

	t.logger.Debug("toolkit created",
		"algorithm", p.Algorithm,
		"kernel", p.Kernel,
		"budget", p.Budget,
		"dimension", p.Dimension,
	)
	return t, nil
}

func (t *Toolkit) newEvaluator(p config.Params) (*kernel.Evaluator, error) {
	kopts := []kernel.Option{kernel.WithWorkers(t.rc)}
	if t.opts.user != nil {
		kopts = append(kopts, kernel.WithUserFunc(*t.opts.user))
	}
	eval, err := kernel.NewEvaluator(p.KernelParams(), kopts...)
	if err != nil {
		return nil, translateError(err)
	}
	return eval, nil
}

// Params returns the normalized parameters. Dimension and Gamma reflect
// any growth seen through Grow.
func (t *Toolkit) Params() config.Params {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.params
}

// Evaluator returns the kernel evaluator for the current parameters.
func (t *Toolkit) Evaluator() *kernel.Evaluator {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.eval
}

// Controller returns the shared resource controller.
func (t *Toolkit) Controller() *resource.Controller { return t.rc }

// Logger returns the toolkit logger.
func (t *Toolkit) Logger() *Logger { return t.logger }

// Sink returns the diagnostic sink.
func (t *Toolkit) Sink() diag.Sink { return t.sink }

// OpenDataset creates a streaming training dataset over src. AMM batch
// keeps per-example assignments in a spill file under SpillDir. opts are
// applied after the toolkit defaults.
func (t *Toolkit) OpenDataset(src dataset.Source, opts ...dataset.Option) (*dataset.Dataset, error) {
	p := t.Params()
	base := []dataset.Option{
		dataset.WithDimension(p.Dimension),
		dataset.WithBias(p.Bias),
		dataset.WithSink(t.sink),
		dataset.WithLogger(t.logger.WithDataset(src.Name()).Logger),
		dataset.WithResourceController(t.rc),
		dataset.WithObserver(t.opts.metrics),
	}
	if p.Algorithm == config.AMMBatch {
		base = append(base, dataset.WithAssignments(p.SpillDir))
	}
	d, err := dataset.New(src, append(base, opts...)...)
	if err != nil {
		return nil, translateError(err)
	}
	return d, nil
}

// OpenEvaluation creates a dataset for testing against a trained model's
// labels. Rows whose label is not in labels are reported once per chunk and
// listed in Unpredictable.
func (t *Toolkit) OpenEvaluation(src dataset.Source, labels []int, opts ...dataset.Option) (*dataset.Dataset, error) {
	return t.OpenDataset(src, append([]dataset.Option{dataset.WithLabels(labels)}, opts...)...)
}

// LoadNextChunk loads the next chunk of d and logs the outcome.
func (t *Toolkit) LoadNextChunk(ctx context.Context, d *dataset.Dataset) (bool, error) {
	more, err := d.LoadNextChunk(ctx, t.Params().ChunkSize)
	t.logger.LogChunk(ctx, d.Len(), more, err)
	return more, translateError(err)
}

// NewVector creates an empty model vector of the current model
// dimensionality, charged to the memory budget.
func (t *Toolkit) NewVector() (*vector.Vector, error) {
	p := t.Params()
	v, err := vector.New(p.VectorDim(), p.ChunkWidth, vector.WithMemory(t.rc))
	if err != nil {
		return nil, translateError(err)
	}
	return v, nil
}

// NewSupportVector builds a support vector from row i of d with numClasses
// zero alphas.
func (t *Toolkit) NewSupportVector(d *dataset.Dataset, i, numClasses int) (*model.Budgeted, error) {
	v, err := t.NewVector()
	if err != nil {
		return nil, err
	}
	if err := v.BuildFromRow(d.Row(i), t.Params().Bias); err != nil {
		v.Release()
		return nil, translateError(err)
	}
	return model.NewSupport(v, numClasses), nil
}

// NewMaintainer creates a budget maintainer for the configured algorithm,
// attached to the toolkit's kernel cache, metrics and logger.
func (t *Toolkit) NewMaintainer(opts ...budget.Option) (*budget.Maintainer, error) {
	cfg, err := t.Params().BudgetConfig()
	if err != nil {
		return nil, translateError(err)
	}
	base := []budget.Option{
		budget.WithKernelCache(t.cache),
		budget.WithObserver(t.opts.metrics),
		budget.WithLogger(t.logger.Logger),
	}
	m, err := budget.NewMaintainer(cfg, append(base, opts...)...)
	if err != nil {
		return nil, translateError(err)
	}
	return m, nil
}

// Maintain runs m on set and logs the report.
func (t *Toolkit) Maintain(ctx context.Context, m *budget.Maintainer, set *budget.WorkingSet) (budget.Report, error) {
	r, err := m.Maintain(ctx, set)
	t.logger.LogMaintenance(ctx, r, err)
	return r, translateError(err)
}

// Grow extends the model to the dimensionality revealed by d. Every vector
// of set is grown (the bias coordinate moves to the new last slot) and a
// defaulted gamma is fixed at 1/D the first time D becomes known.
func (t *Toolkit) Grow(ctx context.Context, set *budget.WorkingSet, d *dataset.Dataset) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := t.params.Dimension
	to := d.HighestDimension()
	if to <= from {
		return nil
	}

	next := t.params
	next.Dimension = to
	if set != nil {
		if err := set.ExtendDimensionality(next.VectorDim(), next.Bias != 0); err != nil {
			return &ErrDimensionMismatch{Model: from, Dataset: to, cause: err}
		}
	}
	if next.Gamma == 0 {
		next.Gamma = 1 / float64(to)
		eval, err := t.newEvaluator(next)
		if err != nil {
			return err
		}
		t.eval = eval
	}
	t.params = next
	t.logger.LogDimensionGrowth(ctx, from, to)
	return nil
}

// SelectLandmarks samples LLSVM landmarks from the current chunk of d and
// computes their low-rank map.
func (t *Toolkit) SelectLandmarks(ctx context.Context, d *dataset.Dataset) ([]*model.Budgeted, *landmark.Transform, error) {
	p := t.Params()
	seed := t.opts.seed
	if p.Randomize {
		seed = time.Now().UnixNano()
	}
	cfg, err := p.LandmarkConfig(seed)
	if err != nil {
		return nil, nil, translateError(err)
	}
	cfg.Memory = t.rc

	lms, err := landmark.Select(ctx, d, cfg)
	if err != nil {
		return nil, nil, translateError(err)
	}
	tr, err := landmark.NewTransform(ctx, lms, t.Evaluator(), t.rc.Workers())
	if err != nil {
		for _, l := range lms {
			l.Release()
		}
		return nil, nil, err
	}
	return lms, tr, nil
}

// CacheStats reports kernel cache hits and misses.
func (t *Toolkit) CacheStats() (hits, misses int64) {
	return t.cache.Stats()
}

// Close drops cached kernel values and returns their memory.
func (t *Toolkit) Close() error {
	t.cache.Reset()
	return nil
}
