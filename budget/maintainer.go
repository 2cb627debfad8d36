package budget

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hupe1980/bsvm/kernel"
	"github.com/hupe1980/bsvm/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/hupe1980/bsvm/budget")

// Config is the static configuration of a Maintainer.
type Config struct {
	// Budget is the maximum number of retained vectors.
	Budget int
	// Strategy selects removal or merging.
	Strategy Strategy
	// Family is the algorithm family of the maintained vectors.
	Family Family
	// Kernel is used by merging to measure pair similarity.
	Kernel kernel.Params
}

// Validate checks cfg without building a Maintainer.
func (cfg Config) Validate() error {
	if cfg.Budget < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidBudget, cfg.Budget)
	}
	if cfg.Family > FamilyLandmark {
		return fmt.Errorf("%w: unknown family %d", ErrInvalidStrategy, uint8(cfg.Family))
	}
	switch cfg.Strategy {
	case Removal:
	case Merging:
		if cfg.Family != FamilySupport {
			return fmt.Errorf("%w: merging is not defined for the %s family", ErrInvalidStrategy, cfg.Family)
		}
		if cfg.Kernel.Kind != kernel.Gaussian {
			return fmt.Errorf("%w: merging requires the gaussian kernel, got %s", ErrInvalidStrategy, cfg.Kernel.Kind)
		}
		if !(cfg.Kernel.Gamma > 0) {
			return fmt.Errorf("%w: merging requires gamma > 0, got %g", ErrInvalidStrategy, cfg.Kernel.Gamma)
		}
	default:
		return fmt.Errorf("%w: %d", ErrInvalidStrategy, uint8(cfg.Strategy))
	}
	return nil
}

// Step records one maintenance step.
type Step struct {
	// Kept is the index of the element that received the merge, -1 for removal.
	Kept int
	// Dropped is the index of the removed element before removal.
	Dropped int
	// Score is the removal score of the dropped element.
	Score float64
	// KMax is the merge coefficient.
	KMax float64
	// Degradation is the loss introduced by the merge.
	Degradation float64
}

// Report summarizes one Maintain call.
type Report struct {
	Before int
	After  int
	Steps  []Step
}

// Degradation returns the summed merge degradation of all steps.
func (r Report) Degradation() float64 {
	var sum float64
	for _, s := range r.Steps {
		sum += s.Degradation
	}
	return sum
}

// Maintainer enforces a budget on working sets.
type Maintainer struct {
	mu   sync.Mutex
	cfg  Config
	opts options
	eval *kernel.Evaluator
}

// NewMaintainer validates cfg and creates a Maintainer.
func NewMaintainer(cfg Config, opts ...Option) (*Maintainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:    slog.Default(),
		tolerance: defaultTolerance,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scorer == nil {
		o.scorer = DefaultScore
	}

	m := &Maintainer{cfg: cfg, opts: o}
	if cfg.Strategy == Merging {
		eval, err := kernel.NewEvaluator(cfg.Kernel)
		if err != nil {
			return nil, err
		}
		m.eval = eval
	}
	return m, nil
}

// Budget returns the configured budget.
func (m *Maintainer) Budget() int { return m.cfg.Budget }

// Strategy returns the configured strategy.
func (m *Maintainer) Strategy() Strategy { return m.cfg.Strategy }

// DefaultScore is the removal score: the alpha norm of a support vector,
// degradation·‖w‖ of a weight and ‖x‖² of a landmark.
func DefaultScore(b *model.Budgeted) float64 {
	switch b.Kind() {
	case model.KindSupport:
		return b.AlphaNorm()
	case model.KindWeight:
		return b.Degradation() * math.Sqrt(b.Vector().SqrL2Norm())
	default:
		return b.Vector().SqrL2Norm()
	}
}

// Maintain reduces set until it holds at most Budget elements. A set that
// is already within budget is left untouched.
func (m *Maintainer) Maintain(ctx context.Context, set *WorkingSet) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := Report{Before: set.Len(), After: set.Len()}
	if set.Len() <= m.cfg.Budget {
		return report, nil
	}

	ctx, span := tracer.Start(ctx, "budget.Maintain")
	defer span.End()
	span.SetAttributes(
		attribute.String("budget.strategy", m.cfg.Strategy.String()),
		attribute.Int("budget.limit", m.cfg.Budget),
		attribute.Int("budget.before", set.Len()),
	)

	if err := m.checkFamily(set); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	start := time.Now()
	for set.Len() > m.cfg.Budget {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var (
			step Step
			err  error
		)
		if m.cfg.Strategy == Merging {
			step, err = m.mergeStep(set)
		} else {
			step = m.removeStep(set)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			report.After = set.Len()
			return report, err
		}
		report.Steps = append(report.Steps, step)
	}
	report.After = set.Len()
	elapsed := time.Since(start)

	span.SetAttributes(attribute.Int("budget.after", report.After))
	if m.opts.observer != nil {
		m.opts.observer.OnMaintenance(m.cfg.Strategy, len(report.Steps), report.Degradation(), elapsed)
	}
	m.opts.logger.Debug("budget maintained",
		slog.String("strategy", m.cfg.Strategy.String()),
		slog.Int("before", report.Before),
		slog.Int("after", report.After),
		slog.Float64("degradation", report.Degradation()),
		slog.Duration("elapsed", elapsed),
	)
	return report, nil
}

func (m *Maintainer) checkFamily(set *WorkingSet) error {
	want := m.cfg.Family.Kind()
	for i, b := range set.items {
		if b.Kind() != want {
			return fmt.Errorf("%w: element %d is a %s, want %s", ErrFamilyMismatch, i, b.Kind(), want)
		}
	}
	return nil
}

// removeStep drops the lowest-scoring element. Ties go to the lowest index.
func (m *Maintainer) removeStep(set *WorkingSet) Step {
	best, bestScore := 0, m.opts.scorer(set.items[0])
	for i := 1; i < len(set.items); i++ {
		if s := m.opts.scorer(set.items[i]); s < bestScore {
			best, bestScore = i, s
		}
	}

	dropped := set.Remove(best)
	m.opts.cache.Forget(dropped.Vector().ID())
	dropped.Release()
	return Step{Kept: -1, Dropped: best, Score: bestScore}
}

// mergeStep merges the pair with the smallest degradation. Ties go to the
// lowest (i, j).
func (m *Maintainer) mergeStep(set *WorkingSet) (Step, error) {
	var (
		best  mergePlan
		found bool
	)
	items := set.items
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			k, err := m.similarity(items[i], items[j])
			if err != nil {
				return Step{}, err
			}
			plan := planMerge(items[i].Alphas(), items[j].Alphas(), k, m.opts.tolerance)
			if !found || plan.degradation < best.degradation {
				plan.i, plan.j = i, j
				best, found = plan, true
			}
		}
	}

	keep, drop := items[best.i], items[best.j]
	oldID := keep.Vector().ID()
	if err := keep.MergeFrom(drop, best.kMax, best.kA, best.kB); err != nil {
		return Step{}, err
	}
	m.opts.cache.Forget(oldID)
	m.opts.cache.Forget(drop.Vector().ID())

	set.Remove(best.j)
	drop.Release()

	return Step{Kept: best.i, Dropped: best.j, KMax: best.kMax, Degradation: best.degradation}, nil
}

func (m *Maintainer) similarity(a, b *model.Budgeted) (float64, error) {
	va, vb := a.Vector(), b.Vector()
	return m.opts.cache.GetOrCompute(va.ID(), vb.ID(), func() (float64, error) {
		return m.eval.Compute(va, vb)
	})
}
