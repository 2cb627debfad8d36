package kernel

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/bsvm/vector"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRowTooLong is returned when a row feature lies outside the vector.
	ErrRowTooLong = errors.New("kernel: row feature beyond vector dimensionality")

	// ErrUserKernelUndefined is returned when the user-defined kernel is
	// evaluated without an implementation.
	ErrUserKernelUndefined = errors.New("kernel: user-defined kernel has no implementation")
)

// Params holds the kernel hyperparameters.
type Params struct {
	Kind   Kind
	Gamma  float64 // Gaussian and exponential width
	Degree float64 // polynomial exponent, sigmoid slope
	Coef   float64 // polynomial and sigmoid offset
	Bias   float64 // bias coordinate value, 0 when disabled
}

// UserFunc is the user-supplied kernel. Either field may be nil; evaluating
// the missing overload fails with ErrUserKernelUndefined.
type UserFunc struct {
	Vectors func(a, b *vector.Vector) (float64, error)
	Row     func(v *vector.Vector, row vector.Row, rowNorm float64) (float64, error)
}

// WorkerPool hands out evaluation slots shared with other components.
// It is satisfied by *resource.Controller.
type WorkerPool interface {
	AcquireWorker(ctx context.Context) error
	ReleaseWorker()
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithUserFunc installs the user-defined kernel implementation.
func WithUserFunc(f UserFunc) Option {
	return func(e *Evaluator) {
		e.user = f
	}
}

// WithWorkers makes Batch take one slot from pool per evaluation.
func WithWorkers(pool WorkerPool) Option {
	return func(e *Evaluator) {
		e.workers = pool
	}
}

// Evaluator computes kernel values for one parameter set.
type Evaluator struct {
	params  Params
	user    UserFunc
	workers WorkerPool
}

// NewEvaluator creates an evaluator for p.
func NewEvaluator(p Params, opts ...Option) (*Evaluator, error) {
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(p.Kind))
	}
	e := &Evaluator{params: p}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Params returns the kernel parameters.
func (e *Evaluator) Params() Params {
	return e.params
}

// Dot returns the inner product of a and b. Chunk pairs where either side
// is absent are skipped.
func Dot(a, b *vector.Vector) float64 {
	ca, cb := a.Chunks(), b.Chunks()
	n := min(len(ca), len(cb))
	var sum float64
	for c := 0; c < n; c++ {
		x, y := ca[c], cb[c]
		if x == nil || y == nil {
			continue
		}
		m := min(len(x), len(y))
		for j := 0; j < m; j++ {
			sum += float64(x[j]) * float64(y[j])
		}
	}
	return sum
}

// DotRow returns the inner product of v and row plus bias·v[Dim()-1] when
// bias != 0. A row feature beyond v.Dim(), or on the bias slot when bias is
// set, fails with ErrRowTooLong.
func DotRow(v *vector.Vector, row vector.Row, bias float64) (float64, error) {
	chunks := v.Chunks()
	w := v.ChunkWidth()
	limit := v.Dim()
	if bias != 0 {
		limit--
	}
	var sum float64
	for k, idx := range row.Index {
		i := int(idx) - 1
		if i < 0 || i >= limit {
			return 0, fmt.Errorf("%w: feature %d, dimension %d", ErrRowTooLong, idx, v.Dim())
		}
		chunk := chunks[i/w]
		if chunk == nil {
			continue
		}
		sum += float64(chunk[i%w]) * float64(row.Value[k])
	}
	if bias != 0 && v.Dim() > 0 {
		sum += bias * float64(v.At(v.Dim()-1))
	}
	return sum, nil
}

// fromLinear applies the kernel to a precomputed inner product.
func (e *Evaluator) fromLinear(lin, normA, normB float64) float64 {
	p := e.params
	switch p.Kind {
	case Gaussian:
		return math.Exp(-0.5 * p.Gamma * (normA + normB - 2*lin))
	case Exponential:
		r := math.Sqrt(normA + normB - 2*lin)
		// NaN from a negative radicand fails the comparison and maps to 0.
		if r >= 0 {
			return math.Exp(-0.5 * p.Gamma * r)
		}
		return 0
	case Polynomial:
		return math.Pow(p.Coef+lin, p.Degree)
	case Sigmoid:
		return math.Tanh(p.Coef + p.Degree*lin)
	default:
		return lin
	}
}

// Compute returns K(a, b).
func (e *Evaluator) Compute(a, b *vector.Vector) (float64, error) {
	if e.params.Kind == UserDefined {
		if e.user.Vectors == nil {
			return 0, ErrUserKernelUndefined
		}
		return e.user.Vectors(a, b)
	}
	return e.fromLinear(Dot(a, b), a.SqrL2Norm(), b.SqrL2Norm()), nil
}

// ComputeRow returns K(v, row). rowNorm is the row's squared norm including
// bias²; pass 0 to have it computed.
func (e *Evaluator) ComputeRow(v *vector.Vector, row vector.Row, rowNorm float64) (float64, error) {
	if e.params.Kind == UserDefined {
		if e.user.Row == nil {
			return 0, ErrUserKernelUndefined
		}
		return e.user.Row(v, row, rowNorm)
	}
	lin, err := DotRow(v, row, e.params.Bias)
	if err != nil {
		return 0, err
	}
	if rowNorm == 0 && e.params.Kind.IsDistanceBased() {
		rowNorm = row.SquaredNorm(e.params.Bias)
	}
	return e.fromLinear(lin, v.SqrL2Norm(), rowNorm), nil
}

// Batch evaluates K(v, others[i]) for every i using up to parallelism
// goroutines. With WithWorkers each evaluation also holds a pool slot.
// Results are in input order.
func (e *Evaluator) Batch(ctx context.Context, v *vector.Vector, others []*vector.Vector, parallelism int) ([]float64, error) {
	out := make([]float64, len(others))
	if parallelism < 1 {
		parallelism = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, o := range others {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if e.workers != nil {
				if err := e.workers.AcquireWorker(ctx); err != nil {
					return err
				}
				defer e.workers.ReleaseWorker()
			}
			k, err := e.Compute(v, o)
			if err != nil {
				return err
			}
			out[i] = k
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
