package landmark

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/bsvm/kernel"
	"github.com/hupe1980/bsvm/model"
	"github.com/hupe1980/bsvm/vector"
	"gonum.org/v1/gonum/mat"
)

// ErrDecomposition is returned when the landmark kernel matrix cannot be
// decomposed.
var ErrDecomposition = errors.New("landmark: eigendecomposition failed")

// eigenFloor is the relative eigenvalue below which a direction is dropped.
const eigenFloor = 1e-10

// Transform is the low-rank map W = K_BB^{-1/2} for a set of landmarks.
// Mapped features of x are W·k(x), where k(x)_i = K(x, b_i).
type Transform struct {
	landmarks []*model.Budgeted
	eval      *kernel.Evaluator
	w         *mat.Dense
	rank      int
}

// NewTransform computes the kernel matrix of the landmarks and its inverse
// square root. Directions with eigenvalues below a relative floor are
// dropped, so Rank may be smaller than the number of landmarks.
func NewTransform(ctx context.Context, landmarks []*model.Budgeted, eval *kernel.Evaluator, parallelism int) (*Transform, error) {
	b := len(landmarks)
	if b == 0 {
		return nil, ErrEmptyChunk
	}

	vecs := make([]*vector.Vector, b)
	for i, l := range landmarks {
		vecs[i] = l.Vector()
	}

	k := mat.NewSymDense(b, nil)
	for i := range vecs {
		row, err := eval.Batch(ctx, vecs[i], vecs[i:], parallelism)
		if err != nil {
			return nil, err
		}
		for j, v := range row {
			k.SetSym(i, i+j, v)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(k, true); !ok {
		return nil, ErrDecomposition
	}
	values := eig.Values(nil)
	var u mat.Dense
	eig.VectorsTo(&u)

	largest := 0.0
	for _, v := range values {
		largest = math.Max(largest, math.Abs(v))
	}

	// W = U · diag(λ^{-1/2}) · Uᵀ over the retained directions.
	scaled := mat.NewDense(b, b, nil)
	rank := 0
	for c, lambda := range values {
		if lambda <= eigenFloor*largest {
			continue
		}
		rank++
		s := 1 / math.Sqrt(lambda)
		for r := 0; r < b; r++ {
			scaled.Set(r, c, u.At(r, c)*s)
		}
	}
	w := mat.NewDense(b, b, nil)
	w.Mul(scaled, u.T())

	return &Transform{landmarks: landmarks, eval: eval, w: w, rank: rank}, nil
}

// Rank returns the number of retained eigen-directions.
func (t *Transform) Rank() int { return t.rank }

// Matrix returns W. It must not be modified.
func (t *Transform) Matrix() mat.Matrix { return t.w }

// Apply maps kernel values against the landmarks to features.
func (t *Transform) Apply(k []float64) ([]float64, error) {
	if len(k) != len(t.landmarks) {
		return nil, fmt.Errorf("landmark: got %d kernel values for %d landmarks", len(k), len(t.landmarks))
	}
	var out mat.VecDense
	out.MulVec(t.w, mat.NewVecDense(len(k), append([]float64(nil), k...)))
	return out.RawVector().Data, nil
}

// MapRow computes the features of a dataset row.
func (t *Transform) MapRow(row vector.Row, rowNorm float64) ([]float64, error) {
	k := make([]float64, len(t.landmarks))
	for i, l := range t.landmarks {
		v, err := t.eval.ComputeRow(l.Vector(), row, rowNorm)
		if err != nil {
			return nil, err
		}
		k[i] = v
	}
	return t.Apply(k)
}
