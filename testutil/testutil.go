package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// SparseRow returns nnz distinct 1-based indices in [1, dim], ascending, with
// non-zero values in [-1, 1). nnz is capped at dim.
func (r *RNG) SparseRow(dim, nnz int) ([]uint32, []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	nnz = min(nnz, dim)
	picked := r.rand.Perm(dim)[:nnz]
	sort.Ints(picked)

	idx := make([]uint32, nnz)
	val := make([]float32, nnz)
	for k, p := range picked {
		idx[k] = uint32(p + 1)
		for val[k] == 0 {
			val[k] = r.rand.Float32()*2 - 1
		}
	}
	return idx, val
}

// Example is one labeled sparse example.
type Example struct {
	Label string
	Index []uint32
	Value []float32
}

// Examples generates n examples with labels drawn from labels.
func (r *RNG) Examples(n, dim, nnz int, labels ...string) []Example {
	if len(labels) == 0 {
		labels = []string{"1", "-1"}
	}
	out := make([]Example, n)
	for i := range out {
		idx, val := r.SparseRow(dim, 1+r.Intn(nnz))
		out[i] = Example{Label: labels[r.Intn(len(labels))], Index: idx, Value: val}
	}
	return out
}

// LibSVM renders examples as LIBSVM text, one line per example.
func LibSVM(examples []Example) string {
	var sb strings.Builder
	for _, e := range examples {
		sb.WriteString(e.Label)
		for k, idx := range e.Index {
			fmt.Fprintf(&sb, " %d:%g", idx, e.Value[k])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Densify expands 1-based sparse entries into a dense slice of length dim.
func Densify(idx []uint32, val []float32, dim int) []float32 {
	out := make([]float32, dim)
	for k, i := range idx {
		out[i-1] = val[k]
	}
	return out
}

// DenseDot is the reference dot product.
func DenseDot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// DenseSquaredNorm is the reference squared L2 norm.
func DenseSquaredNorm(a []float32) float64 {
	return DenseDot(a, a)
}

// DenseSquaredDistance is the reference squared Euclidean distance.
func DenseSquaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// DenseGaussian is the reference Gaussian kernel exp(-0.5·γ·‖a-b‖²).
func DenseGaussian(a, b []float32, gamma float64) float64 {
	return math.Exp(-0.5 * gamma * DenseSquaredDistance(a, b))
}

// DenseExponential is the reference exponential kernel exp(-0.5·γ·‖a-b‖).
func DenseExponential(a, b []float32, gamma float64) float64 {
	return math.Exp(-0.5 * gamma * math.Sqrt(DenseSquaredDistance(a, b)))
}
