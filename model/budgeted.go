package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/bsvm/vector"
)

// Kind tags the auxiliary payload of a Budgeted vector.
type Kind uint8

const (
	// KindWeight carries a degradation scalar.
	KindWeight Kind = iota
	// KindSupport carries per-class alphas.
	KindSupport
	// KindLandmark carries nothing.
	KindLandmark
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindWeight:
		return "weight"
	case KindSupport:
		return "support"
	case KindLandmark:
		return "landmark"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ErrKindMismatch is returned when an operation needs a different kind.
var ErrKindMismatch = errors.New("model: vector kind mismatch")

// Budgeted is a vector with the auxiliary data of its algorithm family.
type Budgeted struct {
	kind        Kind
	vec         *vector.Vector
	degradation float64
	alphas      []float64
}

// NewWeight creates a weight with degradation 1.
func NewWeight(v *vector.Vector) *Budgeted {
	return &Budgeted{kind: KindWeight, vec: v, degradation: 1}
}

// NewSupport creates a support vector with numClasses zero alphas.
func NewSupport(v *vector.Vector, numClasses int) *Budgeted {
	return &Budgeted{kind: KindSupport, vec: v, alphas: make([]float64, max(numClasses, 0))}
}

// NewLandmark creates a landmark point.
func NewLandmark(v *vector.Vector) *Budgeted {
	return &Budgeted{kind: KindLandmark, vec: v}
}

// Kind returns the variant tag.
func (b *Budgeted) Kind() Kind { return b.kind }

// Vector returns the underlying vector.
func (b *Budgeted) Vector() *vector.Vector { return b.vec }

// Degradation returns the degradation scalar of a weight, 0 for other kinds.
func (b *Budgeted) Degradation() float64 { return b.degradation }

// SetDegradation overwrites the degradation scalar, e.g. when loading a
// trusted model file.
func (b *Budgeted) SetDegradation(d float64) { b.degradation = d }

// Degrade multiplies the degradation scalar by f.
func (b *Budgeted) Degrade(f float64) {
	if b.kind == KindWeight {
		b.degradation *= f
	}
}

// Alphas returns the per-class alphas. The slice may be modified in place.
func (b *Budgeted) Alphas() []float64 { return b.alphas }

// AlphaNorm returns the L2 norm of the alphas.
func (b *Budgeted) AlphaNorm() float64 {
	var sum float64
	for _, a := range b.alphas {
		sum += a * a
	}
	return math.Sqrt(sum)
}

// Downgrade shrinks every alpha by (1 − 1/t), where t is the number of
// training iterations so far. t == 0 is a no-op.
func (b *Budgeted) Downgrade(t uint64) {
	if t == 0 {
		return
	}
	f := 1 - 1/float64(t)
	for i, a := range b.alphas {
		if a != 0 {
			b.alphas[i] = a * f
		}
	}
}

// ExtendAlphas grows the alpha slice to numClasses with zeros when new
// labels show up during training.
func (b *Budgeted) ExtendAlphas(numClasses int) {
	if b.kind != KindSupport {
		return
	}
	for len(b.alphas) < numClasses {
		b.alphas = append(b.alphas, 0)
	}
}

// MergeFrom replaces b with the merge of b and other: the vector becomes
// kMax·b + (1−kMax)·other and each alpha becomes αb·kA + αother·kB.
func (b *Budgeted) MergeFrom(other *Budgeted, kMax, kA, kB float64) error {
	if b.kind != other.kind {
		return fmt.Errorf("%w: %s vs %s", ErrKindMismatch, b.kind, other.kind)
	}
	if err := b.vec.Combine(other.vec, kMax); err != nil {
		return err
	}
	n := max(len(b.alphas), len(other.alphas))
	b.ExtendAlphas(n)
	for c := range b.alphas {
		var o float64
		if c < len(other.alphas) {
			o = other.alphas[c]
		}
		b.alphas[c] = b.alphas[c]*kA + o*kB
	}
	return nil
}

// Release frees the vector's chunks.
func (b *Budgeted) Release() {
	if b.vec != nil {
		b.vec.Release()
	}
}
