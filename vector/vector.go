package vector

import (
	"fmt"
	"sync/atomic"
)

const floatBytes = 4

var lastID atomic.Uint64

func nextID() uint64 {
	return lastID.Add(1)
}

// Vector is a chunked sparse/dense hybrid vector.
type Vector struct {
	dim     int
	width   int
	chunks  [][]float32 // nil means all zero
	sqrNorm float64
	id      uint64
	mem     MemoryAcquirer
}

// New creates an all-zero vector of dimension dim split into chunks of width.
func New(dim, width int, opts ...Option) (*Vector, error) {
	if dim < 0 || width < 1 {
		return nil, fmt.Errorf("%w: dimension %d, chunk width %d", ErrInvalidShape, dim, width)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Vector{
		dim:    dim,
		width:  width,
		chunks: make([][]float32, numChunks(dim, width)),
		id:     nextID(),
		mem:    o.mem,
	}, nil
}

// MustNew is like New but panics on an invalid shape.
func MustNew(dim, width int, opts ...Option) *Vector {
	v, err := New(dim, width, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

func numChunks(dim, width int) int {
	return (dim + width - 1) / width
}

// Dim returns the dimensionality.
func (v *Vector) Dim() int { return v.dim }

// ChunkWidth returns the chunk width.
func (v *Vector) ChunkWidth() int { return v.width }

// NumChunks returns the number of chunk slots (present or absent).
func (v *Vector) NumChunks() int { return len(v.chunks) }

// ID returns the content identity of the vector.
func (v *Vector) ID() uint64 { return v.id }

// Touch assigns a fresh ID. Mutating methods call it; callers that modify
// chunks obtained through Chunks must call it themselves.
func (v *Vector) Touch() { v.id = nextID() }

// SqrL2Norm returns the cached squared L2 norm.
func (v *Vector) SqrL2Norm() float64 { return v.sqrNorm }

// SetSqrL2Norm overwrites the cached squared norm.
//
// It may only be called while reconstructing a vector from a trusted
// serialized form whose stored norm matches the stored values.
func (v *Vector) SetSqrL2Norm(n float64) { v.sqrNorm = n }

// Recompute refreshes the cached squared norm from the stored values.
func (v *Vector) Recompute() float64 {
	v.sqrNorm = v.SquaredNorm()
	return v.sqrNorm
}

// chunkLen returns the logical width of chunk c.
func (v *Vector) chunkLen(c int) int {
	if c == len(v.chunks)-1 {
		if rem := v.dim % v.width; rem != 0 {
			return rem
		}
	}
	return v.width
}

func (v *Vector) locate(i int) (c, off int, err error) {
	if i < 0 || i >= v.dim {
		return 0, 0, fmt.Errorf("%w: index %d, dimension %d", ErrIndexOutOfRange, i, v.dim)
	}
	return i / v.width, i % v.width, nil
}

// Get returns the value at 0-based index i. Absent chunks read as 0.
func (v *Vector) Get(i int) (float32, error) {
	c, off, err := v.locate(i)
	if err != nil {
		return 0, err
	}
	if v.chunks[c] == nil {
		return 0, nil
	}
	return v.chunks[c][off], nil
}

// At returns the value at i, or 0 when i is outside [0, Dim()). It is the
// silent read used inside kernel loops after shape checks; callers that must
// report lenient out-of-range reads go through dataset.Element or Get.
func (v *Vector) At(i int) float32 {
	x, _ := v.Get(i)
	return x
}

func (v *Vector) allocate(c int) ([]float32, error) {
	n := v.chunkLen(c)
	if v.mem != nil && !v.mem.TryAcquireMemory(int64(n*floatBytes)) {
		return nil, fmt.Errorf("%w: chunk of %d values", ErrMemoryLimit, n)
	}
	chunk := make([]float32, n)
	v.chunks[c] = chunk
	return chunk, nil
}

func (v *Vector) slot(i int) (*float32, error) {
	c, off, err := v.locate(i)
	if err != nil {
		return nil, err
	}
	chunk := v.chunks[c]
	if chunk == nil {
		if chunk, err = v.allocate(c); err != nil {
			return nil, err
		}
	}
	return &chunk[off], nil
}

// Set writes x at index i, allocating the covering chunk on first touch.
func (v *Vector) Set(i int, x float32) error {
	p, err := v.slot(i)
	if err != nil {
		return err
	}
	old := float64(*p)
	*p = x
	v.sqrNorm += float64(x)*float64(x) - old*old
	v.Touch()
	return nil
}

// Add adds delta to the value at index i.
func (v *Vector) Add(i int, delta float32) error {
	p, err := v.slot(i)
	if err != nil {
		return err
	}
	old := float64(*p)
	*p += delta
	nv := float64(*p)
	v.sqrNorm += nv*nv - old*old
	v.Touch()
	return nil
}

// SquaredNorm sums the squares of all stored values.
func (v *Vector) SquaredNorm() float64 {
	var sum float64
	for c, chunk := range v.chunks {
		if chunk == nil {
			continue
		}
		for _, x := range chunk[:v.chunkLen(c)] {
			sum += float64(x) * float64(x)
		}
	}
	return sum
}

// ExtendDimensionality grows the vector to newDim.
//
// With bias set, the value at Dim()-1 is treated as the bias coordinate: it
// is moved to newDim-1 and its old slot becomes 0. A call with newDim equal
// to Dim() does nothing.
func (v *Vector) ExtendDimensionality(newDim int, bias bool) error {
	if newDim < v.dim {
		return fmt.Errorf("%w: %d -> %d", ErrShrink, v.dim, newDim)
	}
	if newDim == v.dim {
		return nil
	}

	n := numChunks(newDim, v.width)
	oldLast := len(v.chunks) - 1
	var grown []float32
	if oldLast >= 0 && v.chunks[oldLast] != nil {
		oldLen := v.chunkLen(oldLast)
		newLen := v.width
		if n == len(v.chunks) {
			newLen = newDim - oldLast*v.width
		}
		if v.mem != nil && !v.mem.TryAcquireMemory(int64((newLen-oldLen)*floatBytes)) {
			return fmt.Errorf("%w: growing chunk %d", ErrMemoryLimit, oldLast)
		}
		grown = make([]float32, newLen)
		copy(grown, v.chunks[oldLast])
	}

	var biasValue float32
	if bias && grown != nil && (v.dim-1)/v.width == oldLast {
		off := (v.dim - 1) % v.width
		biasValue = grown[off]
		grown[off] = 0
	}

	if grown != nil {
		v.chunks[oldLast] = grown
	}
	for len(v.chunks) < n {
		v.chunks = append(v.chunks, nil)
	}
	v.dim = newDim

	if biasValue != 0 {
		// The norm is unchanged by the move.
		p, err := v.slot(newDim - 1)
		if err != nil {
			return err
		}
		*p = biasValue
	}
	return nil
}

// BuildFromRow replaces the content with row. Row indices are 1-based.
// When bias != 0 it is stored at Dim()-1, and a row feature on that slot is
// rejected. On error the vector is left cleared.
func (v *Vector) BuildFromRow(row Row, bias float64) error {
	v.Clear()
	limit := v.dim
	if bias != 0 {
		limit--
	}
	for _, idx := range row.Index {
		if idx < 1 || int(idx) > limit {
			return fmt.Errorf("%w: feature %d, dimension %d, bias %t", ErrIndexOutOfRange, idx, v.dim, bias != 0)
		}
	}

	var norm float64
	for k, idx := range row.Index {
		x := row.Value[k]
		p, err := v.slot(int(idx) - 1)
		if err != nil {
			v.Clear()
			return err
		}
		*p = x
		norm += float64(x) * float64(x)
	}
	if bias != 0 {
		p, err := v.slot(v.dim - 1)
		if err != nil {
			v.Clear()
			return err
		}
		*p = float32(bias)
		norm += bias * bias
	}
	v.sqrNorm = norm
	return nil
}

// Clear sets every value to zero and frees all chunks.
func (v *Vector) Clear() {
	var freed int64
	for c, chunk := range v.chunks {
		if chunk != nil {
			freed += int64(len(chunk) * floatBytes)
			v.chunks[c] = nil
		}
	}
	if v.mem != nil {
		v.mem.ReleaseMemory(freed)
	}
	v.sqrNorm = 0
	v.Touch()
}

// Release frees all chunks. It is called when the owning model discards the vector.
func (v *Vector) Release() {
	v.Clear()
}

// Clone returns a deep copy with a fresh ID that shares the memory acquirer.
func (v *Vector) Clone() (*Vector, error) {
	out := &Vector{
		dim:     v.dim,
		width:   v.width,
		chunks:  make([][]float32, len(v.chunks)),
		sqrNorm: v.sqrNorm,
		id:      nextID(),
		mem:     v.mem,
	}
	for c, chunk := range v.chunks {
		if chunk == nil {
			continue
		}
		if v.mem != nil && !v.mem.TryAcquireMemory(int64(len(chunk)*floatBytes)) {
			out.Release()
			return nil, fmt.Errorf("%w: cloning chunk %d", ErrMemoryLimit, c)
		}
		out.chunks[c] = append([]float32(nil), chunk...)
	}
	return out, nil
}

// Combine sets v to k·v + (1-k)·other. Both vectors must have the same shape.
// Chunks missing from v are reserved up front, so a memory limit error
// leaves v untouched.
func (v *Vector) Combine(other *Vector, k float64) error {
	if other.dim != v.dim || other.width != v.width {
		return fmt.Errorf("%w: (%d/%d) vs (%d/%d)", ErrShapeMismatch, v.dim, v.width, other.dim, other.width)
	}

	var need int64
	for c, b := range other.chunks {
		if v.chunks[c] == nil && b != nil {
			need += int64(v.chunkLen(c) * floatBytes)
		}
	}
	if need > 0 && v.mem != nil && !v.mem.TryAcquireMemory(need) {
		return fmt.Errorf("%w: combining needs %d bytes", ErrMemoryLimit, need)
	}

	for c, b := range other.chunks {
		a := v.chunks[c]
		switch {
		case a == nil && b == nil:
		case a == nil:
			a = make([]float32, v.chunkLen(c))
			for j, x := range b {
				a[j] = float32((1 - k) * float64(x))
			}
			v.chunks[c] = a
		case b == nil:
			for j := range a {
				a[j] = float32(k * float64(a[j]))
			}
		default:
			for j := range a {
				a[j] = float32(k*float64(a[j]) + (1-k)*float64(b[j]))
			}
		}
	}
	v.Recompute()
	v.Touch()
	return nil
}

// Chunks exposes the chunk slots. The result must be treated as read-only.
func (v *Vector) Chunks() [][]float32 {
	return v.chunks
}

// Nnz returns the number of non-zero stored values.
func (v *Vector) Nnz() int {
	n := 0
	for _, chunk := range v.chunks {
		for _, x := range chunk {
			if x != 0 {
				n++
			}
		}
	}
	return n
}

// ForEachNonZero calls fn for every non-zero value in index order.
func (v *Vector) ForEachNonZero(fn func(i int, x float32)) {
	for c, chunk := range v.chunks {
		base := c * v.width
		for j, x := range chunk {
			if x != 0 {
				fn(base+j, x)
			}
		}
	}
}

// AllocatedChunks returns the number of present chunks.
func (v *Vector) AllocatedChunks() int {
	n := 0
	for _, chunk := range v.chunks {
		if chunk != nil {
			n++
		}
	}
	return n
}
