package vector

import (
	"testing"

	"github.com/hupe1980/bsvm/resource"
	"github.com/hupe1980/bsvm/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	v, err := New(10, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, v.Dim())
	assert.Equal(t, 4, v.ChunkWidth())
	assert.Equal(t, 3, v.NumChunks())
	assert.Zero(t, v.AllocatedChunks())

	_, err = New(-1, 4)
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = New(10, 0)
	assert.ErrorIs(t, err, ErrInvalidShape)
	assert.Panics(t, func() { MustNew(1, 0) })
}

func TestGetSet(t *testing.T) {
	rng := testutil.NewRNG(42)

	for _, width := range []int{1, 3, 7, 64} {
		v := MustNew(50, width)
		set := map[int]float32{}
		for range 20 {
			i := rng.Intn(50)
			x := float32(rng.Float64()*2 - 1)
			require.NoError(t, v.Set(i, x))
			set[i] = x
		}

		for i := range 50 {
			got, err := v.Get(i)
			require.NoError(t, err)
			assert.Equal(t, set[i], got, "width %d index %d", width, i)
		}
	}
}

func TestSet_AllocatesCoveringChunkOnly(t *testing.T) {
	v := MustNew(10, 4)

	require.NoError(t, v.Set(9, 2))
	assert.Equal(t, 1, v.AllocatedChunks())
	assert.Nil(t, v.Chunks()[0])
	assert.Len(t, v.Chunks()[2], 2, "last chunk has its logical width")

	require.NoError(t, v.Set(1, 3))
	assert.Len(t, v.Chunks()[0], 4)
}

func TestOutOfRange(t *testing.T) {
	v := MustNew(10, 4)

	_, err := v.Get(10)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = v.Get(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.ErrorIs(t, v.Set(12, 1), ErrIndexOutOfRange)
	assert.ErrorIs(t, v.Add(100, 1), ErrIndexOutOfRange)
	assert.Zero(t, v.At(100))
}

func TestAdd(t *testing.T) {
	v := MustNew(5, 2)
	require.NoError(t, v.Add(3, 1.5))
	require.NoError(t, v.Add(3, 1))
	assert.Equal(t, float32(2.5), v.At(3))
	assert.InDelta(t, 6.25, v.SqrL2Norm(), 1e-9)
}

func TestSquaredNorm_MatchesDenseReference(t *testing.T) {
	rng := testutil.NewRNG(7)

	for _, width := range []int{1, 5, 16, 1000} {
		for range 10 {
			const dim = 97
			idx, val := rng.SparseRow(dim, 1+rng.Intn(30))
			v := MustNew(dim, width)
			for k, i := range idx {
				require.NoError(t, v.Set(int(i)-1, val[k]))
			}
			want := testutil.DenseSquaredNorm(testutil.Densify(idx, val, dim))
			assert.InDelta(t, want, v.SquaredNorm(), 1e-9)
			assert.InDelta(t, want, v.SqrL2Norm(), 1e-6)
		}
	}
}

func TestSquaredNorm_IgnoresTailOfShortLastChunk(t *testing.T) {
	v := MustNew(5, 4)
	require.NoError(t, v.Set(4, 3))
	assert.Len(t, v.Chunks()[1], 1)
	assert.Equal(t, 9.0, v.SquaredNorm())
}

func TestExtendDimensionality(t *testing.T) {
	t.Run("noop", func(t *testing.T) {
		v := MustNew(10, 4)
		require.NoError(t, v.Set(9, 1))
		before := append([]float32(nil), v.Chunks()[2]...)

		require.NoError(t, v.ExtendDimensionality(10, true))
		require.NoError(t, v.ExtendDimensionality(10, false))

		assert.Equal(t, 10, v.Dim())
		assert.Equal(t, before, v.Chunks()[2])
	})

	t.Run("shrink", func(t *testing.T) {
		v := MustNew(10, 4)
		assert.ErrorIs(t, v.ExtendDimensionality(9, false), ErrShrink)
	})

	t.Run("same chunk count", func(t *testing.T) {
		v := MustNew(9, 4)
		require.NoError(t, v.Set(8, 5))
		require.NoError(t, v.Set(0, 1))

		require.NoError(t, v.ExtendDimensionality(11, false))

		assert.Equal(t, 3, v.NumChunks())
		assert.Len(t, v.Chunks()[2], 3)
		assert.Equal(t, float32(5), v.At(8))
		assert.Equal(t, float32(1), v.At(0))
		assert.Zero(t, v.At(10))
	})

	t.Run("more chunks", func(t *testing.T) {
		v := MustNew(6, 4)
		require.NoError(t, v.Set(5, 2))

		require.NoError(t, v.ExtendDimensionality(17, false))

		assert.Equal(t, 5, v.NumChunks())
		assert.Len(t, v.Chunks()[1], 4)
		assert.Nil(t, v.Chunks()[2])
		assert.Nil(t, v.Chunks()[4])
		assert.Equal(t, float32(2), v.At(5))
		assert.Equal(t, 4.0, v.SquaredNorm())
	})

	t.Run("bias relocated", func(t *testing.T) {
		v := MustNew(6, 4)
		require.NoError(t, v.BuildFromRow(Row{Index: []uint32{1, 3}, Value: []float32{1, 2}}, 1))
		require.Equal(t, float32(1), v.At(5))
		norm := v.SqrL2Norm()

		require.NoError(t, v.ExtendDimensionality(13, true))

		assert.Equal(t, float32(1), v.At(12))
		assert.Zero(t, v.At(5))
		assert.Equal(t, float32(1), v.At(0))
		assert.Equal(t, float32(2), v.At(2))
		assert.InDelta(t, norm, v.SquaredNorm(), 1e-9)
		assert.Equal(t, norm, v.SqrL2Norm())
	})

	t.Run("bias within same chunk", func(t *testing.T) {
		v := MustNew(3, 8)
		require.NoError(t, v.Set(2, -4))
		require.NoError(t, v.ExtendDimensionality(5, true))
		assert.Equal(t, float32(-4), v.At(4))
		assert.Zero(t, v.At(2))
	})

	t.Run("from empty", func(t *testing.T) {
		v := MustNew(0, 4)
		require.NoError(t, v.ExtendDimensionality(5, true))
		assert.Equal(t, 2, v.NumChunks())
		require.NoError(t, v.Set(4, 1))
	})
}

func TestBuildFromRow(t *testing.T) {
	v := MustNew(4, 2)
	require.NoError(t, v.Set(1, 9))
	id := v.ID()

	row := Row{Index: []uint32{1, 3}, Value: []float32{1, 2}}
	require.NoError(t, v.BuildFromRow(row, 0.5))

	assert.Equal(t, []float32{1, 0, 2, 0.5}, []float32{v.At(0), v.At(1), v.At(2), v.At(3)})
	assert.InDelta(t, 5.25, v.SqrL2Norm(), 1e-9)
	assert.InDelta(t, v.SquaredNorm(), v.SqrL2Norm(), 1e-9)
	assert.NotEqual(t, id, v.ID())

	assert.ErrorIs(t, v.BuildFromRow(Row{Index: []uint32{5}, Value: []float32{1}}, 0), ErrIndexOutOfRange)
}

func TestCloneCombine(t *testing.T) {
	a := MustNew(6, 4)
	require.NoError(t, a.Set(0, 1))
	b := MustNew(6, 4)
	require.NoError(t, b.Set(5, 4))

	c, err := a.Clone()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), c.ID())
	require.NoError(t, c.Set(0, 7))
	assert.Equal(t, float32(1), a.At(0), "clone is deep")

	require.NoError(t, a.Combine(b, 0.25))
	assert.InDelta(t, 0.25, a.At(0), 1e-6)
	assert.InDelta(t, 3.0, a.At(5), 1e-6)
	assert.InDelta(t, a.SquaredNorm(), a.SqrL2Norm(), 1e-12)

	assert.ErrorIs(t, a.Combine(MustNew(7, 4), 0.5), ErrShapeMismatch)
}

func TestCombine_MemoryLimitLeavesVectorUnchanged(t *testing.T) {
	mem := resource.NewController(resource.Config{MemoryLimitBytes: 16})
	a := MustNew(6, 4, WithMemory(mem))
	require.NoError(t, a.Set(0, 2))
	id := a.ID()

	b := MustNew(6, 4)
	require.NoError(t, b.Set(0, 4))
	require.NoError(t, b.Set(2, 1))
	require.NoError(t, b.Set(5, 1))

	err := a.Combine(b, 0.5)
	require.ErrorIs(t, err, ErrMemoryLimit)

	assert.Equal(t, float32(2), a.At(0))
	assert.Zero(t, a.At(2))
	assert.Zero(t, a.At(5))
	assert.Equal(t, 4.0, a.SqrL2Norm())
	assert.Equal(t, a.SquaredNorm(), a.SqrL2Norm())
	assert.Equal(t, id, a.ID())
	assert.Equal(t, int64(16), mem.MemoryUsage())

	roomy := resource.NewController(resource.Config{MemoryLimitBytes: 24})
	c := MustNew(6, 4, WithMemory(roomy))
	require.NoError(t, c.Set(0, 2))
	require.NoError(t, c.Combine(b, 0.5))
	assert.InDelta(t, 3.0, c.At(0), 1e-6)
	assert.InDelta(t, 0.5, c.At(5), 1e-6)
	assert.InDelta(t, c.SquaredNorm(), c.SqrL2Norm(), 1e-12)
	assert.Equal(t, int64(24), roomy.MemoryUsage())
}

func TestBuildFromRow_FailureLeavesVectorCleared(t *testing.T) {
	mem := resource.NewController(resource.Config{MemoryLimitBytes: 8})
	v := MustNew(6, 2, WithMemory(mem))

	err := v.BuildFromRow(Row{Index: []uint32{1, 5}, Value: []float32{3, 4}}, 0)
	require.ErrorIs(t, err, ErrMemoryLimit)
	assert.Zero(t, v.Nnz())
	assert.Zero(t, v.AllocatedChunks())
	assert.Zero(t, v.SqrL2Norm())
	assert.Zero(t, mem.MemoryUsage())
}

func TestBuildFromRow_RejectsBiasSlot(t *testing.T) {
	v := MustNew(4, 2)
	require.NoError(t, v.Set(0, 5))

	err := v.BuildFromRow(Row{Index: []uint32{1, 4}, Value: []float32{1, 2}}, 1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Zero(t, v.AllocatedChunks())
	assert.Zero(t, v.SqrL2Norm())

	assert.ErrorIs(t, v.BuildFromRow(Row{Index: []uint32{0}, Value: []float32{1}}, 0), ErrIndexOutOfRange)

	// Without bias the last coordinate is an ordinary feature.
	require.NoError(t, v.BuildFromRow(Row{Index: []uint32{4}, Value: []float32{2}}, 0))
	assert.Equal(t, float32(2), v.At(3))
	assert.Equal(t, 4.0, v.SqrL2Norm())
}

func TestNnzAndForEach(t *testing.T) {
	v := MustNew(10, 3)
	require.NoError(t, v.Set(2, 1))
	require.NoError(t, v.Set(7, -1))
	require.NoError(t, v.Set(8, 0))

	assert.Equal(t, 2, v.Nnz())

	var seen []int
	v.ForEachNonZero(func(i int, _ float32) { seen = append(seen, i) })
	assert.Equal(t, []int{2, 7}, seen)
}

func TestMemoryAccounting(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 4 * floatBytes})

	v := MustNew(12, 4, WithMemory(rc))
	require.NoError(t, v.Set(0, 1))
	assert.Equal(t, int64(4*floatBytes), rc.MemoryUsage())

	assert.ErrorIs(t, v.Set(5, 1), ErrMemoryLimit)

	v.Release()
	assert.Zero(t, rc.MemoryUsage())
	require.NoError(t, v.Set(5, 1))
}

func TestRow(t *testing.T) {
	r := Row{Index: []uint32{2, 9}, Value: []float32{3, 4}}
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 9, r.MaxIndex())
	assert.Equal(t, 25.0, r.SquaredNorm(0))
	assert.Equal(t, 26.0, r.SquaredNorm(1))
	assert.Zero(t, Row{}.MaxIndex())
}
