package landmark

import (
	"context"
	"testing"

	"github.com/hupe1980/bsvm/dataset"
	"github.com/hupe1980/bsvm/kernel"
	"github.com/hupe1980/bsvm/model"
	"github.com/hupe1980/bsvm/resource"
	"github.com/hupe1980/bsvm/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clusters = `1 1:0.1 2:0.1
1 1:0.2
1 2:0.2
-1 1:5 2:5
-1 1:5.1 2:4.9
-1 1:4.9 2:5.2
`

func loaded(t *testing.T, text string) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(dataset.TextSource("landmarks", text))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	_, err = d.LoadNextChunk(context.Background(), 0)
	require.NoError(t, err)
	return d
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"0": Random, "random": Random, "1": KMeans, "k-means": KMeans, "2": KMedoids, "kmedoids": KMedoids} {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseStrategy("3")
	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestSelect(t *testing.T) {
	d := loaded(t, clusters)
	ctx := context.Background()

	for _, s := range []Strategy{Random, KMeans, KMedoids} {
		t.Run(s.String(), func(t *testing.T) {
			mem := resource.NewController(resource.Config{})
			lms, err := Select(ctx, d, Config{Count: 2, Strategy: s, Seed: 1, ChunkWidth: 2, Bias: 1, Memory: mem})
			require.NoError(t, err)
			require.Len(t, lms, 2)
			for _, l := range lms {
				assert.Equal(t, model.KindLandmark, l.Kind())
				assert.Equal(t, 3, l.Vector().Dim())
				assert.Equal(t, float32(1), l.Vector().At(2))
			}
			assert.Positive(t, mem.MemoryUsage())

			if s != Random {
				// One landmark per cluster.
				a, b := lms[0].Vector().At(0), lms[1].Vector().At(0)
				assert.True(t, (a < 1 && b > 4) || (a > 4 && b < 1), "got %v and %v", a, b)
			}
		})
	}
}

func TestSelect_MemoryLimitReleasesPartialLandmarks(t *testing.T) {
	d := loaded(t, clusters)
	ctx := context.Background()

	for _, s := range []Strategy{Random, KMeans, KMedoids} {
		t.Run(s.String(), func(t *testing.T) {
			mem := resource.NewController(resource.Config{MemoryLimitBytes: 12})
			_, err := Select(ctx, d, Config{Count: 6, Strategy: s, Seed: 3, ChunkWidth: 1, Memory: mem})
			require.ErrorIs(t, err, vector.ErrMemoryLimit)
			assert.Zero(t, mem.MemoryUsage())
		})
	}
}

func TestSelect_Errors(t *testing.T) {
	d := loaded(t, clusters)
	ctx := context.Background()

	_, err := Select(ctx, d, Config{Count: 2, Strategy: Strategy(9)})
	assert.ErrorIs(t, err, ErrInvalidStrategy)

	_, err = Select(ctx, d, Config{Count: 0})
	assert.Error(t, err)

	lms, err := Select(ctx, d, Config{Count: 50, Strategy: Random})
	require.NoError(t, err)
	assert.Len(t, lms, 6)

	empty, err := dataset.New(dataset.TextSource("empty", ""))
	require.NoError(t, err)
	defer empty.Close()
	_, err = Select(ctx, empty, Config{Count: 1})
	assert.ErrorIs(t, err, ErrEmptyChunk)
}

func TestTransform_ReproducesKernel(t *testing.T) {
	d := loaded(t, clusters)
	ctx := context.Background()

	lms, err := Select(ctx, d, Config{Count: 3, Strategy: Random, Seed: 4, ChunkWidth: 1})
	require.NoError(t, err)

	eval, err := kernel.NewEvaluator(kernel.Params{Kind: kernel.Gaussian, Gamma: 0.5})
	require.NoError(t, err)

	tr, err := NewTransform(ctx, lms, eval, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Rank())

	// Features of the landmarks reproduce their kernel matrix.
	features := make([][]float64, len(lms))
	for i, l := range lms {
		k, err := eval.Batch(ctx, l.Vector(), vectorsOf(lms), 1)
		require.NoError(t, err)
		features[i], err = tr.Apply(k)
		require.NoError(t, err)
	}
	for i := range lms {
		for j := range lms {
			want, err := eval.Compute(lms[i].Vector(), lms[j].Vector())
			require.NoError(t, err)
			assert.InDelta(t, want, dot(features[i], features[j]), 1e-6)
		}
	}

	z, err := tr.MapRow(d.Row(0), 0)
	require.NoError(t, err)
	assert.Len(t, z, 3)

	_, err = tr.Apply([]float64{1})
	assert.Error(t, err)
}

func TestTransform_DuplicateLandmarksDropRank(t *testing.T) {
	d := loaded(t, "1 1:1\n1 1:1\n")
	ctx := context.Background()

	lms, err := Select(ctx, d, Config{Count: 2, Strategy: Random})
	require.NoError(t, err)

	eval, err := kernel.NewEvaluator(kernel.Params{Kind: kernel.Gaussian, Gamma: 1})
	require.NoError(t, err)

	tr, err := NewTransform(ctx, lms, eval, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Rank())

	_, err = NewTransform(ctx, nil, eval, 1)
	assert.ErrorIs(t, err, ErrEmptyChunk)
}

func vectorsOf(lms []*model.Budgeted) []*vector.Vector {
	out := make([]*vector.Vector, len(lms))
	for i, l := range lms {
		out[i] = l.Vector()
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
