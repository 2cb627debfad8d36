package kmeans

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/hupe1980/bsvm/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(values ...float32) vector.Row {
	var r vector.Row
	for i, v := range values {
		if v != 0 {
			r.Index = append(r.Index, uint32(i+1))
			r.Value = append(r.Value, v)
		}
	}
	return r
}

func twoClusters() []vector.Row {
	return []vector.Row{
		row(0, 0), row(0, 1), row(1, 0), // near 0,0
		row(10, 10), row(10, 11), row(11, 10), // near 10,10
	}
}

func TestTrainKMeans(t *testing.T) {
	ctx := context.Background()
	centroids, err := TrainKMeans(ctx, twoClusters(), 2, 2, 100, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, centroids, 2)

	for _, c := range centroids {
		near := c[0] < 5
		if near {
			assert.InDelta(t, 1.0/3, c[0], 1e-5)
		} else {
			assert.InDelta(t, 31.0/3, c[0], 1e-5)
		}
	}
}

func TestTrainKMeans_TooFewPoints(t *testing.T) {
	_, err := TrainKMeans(context.Background(), []vector.Row{row(1)}, 1, 2, 10, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestTrainKMeans_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TrainKMeans(ctx, twoClusters(), 2, 2, 1000, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKMedoids(t *testing.T) {
	rows := twoClusters()
	dist := func(a, b int) float64 {
		var d float64
		x, y := densify(rows[a], 2), densify(rows[b], 2)
		for i := range x {
			diff := float64(x[i] - y[i])
			d += diff * diff
		}
		return d
	}

	medoids, err := KMedoids(context.Background(), len(rows), 2, 50, dist, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	sort.Ints(medoids)
	assert.Less(t, medoids[0], 3)
	assert.GreaterOrEqual(t, medoids[1], 3)

	_, err = KMedoids(context.Background(), 1, 2, 5, dist, rand.New(rand.NewSource(2)))
	assert.ErrorIs(t, err, ErrTooFewPoints)
}
