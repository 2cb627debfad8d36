package kmeans

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/hupe1980/bsvm/vector"
)

// ErrTooFewPoints is returned when there are fewer points than clusters.
var ErrTooFewPoints = errors.New("kmeans: fewer points than clusters")

func sparseDot(row vector.Row, dense []float32) float64 {
	var sum float64
	for k, idx := range row.Index {
		i := int(idx) - 1
		if i < len(dense) {
			sum += float64(row.Value[k]) * float64(dense[i])
		}
	}
	return sum
}

func denseNorm(c []float32) float64 {
	var sum float64
	for _, x := range c {
		sum += float64(x) * float64(x)
	}
	return sum
}

// TrainKMeans runs Lloyd's algorithm on rows and returns k dense centroids
// of length dim. Row indices are 1-based and must not exceed dim.
func TrainKMeans(ctx context.Context, rows []vector.Row, dim, k, maxIter int, rng *rand.Rand) ([][]float32, error) {
	n := len(rows)
	if k < 1 || n < k {
		return nil, ErrTooFewPoints
	}

	centroids := make([][]float32, k)
	perm := rng.Perm(n)
	for j := range centroids {
		centroids[j] = densify(rows[perm[j]], dim)
	}

	rowNorms := make([]float64, n)
	for i, r := range rows {
		rowNorms[i] = r.SquaredNorm(0)
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	norms := make([]float64, k)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for j, c := range centroids {
			norms[j] = denseNorm(c)
		}

		changed := false
		for i, r := range rows {
			best := nearest(r, rowNorms[i], centroids, norms)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		for j := range centroids {
			clear(centroids[j])
			counts[j] = 0
		}
		for i, r := range rows {
			c := centroids[assignments[i]]
			for p, idx := range r.Index {
				c[idx-1] += r.Value[p]
			}
			counts[assignments[i]]++
		}
		for j, c := range centroids {
			if counts[j] == 0 {
				// Re-seed an empty cluster with a random point.
				centroids[j] = densify(rows[rng.Intn(n)], dim)
				continue
			}
			scale := 1 / float32(counts[j])
			for d := range c {
				c[d] *= scale
			}
		}
	}

	return centroids, nil
}

func nearest(r vector.Row, rowNorm float64, centroids [][]float32, norms []float64) int {
	best, bestDist := 0, math.Inf(1)
	for j, c := range centroids {
		d := rowNorm + norms[j] - 2*sparseDot(r, c)
		if d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

func densify(r vector.Row, dim int) []float32 {
	out := make([]float32, dim)
	for k, idx := range r.Index {
		out[idx-1] = r.Value[k]
	}
	return out
}

// KMedoids clusters n points given only their pairwise distances and returns
// the indices of k medoids. Each iteration assigns every point to its
// nearest medoid and then moves each medoid to the member that minimizes the
// summed distance within its cluster.
func KMedoids(ctx context.Context, n, k, maxIter int, dist func(a, b int) float64, rng *rand.Rand) ([]int, error) {
	if k < 1 || n < k {
		return nil, ErrTooFewPoints
	}

	medoids := rng.Perm(n)[:k]
	members := make([][]int, k)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for j := range members {
			members[j] = members[j][:0]
		}
		for p := 0; p < n; p++ {
			best, bestDist := 0, math.Inf(1)
			for j, m := range medoids {
				if d := dist(p, m); d < bestDist {
					best, bestDist = j, d
				}
			}
			members[best] = append(members[best], p)
		}

		changed := false
		for j, group := range members {
			best, bestCost := medoids[j], math.Inf(1)
			for _, cand := range group {
				var cost float64
				for _, p := range group {
					cost += dist(cand, p)
				}
				if cost < bestCost {
					best, bestCost = cand, cost
				}
			}
			if best != medoids[j] {
				medoids[j] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return medoids, nil
}
