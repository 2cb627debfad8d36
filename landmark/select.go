package landmark

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/hupe1980/bsvm/dataset"
	"github.com/hupe1980/bsvm/internal/kmeans"
	"github.com/hupe1980/bsvm/model"
	"github.com/hupe1980/bsvm/vector"
)

// Strategy selects how landmark points are sampled.
type Strategy uint8

const (
	// Random picks distinct rows uniformly.
	Random Strategy = iota
	// KMeans uses k-means centroids.
	KMeans
	// KMedoids uses the rows that are k-medoids of the chunk.
	KMedoids
)

// ErrInvalidStrategy is returned for unknown sampling strategies.
var ErrInvalidStrategy = errors.New("landmark: invalid sampling strategy")

// ErrEmptyChunk is returned when the dataset has no loaded rows.
var ErrEmptyChunk = errors.New("landmark: no rows loaded")

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case Random:
		return "random"
	case KMeans:
		return "kmeans"
	case KMedoids:
		return "kmedoids"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy accepts the strategy names or the numeric codes 0, 1 and 2.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random", "0":
		return Random, nil
	case "kmeans", "k-means", "1":
		return KMeans, nil
	case "kmedoids", "k-medoids", "2":
		return KMedoids, nil
	}
	if _, err := strconv.Atoi(s); err == nil {
		return 0, fmt.Errorf("%w: code %s", ErrInvalidStrategy, s)
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
}

// Config configures Select.
type Config struct {
	// Count is the number of landmarks (the budget). It is capped at the
	// number of loaded rows.
	Count int
	// Strategy selects the sampling method.
	Strategy Strategy
	// MaxIter bounds the clustering iterations (default 20).
	MaxIter int
	// Seed seeds the sampling.
	Seed int64
	// ChunkWidth is the chunk width of the created vectors (default 1000).
	ChunkWidth int
	// Bias is stored as the trailing coordinate when non-zero.
	Bias float64
	// Memory is charged for the landmark vectors' chunks.
	Memory vector.MemoryAcquirer
}

// Select samples landmark points from the rows of the current chunk of d.
func Select(ctx context.Context, d *dataset.Dataset, cfg Config) ([]*model.Budgeted, error) {
	n := d.Len()
	if n == 0 {
		return nil, ErrEmptyChunk
	}
	if cfg.Count < 1 {
		return nil, fmt.Errorf("landmark: count must be at least 1, got %d", cfg.Count)
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 20
	}
	if cfg.ChunkWidth <= 0 {
		cfg.ChunkWidth = 1000
	}
	count := min(cfg.Count, n)
	rng := rand.New(rand.NewSource(cfg.Seed))

	dim := d.HighestDimension()
	if cfg.Bias != 0 {
		dim++
	}
	newVec := func() (*vector.Vector, error) {
		var opts []vector.Option
		if cfg.Memory != nil {
			opts = append(opts, vector.WithMemory(cfg.Memory))
		}
		return vector.New(dim, cfg.ChunkWidth, opts...)
	}

	var rows []int
	switch cfg.Strategy {
	case Random:
		rows = rng.Perm(n)[:count]
	case KMedoids:
		var err error
		rows, err = kmeans.KMedoids(ctx, n, count, cfg.MaxIter, d.Distance, rng)
		if err != nil {
			return nil, err
		}
	case KMeans:
		all := make([]vector.Row, n)
		for i := range all {
			all[i] = d.Row(i)
		}
		centroids, err := kmeans.TrainKMeans(ctx, all, d.HighestDimension(), count, cfg.MaxIter, rng)
		if err != nil {
			return nil, err
		}
		out := make([]*model.Budgeted, 0, count)
		for _, c := range centroids {
			v, err := newVec()
			if err != nil {
				release(out)
				return nil, err
			}
			if err := v.BuildFromRow(denseRow(c), cfg.Bias); err != nil {
				v.Release()
				release(out)
				return nil, err
			}
			out = append(out, model.NewLandmark(v))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidStrategy, uint8(cfg.Strategy))
	}

	out := make([]*model.Budgeted, 0, len(rows))
	for _, r := range rows {
		v, err := newVec()
		if err != nil {
			release(out)
			return nil, err
		}
		if err := v.BuildFromRow(d.Row(r), cfg.Bias); err != nil {
			v.Release()
			release(out)
			return nil, err
		}
		out = append(out, model.NewLandmark(v))
	}
	return out, nil
}

// release returns the chunks of partially built landmarks to the memory budget.
func release(lms []*model.Budgeted) {
	for _, l := range lms {
		l.Release()
	}
}

// denseRow converts a dense centroid to a sparse row.
func denseRow(c []float32) vector.Row {
	var r vector.Row
	for i, x := range c {
		if x != 0 {
			r.Index = append(r.Index, uint32(i+1))
			r.Value = append(r.Value, x)
		}
	}
	return r
}
