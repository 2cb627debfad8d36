package bsvm

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/bsvm/budget"
	"github.com/hupe1980/bsvm/dataset"
)

// MetricsCollector receives chunk-load and maintenance events. It is
// attached to every dataset and maintainer a Toolkit creates.
type MetricsCollector interface {
	dataset.ChunkObserver
	budget.Observer
}

// NoopMetricsCollector discards all events.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) OnChunkLoaded(int, int, time.Duration)                      {}
func (NoopMetricsCollector) OnMaintenance(budget.Strategy, int, float64, time.Duration) {}

// BasicMetricsCollector keeps in-memory counters.
type BasicMetricsCollector struct {
	Chunks            atomic.Int64
	Rows              atomic.Int64
	NonZeros          atomic.Int64
	LoadNanos         atomic.Int64
	MaintenanceRuns   atomic.Int64
	MaintenanceSteps  atomic.Int64
	MaintenanceNanos  atomic.Int64
	degradationMicros atomic.Int64
}

// OnChunkLoaded implements dataset.ChunkObserver.
func (b *BasicMetricsCollector) OnChunkLoaded(rows, nonZeros int, elapsed time.Duration) {
	b.Chunks.Add(1)
	b.Rows.Add(int64(rows))
	b.NonZeros.Add(int64(nonZeros))
	b.LoadNanos.Add(elapsed.Nanoseconds())
}

// OnMaintenance implements budget.Observer.
func (b *BasicMetricsCollector) OnMaintenance(_ budget.Strategy, steps int, degradation float64, elapsed time.Duration) {
	b.MaintenanceRuns.Add(1)
	b.MaintenanceSteps.Add(int64(steps))
	b.MaintenanceNanos.Add(elapsed.Nanoseconds())
	b.degradationMicros.Add(int64(degradation * 1e6))
}

// GetStats returns a snapshot of the counters.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		Chunks:           b.Chunks.Load(),
		Rows:             b.Rows.Load(),
		NonZeros:         b.NonZeros.Load(),
		MaintenanceRuns:  b.MaintenanceRuns.Load(),
		MaintenanceSteps: b.MaintenanceSteps.Load(),
		Degradation:      float64(b.degradationMicros.Load()) / 1e6,
	}
	if s.Chunks > 0 {
		s.ChunkAvgNanos = b.LoadNanos.Load() / s.Chunks
	}
	if s.MaintenanceRuns > 0 {
		s.MaintenanceAvgNanos = b.MaintenanceNanos.Load() / s.MaintenanceRuns
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	Chunks              int64
	Rows                int64
	NonZeros            int64
	ChunkAvgNanos       int64
	MaintenanceRuns     int64
	MaintenanceSteps    int64
	MaintenanceAvgNanos int64
	// Degradation is the summed merge degradation, to micro precision.
	Degradation float64
}
