package bsvm

import (
	"errors"
	"time"

	"github.com/hupe1980/bsvm/budget"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports chunk and maintenance metrics.
type PrometheusCollector struct {
	chunks      prometheus.Counter
	rows        prometheus.Counter
	nonZeros    prometheus.Counter
	loadLatency prometheus.Histogram

	runs         *prometheus.CounterVec
	steps        *prometheus.CounterVec
	degradation  *prometheus.CounterVec
	maintLatency *prometheus.HistogramVec
}

// NewPrometheusCollector creates the collector and registers its metrics
// with reg (prometheus.DefaultRegisterer when nil).
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &PrometheusCollector{
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bsvm_chunks_loaded_total",
			Help: "Total dataset chunks loaded",
		}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bsvm_rows_loaded_total",
			Help: "Total dataset rows loaded",
		}),
		nonZeros: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bsvm_nonzero_features_loaded_total",
			Help: "Total non-zero features loaded",
		}),
		loadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bsvm_chunk_load_seconds",
			Help:    "Latency of chunk loads",
			Buckets: prometheus.DefBuckets,
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsvm_maintenance_runs_total",
			Help: "Budget maintenance runs that reduced the working set",
		}, []string{"strategy"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsvm_maintenance_steps_total",
			Help: "Vectors removed or merged by budget maintenance",
		}, []string{"strategy"}),
		degradation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsvm_maintenance_degradation_total",
			Help: "Summed weight degradation introduced by merging",
		}, []string{"strategy"}),
		maintLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bsvm_maintenance_seconds",
			Help:    "Latency of budget maintenance runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
	}

	var errs []error
	for _, c := range []prometheus.Collector{p.chunks, p.rows, p.nonZeros, p.loadLatency, p.runs, p.steps, p.degradation, p.maintLatency} {
		errs = append(errs, reg.Register(c))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

// OnChunkLoaded implements dataset.ChunkObserver.
func (p *PrometheusCollector) OnChunkLoaded(rows, nonZeros int, elapsed time.Duration) {
	p.chunks.Inc()
	p.rows.Add(float64(rows))
	p.nonZeros.Add(float64(nonZeros))
	p.loadLatency.Observe(elapsed.Seconds())
}

// OnMaintenance implements budget.Observer.
func (p *PrometheusCollector) OnMaintenance(strategy budget.Strategy, steps int, degradation float64, elapsed time.Duration) {
	s := strategy.String()
	p.runs.WithLabelValues(s).Inc()
	p.steps.WithLabelValues(s).Add(float64(steps))
	if degradation > 0 {
		p.degradation.WithLabelValues(s).Add(degradation)
	}
	p.maintLatency.WithLabelValues(s).Observe(elapsed.Seconds())
}
