package typeexec

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by Batch.
type Metrics struct {
	AnalysesTotal     *prometheus.CounterVec
	FailuresTotal     *prometheus.CounterVec
	CacheHitsTotal    prometheus.Counter
	Iterations        prometheus.Histogram
	AnalysisDuration  prometheus.Histogram
	InstructionsTotal prometheus.Counter
}

// NewMetrics registers the analysis collectors with registerer. A nil
// registerer uses prometheus.DefaultRegisterer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typeflow_analyses_total",
				Help: "Total number of method analyses by outcome",
			},
			[]string{"outcome"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typeflow_verify_failures_total",
				Help: "Total number of verification failures by error kind",
			},
			[]string{"kind"},
		),
		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "typeflow_cache_hits_total",
				Help: "Total number of analyses served from the result cache",
			},
		),
		Iterations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "typeflow_worklist_iterations",
				Help:    "Worklist iterations per analysis",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		AnalysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "typeflow_analysis_duration_seconds",
				Help:    "Method analysis duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
		InstructionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "typeflow_instructions_total",
				Help: "Total number of instructions submitted for analysis",
			},
		),
	}
}

// observe records one finished analysis.
func (m *Metrics) observe(res *Result, elapsed time.Duration) {
	if m == nil || res == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(res.Outcome.String()).Inc()
	if res.Err != nil {
		m.FailuresTotal.WithLabelValues(res.Err.Kind.String()).Inc()
	}
	m.Iterations.Observe(float64(res.Iterations))
	m.AnalysisDuration.Observe(elapsed.Seconds())
	if res.Method != nil {
		m.InstructionsTotal.Add(float64(len(res.Method.Instructions)))
	}
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}
