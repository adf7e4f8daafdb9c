package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	rpcRequests        *prometheus.CounterVec
	rateLimited        *prometheus.CounterVec
	circuitTransitions *prometheus.CounterVec
	parses             *prometheus.CounterVec
	detectorLatency    *prometheus.HistogramVec
	candidates         *prometheus.CounterVec
	batchDuration      prometheus.Histogram
	parallelEfficiency prometheus.Histogram
	degradedBatches    prometheus.Counter
	errorsTotal        *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		rpcRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolwatch_rpc_requests_total",
				Help: "Total RPC requests by endpoint, operation and outcome",
			},
			[]string{"endpoint", "operation", "outcome"},
		),
		rateLimited: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolwatch_rate_limited_total",
				Help: "Requests denied by an endpoint's rate limit",
			},
			[]string{"endpoint"},
		),
		circuitTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolwatch_circuit_transitions_total",
				Help: "Circuit breaker state transitions",
			},
			[]string{"operation", "state"},
		),
		parses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolwatch_parses_total",
				Help: "Instruction parse attempts by dex, outcome and cache hit",
			},
			[]string{"dex", "outcome", "cache"},
		),
		detectorLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poolwatch_detector_duration_seconds",
				Help:    "Per-detector analysis duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"detector"},
		),
		candidates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolwatch_candidates_total",
				Help: "Pool-creation candidates detected",
			},
			[]string{"dex"},
		),
		batchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "poolwatch_batch_duration_seconds",
				Help:    "End-to-end transaction analysis duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		parallelEfficiency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "poolwatch_parallel_efficiency",
				Help:    "Sum of detector runtimes over wall-clock time per batch",
				Buckets: []float64{0.5, 1, 1.5, 2, 3, 4},
			},
		),
		degradedBatches: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "poolwatch_degraded_batches_total",
				Help: "Batches where at least one detector failed",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolwatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordRPCRequest records one RPC call attempt.
func (r *Recorder) RecordRPCRequest(endpoint, operation, outcome string) {
	r.rpcRequests.WithLabelValues(endpoint, operation, outcome).Inc()
}

// RecordRateLimited records a rate-limit denial for an endpoint.
func (r *Recorder) RecordRateLimited(endpoint string) {
	r.rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordCircuitTransition records a breaker state change.
func (r *Recorder) RecordCircuitTransition(operation, state string) {
	r.circuitTransitions.WithLabelValues(operation, state).Inc()
}

// RecordParse records one instruction parse attempt.
func (r *Recorder) RecordParse(dex, outcome string, fromCache bool) {
	cache := "miss"
	if fromCache {
		cache = "hit"
	}
	r.parses.WithLabelValues(dex, outcome, cache).Inc()
}

// RecordDetectorLatency records one detector run duration.
func (r *Recorder) RecordDetectorLatency(detector string, seconds float64) {
	r.detectorLatency.WithLabelValues(detector).Observe(seconds)
}

// RecordCandidates records detected candidates per dex.
func (r *Recorder) RecordCandidates(dex string, n int) {
	r.candidates.WithLabelValues(dex).Add(float64(n))
}

// RecordBatch records one completed analysis batch.
func (r *Recorder) RecordBatch(seconds, parallelEfficiency float64, degraded bool) {
	r.batchDuration.Observe(seconds)
	r.parallelEfficiency.Observe(parallelEfficiency)
	if degraded {
		r.degradedBatches.Inc()
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
