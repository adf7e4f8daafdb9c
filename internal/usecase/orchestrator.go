package usecase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"PoolWatch/internal/domain/models"
	domrepo "PoolWatch/internal/domain/repository"
	domservice "PoolWatch/internal/domain/service"
	"PoolWatch/internal/service/breaker"
	"PoolWatch/pkg/logger"
	"PoolWatch/pkg/util"
)

// OpTokenValidation guards the candidate address check. Critical: on an open
// circuit candidates pass through unvalidated rather than being dropped.
const OpTokenValidation = "token_validation"

// Targets are the orchestrator's performance goals, reported alongside the
// measured values in stats.
type Targets struct {
	MaxLatencyMs          float64 `json:"max_latency_ms"`
	MinSuccessRate        float64 `json:"min_success_rate"`
	MinParallelEfficiency float64 `json:"min_parallel_efficiency"`
}

// Stats is the rolling aggregate over every processed batch.
type Stats struct {
	Batches               int64   `json:"batches"`
	AvgLatencyMs          float64 `json:"avg_latency_ms"`
	SuccessRate           float64 `json:"success_rate"`
	AvgParallelEfficiency float64 `json:"avg_parallel_efficiency"`
	CandidatesPerTx       float64 `json:"candidates_per_tx"`
	ValidationErrors      int64   `json:"validation_errors"`
	Targets               Targets `json:"targets"`
}

type detectorResult struct {
	name    string
	outcome models.DetectorOutcome
}

// Orchestrator fans each transaction out to every registered detector in
// parallel, classifies failures, and merges candidates with
// highest-confidence-wins deduplication.
type Orchestrator struct {
	detectors       []domservice.Detector
	brk             *breaker.Breaker
	detectorTimeout time.Duration
	batchTimeout    time.Duration
	targets         Targets
	metrics         domrepo.Metrics
	log             *logger.Logger

	mu               sync.Mutex
	batches          int64
	detectorRuns     int64
	detectorFailures int64
	sumLatencyMs     float64
	sumEfficiency    float64
	sumCandidates    int64
	validationErrors int64
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithDetectorTimeout bounds each individual detector run.
func WithDetectorTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.detectorTimeout = d
		}
	}
}

// WithBatchTimeout bounds the whole fan-out for one transaction.
func WithBatchTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.batchTimeout = d
		}
	}
}

// WithTargets sets the reported performance targets.
func WithTargets(t Targets) OrchestratorOption {
	return func(o *Orchestrator) {
		o.targets = t
	}
}

// NewOrchestrator creates an Orchestrator over the given detectors.
func NewOrchestrator(detectors []domservice.Detector, brk *breaker.Breaker, metrics domrepo.Metrics, log *logger.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		detectors:       detectors,
		brk:             brk,
		detectorTimeout: 2 * time.Second,
		batchTimeout:    5 * time.Second,
		targets: Targets{
			MaxLatencyMs:          500,
			MinSuccessRate:        0.95,
			MinParallelEfficiency: 1.5,
		},
		metrics: metrics,
		log:     log,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.brk != nil {
		o.brk.RegisterCritical(OpTokenValidation, func() any { return nil })
	}
	return o
}

// AnalyzeTransaction runs every detector against tx and merges the results.
// A malformed transaction is rejected before any detector runs.
func (o *Orchestrator) AnalyzeTransaction(ctx context.Context, tx *models.RawTransaction) (*models.OrchestratorBatch, error) {
	if tx == nil {
		return nil, errors.New("nil transaction")
	}
	if !tx.HasSignature() {
		return nil, errors.New("transaction missing signature")
	}
	if len(tx.AccountKeys) == 0 {
		return nil, fmt.Errorf("transaction %s has no account keys", tx.Signature)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.batchTimeout)
	defer cancel()

	results := make(chan detectorResult, len(o.detectors))
	for _, det := range o.detectors {
		go o.runDetector(ctx, det, tx, results)
	}

	outcomes := make(map[string]models.DetectorOutcome, len(o.detectors))
	received := 0
collect:
	for received < len(o.detectors) {
		select {
		case res := <-results:
			outcomes[res.name] = res.outcome
			received++
		case <-ctx.Done():
			break collect
		}
	}
	// Detectors that missed the batch deadline count as timed out. Their
	// goroutines finish into the buffered channel and are discarded.
	for _, det := range o.detectors {
		if _, ok := outcomes[det.Name()]; !ok {
			outcomes[det.Name()] = models.DetectorOutcome{
				DetectorName: det.Name(),
				LatencyMs:    float64(time.Since(start).Milliseconds()),
				ErrorType:    models.ErrTypeTimeout,
			}
		}
	}

	// Merge in registration order so equal-confidence duplicates resolve
	// the same way regardless of which detector settled first: higher
	// confidence wins, exact ties keep the lexicographically-first
	// detector name.
	var sumDetectorMs float64
	degraded := false
	merged := make(map[string]models.Candidate)
	for _, det := range o.detectors {
		out := outcomes[det.Name()]
		sumDetectorMs += out.LatencyMs
		if !out.Success {
			degraded = true
			continue
		}
		for _, c := range out.Candidates {
			key := c.IdentityKey()
			if prev, ok := merged[key]; ok {
				if prev.Confidence > c.Confidence {
					continue
				}
				if prev.Confidence == c.Confidence && prev.DetectedBy <= c.DetectedBy {
					continue
				}
			}
			merged[key] = c
		}
	}

	candidates := o.validateCandidates(ctx, mapToSorted(merged))

	wallMs := float64(time.Since(start).Microseconds()) / 1000.0
	efficiency := 0.0
	if wallMs > 0 {
		efficiency = sumDetectorMs / wallMs
	}

	batch := &models.OrchestratorBatch{
		Signature:          tx.Signature,
		Candidates:         candidates,
		ProcessingTimeMs:   wallMs,
		ParallelEfficiency: efficiency,
		Outcomes:           outcomes,
		Degraded:           degraded,
	}
	o.record(batch)
	return batch, nil
}

func (o *Orchestrator) runDetector(ctx context.Context, det domservice.Detector, tx *models.RawTransaction, results chan<- detectorResult) {
	dctx, cancel := context.WithTimeout(ctx, o.detectorTimeout)
	defer cancel()

	type analyzed struct {
		cands []models.Candidate
		err   error
	}
	done := make(chan analyzed, 1)
	start := time.Now()
	go func() {
		cands, err := det.Analyze(dctx, tx)
		done <- analyzed{cands: cands, err: err}
	}()

	// A detector that overruns its deadline is timed out here rather than
	// awaited; its late result drains into the buffered channel.
	var cands []models.Candidate
	var err error
	select {
	case r := <-done:
		cands, err = r.cands, r.err
		if err == nil && dctx.Err() != nil {
			err = dctx.Err()
		}
	case <-dctx.Done():
		err = dctx.Err()
	}
	latency := float64(time.Since(start).Microseconds()) / 1000.0

	out := models.DetectorOutcome{
		DetectorName: det.Name(),
		LatencyMs:    latency,
	}
	if err != nil {
		out.ErrorType = classifyError(err)
		o.metrics.RecordError("detector_" + det.Name())
	} else {
		out.Success = true
		out.Candidates = cands
	}
	o.metrics.RecordDetectorLatency(det.Name(), latency/1000.0)
	results <- detectorResult{name: det.Name(), outcome: out}
}

// validateCandidates drops candidates whose token address fails the base58
// shape check. The check itself is breaker-guarded: when its circuit is open
// the candidates pass through as-is.
func (o *Orchestrator) validateCandidates(ctx context.Context, cands []models.Candidate) []models.Candidate {
	if len(cands) == 0 || o.brk == nil {
		return cands
	}
	valid, fb, err := breaker.Do(ctx, o.brk, OpTokenValidation, func(context.Context) ([]models.Candidate, error) {
		kept := make([]models.Candidate, 0, len(cands))
		for _, c := range cands {
			if !util.IsValidMint(c.TokenAddress) {
				o.mu.Lock()
				o.validationErrors++
				o.mu.Unlock()
				o.metrics.RecordError("invalid_mint")
				continue
			}
			kept = append(kept, c)
		}
		return kept, nil
	})
	if err != nil || fb != nil {
		return cands
	}
	return valid
}

func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.ErrTypeNetwork
	}
	return models.ErrTypeUnknown
}

func mapToSorted(m map[string]models.Candidate) []models.Candidate {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]models.Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func (o *Orchestrator) record(batch *models.OrchestratorBatch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches++
	o.sumLatencyMs += batch.ProcessingTimeMs
	o.sumEfficiency += batch.ParallelEfficiency
	o.sumCandidates += int64(len(batch.Candidates))
	for _, out := range batch.Outcomes {
		o.detectorRuns++
		if !out.Success {
			o.detectorFailures++
		}
	}
	o.metrics.RecordBatch(batch.ProcessingTimeMs/1000.0, batch.ParallelEfficiency, batch.Degraded)
	byDex := make(map[string]int)
	for _, c := range batch.Candidates {
		byDex[c.Dex]++
	}
	for dex, n := range byDex {
		o.metrics.RecordCandidates(dex, n)
	}
}

// GetStats returns the rolling aggregates since startup.
func (o *Orchestrator) GetStats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Stats{
		Batches:          o.batches,
		ValidationErrors: o.validationErrors,
		Targets:          o.targets,
	}
	if o.batches > 0 {
		s.AvgLatencyMs = o.sumLatencyMs / float64(o.batches)
		s.AvgParallelEfficiency = o.sumEfficiency / float64(o.batches)
		s.CandidatesPerTx = float64(o.sumCandidates) / float64(o.batches)
	}
	if o.detectorRuns > 0 {
		s.SuccessRate = float64(o.detectorRuns-o.detectorFailures) / float64(o.detectorRuns)
	}
	return s
}

// SelfTestReport is the result of one synthetic end-to-end check.
type SelfTestReport struct {
	Passed     bool                       `json:"passed"`
	Candidates int                        `json:"candidates"`
	Outcomes   map[string]models.DetectorOutcome `json:"detector_outcomes"`
}

// SelfTest feeds a synthetic pool-creation transaction through the full
// detector fan-out and reports whether every detector succeeded.
func (o *Orchestrator) SelfTest(ctx context.Context) (*SelfTestReport, error) {
	tx := syntheticCreationTx()
	batch, err := o.AnalyzeTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	passed := !batch.Degraded && len(batch.Candidates) > 0
	return &SelfTestReport{
		Passed:     passed,
		Candidates: len(batch.Candidates),
		Outcomes:   batch.Outcomes,
	}, nil
}
