package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"PoolWatch/internal/detector"
	"PoolWatch/internal/domain/models"
	domservice "PoolWatch/internal/domain/service"
	"PoolWatch/internal/service/breaker"
	"PoolWatch/internal/service/parser"
	"PoolWatch/pkg/logger"
)

// noopMetrics satisfies the metrics interface for tests.
type noopMetrics struct{}

func (noopMetrics) RecordRPCRequest(string, string, string)    {}
func (noopMetrics) RecordRateLimited(string)                   {}
func (noopMetrics) RecordCircuitTransition(string, string)     {}
func (noopMetrics) RecordParse(string, string, bool)           {}
func (noopMetrics) RecordDetectorLatency(string, float64)      {}
func (noopMetrics) RecordCandidates(string, int)               {}
func (noopMetrics) RecordBatch(float64, float64, bool)         {}
func (noopMetrics) RecordError(string)                         {}

// stubDetector returns fixed candidates, an error, or blocks until ctx ends.
// A non-zero delay sleeps without consulting ctx, like a detector stuck in a
// blocking call.
type stubDetector struct {
	name       string
	candidates []models.Candidate
	err        error
	block      bool
	delay      time.Duration
}

func (d *stubDetector) Name() string { return d.name }

func (d *stubDetector) Analyze(ctx context.Context, tx *models.RawTransaction) ([]models.Candidate, error) {
	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.err != nil {
		return nil, d.err
	}
	out := make([]models.Candidate, len(d.candidates))
	copy(out, d.candidates)
	for i := range out {
		out[i].Signature = tx.Signature
		out[i].DetectedBy = d.name
	}
	return out, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func validTx() *models.RawTransaction {
	return &models.RawTransaction{
		Signature:   strings.Repeat("5", 88),
		AccountKeys: []string{parser.WrappedSOLMint},
	}
}

func mintA() string { return strings.Repeat("A", 43) }
func mintB() string { return strings.Repeat("B", 43) }

func newTestOrchestrator(t *testing.T, dets ...domservice.Detector) *Orchestrator {
	t.Helper()
	return NewOrchestrator(dets, breaker.New(), noopMetrics{}, testLogger(t))
}

func TestAnalyzeRejectsMalformed(t *testing.T) {
	o := newTestOrchestrator(t, &stubDetector{name: "a"})

	if _, err := o.AnalyzeTransaction(context.Background(), nil); err == nil {
		t.Fatalf("nil transaction accepted")
	}
	if _, err := o.AnalyzeTransaction(context.Background(), &models.RawTransaction{Signature: "short"}); err == nil {
		t.Fatalf("short signature accepted")
	}
	tx := validTx()
	tx.AccountKeys = nil
	if _, err := o.AnalyzeTransaction(context.Background(), tx); err == nil {
		t.Fatalf("transaction without account keys accepted")
	}
}

func TestDedupHighestConfidenceWins(t *testing.T) {
	pool := strings.Repeat("P", 43)
	a := &stubDetector{name: "a", candidates: []models.Candidate{
		{Dex: "raydium", PoolID: pool, TokenAddress: mintA(), Confidence: 0.5},
	}}
	b := &stubDetector{name: "b", candidates: []models.Candidate{
		{Dex: "raydium", PoolID: pool, TokenAddress: mintA(), Confidence: 0.95},
		{Dex: "raydium", PoolID: pool, TokenAddress: mintB(), Confidence: 0.95},
	}}
	o := newTestOrchestrator(t, a, b)

	batch, err := o.AnalyzeTransaction(context.Background(), validTx())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(batch.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2 after dedup", len(batch.Candidates))
	}
	for _, c := range batch.Candidates {
		if c.TokenAddress == mintA() && c.Confidence != 0.95 {
			t.Fatalf("duplicate resolved to confidence %v, want 0.95", c.Confidence)
		}
	}
	if batch.Degraded {
		t.Fatalf("batch degraded with all detectors succeeding")
	}
}

func TestFailingDetectorDegradesBatch(t *testing.T) {
	ok := &stubDetector{name: "ok", candidates: []models.Candidate{
		{Dex: "pumpfun", PoolID: strings.Repeat("Q", 43), TokenAddress: mintA(), Confidence: 0.95},
	}}
	bad := &stubDetector{name: "bad", err: errors.New("decode exploded")}
	o := newTestOrchestrator(t, ok, bad)

	batch, err := o.AnalyzeTransaction(context.Background(), validTx())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !batch.Degraded {
		t.Fatalf("batch not degraded despite detector failure")
	}
	if len(batch.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1 from the healthy detector", len(batch.Candidates))
	}
	out := batch.Outcomes["bad"]
	if out.Success || out.ErrorType != models.ErrTypeUnknown {
		t.Fatalf("outcome = %+v, want UNKNOWN failure", out)
	}
}

func TestSlowDetectorTimesOut(t *testing.T) {
	slow := &stubDetector{name: "slow", block: true}
	fast := &stubDetector{name: "fast", candidates: []models.Candidate{
		{Dex: "raydium", PoolID: strings.Repeat("R", 43), TokenAddress: mintA(), Confidence: 0.95},
	}}
	o := NewOrchestrator([]domservice.Detector{slow, fast}, breaker.New(), noopMetrics{}, testLogger(t),
		WithDetectorTimeout(20*time.Millisecond),
		WithBatchTimeout(200*time.Millisecond),
	)

	batch, err := o.AnalyzeTransaction(context.Background(), validTx())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !batch.Degraded {
		t.Fatalf("batch not degraded by timeout")
	}
	out := batch.Outcomes["slow"]
	if out.ErrorType != models.ErrTypeTimeout {
		t.Fatalf("error type = %s, want %s", out.ErrorType, models.ErrTypeTimeout)
	}
	if len(batch.Candidates) != 1 {
		t.Fatalf("candidates = %d, want fast detector's result", len(batch.Candidates))
	}
}

func TestDedupTieBreakDeterministic(t *testing.T) {
	pool := strings.Repeat("P", 43)
	// registration order deliberately differs from lexicographic order
	beta := &stubDetector{name: "beta", candidates: []models.Candidate{
		{Dex: "raydium", PoolID: pool, TokenAddress: mintA(), Confidence: 0.95},
	}}
	alpha := &stubDetector{name: "alpha", candidates: []models.Candidate{
		{Dex: "raydium", PoolID: pool, TokenAddress: mintA(), Confidence: 0.95},
	}}
	o := newTestOrchestrator(t, beta, alpha)

	for i := 0; i < 50; i++ {
		batch, err := o.AnalyzeTransaction(context.Background(), validTx())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if len(batch.Candidates) != 1 {
			t.Fatalf("run %d: candidates = %d, want 1 after dedup", i, len(batch.Candidates))
		}
		if got := batch.Candidates[0].DetectedBy; got != "alpha" {
			t.Fatalf("run %d: tie kept %q, want the lexicographically-first detector", i, got)
		}
	}
}

func TestNonCooperativeDetectorTimesOut(t *testing.T) {
	stuck := &stubDetector{name: "stuck", delay: 300 * time.Millisecond, candidates: []models.Candidate{
		{Dex: "raydium", PoolID: strings.Repeat("U", 43), TokenAddress: mintB(), Confidence: 0.95},
	}}
	fast := &stubDetector{name: "fast", candidates: []models.Candidate{
		{Dex: "raydium", PoolID: strings.Repeat("R", 43), TokenAddress: mintA(), Confidence: 0.95},
	}}
	o := NewOrchestrator([]domservice.Detector{stuck, fast}, breaker.New(), noopMetrics{}, testLogger(t),
		WithDetectorTimeout(20*time.Millisecond),
		WithBatchTimeout(2*time.Second),
	)

	start := time.Now()
	batch, err := o.AnalyzeTransaction(context.Background(), validTx())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 250*time.Millisecond {
		t.Fatalf("batch waited %v for a detector past its deadline", elapsed)
	}
	out := batch.Outcomes["stuck"]
	if out.Success || out.ErrorType != models.ErrTypeTimeout {
		t.Fatalf("outcome = %+v, want TIMEOUT failure", out)
	}
	if !batch.Degraded {
		t.Fatalf("batch not degraded by detector timeout")
	}
	if len(batch.Candidates) != 1 || batch.Candidates[0].DetectedBy != "fast" {
		t.Fatalf("candidates = %+v, want only the fast detector's result", batch.Candidates)
	}
}

func TestInvalidMintDropped(t *testing.T) {
	d := &stubDetector{name: "d", candidates: []models.Candidate{
		{Dex: "raydium", PoolID: strings.Repeat("S", 43), TokenAddress: "not-base58-0OIl", Confidence: 0.95},
		{Dex: "raydium", PoolID: strings.Repeat("S", 43), TokenAddress: mintB(), Confidence: 0.95},
	}}
	o := newTestOrchestrator(t, d)

	batch, err := o.AnalyzeTransaction(context.Background(), validTx())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(batch.Candidates) != 1 {
		t.Fatalf("candidates = %d, want invalid mint dropped", len(batch.Candidates))
	}
	if batch.Candidates[0].TokenAddress != mintB() {
		t.Fatalf("kept %s, want the valid mint", batch.Candidates[0].TokenAddress)
	}
	if got := o.GetStats().ValidationErrors; got != 1 {
		t.Fatalf("validation errors = %d, want 1", got)
	}
}

func TestStatsRollingAverages(t *testing.T) {
	d := &stubDetector{name: "d", candidates: []models.Candidate{
		{Dex: "raydium", PoolID: strings.Repeat("T", 43), TokenAddress: mintA(), Confidence: 0.95},
	}}
	o := newTestOrchestrator(t, d)

	for i := 0; i < 3; i++ {
		if _, err := o.AnalyzeTransaction(context.Background(), validTx()); err != nil {
			t.Fatalf("batch %d: %v", i, err)
		}
	}
	s := o.GetStats()
	if s.Batches != 3 {
		t.Fatalf("batches = %d, want 3", s.Batches)
	}
	if s.SuccessRate != 1 {
		t.Fatalf("success rate = %v, want 1", s.SuccessRate)
	}
	if s.CandidatesPerTx != 1 {
		t.Fatalf("candidates per tx = %v, want 1", s.CandidatesPerTx)
	}
	if s.AvgLatencyMs <= 0 {
		t.Fatalf("avg latency = %v, want positive", s.AvgLatencyMs)
	}
}

func TestSelfTestEndToEnd(t *testing.T) {
	p := parser.New()
	o := newTestOrchestrator(t, detector.NewRaydium(p), detector.NewPumpFun(p))

	report, err := o.SelfTest(context.Background())
	if err != nil {
		t.Fatalf("selftest: %v", err)
	}
	if !report.Passed {
		t.Fatalf("selftest failed: %+v", report)
	}
	if report.Candidates < 2 {
		t.Fatalf("candidates = %d, want one per detector", report.Candidates)
	}
	for name, out := range report.Outcomes {
		if !out.Success {
			t.Fatalf("detector %s failed: %+v", name, out)
		}
	}
}
