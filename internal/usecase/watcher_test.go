package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"

	"PoolWatch/internal/domain/models"
	domservice "PoolWatch/internal/domain/service"
	"PoolWatch/internal/service/breaker"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []*models.EmissionEvent
}

func (e *captureEmitter) Emit(_ context.Context, ev *models.EmissionEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *captureEmitter) Close() error { return nil }

func (e *captureEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

func TestProcessBatchEmitsOncePerSignature(t *testing.T) {
	det := &stubDetector{name: "d", candidates: []models.Candidate{
		{Dex: "raydium", PoolID: strings.Repeat("W", 43), TokenAddress: mintA(), Confidence: 0.95},
	}}
	orch := NewOrchestrator([]domservice.Detector{det}, breaker.New(), noopMetrics{}, testLogger(t))
	em := &captureEmitter{}
	w := NewWatcher(nil, orch, em, testLogger(t))

	tx := validTx()
	w.processBatch(context.Background(), []*models.RawTransaction{tx})
	if em.count() != 1 {
		t.Fatalf("events = %d, want 1", em.count())
	}

	// same signature again: deduped, nothing emitted
	w.processBatch(context.Background(), []*models.RawTransaction{tx})
	if em.count() != 1 {
		t.Fatalf("events = %d after duplicate, want 1", em.count())
	}

	ev := em.events[0]
	if ev.Signature != tx.Signature || len(ev.Candidates) != 1 {
		t.Fatalf("event = %+v", ev)
	}
	if ev.EmittedAt.IsZero() {
		t.Fatalf("emitted_at not set")
	}
}

func TestProcessBatchSkipsEmptyResults(t *testing.T) {
	det := &stubDetector{name: "d"} // no candidates, no error
	orch := NewOrchestrator([]domservice.Detector{det}, breaker.New(), noopMetrics{}, testLogger(t))
	em := &captureEmitter{}
	w := NewWatcher(nil, orch, em, testLogger(t))

	w.processBatch(context.Background(), []*models.RawTransaction{validTx()})
	if em.count() != 0 {
		t.Fatalf("empty healthy batch emitted %d events, want 0", em.count())
	}
}

func TestProcessBatchEmitsDegraded(t *testing.T) {
	det := &stubDetector{name: "d", err: context.DeadlineExceeded}
	orch := NewOrchestrator([]domservice.Detector{det}, breaker.New(), noopMetrics{}, testLogger(t))
	em := &captureEmitter{}
	w := NewWatcher(nil, orch, em, testLogger(t))

	w.processBatch(context.Background(), []*models.RawTransaction{validTx()})
	if em.count() != 1 {
		t.Fatalf("degraded batch not emitted")
	}
	if !em.events[0].Degraded {
		t.Fatalf("event not flagged degraded")
	}
}
