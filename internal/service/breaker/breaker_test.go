package breaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing(context.Context) (any, error) { return nil, errBoom }
func succeeding(context.Context) (any, error) { return "ok", nil }

func tripCircuit(t *testing.T, b *Breaker, op string) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if _, err := b.Execute(context.Background(), op, failing); !errors.Is(err, errBoom) {
			t.Fatalf("failure %d: err = %v, want errBoom", i+1, err)
		}
	}
}

func TestOpensAfterThreeConsecutiveFailures(t *testing.T) {
	b := New()
	op := "rpc_transaction"

	if _, err := b.Execute(context.Background(), op, failing); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	if _, err := b.Execute(context.Background(), op, failing); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	if got := b.State(op); got != StateClosed {
		t.Fatalf("state = %s after 2 failures, want closed", got)
	}

	if _, err := b.Execute(context.Background(), op, failing); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	if got := b.State(op); got != StateOpen {
		t.Fatalf("state = %s after 3 failures, want open", got)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New()
	op := "rpc_signatures"

	b.Execute(context.Background(), op, failing)
	b.Execute(context.Background(), op, failing)
	if _, err := b.Execute(context.Background(), op, succeeding); err != nil {
		t.Fatalf("success call: %v", err)
	}
	b.Execute(context.Background(), op, failing)
	b.Execute(context.Background(), op, failing)
	if got := b.State(op); got != StateClosed {
		t.Fatalf("state = %s, want closed (counter must reset on success)", got)
	}
}

func TestOpenCircuitNonCriticalSentinel(t *testing.T) {
	b := New()
	op := "rpc_transaction"
	tripCircuit(t, b, op)

	called := false
	_, err := b.Execute(context.Background(), op, func(context.Context) (any, error) {
		called = true
		return nil, nil
	})
	if called {
		t.Fatalf("fn invoked while circuit open")
	}
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestOpenCircuitCriticalFallback(t *testing.T) {
	b := New()
	op := "token_validation"
	b.RegisterCritical(op, func() any { return "stale" })
	tripCircuit(t, b, op)

	v, err := b.Execute(context.Background(), op, succeeding)
	if err != nil {
		t.Fatalf("critical op errored on open circuit: %v", err)
	}
	fb, ok := v.(*FallbackResult)
	if !ok {
		t.Fatalf("result = %T, want *FallbackResult", v)
	}
	if !fb.FromBreaker || fb.Operation != op {
		t.Fatalf("fallback not tagged: %+v", fb)
	}
	if fb.Value != "stale" {
		t.Fatalf("fallback value = %v, want stale", fb.Value)
	}
}

func TestHalfOpenSingleTrial(t *testing.T) {
	b := New(WithCooldown(time.Millisecond))
	op := "rpc_transaction"
	tripCircuit(t, b, op)

	time.Sleep(5 * time.Millisecond)
	if got := b.State(op); got != StateHalfOpen {
		t.Fatalf("state = %s after cooldown, want half-open", got)
	}

	// trial success closes the circuit
	if _, err := b.Execute(context.Background(), op, succeeding); err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if got := b.State(op); got != StateClosed {
		t.Fatalf("state = %s after trial success, want closed", got)
	}
}

func TestHalfOpenTrialFailureReopens(t *testing.T) {
	b := New(WithCooldown(time.Millisecond))
	op := "rpc_signatures"
	tripCircuit(t, b, op)

	time.Sleep(5 * time.Millisecond)
	if _, err := b.Execute(context.Background(), op, failing); !errors.Is(err, errBoom) {
		t.Fatalf("trial err = %v, want errBoom", err)
	}
	if got := b.State(op); got != StateOpen {
		t.Fatalf("state = %s after trial failure, want open", got)
	}
}

func TestHealthCheckStatuses(t *testing.T) {
	b := New()
	if h := b.HealthCheck(); h.Status != StatusHealthy {
		t.Fatalf("status = %s, want healthy", h.Status)
	}

	tripCircuit(t, b, "rpc_transaction")
	if h := b.HealthCheck(); h.Status != StatusDegraded {
		t.Fatalf("status = %s, want degraded", h.Status)
	}

	b.RegisterCritical("token_validation", nil)
	tripCircuit(t, b, "token_validation")
	h := b.HealthCheck()
	if h.Status != StatusCritical {
		t.Fatalf("status = %s, want critical", h.Status)
	}
	if len(h.OpenCritical) != 1 || h.OpenCritical[0] != "token_validation" {
		t.Fatalf("open critical = %v", h.OpenCritical)
	}
}

func TestDoTyped(t *testing.T) {
	b := New()
	op := "rpc_transaction"

	v, fb, err := Do(context.Background(), b, op, func(context.Context) (int, error) { return 42, nil })
	if err != nil || fb != nil || v != 42 {
		t.Fatalf("got (%v, %v, %v), want (42, nil, nil)", v, fb, err)
	}

	b.RegisterCritical(op, func() any { return 7 })
	tripCircuit(t, b, op)
	v, fb, err = Do(context.Background(), b, op, func(context.Context) (int, error) { return 42, nil })
	if err != nil {
		t.Fatalf("open circuit err = %v", err)
	}
	if fb == nil || fb.Value != 7 {
		t.Fatalf("fallback = %+v, want tagged value 7", fb)
	}
	if v != 0 {
		t.Fatalf("typed value = %d on fallback, want zero", v)
	}
}
