package rpcpool

import (
	"testing"
	"time"
)

func TestEndpointBaseThenBurst(t *testing.T) {
	ep := NewEndpoint("tier2", "http://t2", 2, 25, 35)
	for i := 0; i < 35; i++ {
		if !ep.RecordRequest() {
			t.Fatalf("request %d denied, want admitted", i+1)
		}
	}
	if ep.CanMakeRequest() {
		t.Fatalf("expected window exhausted after 35 admissions")
	}
	if ep.RecordRequest() {
		t.Fatalf("36th request admitted, want denied")
	}
	if got := ep.Used(); got != 35 {
		t.Fatalf("used = %d, want 35 (denial must not consume)", got)
	}
}

func TestEndpointWindowRollover(t *testing.T) {
	ep := NewEndpoint("public", "http://pub", 0, 5, 8)
	for i := 0; i < 8; i++ {
		if !ep.RecordRequest() {
			t.Fatalf("request %d denied before exhaustion", i+1)
		}
	}
	if ep.RecordRequest() {
		t.Fatalf("expected denial at capacity")
	}

	// force the window into the past instead of sleeping
	ep.mu.Lock()
	ep.windowStart = time.Now().Add(-2 * windowLength)
	ep.mu.Unlock()

	if !ep.CanMakeRequest() {
		t.Fatalf("expected fresh capacity after rollover")
	}
	if got := ep.Used(); got != 0 {
		t.Fatalf("used = %d after rollover, want 0", got)
	}
}

func TestPoolPriorityOrder(t *testing.T) {
	t1 := NewEndpoint("tier1", "http://t1", 3, 2, 2)
	t2 := NewEndpoint("tier2", "http://t2", 2, 2, 2)
	p := New([]*Endpoint{t2, t1}, nil)

	for i := 0; i < 2; i++ {
		ep, err := p.SelectEndpoint()
		if err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if ep.Name != "tier1" {
			t.Fatalf("select %d routed to %s, want tier1 first", i, ep.Name)
		}
	}

	// tier1 exhausted: next selection falls through to tier2
	ep, err := p.SelectEndpoint()
	if err != nil {
		t.Fatalf("failover select: %v", err)
	}
	if ep.Name != "tier2" {
		t.Fatalf("failover routed to %s, want tier2", ep.Name)
	}
}

func TestPoolAllExhausted(t *testing.T) {
	ep := NewEndpoint("only", "http://only", 1, 1, 1)
	p := New([]*Endpoint{ep}, nil)

	if _, err := p.SelectEndpoint(); err != nil {
		t.Fatalf("first select: %v", err)
	}
	if _, err := p.SelectEndpoint(); err != ErrNoEndpoint {
		t.Fatalf("err = %v, want ErrNoEndpoint", err)
	}
	if p.CanMakeRequest() {
		t.Fatalf("CanMakeRequest = true with every endpoint exhausted")
	}
}

func TestSnapshotLowUtilizationAlert(t *testing.T) {
	ep := NewEndpoint("idle", "http://idle", 1, 100, 150)
	p := New([]*Endpoint{ep}, nil)

	for i := 0; i < lowStreak-1; i++ {
		if st := p.Snapshot(); st.LowUtilizationAlert {
			t.Fatalf("alert fired after %d snapshots, want %d", i+1, lowStreak)
		}
	}
	if st := p.Snapshot(); !st.LowUtilizationAlert {
		t.Fatalf("expected alert after %d consecutive low snapshots", lowStreak)
	}

	// saturation clears the streak
	for i := 0; i < 150; i++ {
		ep.RecordRequest()
	}
	if st := p.Snapshot(); st.LowUtilizationAlert {
		t.Fatalf("alert fired on a saturated pool")
	}
}
