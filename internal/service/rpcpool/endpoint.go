package rpcpool

import (
	"sync"
	"time"
)

const windowLength = 1000 * time.Millisecond

// Endpoint is one RPC endpoint with its own rolling-window admission state.
// Base capacity is MaxRPS requests per window; burst capacity is additional
// headroom on top of that, with total admissions per window capped at Burst.
// Counters are owned by the endpoint and mutated only under its lock.
type Endpoint struct {
	Name     string
	URL      string
	Priority int
	MaxRPS   int
	Burst    int

	mu          sync.Mutex
	windowStart time.Time
	requests    int // admissions within base capacity this window
	burstUsed   int // admissions above base capacity this window
}

// NewEndpoint creates an endpoint with a fresh window.
func NewEndpoint(name, url string, priority, maxRPS, burst int) *Endpoint {
	if burst < maxRPS {
		burst = maxRPS
	}
	return &Endpoint{
		Name:        name,
		URL:         url,
		Priority:    priority,
		MaxRPS:      maxRPS,
		Burst:       burst,
		windowStart: time.Now(),
	}
}

// rollover resets both counters once the wall-clock window has elapsed.
// Callers must hold e.mu.
func (e *Endpoint) rollover(now time.Time) {
	if now.Sub(e.windowStart) >= windowLength {
		e.windowStart = now
		e.requests = 0
		e.burstUsed = 0
	}
}

// CanMakeRequest reports whether a request would be admitted right now,
// without consuming capacity.
func (e *Endpoint) CanMakeRequest() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover(time.Now())
	return e.requests+e.burstUsed < e.Burst
}

// RecordRequest consumes one admission slot. Returns false when the window
// is exhausted; a denial consumes nothing.
func (e *Endpoint) RecordRequest() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover(time.Now())
	switch {
	case e.requests < e.MaxRPS:
		e.requests++
		return true
	case e.requests+e.burstUsed < e.Burst:
		e.burstUsed++
		return true
	default:
		return false
	}
}

// Used returns the total admissions consumed in the current window.
func (e *Endpoint) Used() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover(time.Now())
	return e.requests + e.burstUsed
}

// Utilization returns consumed window capacity in [0,1] relative to Burst.
func (e *Endpoint) Utilization() float64 {
	if e.Burst == 0 {
		return 0
	}
	return float64(e.Used()) / float64(e.Burst)
}
