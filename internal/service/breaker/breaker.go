package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domrepo "PoolWatch/internal/domain/repository"
)

// ErrCircuitOpen is the sentinel fallback for operations with no registered
// fallback. Downstream code matches it with errors.Is.
var ErrCircuitOpen = errors.New("UNKNOWN_SERVICE_CIRCUIT_OPEN")

// Circuit states.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// Overall health statuses.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// FallbackResult is a breaker-produced stand-in for a critical operation's
// result. Tagged so it is never mistaken for live data.
type FallbackResult struct {
	Operation   string `json:"operation"`
	FromBreaker bool   `json:"from_breaker"`
	Value       any    `json:"value,omitempty"`
}

// Health is the breaker-wide status report.
type Health struct {
	Status         string   `json:"status"`
	OpenOperations []string `json:"open_operations,omitempty"`
	OpenCritical   []string `json:"open_critical,omitempty"`
}

// circuit is the per-operation state: scalar counters only, no history
// buffers, so resident state stays tiny regardless of operation count.
type circuit struct {
	failures      int
	state         string
	openedAt      time.Time
	trialInFlight bool
}

// Breaker short-circuits repeated failures per named operation and serves
// fallbacks while a circuit is open.
type Breaker struct {
	maxFailures int
	cooldown    time.Duration
	metrics     domrepo.Metrics

	mu        sync.Mutex
	circuits  map[string]*circuit
	critical  map[string]bool
	fallbacks map[string]func() any
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithMaxFailures sets the consecutive-failure threshold.
func WithMaxFailures(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.maxFailures = n
		}
	}
}

// WithCooldown sets how long a circuit stays open before a trial call.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithMetrics wires transition metrics.
func WithMetrics(m domrepo.Metrics) Option {
	return func(b *Breaker) { b.metrics = m }
}

// New creates a Breaker with defaults (3 failures, 30s cooldown).
func New(opts ...Option) *Breaker {
	b := &Breaker{
		maxFailures: 3,
		cooldown:    30 * time.Second,
		circuits:    make(map[string]*circuit),
		critical:    make(map[string]bool),
		fallbacks:   make(map[string]func() any),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterCritical marks an operation as critical and installs its fallback.
// A nil fb yields a bare tagged FallbackResult.
func (b *Breaker) RegisterCritical(operation string, fb func() any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.critical[operation] = true
	b.fallbacks[operation] = fb
}

// get returns the circuit for an operation, creating it lazily.
// Callers must hold b.mu.
func (b *Breaker) get(operation string) *circuit {
	c, ok := b.circuits[operation]
	if !ok {
		c = &circuit{state: StateClosed}
		b.circuits[operation] = c
	}
	return c
}

// admit decides whether a call may proceed. The cooldown check is a plain
// deadline comparison, never a wait.
func (b *Breaker) admit(operation string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.get(operation)
	switch c.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if c.trialInFlight {
			return false
		}
		c.trialInFlight = true
		return true
	default: // open
		if time.Since(c.openedAt) < b.cooldown {
			return false
		}
		c.state = StateHalfOpen
		c.trialInFlight = true
		b.transition(operation, StateHalfOpen)
		return true
	}
}

func (b *Breaker) transition(operation, state string) {
	if b.metrics != nil {
		b.metrics.RecordCircuitTransition(operation, state)
	}
}

func (b *Breaker) onSuccess(operation string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.get(operation)
	if c.state != StateClosed {
		b.transition(operation, StateClosed)
	}
	c.failures = 0
	c.state = StateClosed
	c.trialInFlight = false
}

func (b *Breaker) onFailure(operation string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.get(operation)
	c.trialInFlight = false
	if c.state == StateHalfOpen {
		c.state = StateOpen
		c.openedAt = time.Now()
		b.transition(operation, StateOpen)
		return
	}
	c.failures++
	if c.failures >= b.maxFailures && c.state != StateOpen {
		c.state = StateOpen
		c.openedAt = time.Now()
		b.transition(operation, StateOpen)
	}
}

// fallback produces the open-circuit result for an operation.
func (b *Breaker) fallback(operation string) (any, error) {
	b.mu.Lock()
	fb, critical := b.fallbacks[operation], b.critical[operation]
	b.mu.Unlock()
	if !critical {
		return nil, fmt.Errorf("breaker %s: %w", operation, ErrCircuitOpen)
	}
	res := &FallbackResult{Operation: operation, FromBreaker: true}
	if fb != nil {
		res.Value = fb()
	}
	return res, nil
}

// Execute runs fn under the named circuit. While the circuit is open it
// returns the operation's fallback without invoking fn.
func (b *Breaker) Execute(ctx context.Context, operation string, fn func(context.Context) (any, error)) (any, error) {
	if !b.admit(operation) {
		return b.fallback(operation)
	}
	v, err := fn(ctx)
	if err != nil {
		b.onFailure(operation)
		return nil, err
	}
	b.onSuccess(operation)
	return v, nil
}

// State returns the named circuit's current state, accounting for an
// elapsed cooldown.
func (b *Breaker) State(operation string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.circuits[operation]
	if !ok {
		return StateClosed
	}
	if c.state == StateOpen && time.Since(c.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return c.state
}

// HealthCheck reports overall status: critical when any critical circuit is
// open, degraded when any other circuit is open, healthy otherwise.
func (b *Breaker) HealthCheck() Health {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := Health{Status: StatusHealthy}
	for name, c := range b.circuits {
		if c.state != StateOpen || time.Since(c.openedAt) >= b.cooldown {
			continue
		}
		h.OpenOperations = append(h.OpenOperations, name)
		if b.critical[name] {
			h.OpenCritical = append(h.OpenCritical, name)
		}
	}
	if len(h.OpenCritical) > 0 {
		h.Status = StatusCritical
	} else if len(h.OpenOperations) > 0 {
		h.Status = StatusDegraded
	}
	return h
}

// Do runs a typed call under the breaker. On an open circuit it returns the
// zero value, the tagged fallback (when registered), and ErrCircuitOpen-
// wrapped errors otherwise.
func Do[T any](ctx context.Context, b *Breaker, operation string, fn func(context.Context) (T, error)) (T, *FallbackResult, error) {
	var zero T
	v, err := b.Execute(ctx, operation, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, nil, err
	}
	if fb, ok := v.(*FallbackResult); ok {
		return zero, fb, nil
	}
	return v.(T), nil, nil
}
