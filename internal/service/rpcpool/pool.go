package rpcpool

import (
	"errors"
	"sort"
	"sync"

	domrepo "PoolWatch/internal/domain/repository"
)

// ErrNoEndpoint is returned when every endpoint is rate limited. The pool
// never blocks; the caller decides whether to wait or fail fast.
var ErrNoEndpoint = errors.New("rpcpool: no endpoint currently admits a request")

// Utilization ratios below lowWatermark for lowStreak consecutive snapshots
// raise an advisory rebalance alert. Saturation is healthy and never alerts.
const (
	lowWatermark = 0.5
	lowStreak    = 3
)

// EndpointStatus is one endpoint's utilization snapshot.
type EndpointStatus struct {
	Name        string  `json:"name"`
	Priority    int     `json:"priority"`
	Used        int     `json:"used"`
	Burst       int     `json:"burst"`
	Utilization float64 `json:"utilization"`
}

// Status is the pool-wide monitoring view.
type Status struct {
	Endpoints           []EndpointStatus `json:"endpoints"`
	LowUtilizationAlert bool             `json:"low_utilization_alert"`
}

// Pool holds a prioritized set of endpoints and selects between them.
type Pool struct {
	endpoints []*Endpoint // sorted by descending priority
	metrics   domrepo.Metrics

	mu        sync.Mutex
	lowCounts int
}

// New builds a pool from the given endpoints, ordered by priority.
func New(endpoints []*Endpoint, metrics domrepo.Metrics) *Pool {
	eps := make([]*Endpoint, len(endpoints))
	copy(eps, endpoints)
	sort.SliceStable(eps, func(i, j int) bool { return eps[i].Priority > eps[j].Priority })
	return &Pool{endpoints: eps, metrics: metrics}
}

// SelectEndpoint returns the highest-priority endpoint currently admitting a
// request and consumes one admission slot on it.
func (p *Pool) SelectEndpoint() (*Endpoint, error) {
	for _, ep := range p.endpoints {
		if ep.RecordRequest() {
			return ep, nil
		}
		if p.metrics != nil {
			p.metrics.RecordRateLimited(ep.Name)
		}
	}
	return nil, ErrNoEndpoint
}

// CanMakeRequest reports whether any endpoint would currently admit a request.
func (p *Pool) CanMakeRequest() bool {
	for _, ep := range p.endpoints {
		if ep.CanMakeRequest() {
			return true
		}
	}
	return false
}

// Endpoint returns the configured endpoint by name, or nil.
func (p *Pool) Endpoint(name string) *Endpoint {
	for _, ep := range p.endpoints {
		if ep.Name == name {
			return ep
		}
	}
	return nil
}

// Snapshot returns current utilization for monitoring. The advisory alert
// fires only after sustained under-use of the whole pool, signalling traffic
// should be rebalanced toward cheaper tiers.
func (p *Pool) Snapshot() Status {
	st := Status{Endpoints: make([]EndpointStatus, 0, len(p.endpoints))}
	var sumUtil float64
	for _, ep := range p.endpoints {
		u := ep.Utilization()
		sumUtil += u
		st.Endpoints = append(st.Endpoints, EndpointStatus{
			Name:        ep.Name,
			Priority:    ep.Priority,
			Used:        ep.Used(),
			Burst:       ep.Burst,
			Utilization: u,
		})
	}

	p.mu.Lock()
	if len(p.endpoints) > 0 && sumUtil/float64(len(p.endpoints)) < lowWatermark {
		p.lowCounts++
	} else {
		p.lowCounts = 0
	}
	st.LowUtilizationAlert = p.lowCounts >= lowStreak
	p.mu.Unlock()

	return st
}
