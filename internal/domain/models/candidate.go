package models

import (
	"strings"
	"time"
)

// Detector failure classes.
const (
	ErrTypeTimeout = "TIMEOUT"
	ErrTypeNetwork = "NETWORK"
	ErrTypeUnknown = "UNKNOWN"
)

// Candidate is a detected liquidity-pool creation, prior to any scoring.
type Candidate struct {
	Signature     string    `json:"signature"`
	Dex           string    `json:"dex"`
	PoolID        string    `json:"pool_id"`
	TokenAddress  string    `json:"token_address"`
	SecondaryToken string   `json:"secondary_token,omitempty"`
	Confidence    float64   `json:"confidence"`
	DetectedBy    string    `json:"detected_by"`
	DetectedAt    time.Time `json:"detected_at"`
}

// IdentityKey is the normalized deduplication key: two detectors reporting the
// same pool/token pair collapse to one candidate regardless of arrival order.
func (c *Candidate) IdentityKey() string {
	return strings.ToLower(c.PoolID) + "|" + strings.ToLower(c.TokenAddress)
}

// DetectorOutcome records one detector's run within a batch.
type DetectorOutcome struct {
	DetectorName string      `json:"detector_name"`
	Success      bool        `json:"success"`
	LatencyMs    float64     `json:"latency_ms"`
	Candidates   []Candidate `json:"candidates,omitempty"`
	ErrorType    string      `json:"error_type,omitempty"`
}

// OrchestratorBatch is the result of fanning one transaction out to every
// registered detector. Owned by the downstream consumer once emitted.
type OrchestratorBatch struct {
	Signature          string                     `json:"signature"`
	Candidates         []Candidate                `json:"candidates"`
	ProcessingTimeMs   float64                    `json:"processing_time_ms"`
	ParallelEfficiency float64                    `json:"parallel_efficiency"`
	Outcomes           map[string]DetectorOutcome `json:"detector_outcomes"`
	Degraded           bool                       `json:"degraded"`
}

// EmissionEvent is the wire payload handed to downstream scoring consumers,
// one per processed transaction.
type EmissionEvent struct {
	Signature          string      `json:"signature"`
	Candidates         []Candidate `json:"candidates"`
	ProcessingTimeMs   float64     `json:"processing_time_ms"`
	ParallelEfficiency float64     `json:"parallel_efficiency"`
	Degraded           bool        `json:"degraded"`
	EmittedAt          time.Time   `json:"emitted_at"`
}
