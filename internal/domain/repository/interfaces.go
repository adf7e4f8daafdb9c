package repository

import (
	"context"

	"PoolWatch/internal/domain/models"
)

// SignatureStream is a push feed of transaction signatures mentioning a
// watched program (WebSocket logsSubscribe). Polling remains the primary
// ingest path; the stream only shortens detection latency.
type SignatureStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan string, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Emitter delivers one emission event per processed transaction to the
// downstream scoring consumers.
type Emitter interface {
	Emit(ctx context.Context, ev *models.EmissionEvent) error
	Close() error
}

// Metrics abstracts operational metric recording.
type Metrics interface {
	RecordRPCRequest(endpoint, operation, outcome string)
	RecordRateLimited(endpoint string)
	RecordCircuitTransition(operation, state string)
	RecordParse(dex, outcome string, fromCache bool)
	RecordDetectorLatency(detector string, seconds float64)
	RecordCandidates(dex string, n int)
	RecordBatch(seconds, parallelEfficiency float64, degraded bool)
	RecordError(kind string)
}
