package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PoolWatch/internal/domain/models"
	domrepo "PoolWatch/internal/domain/repository"
)

// BufferedEmitter is a middleware between the watcher and the downstream
// emitter. A failed emit parks the event in a bounded buffer and a background
// loop retries with backoff, so a broker hiccup never blocks detection.
type BufferedEmitter struct {
	next    domrepo.Emitter
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *models.EmissionEvent
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type BufferOption func(*BufferedEmitter)

// WithBufferSize sets how many events to hold while downstream is unavailable.
func WithBufferSize(n int) BufferOption {
	return func(b *BufferedEmitter) {
		if n > 0 {
			b.bufSize = n
		}
	}
}

// NewBufferedEmitter wraps next with retry buffering.
func NewBufferedEmitter(next domrepo.Emitter, metrics domrepo.Metrics, opts ...BufferOption) *BufferedEmitter {
	b := &BufferedEmitter{
		next:    next,
		metrics: metrics,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.bufCh = make(chan *models.EmissionEvent, b.bufSize)
	return b
}

// Start launches the background flush loop.
func (b *BufferedEmitter) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	go b.flushLoop(ctx)
}

// Emit tries the downstream first; on failure the event is buffered. A full
// buffer drops the event and counts it.
func (b *BufferedEmitter) Emit(ctx context.Context, ev *models.EmissionEvent) error {
	if err := b.next.Emit(ctx, ev); err == nil {
		return nil
	}
	select {
	case b.bufCh <- ev:
		b.metrics.RecordError("emit_buffered")
		return nil
	default:
		b.metrics.RecordError("emit_dropped")
		return fmt.Errorf("emission buffer full, dropped %s", ev.Signature)
	}
}

func (b *BufferedEmitter) flushLoop(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case ev := <-b.bufCh:
			if err := b.next.Emit(ctx, ev); err != nil {
				// put it back and wait before the next attempt
				select {
				case b.bufCh <- ev:
				default:
					b.metrics.RecordError("emit_dropped")
				}
				select {
				case <-time.After(backoff):
				case <-b.stopCh:
					return
				case <-ctx.Done():
					return
				}
				if backoff < maxBackoff {
					backoff *= 2
				}
				continue
			}
			backoff = time.Second
		}
	}
}

// Depth reports how many events are parked in the buffer.
func (b *BufferedEmitter) Depth() int {
	return len(b.bufCh)
}

// Close stops the flush loop and closes the downstream emitter.
func (b *BufferedEmitter) Close() error {
	b.mu.Lock()
	if b.started {
		close(b.stopCh)
		b.started = false
	}
	b.mu.Unlock()
	return b.next.Close()
}
