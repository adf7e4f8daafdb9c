package usecase

import (
	"context"
	"sync"
	"time"

	"PoolWatch/internal/domain/models"
	domrepo "PoolWatch/internal/domain/repository"
	"PoolWatch/pkg/logger"
)

// Watcher drives ingest: a polling loop over every configured exchange plus
// an optional push stream, both funneling transactions through the
// orchestrator and out to the emitter. Signatures seen once within the dedup
// window are not processed again, whichever path delivered them first.
type Watcher struct {
	fetcher  *Fetcher
	orch     *Orchestrator
	emitter  domrepo.Emitter
	stream   domrepo.SignatureStream
	interval time.Duration
	window   time.Duration
	log      *logger.Logger

	mu   sync.Mutex
	seen map[string]time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithPollInterval sets the polling cadence.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithDedupWindow sets how long a processed signature is remembered.
func WithDedupWindow(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.window = d
		}
	}
}

// WithStream attaches a push signature stream alongside polling.
func WithStream(s domrepo.SignatureStream) WatcherOption {
	return func(w *Watcher) {
		w.stream = s
	}
}

// NewWatcher creates a Watcher. The emitter receives one event per processed
// transaction.
func NewWatcher(fetcher *Fetcher, orch *Orchestrator, emitter domrepo.Emitter, log *logger.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		fetcher:  fetcher,
		orch:     orch,
		emitter:  emitter,
		interval: 5 * time.Second,
		window:   10 * time.Minute,
		log:      log,
		seen:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the poll loop and, when a stream is attached, the stream
// consumer. It returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.pollLoop(ctx)

	if w.stream != nil {
		w.wg.Add(1)
		go w.streamLoop(ctx)
	}
}

// Stop halts both loops and waits for in-flight work to drain.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	prune := time.NewTicker(w.window)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-prune.C:
			w.pruneSeen()
		case <-ticker.C:
			for _, name := range w.fetcher.Exchanges() {
				txs, err := w.fetcher.PollExchange(ctx, name)
				if err != nil {
					w.log.Warn("poll failed", logger.String("exchange", name), logger.Error(err))
					continue
				}
				w.processBatch(ctx, txs)
			}
		}
	}
}

func (w *Watcher) streamLoop(ctx context.Context) {
	defer w.wg.Done()

	if err := w.stream.Connect(ctx); err != nil {
		w.log.Error("stream connect failed, polling only", logger.Error(err))
		return
	}
	if err := w.stream.Subscribe(ctx); err != nil {
		w.log.Error("stream subscribe failed, polling only", logger.Error(err))
		return
	}

	sigs, errs := w.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			w.stream.Close()
			return
		case err := <-errs:
			w.log.Warn("stream error, reconnecting", logger.Error(err))
			if rerr := w.stream.Reconnect(ctx); rerr != nil {
				w.log.Error("stream reconnect failed, polling only", logger.Error(rerr))
				return
			}
			sigs, errs = w.stream.Read(ctx)
		case sig, ok := <-sigs:
			if !ok {
				return
			}
			if w.alreadySeen(sig) {
				continue
			}
			txs := w.fetcher.FetchBatch(ctx, []string{sig})
			w.processBatch(ctx, txs)
		}
	}
}

func (w *Watcher) processBatch(ctx context.Context, txs []*models.RawTransaction) {
	for _, tx := range txs {
		if w.alreadySeen(tx.Signature) {
			continue
		}
		w.markSeen(tx.Signature)

		batch, err := w.orch.AnalyzeTransaction(ctx, tx)
		if err != nil {
			w.log.Debug("analysis rejected", logger.String("signature", tx.Signature), logger.Error(err))
			continue
		}
		if len(batch.Candidates) == 0 && !batch.Degraded {
			continue
		}

		ev := &models.EmissionEvent{
			Signature:          batch.Signature,
			Candidates:         batch.Candidates,
			ProcessingTimeMs:   batch.ProcessingTimeMs,
			ParallelEfficiency: batch.ParallelEfficiency,
			Degraded:           batch.Degraded,
			EmittedAt:          time.Now().UTC(),
		}
		if err := w.emitter.Emit(ctx, ev); err != nil {
			w.log.Error("emit failed", logger.String("signature", ev.Signature), logger.Error(err))
		}
	}
}

func (w *Watcher) alreadySeen(sig string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[sig]
	return ok
}

func (w *Watcher) markSeen(sig string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen[sig] = time.Now()
}

func (w *Watcher) pruneSeen() {
	cutoff := time.Now().Add(-w.window)
	w.mu.Lock()
	defer w.mu.Unlock()
	for sig, t := range w.seen {
		if t.Before(cutoff) {
			delete(w.seen, sig)
		}
	}
}
