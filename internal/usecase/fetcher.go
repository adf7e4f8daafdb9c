package usecase

import (
	"context"
	"fmt"
	"sync"

	"PoolWatch/internal/domain/models"
	domrepo "PoolWatch/internal/domain/repository"
	"PoolWatch/internal/service/breaker"
	"PoolWatch/internal/service/solana"
	"PoolWatch/pkg/logger"
)

// Circuit operation names used by the fetcher.
const (
	OpSignatures  = "rpc_signatures"
	OpTransaction = "rpc_transaction"
)

// Exchange is one watched DEX program.
type Exchange struct {
	Name           string
	ProgramID      string
	SignatureLimit int
}

// Fetcher polls exchange programs for new signatures and resolves
// transaction bodies. Every network call is breaker-guarded and routed
// through the endpoint pool inside the client.
type Fetcher struct {
	client    *solana.Client
	brk       *breaker.Breaker
	exchanges map[string]Exchange
	workers   int
	metrics   domrepo.Metrics
	log       *logger.Logger
}

// NewFetcher creates a Fetcher for the given exchanges.
func NewFetcher(client *solana.Client, brk *breaker.Breaker, exchanges []Exchange, metrics domrepo.Metrics, log *logger.Logger) *Fetcher {
	m := make(map[string]Exchange, len(exchanges))
	for _, ex := range exchanges {
		m[ex.Name] = ex
	}
	return &Fetcher{
		client:    client,
		brk:       brk,
		exchanges: m,
		workers:   4,
		metrics:   metrics,
		log:       log,
	}
}

// Exchanges returns the configured exchange names.
func (f *Fetcher) Exchanges() []string {
	names := make([]string, 0, len(f.exchanges))
	for name := range f.exchanges {
		names = append(names, name)
	}
	return names
}

// PollExchange fetches recent signatures for the exchange's program address
// and resolves their bodies. An open signatures circuit yields the tagged
// empty fallback rather than an error.
func (f *Fetcher) PollExchange(ctx context.Context, name string) ([]*models.RawTransaction, error) {
	ex, ok := f.exchanges[name]
	if !ok {
		return nil, fmt.Errorf("unknown exchange: %s", name)
	}

	sigs, fb, err := breaker.Do(ctx, f.brk, OpSignatures, func(ctx context.Context) ([]solana.SignatureInfo, error) {
		return f.client.GetSignaturesForAddress(ctx, ex.ProgramID, ex.SignatureLimit)
	})
	if err != nil {
		f.metrics.RecordError("poll_signatures")
		return nil, fmt.Errorf("poll %s: %w", name, err)
	}
	if fb != nil {
		f.log.Warn("signatures circuit open, serving fallback", logger.String("exchange", name))
		return nil, nil
	}

	wanted := make([]string, 0, len(sigs))
	for _, s := range sigs {
		if s.Err != nil || len(s.Signature) < models.MinSignatureLen {
			continue
		}
		wanted = append(wanted, s.Signature)
	}
	return f.FetchBatch(ctx, wanted), nil
}

// FetchBatch resolves each signature independently; a failure on one
// signature never aborts the batch and only resolved transactions return.
func (f *Fetcher) FetchBatch(ctx context.Context, signatures []string) []*models.RawTransaction {
	if len(signatures) == 0 {
		return nil
	}

	results := make([]*models.RawTransaction, len(signatures))
	sem := make(chan struct{}, f.workers)
	var wg sync.WaitGroup

	for i, sig := range signatures {
		wg.Add(1)
		go func(i int, sig string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			tx, fb, err := breaker.Do(ctx, f.brk, OpTransaction, func(ctx context.Context) (*models.RawTransaction, error) {
				return f.client.GetTransaction(ctx, sig)
			})
			if err != nil {
				f.metrics.RecordError("fetch_transaction")
				f.log.Debug("transaction fetch failed", logger.String("signature", sig), logger.Error(err))
				return
			}
			if fb != nil {
				// circuit open: skip this signature, siblings may still land
				return
			}
			results[i] = tx
		}(i, sig)
	}
	wg.Wait()

	out := make([]*models.RawTransaction, 0, len(results))
	for _, tx := range results {
		if tx != nil {
			out = append(out, tx)
		}
	}
	return out
}

// IsHealthy is true only while both RPC circuits are closed or half-open.
func (f *Fetcher) IsHealthy() bool {
	return f.brk.State(OpSignatures) != breaker.StateOpen &&
		f.brk.State(OpTransaction) != breaker.StateOpen
}
