package service

import (
	"context"

	"PoolWatch/internal/domain/models"
)

// Detector analyzes one transaction for liquidity-pool creation on a single
// exchange program. Implementations must be safe for concurrent use and must
// honor ctx cancellation; a detector past its deadline is discarded, never
// awaited further.
type Detector interface {
	Name() string
	Analyze(ctx context.Context, tx *models.RawTransaction) ([]models.Candidate, error)
}
