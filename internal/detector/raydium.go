package detector

import (
	"context"

	"PoolWatch/internal/domain/models"
	"PoolWatch/internal/service/parser"
)

// Raydium detects AMM v4 pool initializations.
type Raydium struct {
	parser *parser.Parser
}

// NewRaydium creates the Raydium AMM detector.
func NewRaydium(p *parser.Parser) *Raydium {
	return &Raydium{parser: p}
}

// Name implements service.Detector.
func (d *Raydium) Name() string { return "raydium_amm_v4" }

// Analyze scans the transaction for AMM pool-creation instructions.
func (d *Raydium) Analyze(ctx context.Context, tx *models.RawTransaction) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cands := scanProgram(tx, d.parser, parser.RaydiumAMMProgramID)
	for i := range cands {
		cands[i].DetectedBy = d.Name()
	}
	return cands, nil
}
