package detector

import (
	"context"

	"PoolWatch/internal/domain/models"
	"PoolWatch/internal/service/parser"
)

// PumpFun detects bonding-curve token launches. Launches pair against SOL
// implicitly, so the secondary token is always the wrapped-SOL mint.
type PumpFun struct {
	parser *parser.Parser
}

// NewPumpFun creates the Pump.fun launch detector.
func NewPumpFun(p *parser.Parser) *PumpFun {
	return &PumpFun{parser: p}
}

// Name implements service.Detector.
func (d *PumpFun) Name() string { return "pumpfun_launch" }

// Analyze scans the transaction for bonding-curve create instructions.
func (d *PumpFun) Analyze(ctx context.Context, tx *models.RawTransaction) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cands := scanProgram(tx, d.parser, parser.PumpFunProgramID)
	for i := range cands {
		cands[i].DetectedBy = d.Name()
		if cands[i].SecondaryToken == "" {
			cands[i].SecondaryToken = parser.WrappedSOLMint
		}
	}
	return cands, nil
}
