package detector

import (
	"time"

	"PoolWatch/internal/domain/models"
	domsvc "PoolWatch/internal/domain/service"
	"PoolWatch/internal/service/parser"
)

// Registry is the static set of detectors the orchestrator dispatches to.
type Registry struct {
	detectors []domsvc.Detector
}

// NewRegistry builds a registry from the given detectors, keeping order.
func NewRegistry(detectors ...domsvc.Detector) *Registry {
	return &Registry{detectors: detectors}
}

// All returns the registered detectors.
func (r *Registry) All() []domsvc.Detector { return r.detectors }

// Names returns detector names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.detectors))
	for _, d := range r.detectors {
		names = append(names, d.Name())
	}
	return names
}

// scanProgram walks a transaction's instructions, parses those targeting
// programID, and converts successful LP-creation parses into candidates.
func scanProgram(tx *models.RawTransaction, p *parser.Parser, programID string) []models.Candidate {
	var out []models.Candidate
	for i, in := range tx.Instructions {
		if in.ProgramIndex < 0 || in.ProgramIndex >= len(tx.AccountKeys) {
			continue
		}
		if tx.AccountKeys[in.ProgramIndex] != programID {
			continue
		}
		res := p.Parse(in.Data, in.AccountIndexes, tx.AccountKeys, programID, i)
		if !res.Success || res.Category != models.CategoryLPCreation {
			continue
		}
		if res.PoolID == "" || res.Tokens.Primary == "" {
			continue
		}
		out = append(out, models.Candidate{
			Signature:      tx.Signature,
			Dex:            res.Dex,
			PoolID:         res.PoolID,
			TokenAddress:   res.Tokens.Primary,
			SecondaryToken: res.Tokens.Secondary,
			Confidence:     res.Confidence,
			DetectedAt:     time.Now(),
		})
	}
	return out
}
