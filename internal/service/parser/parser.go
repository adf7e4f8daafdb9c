package parser

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"PoolWatch/internal/domain/models"
	domrepo "PoolWatch/internal/domain/repository"
	"PoolWatch/pkg/cache"
)

// resolution is the cached, deterministic part of a parse: everything derived
// from (programId, discriminator, accountCount). Token addresses are applied
// per call from the transaction's own account keys.
type resolution struct {
	Success         bool    `json:"success"`
	Dex             string  `json:"dex,omitempty"`
	InstructionType string  `json:"instruction_type,omitempty"`
	Layout          string  `json:"layout,omitempty"`
	Confidence      float64 `json:"confidence"`
	IsHeuristic     bool    `json:"is_heuristic"`
	Reason          string  `json:"reason,omitempty"`
	Category        string  `json:"category"`
	PoolPos         int     `json:"pool_pos"`
	PrimaryPos      int     `json:"primary_pos"`
	SecondaryPos    int     `json:"secondary_pos"`
	BondingCurvePos int     `json:"bonding_curve_pos"`
}

// Stats is a snapshot of parser counters for the ops API.
type Stats struct {
	Parsed       uint64  `json:"parsed"`
	Successes    uint64  `json:"successes"`
	CacheHits    uint64  `json:"cache_hits"`
	SuccessRate  float64 `json:"success_rate"`
	CacheHitRate float64 `json:"cache_hit_rate"`
}

// Parser decodes raw instruction bytes for the watched programs. The hot
// path is an in-process map guarded by a RWMutex (read-heavy); an optional
// shared cache.Service backs it as a second level across instances.
type Parser struct {
	mu     sync.RWMutex
	local  map[string]resolution
	shared cache.Service

	metrics domrepo.Metrics

	statsMu   sync.Mutex
	parsed    uint64
	successes uint64
	cacheHits uint64
}

// Option configures a Parser.
type Option func(*Parser)

// WithSharedCache adds a second cache level (e.g. Redis-backed layered cache).
func WithSharedCache(c cache.Service) Option {
	return func(p *Parser) { p.shared = c }
}

// WithMetrics wires parse outcome metrics.
func WithMetrics(m domrepo.Metrics) Option {
	return func(p *Parser) { p.metrics = m }
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{local: make(map[string]resolution)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse decodes one instruction. It never panics: malformed or truncated
// input degrades to a failure result with Reason set.
func (p *Parser) Parse(data []byte, accountIndexes []int, accountKeys []string, programID string, instructionIndex int) (res models.ParsedInstructionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failure("internal_error", models.CategoryUnknown)
			p.record(res)
		}
	}()

	key, ok := p.cacheKey(data, programID, len(accountIndexes))
	if !ok {
		res = failure("unsupported_program", models.CategoryUnknown)
		p.record(res)
		return res
	}

	if r, hit := p.lookup(key); hit {
		res = p.apply(r, accountIndexes, accountKeys)
		res.FromCache = true
		p.statsMu.Lock()
		p.cacheHits++
		p.statsMu.Unlock()
		p.record(res)
		return res
	}

	r := resolve(data, programID, len(accountIndexes))
	p.store(key, r)
	res = p.apply(r, accountIndexes, accountKeys)
	p.record(res)
	return res
}

// cacheKey builds the (programId, discriminator, accountCount) key. Raydium
// discriminates on one byte, Pump.fun on eight.
func (p *Parser) cacheKey(data []byte, programID string, accountCount int) (string, bool) {
	switch programID {
	case RaydiumAMMProgramID:
		disc := "empty"
		if len(data) > 0 {
			disc = hex.EncodeToString(data[:1])
		}
		return fmt.Sprintf("parse:%s:%s:%d", programID, disc, accountCount), true
	case PumpFunProgramID:
		disc := "short"
		if len(data) >= 8 {
			disc = hex.EncodeToString(data[:8])
		}
		return fmt.Sprintf("parse:%s:%s:%d", programID, disc, accountCount), true
	default:
		return "", false
	}
}

func (p *Parser) lookup(key string) (resolution, bool) {
	p.mu.RLock()
	r, ok := p.local[key]
	p.mu.RUnlock()
	if ok {
		return r, true
	}
	if p.shared == nil {
		return resolution{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.shared.Get(ctx, key, &r); err != nil {
		return resolution{}, false
	}
	p.mu.Lock()
	p.local[key] = r
	p.mu.Unlock()
	return r, true
}

func (p *Parser) store(key string, r resolution) {
	p.mu.Lock()
	p.local[key] = r
	p.mu.Unlock()
	if p.shared != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_ = p.shared.Set(ctx, key, r, time.Hour)
	}
}

// apply projects a resolution onto a concrete instruction's accounts.
func (p *Parser) apply(r resolution, accountIndexes []int, accountKeys []string) models.ParsedInstructionResult {
	res := models.ParsedInstructionResult{
		Success:         r.Success,
		Dex:             r.Dex,
		InstructionType: r.InstructionType,
		Confidence:      r.Confidence,
		Layout:          r.Layout,
		IsHeuristic:     r.IsHeuristic,
		Reason:          r.Reason,
		Category:        r.Category,
	}
	if !r.Success {
		return res
	}
	res.PoolID = accountAt(accountIndexes, accountKeys, r.PoolPos)
	res.Tokens.Primary = accountAt(accountIndexes, accountKeys, r.PrimaryPos)
	res.Tokens.Secondary = accountAt(accountIndexes, accountKeys, r.SecondaryPos)
	res.Tokens.BondingCurve = accountAt(accountIndexes, accountKeys, r.BondingCurvePos)
	if res.Tokens.Primary == "" {
		// Layout said success but the accounts do not reach the mint slot.
		return failure("account_out_of_range", models.CategoryUnknown)
	}
	return res
}

// resolve derives a resolution from the discriminator tables, falling back
// to the heuristic path for unknown discriminators.
func resolve(data []byte, programID string, accountCount int) resolution {
	switch programID {
	case RaydiumAMMProgramID:
		if len(data) == 0 {
			return failResolution("empty_data", models.CategoryUnknown)
		}
		disc := data[0]
		if name, rejected := raydiumRejected[disc]; rejected {
			r := failResolution("not_lp_creation", models.CategoryRejected)
			r.Dex = DexRaydium
			r.InstructionType = name
			return r
		}
		if l, ok := raydiumCreationLayouts[disc]; ok {
			if accountCount < l.minAccounts {
				return failResolution("insufficient_accounts", models.CategoryUnknown)
			}
			return resolution{
				Success:         true,
				Dex:             DexRaydium,
				InstructionType: l.instructionType,
				Layout:          fmt.Sprintf("amm_v4_%02x", disc),
				Confidence:      0.95,
				Category:        models.CategoryLPCreation,
				PoolPos:         l.poolPos,
				PrimaryPos:      l.primaryPos,
				SecondaryPos:    l.secondaryPos,
				BondingCurvePos: l.bondingCurvePos,
			}
		}
		return heuristic(DexRaydium, accountCount)

	case PumpFunProgramID:
		if isPumpFunCreate(data) {
			l := pumpFunCreateLayout
			if accountCount < l.minAccounts {
				return failResolution("insufficient_accounts", models.CategoryUnknown)
			}
			return resolution{
				Success:         true,
				Dex:             DexPumpFun,
				InstructionType: l.instructionType,
				Layout:          "bonding_curve_create",
				Confidence:      0.95,
				Category:        models.CategoryLPCreation,
				PoolPos:         l.poolPos,
				PrimaryPos:      l.primaryPos,
				SecondaryPos:    l.secondaryPos,
				BondingCurvePos: l.bondingCurvePos,
			}
		}
		return heuristic(DexPumpFun, accountCount)
	}
	return failResolution("unsupported_program", models.CategoryUnknown)
}

// heuristic accepts unknown discriminators whose account shape is plausible
// for a creation instruction, at reduced confidence and tagged provenance.
func heuristic(dex string, accountCount int) resolution {
	if accountCount < heuristicMinAccounts || accountCount > heuristicMaxAccounts {
		return failResolution("unknown_discriminator", models.CategoryUnknown)
	}
	return resolution{
		Success:         true,
		Dex:             dex,
		InstructionType: "unknown_creation",
		Layout:          "heuristic",
		Confidence:      0.5,
		IsHeuristic:     true,
		Category:        models.CategoryLPCreation,
		PoolPos:         4,
		PrimaryPos:      8,
		SecondaryPos:    9,
		BondingCurvePos: -1,
	}
}

func accountAt(accountIndexes []int, accountKeys []string, pos int) string {
	if pos < 0 || pos >= len(accountIndexes) {
		return ""
	}
	idx := accountIndexes[pos]
	if idx < 0 || idx >= len(accountKeys) {
		return ""
	}
	return accountKeys[idx]
}

func failure(reason, category string) models.ParsedInstructionResult {
	return models.ParsedInstructionResult{Success: false, Reason: reason, Category: category}
}

func failResolution(reason, category string) resolution {
	return resolution{Success: false, Reason: reason, Category: category, PoolPos: -1, PrimaryPos: -1, SecondaryPos: -1, BondingCurvePos: -1}
}

func (p *Parser) record(res models.ParsedInstructionResult) {
	p.statsMu.Lock()
	p.parsed++
	if res.Success {
		p.successes++
	}
	p.statsMu.Unlock()
	if p.metrics != nil {
		outcome := "failure"
		if res.Success {
			outcome = "success"
		}
		p.metrics.RecordParse(res.Dex, outcome, res.FromCache)
	}
}

// Stats returns current parser counters.
func (p *Parser) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	s := Stats{Parsed: p.parsed, Successes: p.successes, CacheHits: p.cacheHits}
	if p.parsed > 0 {
		s.SuccessRate = float64(p.successes) / float64(p.parsed)
		s.CacheHitRate = float64(p.cacheHits) / float64(p.parsed)
	}
	return s
}
