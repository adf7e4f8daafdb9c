package models

// Instruction categories reported by the parser.
const (
	CategoryLPCreation = "lp_creation"
	CategoryRejected   = "rejected"
	CategoryUnknown    = "unknown"
)

// ParsedTokens holds the token accounts extracted from a creation instruction.
type ParsedTokens struct {
	Primary      string `json:"primary"`
	Secondary    string `json:"secondary,omitempty"`
	BondingCurve string `json:"bonding_curve,omitempty"`
}

// ParsedInstructionResult is the complete outcome of decoding one instruction.
// Parsing never raises: malformed input degrades to Success=false with Reason set.
type ParsedInstructionResult struct {
	Success         bool         `json:"success"`
	Dex             string       `json:"dex,omitempty"`
	PoolID          string       `json:"pool_id,omitempty"`
	InstructionType string       `json:"instruction_type,omitempty"`
	Confidence      float64      `json:"confidence"`
	Layout          string       `json:"layout,omitempty"`
	Tokens          ParsedTokens `json:"tokens"`
	IsHeuristic     bool         `json:"is_heuristic"`
	FromCache       bool         `json:"from_cache"`
	Reason          string       `json:"reason,omitempty"`
	Category        string       `json:"category"`
}
