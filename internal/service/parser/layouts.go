package parser

import "bytes"

// Watched program ids. These must match the on-chain programs verbatim.
const (
	RaydiumAMMProgramID  = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	PumpFunProgramID     = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	WrappedSOLMint       = "So11111111111111111111111111111111111111112"
)

// Exchange labels carried on parse results and candidates.
const (
	DexRaydium = "raydium"
	DexPumpFun = "pumpfun"
)

// pumpFunCreateDiscriminator is the fixed 8-byte Anchor discriminator of the
// bonding-curve "create" instruction.
var pumpFunCreateDiscriminator = []byte{0x18, 0x1e, 0xc8, 0x28, 0x05, 0x1c, 0x07, 0x77}

// layout describes how to read one recognized creation instruction:
// the minimum account count it requires and where the two relevant token
// mints sit in the instruction's account list.
type layout struct {
	instructionType string
	minAccounts     int
	poolPos         int // AMM id / bonding-curve account
	primaryPos      int
	secondaryPos    int // -1 when the variant has no secondary mint slot
	bondingCurvePos int // -1 for AMM variants
}

// raydiumCreationLayouts maps the leading discriminator byte of each accepted
// Raydium AMM v4 pool-creation variant to its account layout.
var raydiumCreationLayouts = map[byte]layout{
	0xe7: {instructionType: "initialize2", minAccounts: 19, poolPos: 4, primaryPos: 8, secondaryPos: 9, bondingCurvePos: -1},
	0xe8: {instructionType: "initialize", minAccounts: 18, poolPos: 4, primaryPos: 8, secondaryPos: 9, bondingCurvePos: -1},
	0xe9: {instructionType: "createPool", minAccounts: 18, poolPos: 3, primaryPos: 7, secondaryPos: 8, bondingCurvePos: -1},
	0xea: {instructionType: "initializeV2", minAccounts: 20, poolPos: 4, primaryPos: 8, secondaryPos: 9, bondingCurvePos: -1},
	0xeb: {instructionType: "createPoolV2", minAccounts: 21, poolPos: 5, primaryPos: 9, secondaryPos: 10, bondingCurvePos: -1},
	0xf8: {instructionType: "initializePermissionless", minAccounts: 16, poolPos: 3, primaryPos: 7, secondaryPos: 8, bondingCurvePos: -1},
}

// raydiumRejected lists discriminators that are valid AMM instructions but
// never create a pool. They fail fast with reason "not_lp_creation".
var raydiumRejected = map[byte]string{
	0x09: "swap",
	0xcc: "deposit",
	0xe3: "withdraw",
	0xdd: "route",
}

// pumpFunCreateLayout reads the bonding-curve create instruction: token mint
// first, bonding-curve account third.
var pumpFunCreateLayout = layout{
	instructionType: "create",
	minAccounts:     14,
	poolPos:         2,
	primaryPos:      0,
	secondaryPos:    -1,
	bondingCurvePos: 2,
}

// Heuristic bounds: account counts observed across all accepted creation
// variants. An unknown discriminator inside this range is plausibly a new
// creation variant and parses with reduced confidence.
const (
	heuristicMinAccounts = 14
	heuristicMaxAccounts = 24
)

func isPumpFunCreate(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[:8], pumpFunCreateDiscriminator)
}
