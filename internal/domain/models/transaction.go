package models

// MinSignatureLen is the shortest base58 string accepted as a transaction
// signature. Real Solana signatures are 87-88 characters; anything shorter
// than this is rejected before any network or parsing work.
const MinSignatureLen = 64

// RawInstruction is one compiled instruction inside a transaction message.
// AccountIndexes points into the transaction's AccountKeys in original order.
type RawInstruction struct {
	ProgramIndex   int
	Data           []byte
	AccountIndexes []int
}

// RawTransaction is a transaction as resolved from the RPC boundary.
// Immutable once fetched; parsing never mutates it.
type RawTransaction struct {
	Signature    string
	Slot         uint64
	BlockTime    int64
	AccountKeys  []string
	Instructions []RawInstruction
}

// HasSignature reports whether the transaction carries a plausibly-shaped signature.
func (t *RawTransaction) HasSignature() bool {
	return t != nil && len(t.Signature) >= MinSignatureLen
}
