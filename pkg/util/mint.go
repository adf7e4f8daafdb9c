package util

// Base58 alphabet used by Solana addresses. Excludes 0, O, I and l.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Set = func() [256]bool {
	var s [256]bool
	for i := 0; i < len(base58Alphabet); i++ {
		s[base58Alphabet[i]] = true
	}
	return s
}()

// IsValidMint reports whether s has the shape of a Solana account address:
// base58 text between 32 and 44 characters. It does not prove the account
// exists on chain.
func IsValidMint(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !base58Set[s[i]] {
			return false
		}
	}
	return true
}
