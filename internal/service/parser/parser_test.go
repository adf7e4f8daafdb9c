package parser

import (
	"fmt"
	"testing"

	"PoolWatch/internal/domain/models"
)

// testAccounts builds n sequential account indexes over a key table large
// enough that every position resolves.
func testAccounts(n int) ([]int, []string) {
	idx := make([]int, n)
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		idx[i] = i
		keys[i] = fmt.Sprintf("Acct%040d", i)
	}
	return idx, keys
}

func TestRaydiumInitialize2(t *testing.T) {
	p := New()
	idx, keys := testAccounts(19)

	res := p.Parse([]byte{0xe7, 0x01}, idx, keys, RaydiumAMMProgramID, 0)
	if !res.Success {
		t.Fatalf("parse failed: %s", res.Reason)
	}
	if res.Dex != DexRaydium || res.InstructionType != "initialize2" {
		t.Fatalf("got %s/%s, want raydium/initialize2", res.Dex, res.InstructionType)
	}
	if res.Category != models.CategoryLPCreation {
		t.Fatalf("category = %s, want %s", res.Category, models.CategoryLPCreation)
	}
	if res.Confidence != 0.95 || res.IsHeuristic {
		t.Fatalf("confidence = %v heuristic = %v, want table-derived 0.95", res.Confidence, res.IsHeuristic)
	}
	if res.PoolID != keys[4] {
		t.Fatalf("pool = %s, want account 4", res.PoolID)
	}
	if res.Tokens.Primary != keys[8] || res.Tokens.Secondary != keys[9] {
		t.Fatalf("tokens = %+v, want accounts 8 and 9", res.Tokens)
	}
}

func TestRaydiumSwapRejected(t *testing.T) {
	p := New()
	idx, keys := testAccounts(18)

	res := p.Parse([]byte{0x09}, idx, keys, RaydiumAMMProgramID, 0)
	if res.Success {
		t.Fatalf("swap parsed as creation")
	}
	if res.Reason != "not_lp_creation" {
		t.Fatalf("reason = %s, want not_lp_creation", res.Reason)
	}
	if res.Category != models.CategoryRejected {
		t.Fatalf("category = %s, want %s", res.Category, models.CategoryRejected)
	}
	if res.InstructionType != "swap" {
		t.Fatalf("instruction type = %s, want swap", res.InstructionType)
	}
}

func TestRaydiumInsufficientAccounts(t *testing.T) {
	p := New()
	idx, keys := testAccounts(10)

	res := p.Parse([]byte{0xe7}, idx, keys, RaydiumAMMProgramID, 0)
	if res.Success {
		t.Fatalf("parsed with only 10 accounts, initialize2 needs 19")
	}
	if res.Reason != "insufficient_accounts" {
		t.Fatalf("reason = %s, want insufficient_accounts", res.Reason)
	}
}

func TestPumpFunCreate(t *testing.T) {
	p := New()
	idx, keys := testAccounts(14)

	res := p.Parse(pumpFunCreateDiscriminator, idx, keys, PumpFunProgramID, 0)
	if !res.Success {
		t.Fatalf("parse failed: %s", res.Reason)
	}
	if res.Dex != DexPumpFun || res.InstructionType != "create" {
		t.Fatalf("got %s/%s, want pumpfun/create", res.Dex, res.InstructionType)
	}
	if res.Tokens.Primary != keys[0] {
		t.Fatalf("primary = %s, want account 0", res.Tokens.Primary)
	}
	if res.Tokens.BondingCurve != keys[2] || res.PoolID != keys[2] {
		t.Fatalf("bonding curve = %s pool = %s, want account 2", res.Tokens.BondingCurve, res.PoolID)
	}
}

func TestHeuristicUnknownDiscriminator(t *testing.T) {
	p := New()
	idx, keys := testAccounts(18)

	res := p.Parse([]byte{0x42}, idx, keys, RaydiumAMMProgramID, 0)
	if !res.Success {
		t.Fatalf("heuristic rejected plausible shape: %s", res.Reason)
	}
	if !res.IsHeuristic {
		t.Fatalf("result not tagged heuristic")
	}
	if res.Confidence != 0.5 {
		t.Fatalf("confidence = %v, want 0.5", res.Confidence)
	}

	// outside the plausible account range the same discriminator fails
	idx, keys = testAccounts(5)
	res = p.Parse([]byte{0x42}, idx, keys, RaydiumAMMProgramID, 0)
	if res.Success {
		t.Fatalf("heuristic accepted 5 accounts")
	}
	if res.Reason != "unknown_discriminator" {
		t.Fatalf("reason = %s, want unknown_discriminator", res.Reason)
	}
}

func TestUnsupportedProgram(t *testing.T) {
	p := New()
	idx, keys := testAccounts(19)

	res := p.Parse([]byte{0xe7}, idx, keys, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", 0)
	if res.Success || res.Reason != "unsupported_program" {
		t.Fatalf("got %+v, want unsupported_program failure", res)
	}
}

func TestEmptyDataDegrades(t *testing.T) {
	p := New()
	idx, keys := testAccounts(19)

	res := p.Parse(nil, idx, keys, RaydiumAMMProgramID, 0)
	if res.Success {
		t.Fatalf("empty data parsed")
	}
	if res.Reason != "empty_data" {
		t.Fatalf("reason = %s, want empty_data", res.Reason)
	}
}

func TestCacheIdempotence(t *testing.T) {
	p := New()
	idx, keys := testAccounts(19)

	first := p.Parse([]byte{0xe7}, idx, keys, RaydiumAMMProgramID, 0)
	if first.FromCache {
		t.Fatalf("first parse marked cached")
	}
	second := p.Parse([]byte{0xe7}, idx, keys, RaydiumAMMProgramID, 0)
	if !second.FromCache {
		t.Fatalf("second identical parse not served from cache")
	}
	if second.Dex != first.Dex || second.InstructionType != first.InstructionType ||
		second.PoolID != first.PoolID || second.Tokens != first.Tokens {
		t.Fatalf("cached result diverged: %+v vs %+v", second, first)
	}

	// same discriminator, different transaction accounts: layout is shared
	// but tokens come from the new transaction
	idx2, keys2 := testAccounts(19)
	for i := range keys2 {
		keys2[i] = fmt.Sprintf("Other%039d", i)
	}
	third := p.Parse([]byte{0xe7}, idx2, keys2, RaydiumAMMProgramID, 0)
	if !third.FromCache {
		t.Fatalf("layout not reused across transactions")
	}
	if third.Tokens.Primary != keys2[8] {
		t.Fatalf("cached layout leaked foreign accounts: %s", third.Tokens.Primary)
	}

	stats := p.Stats()
	if stats.Parsed != 3 || stats.CacheHits != 2 {
		t.Fatalf("stats = %+v, want 3 parsed / 2 hits", stats)
	}
}
