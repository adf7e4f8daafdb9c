package detector

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"PoolWatch/internal/domain/models"
	"PoolWatch/internal/service/parser"
)

func creationTx(programID string, disc []byte, accountCount int) *models.RawTransaction {
	keys := []string{programID}
	for i := 1; i <= accountCount; i++ {
		keys = append(keys, fmt.Sprintf("Acct%040d", i))
	}
	idx := make([]int, accountCount)
	for i := range idx {
		idx[i] = i + 1
	}
	return &models.RawTransaction{
		Signature:    strings.Repeat("7", 88),
		AccountKeys:  keys,
		Instructions: []models.RawInstruction{{ProgramIndex: 0, Data: disc, AccountIndexes: idx}},
	}
}

func TestRaydiumDetectsInitialize2(t *testing.T) {
	d := NewRaydium(parser.New())
	tx := creationTx(parser.RaydiumAMMProgramID, []byte{0xe7}, 19)

	cands, err := d.Analyze(context.Background(), tx)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("candidates = %d, want 1", len(cands))
	}
	c := cands[0]
	if c.Dex != parser.DexRaydium || c.DetectedBy != "raydium_amm_v4" {
		t.Fatalf("candidate attribution wrong: %+v", c)
	}
	if c.PoolID == "" || c.TokenAddress == "" {
		t.Fatalf("candidate missing accounts: %+v", c)
	}
	if c.Signature != tx.Signature {
		t.Fatalf("signature not carried: %s", c.Signature)
	}
}

func TestRaydiumIgnoresSwap(t *testing.T) {
	d := NewRaydium(parser.New())
	tx := creationTx(parser.RaydiumAMMProgramID, []byte{0x09}, 18)

	cands, err := d.Analyze(context.Background(), tx)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("swap produced candidates: %+v", cands)
	}
}

func TestRaydiumIgnoresForeignPrograms(t *testing.T) {
	d := NewRaydium(parser.New())
	tx := creationTx(parser.PumpFunProgramID, []byte{0xe7}, 19)

	cands, err := d.Analyze(context.Background(), tx)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("foreign program produced candidates: %+v", cands)
	}
}

func TestPumpFunDefaultsSecondaryToSOL(t *testing.T) {
	d := NewPumpFun(parser.New())
	tx := creationTx(parser.PumpFunProgramID, []byte{0x18, 0x1e, 0xc8, 0x28, 0x05, 0x1c, 0x07, 0x77}, 14)

	cands, err := d.Analyze(context.Background(), tx)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("candidates = %d, want 1", len(cands))
	}
	if cands[0].SecondaryToken != parser.WrappedSOLMint {
		t.Fatalf("secondary = %s, want wrapped SOL", cands[0].SecondaryToken)
	}
	if cands[0].DetectedBy != "pumpfun_launch" {
		t.Fatalf("detected by = %s", cands[0].DetectedBy)
	}
}

func TestAnalyzeHonorsCancelledContext(t *testing.T) {
	d := NewRaydium(parser.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Analyze(ctx, creationTx(parser.RaydiumAMMProgramID, []byte{0xe7}, 19)); err == nil {
		t.Fatalf("cancelled context accepted")
	}
}

func TestRegistryNames(t *testing.T) {
	p := parser.New()
	reg := NewRegistry(NewRaydium(p), NewPumpFun(p))

	names := reg.Names()
	if len(names) != 2 || names[0] != "raydium_amm_v4" || names[1] != "pumpfun_launch" {
		t.Fatalf("names = %v", names)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("registry lost detectors")
	}
}
