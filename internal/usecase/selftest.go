package usecase

import (
	"fmt"
	"time"

	"PoolWatch/internal/domain/models"
	"PoolWatch/internal/service/parser"
)

// syntheticCreationTx builds an in-memory transaction carrying one Raydium
// initialize2 instruction and one Pump.fun create instruction, so every
// registered detector has something to find. Account addresses are
// well-formed base58 placeholders, never real on-chain accounts.
func syntheticCreationTx() *models.RawTransaction {
	keys := make([]string, 0, 24)
	keys = append(keys, parser.RaydiumAMMProgramID, parser.PumpFunProgramID, parser.WrappedSOLMint)
	for i := len(keys); i < 24; i++ {
		keys = append(keys, syntheticAddress(i))
	}

	raydiumAccounts := make([]int, 19)
	for i := range raydiumAccounts {
		raydiumAccounts[i] = (i + 2) % len(keys)
	}
	pumpAccounts := make([]int, 14)
	for i := range pumpAccounts {
		pumpAccounts[i] = (i + 3) % len(keys)
	}

	return &models.RawTransaction{
		Signature:   fmt.Sprintf("selftest%056d", time.Now().UnixNano()%1e9),
		Slot:        0,
		AccountKeys: keys,
		Instructions: []models.RawInstruction{
			{
				ProgramIndex:   0,
				Data:           []byte{0xe7, 0x00, 0x00, 0x00},
				AccountIndexes: raydiumAccounts,
			},
			{
				ProgramIndex:   1,
				Data:           []byte{0x18, 0x1e, 0xc8, 0x28, 0x05, 0x1c, 0x07, 0x77},
				AccountIndexes: pumpAccounts,
			},
		},
	}
}

// syntheticAddress produces a distinct 43-character base58 string per index.
func syntheticAddress(i int) string {
	const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjk"
	b := make([]byte, 43)
	for j := range b {
		b[j] = alphabet[(i+j)%len(alphabet)]
	}
	return string(b)
}
