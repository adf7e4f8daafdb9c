package util

import (
	"strings"
	"testing"
)

func TestIsValidMint(t *testing.T) {
	if !IsValidMint("So11111111111111111111111111111111111111112") {
		t.Fatalf("wrapped SOL mint rejected")
	}
	if !IsValidMint("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8") {
		t.Fatalf("program address rejected")
	}
}

func TestIsValidMintRejects(t *testing.T) {
	cases := []string{
		"",
		"short",
		strings.Repeat("1", 31),                       // below minimum length
		strings.Repeat("1", 45),                       // above maximum length
		strings.Repeat("1", 40) + "0",                 // 0 not in alphabet
		strings.Repeat("1", 40) + "O",                 // O not in alphabet
		strings.Repeat("1", 40) + "I",                 // I not in alphabet
		strings.Repeat("1", 40) + "l",                 // l not in alphabet
		strings.Repeat("1", 40) + "-",
	}
	for _, s := range cases {
		if IsValidMint(s) {
			t.Fatalf("accepted %q", s)
		}
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("25", 5); got != 25 {
		t.Fatalf("got %d, want 25", got)
	}
	if got := ParseIntDefault("", 5); got != 5 {
		t.Fatalf("got %d, want default", got)
	}
	if got := ParseIntDefault("abc", 5); got != 5 {
		t.Fatalf("got %d, want default on garbage", got)
	}
}
