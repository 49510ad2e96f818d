package types

import "testing"

func TestNewTreeAccountSeedsZeroHashes(t *testing.T) {
	var zh [MerkleTreeHeight + 1]Scalar
	for i := range zh {
		zh[i] = Scalar{byte(i + 1)}
	}

	authority := Address{1}
	acc := NewTreeAccount(authority, 1_000_000, zh)

	if acc.Authority != authority {
		t.Fatalf("Authority not set")
	}
	if acc.RootHistory[0] != zh[MerkleTreeHeight] {
		t.Fatalf("RootHistory[0] should seed from zh[MerkleTreeHeight]")
	}
	for l := 0; l < MerkleTreeHeight; l++ {
		if acc.FilledSubtrees[l] != zh[l] {
			t.Fatalf("FilledSubtrees[%d] mismatch", l)
		}
	}
	if acc.Height != MerkleTreeHeight || acc.RootHistorySize != RootHistorySize {
		t.Fatalf("Height/RootHistorySize not set to the protocol constants")
	}
}

func TestDefaultGlobalConfigDefaults(t *testing.T) {
	authority := Address{1}
	feeRecipient := Address{2}
	cfg := DefaultGlobalConfig(authority, feeRecipient)

	if cfg.DepositFeeRate != 0 {
		t.Fatalf("DepositFeeRate default should be 0, got %d", cfg.DepositFeeRate)
	}
	if cfg.WithdrawalFeeRate != 25 {
		t.Fatalf("WithdrawalFeeRate default should be 25, got %d", cfg.WithdrawalFeeRate)
	}
	if cfg.FeeErrorMargin != 500 {
		t.Fatalf("FeeErrorMargin default should be 500, got %d", cfg.FeeErrorMargin)
	}
}
