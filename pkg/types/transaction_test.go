package types

import "testing"

func sampleTransactArgs() *TransactArgs {
	a := &TransactArgs{
		Root:        Scalar{1},
		InNul1:      Scalar{2},
		InNul2:      Scalar{3},
		OutC1:       Scalar{4},
		OutC2:       Scalar{5},
		NetAmount:   -123456,
		ExtDataHash: Scalar{6},
	}
	a.Proof.A[0] = 0xAA
	a.Proof.B[0] = 0xBB
	a.Proof.C[0] = 0xCC
	return a
}

func TestTransactArgsRoundTrip(t *testing.T) {
	want := sampleTransactArgs()
	encoded := EncodeTransactArgs(want)
	if len(encoded) != TransactSize {
		t.Fatalf("encoded length %d, want %d", len(encoded), TransactSize)
	}

	got, err := DecodeTransactArgs(encoded)
	if err != nil {
		t.Fatalf("DecodeTransactArgs failed: %v", err)
	}
	if *got != *want {
		t.Fatalf("round-trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestDecodeTransactArgsRejectsWrongSize(t *testing.T) {
	if _, err := DecodeTransactArgs(make([]byte, TransactSize-1)); err != ErrMalformedInstruction {
		t.Fatalf("expected ErrMalformedInstruction for a short payload, got %v", err)
	}
}

func TestDecodeTransactArgsRejectsWrongDiscriminator(t *testing.T) {
	buf := EncodeTransactArgs(sampleTransactArgs())
	buf[0] ^= 0xFF
	if _, err := DecodeTransactArgs(buf); err != ErrMalformedInstruction {
		t.Fatalf("expected ErrMalformedInstruction for a bad discriminator, got %v", err)
	}
}

func TestInitializeArgsRoundTrip(t *testing.T) {
	want := &InitializeArgs{MaxDepositAmount: 123_456_789, FeeRecipient: Address{7}}
	encoded := EncodeInitializeArgs(want)
	got, err := DecodeInitializeArgs(encoded)
	if err != nil {
		t.Fatalf("DecodeInitializeArgs failed: %v", err)
	}
	if *got != *want {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestUpdateConfigArgsRoundTrip(t *testing.T) {
	want := &UpdateConfigArgs{
		DepositFeeRate:    10,
		WithdrawalFeeRate: 25,
		FeeErrorMargin:    500,
		FeeRecipient:      Address{8},
	}
	encoded := EncodeUpdateConfigArgs(want)
	got, err := DecodeUpdateConfigArgs(encoded)
	if err != nil {
		t.Fatalf("DecodeUpdateConfigArgs failed: %v", err)
	}
	if *got != *want {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, want)
	}
}
