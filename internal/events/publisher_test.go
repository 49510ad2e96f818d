package events

import (
	"testing"

	"github.com/veilpool/engine/pkg/types"
)

func TestScalarFromHexRoundTrip(t *testing.T) {
	want := types.Scalar{1, 2, 3, 0xff}
	s, err := scalarFromHex(want.String())
	if err != nil {
		t.Fatalf("scalarFromHex failed: %v", err)
	}
	if s != want {
		t.Fatalf("round-trip mismatch: got %s, want %s", s, want)
	}
}

func TestScalarFromHexRejectsGarbage(t *testing.T) {
	if _, err := scalarFromHex("not-hex"); err == nil {
		t.Fatalf("expected an error decoding non-hex input")
	}
}

func TestWireEventMarshaling(t *testing.T) {
	ev := types.CommitmentEvent{Index: 7, Commitment: types.Scalar{9, 9, 9}}
	we := wireEvent{Index: ev.Index, Commitment: ev.Commitment.String()}
	if we.Index != 7 {
		t.Fatalf("unexpected index %d", we.Index)
	}
	got, err := scalarFromHex(we.Commitment)
	if err != nil {
		t.Fatalf("scalarFromHex failed: %v", err)
	}
	if got != ev.Commitment {
		t.Fatalf("commitment round-trip mismatch")
	}
}
