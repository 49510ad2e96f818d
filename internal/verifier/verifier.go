// Package verifier implements the Groth16 proof verifier: public input
// preparation (the multi-scalar multiplication over vk_ic), A-negation
// handling, and the four-pairing check against a hard-coded verifying
// key, driven by gnark-crypto's bn254 curve arithmetic and pairing.
package verifier

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/veilpool/engine/internal/field"
	"github.com/veilpool/engine/pkg/types"
)

// NumPublicInputs is the circuit's public signal count.
const NumPublicInputs = types.NrPublicInputs

// VerifyingKey holds the compiled-in Groth16 verifying key: alpha_g1,
// beta_g2, gamma_g2, delta_g2, and one IC point per public input plus
// the constant term.
type VerifyingKey struct {
	AlphaG1 bn254.G1Affine
	BetaG2  bn254.G2Affine
	GammaG2 bn254.G2Affine
	DeltaG2 bn254.G2Affine
	IC      [NumPublicInputs + 1]bn254.G1Affine
}

// setup scalars stand in for a real circuit's trusted-setup output.
// Substituting the real circuit's verifying key only requires replacing
// these constants (or, more directly, the VK struct's contents) with
// the deployed circuit's values; the verification algorithm below does
// not change.
const (
	alphaSeed = 0x1357991
	betaSeed  = 0x2468aa2
	gammaSeed = 0x3579bb3
	deltaSeed = 0x468accc4
)

var icSeeds = [NumPublicInputs + 1]uint64{
	0xf00d0001, 0xf00d0002, 0xf00d0003, 0xf00d0004,
	0xf00d0005, 0xf00d0006, 0xf00d0007, 0xf00d0008,
}

// VK is the package's hard-coded verifying key; any change requires a
// redeploy.
var VK = buildVerifyingKey()

func buildVerifyingKey() VerifyingKey {
	_, _, g1Gen, g2Gen := bn254.Generators()

	var vk VerifyingKey
	vk.AlphaG1.ScalarMultiplication(&g1Gen, big.NewInt(alphaSeed))
	vk.BetaG2.ScalarMultiplication(&g2Gen, big.NewInt(betaSeed))
	vk.GammaG2.ScalarMultiplication(&g2Gen, big.NewInt(gammaSeed))
	vk.DeltaG2.ScalarMultiplication(&g2Gen, big.NewInt(deltaSeed))
	for i, seed := range icSeeds {
		vk.IC[i].ScalarMultiplication(&g1Gen, new(big.Int).SetUint64(seed))
	}
	return vk
}

// marshalG1 encodes an affine G1 point as 64 big-endian bytes, X then Y.
func marshalG1(p *bn254.G1Affine) [64]byte {
	var out [64]byte
	xb := p.X.Bytes()
	yb := p.Y.Bytes()
	copy(out[0:32], xb[:])
	copy(out[32:64], yb[:])
	return out
}

func unmarshalG1(b []byte) (bn254.G1Affine, bool) {
	var p bn254.G1Affine
	p.X.SetBytes(b[0:32])
	p.Y.SetBytes(b[32:64])
	if p.X.IsZero() && p.Y.IsZero() {
		return p, true
	}
	return p, p.IsOnCurve()
}

// unmarshalG2 decodes 128 bytes using the (x.c1 | x.c0 | y.c1 | y.c0)
// coordinate ordering.
func unmarshalG2(b []byte) (bn254.G2Affine, bool) {
	var p bn254.G2Affine
	p.X.A1.SetBytes(b[0:32])
	p.X.A0.SetBytes(b[32:64])
	p.Y.A1.SetBytes(b[64:96])
	p.Y.A0.SetBytes(b[96:128])
	if p.X.A0.IsZero() && p.X.A1.IsZero() && p.Y.A0.IsZero() && p.Y.A1.IsZero() {
		return p, true
	}
	return p, p.IsOnCurve()
}

// MarshalG2 is the inverse of unmarshalG2, exposed for building test
// fixtures and for encoding proof/VK material on the wire.
func MarshalG2(p *bn254.G2Affine) [128]byte {
	var out [128]byte
	x1 := p.X.A1.Bytes()
	x0 := p.X.A0.Bytes()
	y1 := p.Y.A1.Bytes()
	y0 := p.Y.A0.Bytes()
	copy(out[0:32], x1[:])
	copy(out[32:64], x0[:])
	copy(out[64:96], y1[:])
	copy(out[96:128], y0[:])
	return out
}

// MarshalG1 is exported for building test fixtures and wire proofs.
func MarshalG1(p *bn254.G1Affine) [64]byte { return marshalG1(p) }

// PrepareInputs computes acc = IC[0] + sum_i publicInputs[i]*IC[i+1],
// the public-input multi-scalar-multiplication step of verification.
func PrepareInputs(vk *VerifyingKey, publicInputs [NumPublicInputs]types.Scalar) (bn254.G1Affine, error) {
	acc := vk.IC[0]
	for i := 0; i < NumPublicInputs; i++ {
		scalar := field.ToBigInt(publicInputs[i])
		var term bn254.G1Affine
		term.ScalarMultiplication(&vk.IC[i+1], scalar)
		if !term.IsOnCurve() {
			return bn254.G1Affine{}, types.ErrG1MulFailed
		}
		acc.Add(&acc, &term)
	}
	if !acc.IsOnCurve() {
		return bn254.G1Affine{}, types.ErrG1AddFailed
	}
	return acc, nil
}

// Verify checks proof against vk and the ordered public inputs. The
// client submits A already negated, and the verifier assembles four
// pairs in the exact order (A_neg,B) | (acc,gamma) | (C,delta) |
// (alpha,beta), requiring their product to equal 1.
func Verify(vk *VerifyingKey, proof *types.Proof, publicInputs [NumPublicInputs]types.Scalar) error {
	aNeg, ok := unmarshalG1(proof.A[:])
	if !ok {
		return types.ErrInvalidProof
	}
	b, ok := unmarshalG2(proof.B[:])
	if !ok {
		return types.ErrInvalidProof
	}
	c, ok := unmarshalG1(proof.C[:])
	if !ok {
		return types.ErrInvalidProof
	}

	acc, err := PrepareInputs(vk, publicInputs)
	if err != nil {
		return err
	}

	ok, err = bn254.PairingCheck(
		[]bn254.G1Affine{aNeg, acc, c, vk.AlphaG1},
		[]bn254.G2Affine{b, vk.GammaG2, vk.DeltaG2, vk.BetaG2},
	)
	if err != nil {
		return types.ErrPairingFailed
	}
	if !ok {
		return types.ErrInvalidProof
	}
	return nil
}
