package verifier

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/veilpool/engine/internal/field"
	"github.com/veilpool/engine/pkg/types"
)

// DebugProve builds a synthetic proof that satisfies Verify's pairing
// equation against the package's own hard-coded VK for the given
// public inputs. It is not a prover: no circuit or witness is involved,
// every point here is just a scalar multiple of a fixed generator
// chosen so the exponents cancel out. Producing real proofs is out of
// this module's scope (that's the circuit/relayer's job); this exists
// solely so tests can exercise Verify's actual bn254 math without a
// real trusted setup on hand.
func DebugProve(publicInputs [NumPublicInputs]types.Scalar) *types.Proof {
	_, _, g1Gen, g2Gen := bn254.Generators()

	accExp := new(big.Int).SetUint64(icSeeds[0])
	for i := 0; i < NumPublicInputs; i++ {
		term := new(big.Int).Mul(field.ToBigInt(publicInputs[i]), new(big.Int).SetUint64(icSeeds[i+1]))
		accExp.Add(accExp, term)
	}
	accExp.Mod(accExp, field.Modulus)

	const cExp = int64(5)
	const bExp = int64(1)

	// aNegExp*bExp + accExp*gammaSeed + cExp*deltaSeed + alphaSeed*betaSeed == 0 (mod r)
	rhs := new(big.Int).Mul(accExp, big.NewInt(gammaSeed))
	rhs.Add(rhs, new(big.Int).Mul(big.NewInt(cExp), big.NewInt(deltaSeed)))
	rhs.Add(rhs, big.NewInt(alphaSeed*betaSeed))
	rhs.Mod(rhs, field.Modulus)

	aNegExp := new(big.Int).Sub(field.Modulus, rhs)
	aNegExp.Mod(aNegExp, field.Modulus)

	var aNeg, c bn254.G1Affine
	aNeg.ScalarMultiplication(&g1Gen, aNegExp)
	c.ScalarMultiplication(&g1Gen, big.NewInt(cExp))

	var b bn254.G2Affine
	b.ScalarMultiplication(&g2Gen, big.NewInt(bExp))

	aBytes := marshalG1(&aNeg)
	bBytes := MarshalG2(&b)
	cBytes := marshalG1(&c)

	proof := &types.Proof{}
	copy(proof.A[:], aBytes[:])
	copy(proof.B[:], bBytes[:])
	copy(proof.C[:], cBytes[:])
	return proof
}
