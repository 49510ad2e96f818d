// Package field implements the BN254 scalar-field codec: encoding and
// decoding the 32-byte big-endian scalars every other component
// exchanges, including the signed-amount mapping used for net_amount.
package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/veilpool/engine/pkg/types"
)

// Modulus is the BN254 scalar field prime r.
var Modulus = fr.Modulus()

// EncodeU64BE encodes a uint64 as a big-endian Scalar.
func EncodeU64BE(v uint64) types.Scalar {
	var e fr.Element
	e.SetUint64(v)
	b := e.Bytes()
	return types.Scalar(b)
}

// EncodeBytesBE wraps arbitrary big-endian bytes into a Scalar, failing
// with ErrFieldOverflow if the value is not in [0, r).
func EncodeBytesBE(b []byte) (types.Scalar, error) {
	n := new(big.Int).SetBytes(b)
	if n.Cmp(Modulus) >= 0 {
		return types.Scalar{}, types.ErrFieldOverflow
	}
	return types.ScalarFromBytes(b), nil
}

// EncodePublicAmount maps a signed i64 net amount into the scalar
// field: non-negative v encodes directly; negative v encodes as
// r - |v|, computed as exact big-integer subtraction so there is no
// reliance on wraparound semantics.
func EncodePublicAmount(v int64) types.Scalar {
	if v >= 0 {
		return EncodeU64BE(uint64(v))
	}
	abs := new(big.Int).SetUint64(uint64(-v))
	res := new(big.Int).Sub(Modulus, abs)
	var e fr.Element
	e.SetBigInt(res)
	b := e.Bytes()
	return types.Scalar(b)
}

// Add returns (a + b) mod r, used by the round-trip law
// encode(n) + encode(-n) ≡ 0.
func Add(a, b types.Scalar) types.Scalar {
	var ea, eb, sum fr.Element
	ea.SetBytes(a[:])
	eb.SetBytes(b[:])
	sum.Add(&ea, &eb)
	out := sum.Bytes()
	return types.Scalar(out)
}

// ToBigInt decodes a Scalar to its big-endian integer value.
func ToBigInt(s types.Scalar) *big.Int {
	var e fr.Element
	e.SetBytes(s[:])
	return e.BigInt(new(big.Int))
}
