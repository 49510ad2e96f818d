// Package poseidon implements a 2-to-1 BN254 Poseidon hash oracle over
// gnark-crypto's Merkle-Damgard Poseidon2 hasher.
package poseidon

import (
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
	"golang.org/x/crypto/blake2b"

	"github.com/veilpool/engine/pkg/types"
)

var hasherFactory = poseidon2.NewMerkleDamgardHasher

// Oracle wraps the Poseidon2 hasher with a small cache keyed by a
// BLAKE2b-256 digest of the input pair. The cache key is
// only ever used to index the cache, never as a substitute for the
// Poseidon output itself.
type Oracle struct {
	mu       sync.RWMutex
	cache    map[[32]byte]types.Scalar
	cacheMax int
}

// New creates a Poseidon oracle with a bounded cache.
func New() *Oracle {
	return &Oracle{
		cache:    make(map[[32]byte]types.Scalar),
		cacheMax: 50_000,
	}
}

// Hash2 computes Poseidon2(left, right).
func (o *Oracle) Hash2(left, right types.Scalar) types.Scalar {
	key := cacheKey(left, right)

	o.mu.RLock()
	if v, ok := o.cache[key]; ok {
		o.mu.RUnlock()
		return v
	}
	o.mu.RUnlock()

	var le, re fr.Element
	le.SetBytes(left[:])
	re.SetBytes(right[:])

	h := hasherFactory()
	lb := le.Bytes()
	rb := re.Bytes()
	h.Write(lb[:])
	h.Write(rb[:])
	sum := h.Sum(nil)

	out := types.ScalarFromBytes(sum)

	o.mu.Lock()
	if len(o.cache) < o.cacheMax {
		o.cache[key] = out
	}
	o.mu.Unlock()

	return out
}

func cacheKey(left, right types.Scalar) [32]byte {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return blake2b.Sum256(buf[:])
}
