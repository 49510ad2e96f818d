// Package nullifier implements the nullifier registry: one
// program-derived storage slot per nullifier, created at consumption
// time and rejected if it already exists. A nullifier is spent the
// moment its slot exists; there is no separate boolean flag to flip.
package nullifier

import (
	"context"
	"crypto/sha256"

	"github.com/veilpool/engine/pkg/types"
)

// seedPrefix is the PDA derivation seed.
var seedPrefix = []byte("nullifier")

// Derive computes the canonical slot address for a nullifier.
func Derive(n types.Scalar) types.Address {
	h := sha256.New()
	h.Write(seedPrefix)
	h.Write(n[:])
	return types.AddressFromBytes(h.Sum(nil))
}

// ErrSlotAlreadyExists is the store-level signal that a slot create
// collided with an existing one, distinguishable from any other
// storage failure.
var ErrSlotAlreadyExists = types.ErrNullifierAlreadyUsed

// Store is the backing abstraction for nullifier slots: existence
// check plus one-shot creation.
type Store interface {
	Exists(ctx context.Context, addr types.Address) (bool, error)
	Create(ctx context.Context, addr types.Address) error
}

// Consume runs the consumption protocol for a transaction's two
// declared input nullifiers: gate on pre-existing slots, then create
// both. An existing slot aborts with NullifierAlreadyUsed and any other
// Create failure with CreateNullifierFailed; an Exists failure is
// returned as the store reported it. The caller is responsible for
// rolling back partial state on error.
func Consume(ctx context.Context, store Store, n1, n2 types.Scalar) (addr1, addr2 types.Address, err error) {
	addr1 = Derive(n1)
	addr2 = Derive(n2)

	exists1, err := store.Exists(ctx, addr1)
	if err != nil {
		return addr1, addr2, err
	}
	if exists1 {
		return addr1, addr2, types.ErrNullifierAlreadyUsed
	}

	exists2, err := store.Exists(ctx, addr2)
	if err != nil {
		return addr1, addr2, err
	}
	if exists2 {
		return addr1, addr2, types.ErrNullifierAlreadyUsed
	}

	if err := store.Create(ctx, addr1); err != nil {
		if err == ErrSlotAlreadyExists {
			return addr1, addr2, types.ErrNullifierAlreadyUsed
		}
		return addr1, addr2, types.ErrCreateNullifierFailed
	}

	if err := store.Create(ctx, addr2); err != nil {
		if err == ErrSlotAlreadyExists {
			return addr1, addr2, types.ErrNullifierAlreadyUsed
		}
		return addr1, addr2, types.ErrCreateNullifierFailed
	}

	return addr1, addr2, nil
}
