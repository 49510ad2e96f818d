// Package merkle implements the append-only Merkle accumulator and its
// root-history known-root check: a fixed tree height, a precomputed
// zero-subtree table, and a ring buffer of recent roots in place of a
// single current root, so a proof anchored to a slightly stale root
// still verifies.
package merkle

import (
	"context"
	"sync"

	"github.com/veilpool/engine/internal/poseidon"
	"github.com/veilpool/engine/pkg/types"
)

// Height is the fixed tree height.
const Height = types.MerkleTreeHeight

// RootHistorySize is the ring buffer length.
const RootHistorySize = types.RootHistorySize

// ZeroHashes computes the precomputed zero-subtree table:
// ZeroHashes[0] = 0; ZeroHashes[L] = Poseidon2(ZeroHashes[L-1], ZeroHashes[L-1]).
func ZeroHashes(oracle *poseidon.Oracle) [Height + 1]types.Scalar {
	var zh [Height + 1]types.Scalar
	zh[0] = types.ZeroScalar
	for l := 1; l <= Height; l++ {
		zh[l] = oracle.Hash2(zh[l-1], zh[l-1])
	}
	return zh
}

// Store persists the tree's mutable state: per-level/index nodes plus
// the fields that live directly on TreeAccount.
type Store interface {
	GetNode(ctx context.Context, level int, index uint64) (types.Scalar, bool, error)
	SetNode(ctx context.Context, level int, index uint64, hash types.Scalar) error
	GetAccount(ctx context.Context) (*types.TreeAccount, error)
	PutAccount(ctx context.Context, acc *types.TreeAccount) error
}

// Tree is the runtime view over a TreeAccount plus its node store.
type Tree struct {
	mu     sync.Mutex
	store  Store
	oracle *poseidon.Oracle
	zero   [Height + 1]types.Scalar
}

// New wraps an already-initialized store. Callers that need a fresh
// pool must call Initialize first.
func New(store Store, oracle *poseidon.Oracle) *Tree {
	return &Tree{store: store, oracle: oracle, zero: ZeroHashes(oracle)}
}

// Initialize seeds a brand-new TreeAccount.
func (t *Tree) Initialize(ctx context.Context, authority types.Address, maxDeposit uint64) error {
	acc := types.NewTreeAccount(authority, maxDeposit, t.zero)
	return t.store.PutAccount(ctx, acc)
}

// Insert appends leaf to the tree at the next free position, updating
// filled_subtrees and root_history along the insertion path, and
// returns the new root.
func (t *Tree) Insert(ctx context.Context, leaf types.Scalar) (types.Scalar, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acc, err := t.store.GetAccount(ctx)
	if err != nil {
		return types.Scalar{}, 0, err
	}

	if acc.NextIndex >= types.MaxLeaves {
		return types.Scalar{}, 0, types.ErrTreeFull
	}

	position := acc.NextIndex
	cur := leaf
	idx := position

	for level := 0; level < Height; level++ {
		if idx%2 == 0 {
			acc.FilledSubtrees[level] = cur
			cur = t.oracle.Hash2(cur, t.zero[level])
		} else {
			cur = t.oracle.Hash2(acc.FilledSubtrees[level], cur)
		}
		idx >>= 1
	}

	acc.RootIndex = (acc.RootIndex + 1) % RootHistorySize
	acc.RootHistory[acc.RootIndex] = cur
	acc.NextIndex++

	if err := t.store.PutAccount(ctx, acc); err != nil {
		return types.Scalar{}, 0, err
	}

	return cur, position, nil
}

// IsKnownRoot scans root_history for root. The all-zero root is never
// known, regardless of what root_history contains.
func (t *Tree) IsKnownRoot(ctx context.Context, root types.Scalar) (bool, error) {
	if root.IsZero() {
		return false, nil
	}
	acc, err := t.store.GetAccount(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range acc.RootHistory {
		if r == root {
			return true, nil
		}
	}
	return false, nil
}

// CurrentRoot returns root_history[root_index].
func (t *Tree) CurrentRoot(ctx context.Context) (types.Scalar, error) {
	acc, err := t.store.GetAccount(ctx)
	if err != nil {
		return types.Scalar{}, err
	}
	return acc.RootHistory[acc.RootIndex], nil
}

// Account returns a copy of the current TreeAccount state.
func (t *Tree) Account(ctx context.Context) (*types.TreeAccount, error) {
	return t.store.GetAccount(ctx)
}
