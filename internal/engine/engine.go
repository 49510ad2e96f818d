// Package engine implements the transaction handler: it orchestrates
// the Merkle accumulator, nullifier registry, proof verifier, and
// balance engine into a single atomic transact/transact_spl state
// machine and emits one commitment event per inserted leaf.
//
// A per-pool mutex serializes calls the way a single-writer account
// lock would, and a snapshot taken at the start of each call is
// restored verbatim if the call aborts partway through.
package engine

import (
	"context"
	"sync"

	"github.com/veilpool/engine/internal/balance"
	"github.com/veilpool/engine/internal/field"
	"github.com/veilpool/engine/internal/merkle"
	"github.com/veilpool/engine/internal/nullifier"
	"github.com/veilpool/engine/internal/verifier"
	"github.com/veilpool/engine/pkg/types"
)

// ConfigStore reads and writes the pool's GlobalConfig singleton.
type ConfigStore interface {
	GetConfig(ctx context.Context) (*types.GlobalConfig, error)
	PutConfig(ctx context.Context, cfg *types.GlobalConfig) error
}

// EventSink receives one CommitmentEvent per inserted leaf. A nil sink
// is valid; events are simply dropped (matching a pool with no
// subscribers attached yet).
type EventSink interface {
	Publish(ctx context.Context, ev types.CommitmentEvent) error
}

// Snapshotter lets the engine stage a store's mutable state before a
// call, restore it verbatim if the call aborts partway, or commit it
// once the call has fully succeeded.
type Snapshotter interface {
	Snapshot(ctx context.Context) (any, error)
	Restore(ctx context.Context, snap any) error
	Commit(ctx context.Context, snap any) error
}

// Pool bundles one shielded pool's store, tree, nullifier registry and
// balance engine behind a single serializing mutex.
type Pool struct {
	mu sync.Mutex

	store   ConfigStore
	nulStor nullifier.Store
	tree    *merkle.Tree
	bal     *balance.Engine
	events  EventSink
	snap    Snapshotter
}

// New builds a Pool. events may be nil; snap may be nil if the caller
// accepts no rollback on partial failure (e.g. a pure in-memory store
// used only for tests, where the caller discards the store on error).
func New(store ConfigStore, nulStor nullifier.Store, tree *merkle.Tree, bal *balance.Engine, events EventSink, snap Snapshotter) *Pool {
	return &Pool{store: store, nulStor: nulStor, tree: tree, bal: bal, events: events, snap: snap}
}

// TransactParams carries the accounts a transact/transact_spl call
// needs beyond the wire-decoded TransactArgs.
type TransactParams struct {
	Vault     types.Address
	Signer    types.Address
	Recipient types.Address
	Mint      types.Address // zero for the native pool
}

// move dispatches to the native or SPL balance path depending on
// whether params.Mint is set.
func (p *Pool) move(ctx context.Context, cfg *types.GlobalConfig, maxDeposit uint64, params TransactParams, netAmount int64) error {
	if params.Mint.IsZero() {
		return p.bal.Move(ctx, cfg, maxDeposit, params.Signer, params.Vault, params.Recipient, netAmount)
	}
	return p.bal.MoveToken(ctx, cfg, maxDeposit, params.Mint, params.Signer, params.Vault, params.Recipient, netAmount)
}

// Process runs the full transaction state machine: gate/create
// nullifiers, check the anchor root, verify the proof, move value,
// insert both output leaves, and emit both commitment events. Any
// failure rolls the store back to its pre-call snapshot (if a
// Snapshotter is configured) before returning; success commits it.
func (p *Pool) Process(ctx context.Context, args *types.TransactArgs, params TransactParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var snap any
	if p.snap != nil {
		s, err := p.snap.Snapshot(ctx)
		if err != nil {
			return err
		}
		snap = s
	}

	if err := p.process(ctx, args, params); err != nil {
		if p.snap != nil {
			_ = p.snap.Restore(ctx, snap)
		}
		return err
	}
	if p.snap != nil {
		return p.snap.Commit(ctx, snap)
	}
	return nil
}

func (p *Pool) process(ctx context.Context, args *types.TransactArgs, params TransactParams) error {
	// Step 1-2: gate and create nullifier PDAs.
	if _, _, err := nullifier.Consume(ctx, p.nulStor, args.InNul1, args.InNul2); err != nil {
		return err
	}

	// Step 3: anchor check.
	known, err := p.tree.IsKnownRoot(ctx, args.Root)
	if err != nil {
		return err
	}
	if !known {
		return types.ErrUnknownRoot
	}

	// Step 4: proof verification.
	publicInputs := buildPublicInputs(args)
	if err := verifier.Verify(&verifier.VK, &args.Proof, publicInputs); err != nil {
		return err
	}

	// Step 5: move value.
	cfg, err := p.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	maxDeposit := uint64(0)
	if tree, terr := p.tree.Account(ctx); terr == nil {
		maxDeposit = tree.MaxDepositAmount
	}
	if err := p.move(ctx, cfg, maxDeposit, params, args.NetAmount); err != nil {
		return err
	}

	// Step 6: insert both output leaves.
	tree, err := p.tree.Account(ctx)
	if err != nil {
		return err
	}
	preInsertIndex := tree.NextIndex

	if _, _, err := p.tree.Insert(ctx, args.OutC1); err != nil {
		return err
	}
	if _, _, err := p.tree.Insert(ctx, args.OutC2); err != nil {
		return err
	}

	// Step 7: emit both commitment events, in insertion order.
	if p.events != nil {
		if err := p.events.Publish(ctx, types.CommitmentEvent{Index: preInsertIndex, Commitment: args.OutC1}); err != nil {
			return err
		}
		if err := p.events.Publish(ctx, types.CommitmentEvent{Index: preInsertIndex + 1, Commitment: args.OutC2}); err != nil {
			return err
		}
	}

	return nil
}

// buildPublicInputs assembles the circuit's seven public signals in
// public-input order (not the transact wire order): root, net_amount,
// ext_data_hash, in_nul1, in_nul2, out_c1, out_c2.
func buildPublicInputs(args *types.TransactArgs) [verifier.NumPublicInputs]types.Scalar {
	var pi [verifier.NumPublicInputs]types.Scalar
	pi[0] = args.Root
	pi[1] = field.EncodePublicAmount(args.NetAmount)
	pi[2] = args.ExtDataHash
	pi[3] = args.InNul1
	pi[4] = args.InNul2
	pi[5] = args.OutC1
	pi[6] = args.OutC2
	return pi
}
