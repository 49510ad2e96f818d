package engine

import (
	"context"
	"testing"

	"github.com/veilpool/engine/internal/balance"
	"github.com/veilpool/engine/internal/merkle"
	"github.com/veilpool/engine/internal/poseidon"
	"github.com/veilpool/engine/internal/storage"
	"github.com/veilpool/engine/internal/verifier"
	"github.com/veilpool/engine/pkg/types"
)

// testPool wires a fresh in-memory pool the way cmd/shield-cli's
// newPool does, so these tests exercise the same construction path a
// real deployment uses.
func testPool(t *testing.T) (*Pool, *storage.MemoryStore, *merkle.Tree) {
	t.Helper()
	store := storage.NewMemoryStore()
	oracle := poseidon.New()
	tree := merkle.New(store, oracle)
	bal := balance.New(store, store)
	pool := New(store, store, tree, bal, nil, store)
	return pool, store, tree
}

// txArgsFor builds a valid TransactArgs (wire-decoded shape) with a
// DebugProve proof matching the public inputs the handler will derive.
func txArgsFor(t *testing.T, root types.Scalar, n1, n2, c1, c2 types.Scalar, netAmount int64) *types.TransactArgs {
	t.Helper()
	args := &types.TransactArgs{
		Root:        root,
		InNul1:      n1,
		InNul2:      n2,
		OutC1:       c1,
		OutC2:       c2,
		NetAmount:   netAmount,
		ExtDataHash: types.Scalar{0xAB},
	}
	pi := buildPublicInputs(args)
	args.Proof = *verifier.DebugProve(pi)
	return args
}

func TestProcessDepositThenWithdraw(t *testing.T) {
	ctx := context.Background()
	pool, store, tree := testPool(t)

	authority := types.Address{1}
	signer := types.Address{2}
	vault := types.Address{3}
	recipient := types.Address{4}

	if err := Initialize(ctx, tree, store, authority, &types.InitializeArgs{
		MaxDepositAmount: 1_000_000_000,
		FeeRecipient:     types.Address{9},
	}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	// This scenario runs with zero fees on both sides; Initialize's
	// default withdrawal fee is 25 bps.
	cfg, _ := store.GetConfig(ctx)
	cfg.WithdrawalFeeRate = 0
	if err := store.PutConfig(ctx, cfg); err != nil {
		t.Fatalf("PutConfig failed: %v", err)
	}

	store.Credit(signer, 100_000_000)

	root0, err := tree.CurrentRoot(ctx)
	if err != nil {
		t.Fatalf("CurrentRoot failed: %v", err)
	}

	depositArgs := txArgsFor(t, root0, types.Scalar{0x01, 0x01}, types.Scalar{0x02, 0x02}, types.Scalar{0xC1}, types.ZeroScalar, 100_000_000)
	if err := pool.Process(ctx, depositArgs, TransactParams{Vault: vault, Signer: signer, Recipient: recipient}); err != nil {
		t.Fatalf("deposit Process failed: %v", err)
	}

	if store.Balance(signer) != 0 {
		t.Fatalf("signer should be fully debited, has %d left", store.Balance(signer))
	}
	if store.Balance(vault) != 100_000_000 {
		t.Fatalf("vault got %d, want 100_000_000", store.Balance(vault))
	}

	acc, err := tree.Account(ctx)
	if err != nil {
		t.Fatalf("Account failed: %v", err)
	}
	if acc.NextIndex != 2 {
		t.Fatalf("next_index after one transact should be 2, got %d", acc.NextIndex)
	}

	root2, err := tree.CurrentRoot(ctx)
	if err != nil {
		t.Fatalf("CurrentRoot failed: %v", err)
	}

	withdrawArgs := txArgsFor(t, root2, types.Scalar{0x03, 0x03}, types.Scalar{0x04, 0x04}, types.ZeroScalar, types.ZeroScalar, -100_000_000)
	if err := pool.Process(ctx, withdrawArgs, TransactParams{Vault: vault, Signer: signer, Recipient: recipient}); err != nil {
		t.Fatalf("withdraw Process failed: %v", err)
	}

	if store.Balance(vault) != 0 {
		t.Fatalf("vault should be fully drained, has %d left", store.Balance(vault))
	}
	if store.Balance(recipient) != 100_000_000 {
		t.Fatalf("recipient got %d, want 100_000_000", store.Balance(recipient))
	}

	acc, err = tree.Account(ctx)
	if err != nil {
		t.Fatalf("Account failed: %v", err)
	}
	if acc.NextIndex != 4 {
		t.Fatalf("next_index after two transacts should be 4, got %d", acc.NextIndex)
	}
}

func TestProcessRejectsDoubleSpend(t *testing.T) {
	ctx := context.Background()
	pool, store, tree := testPool(t)

	authority := types.Address{1}
	signer := types.Address{2}
	vault := types.Address{3}

	if err := Initialize(ctx, tree, store, authority, &types.InitializeArgs{
		MaxDepositAmount: 1_000_000_000,
		FeeRecipient:     types.Address{9},
	}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	store.Credit(signer, 10_000_000)

	root, _ := tree.CurrentRoot(ctx)
	n1 := types.Scalar{0x11}
	n2 := types.Scalar{0x22}
	args := txArgsFor(t, root, n1, n2, types.Scalar{0xC1}, types.ZeroScalar, 1_000_000)

	if err := pool.Process(ctx, args, TransactParams{Vault: vault, Signer: signer, Recipient: types.Address{5}}); err != nil {
		t.Fatalf("first Process failed: %v", err)
	}

	balBefore := store.Balance(signer)
	replayRoot, _ := tree.CurrentRoot(ctx)
	replay := txArgsFor(t, replayRoot, n1, n2, types.Scalar{0xC2}, types.ZeroScalar, 1_000_000)
	err := pool.Process(ctx, replay, TransactParams{Vault: vault, Signer: signer, Recipient: types.Address{5}})
	if err != types.ErrNullifierAlreadyUsed {
		t.Fatalf("expected ErrNullifierAlreadyUsed on replay, got %v", err)
	}
	if store.Balance(signer) != balBefore {
		t.Fatalf("a rejected replay must not change balances: before=%d after=%d", balBefore, store.Balance(signer))
	}
}

func TestProcessRejectsStaleRoot(t *testing.T) {
	ctx := context.Background()
	pool, store, tree := testPool(t)

	authority := types.Address{1}
	if err := Initialize(ctx, tree, store, authority, &types.InitializeArgs{
		MaxDepositAmount: 1_000_000_000,
		FeeRecipient:     types.Address{9},
	}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	staleRoot := types.Scalar{0xDE, 0xAD, 0xBE, 0xEF}
	args := txArgsFor(t, staleRoot, types.Scalar{1}, types.Scalar{2}, types.Scalar{3}, types.ZeroScalar, 0)
	err := pool.Process(ctx, args, TransactParams{Vault: types.Address{3}, Signer: types.Address{2}, Recipient: types.Address{4}})
	if err != types.ErrUnknownRoot {
		t.Fatalf("expected ErrUnknownRoot for an unrecognized root, got %v", err)
	}
}

func TestUpdateConfigAuthorityGate(t *testing.T) {
	ctx := context.Background()
	_, store, tree := testPool(t)

	authority := types.Address{1}
	if err := Initialize(ctx, tree, store, authority, &types.InitializeArgs{
		MaxDepositAmount: 1_000_000_000,
		FeeRecipient:     types.Address{9},
	}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	notAuthority := types.Address{2}
	update := &types.UpdateConfigArgs{
		DepositFeeRate:    10,
		WithdrawalFeeRate: 25,
		FeeErrorMargin:    500,
		FeeRecipient:      types.Address{9},
	}
	err := UpdateConfig(ctx, store, notAuthority, update)
	if err != types.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	cfg, _ := store.GetConfig(ctx)
	if cfg.DepositFeeRate != 0 {
		t.Fatalf("config must be unchanged after a rejected UpdateConfig, got DepositFeeRate=%d", cfg.DepositFeeRate)
	}

	if err := UpdateConfig(ctx, store, authority, update); err != nil {
		t.Fatalf("UpdateConfig by the real authority should succeed: %v", err)
	}
	cfg, _ = store.GetConfig(ctx)
	if cfg.DepositFeeRate != 10 {
		t.Fatalf("config should now reflect the update, got DepositFeeRate=%d", cfg.DepositFeeRate)
	}
}

func TestProcessFeeSplitOnWithdraw(t *testing.T) {
	ctx := context.Background()
	pool, store, tree := testPool(t)

	authority := types.Address{1}
	if err := Initialize(ctx, tree, store, authority, &types.InitializeArgs{
		MaxDepositAmount: 1_000_000_000,
		FeeRecipient:     types.Address{9},
	}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	cfg, _ := store.GetConfig(ctx)
	cfg.WithdrawalFeeRate = 25 // 0.25%
	if err := store.PutConfig(ctx, cfg); err != nil {
		t.Fatalf("PutConfig failed: %v", err)
	}

	vault := types.Address{3}
	recipient := types.Address{4}
	store.Credit(vault, 1_000_000)

	root, _ := tree.CurrentRoot(ctx)
	args := txArgsFor(t, root, types.Scalar{0x55}, types.Scalar{0x66}, types.ZeroScalar, types.ZeroScalar, -1_000_000)
	if err := pool.Process(ctx, args, TransactParams{Vault: vault, Signer: types.Address{2}, Recipient: recipient}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if store.Balance(recipient) != 997_500 {
		t.Fatalf("recipient got %d, want 997_500", store.Balance(recipient))
	}
	if store.Balance(cfg.FeeRecipient) != 2_500 {
		t.Fatalf("fee_recipient got %d, want 2_500", store.Balance(cfg.FeeRecipient))
	}
	if store.Balance(vault) != 0 {
		t.Fatalf("vault got %d, want 0", store.Balance(vault))
	}
}
