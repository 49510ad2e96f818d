package storage

import (
	"context"
	"testing"

	"github.com/veilpool/engine/internal/balance"
	"github.com/veilpool/engine/pkg/types"
)

func TestMemoryStoreAccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.GetAccount(ctx); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before PutAccount, got %v", err)
	}

	acc := &types.TreeAccount{Authority: types.Address{1}, NextIndex: 5}
	if err := s.PutAccount(ctx, acc); err != nil {
		t.Fatalf("PutAccount failed: %v", err)
	}

	got, err := s.GetAccount(ctx)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got.NextIndex != 5 {
		t.Fatalf("got NextIndex %d, want 5", got.NextIndex)
	}

	// Mutating the returned copy must not affect the store.
	got.NextIndex = 99
	reread, _ := s.GetAccount(ctx)
	if reread.NextIndex != 5 {
		t.Fatalf("GetAccount should return a defensive copy, store was mutated to %d", reread.NextIndex)
	}
}

func TestMemoryStoreNullifierCreateIsOneShot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	addr := types.Address{7}
	if err := s.Create(ctx, addr); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	exists, err := s.Exists(ctx, addr)
	if err != nil || !exists {
		t.Fatalf("Exists should report true after Create, got (%v, %v)", exists, err)
	}
	if err := s.Create(ctx, addr); err == nil {
		t.Fatalf("second Create of the same slot should fail")
	}
}

func TestMemoryStoreTransferNativeChecksBalance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	from := types.Address{1}
	to := types.Address{2}
	s.Credit(from, 100)

	if err := s.TransferNative(ctx, from, to, 40); err != nil {
		t.Fatalf("TransferNative failed: %v", err)
	}
	if s.Balance(from) != 60 || s.Balance(to) != 40 {
		t.Fatalf("unexpected balances after transfer: from=%d to=%d", s.Balance(from), s.Balance(to))
	}

	if err := s.TransferNative(ctx, from, to, 1000); err != balance.ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestMemoryStoreSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	addr := types.Address{3}
	s.Credit(addr, 500)
	if err := s.Create(ctx, types.Address{9}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	s.Credit(addr, 250)
	if err := s.Create(ctx, types.Address{10}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if s.Balance(addr) != 750 {
		t.Fatalf("expected balance 750 before restore, got %d", s.Balance(addr))
	}

	if err := s.Restore(ctx, snap); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if s.Balance(addr) != 500 {
		t.Fatalf("Restore should roll back to the snapshot, got balance %d", s.Balance(addr))
	}
	exists, _ := s.Exists(ctx, types.Address{10})
	if exists {
		t.Fatalf("Restore should undo the nullifier created after the snapshot")
	}
}

func TestMemoryStoreCommitIsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	addr := types.Address{4}
	s.Credit(addr, 10)
	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	s.Credit(addr, 5)
	if err := s.Commit(ctx, snap); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if s.Balance(addr) != 15 {
		t.Fatalf("Commit should leave live state untouched, got balance %d", s.Balance(addr))
	}
}

func TestMemoryStoreConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.GetConfig(ctx); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before PutConfig, got %v", err)
	}

	cfg := types.DefaultGlobalConfig(types.Address{1}, types.Address{2})
	if err := s.PutConfig(ctx, cfg); err != nil {
		t.Fatalf("PutConfig failed: %v", err)
	}

	got, err := s.GetConfig(ctx)
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if got.WithdrawalFeeRate != 25 {
		t.Fatalf("got WithdrawalFeeRate %d, want 25", got.WithdrawalFeeRate)
	}
}
