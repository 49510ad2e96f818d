// Package storage implements the account-store abstraction: durable or
// in-memory backing for TreeAccount, GlobalConfig, nullifier slots,
// and the pool vault/ledger.
//
// MemoryStore is a mutex-guarded map per concern, used by default and
// by the test suite. PostgresStore (postgres.go) is the durable
// counterpart for a long-running daemon deployment; both satisfy the
// same merkle.Store/nullifier.Store/ConfigStore/balance.Transferer
// interfaces so the core's logic stays storage-agnostic.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/veilpool/engine/internal/balance"
	"github.com/veilpool/engine/internal/nullifier"
	"github.com/veilpool/engine/pkg/types"
)

// ErrNotFound is returned when a singleton account has not been
// initialized yet.
var ErrNotFound = errors.New("account not found")

// MemoryStore is an in-memory AccountStore: the default backing and
// the one exercised by tests.
type MemoryStore struct {
	mu sync.RWMutex

	tree   *types.TreeAccount
	config *types.GlobalConfig

	nullifiers map[types.Address]struct{}

	// balances holds native lamport balances, keyed by address.
	balances map[types.Address]uint64

	// tokenBalances holds SPL balances, keyed by (mint, address).
	tokenBalances map[types.Address]map[types.Address]uint64
}

// NewMemoryStore returns an empty store; callers fund addresses with
// Credit before issuing deposits/withdrawals in tests.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nullifiers:    make(map[types.Address]struct{}),
		balances:      make(map[types.Address]uint64),
		tokenBalances: make(map[types.Address]map[types.Address]uint64),
	}
}

// --- merkle.Store ---

func (s *MemoryStore) GetNode(ctx context.Context, level int, index uint64) (types.Scalar, bool, error) {
	return types.Scalar{}, false, nil
}

func (s *MemoryStore) SetNode(ctx context.Context, level int, index uint64, hash types.Scalar) error {
	return nil
}

func (s *MemoryStore) GetAccount(ctx context.Context) (*types.TreeAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return nil, ErrNotFound
	}
	cp := *s.tree
	return &cp, nil
}

func (s *MemoryStore) PutAccount(ctx context.Context, acc *types.TreeAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *acc
	s.tree = &cp
	return nil
}

// --- nullifier.Store ---

func (s *MemoryStore) Exists(ctx context.Context, addr types.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nullifiers[addr]
	return ok, nil
}

func (s *MemoryStore) Create(ctx context.Context, addr types.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nullifiers[addr]; ok {
		return nullifier.ErrSlotAlreadyExists
	}
	s.nullifiers[addr] = struct{}{}
	return nil
}

// --- ConfigStore ---

func (s *MemoryStore) GetConfig(ctx context.Context) (*types.GlobalConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, ErrNotFound
	}
	cp := *s.config
	return &cp, nil
}

func (s *MemoryStore) PutConfig(ctx context.Context, cfg *types.GlobalConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.config = &cp
	return nil
}

// --- balance.Transferer / balance.TokenTransferer ---

// Credit funds addr with amount, the test/bootstrap equivalent of a
// depositor's wallet already holding lamports.
func (s *MemoryStore) Credit(addr types.Address, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[addr] += amount
}

// Balance returns addr's current native balance.
func (s *MemoryStore) Balance(addr types.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[addr]
}

func (s *MemoryStore) TransferNative(ctx context.Context, from, to types.Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[from] < amount {
		return balance.ErrInsufficientBalance
	}
	s.balances[from] -= amount
	s.balances[to] += amount
	return nil
}

// CreditToken funds (mint, addr) with amount.
func (s *MemoryStore) CreditToken(mint, addr types.Address, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.tokenBalances[mint]
	if !ok {
		ledger = make(map[types.Address]uint64)
		s.tokenBalances[mint] = ledger
	}
	ledger[addr] += amount
}

// TokenBalance returns (mint, addr)'s current token balance.
func (s *MemoryStore) TokenBalance(mint, addr types.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokenBalances[mint][addr]
}

func (s *MemoryStore) TransferToken(ctx context.Context, mint, from, to types.Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.tokenBalances[mint]
	if !ok || ledger[from] < amount {
		return balance.ErrInsufficientBalance
	}
	ledger[from] -= amount
	ledger[to] += amount
	return nil
}

// --- engine.Snapshotter ---

// memorySnapshot is a full deep copy of MemoryStore's mutable state,
// taken at the start of a call and restored verbatim if that call
// aborts partway.
type memorySnapshot struct {
	tree          *types.TreeAccount
	config        *types.GlobalConfig
	nullifiers    map[types.Address]struct{}
	balances      map[types.Address]uint64
	tokenBalances map[types.Address]map[types.Address]uint64
}

// Snapshot captures the store's current state.
func (s *MemoryStore) Snapshot(ctx context.Context) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &memorySnapshot{
		nullifiers:    make(map[types.Address]struct{}, len(s.nullifiers)),
		balances:      make(map[types.Address]uint64, len(s.balances)),
		tokenBalances: make(map[types.Address]map[types.Address]uint64, len(s.tokenBalances)),
	}
	if s.tree != nil {
		cp := *s.tree
		snap.tree = &cp
	}
	if s.config != nil {
		cp := *s.config
		snap.config = &cp
	}
	for k, v := range s.nullifiers {
		snap.nullifiers[k] = v
	}
	for k, v := range s.balances {
		snap.balances[k] = v
	}
	for mint, ledger := range s.tokenBalances {
		cp := make(map[types.Address]uint64, len(ledger))
		for addr, amt := range ledger {
			cp[addr] = amt
		}
		snap.tokenBalances[mint] = cp
	}
	return snap, nil
}

// Restore overwrites the store's state with a previously captured
// snapshot.
func (s *MemoryStore) Restore(ctx context.Context, snapshot any) error {
	snap, ok := snapshot.(*memorySnapshot)
	if !ok {
		return errors.New("storage: invalid snapshot type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = snap.tree
	s.config = snap.config
	s.nullifiers = snap.nullifiers
	s.balances = snap.balances
	s.tokenBalances = snap.tokenBalances
	return nil
}

// Commit is a no-op: MemoryStore's methods mutate live state directly,
// so there is nothing left to apply once a call has succeeded.
func (s *MemoryStore) Commit(ctx context.Context, snapshot any) error {
	return nil
}
