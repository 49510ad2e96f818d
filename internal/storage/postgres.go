// Package storage: PostgresStore is the durable AccountStore backing
// for a long-running daemon deployment, one row per nullifier slot and
// one row for each pool singleton (tree, config, vault balance).
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilpool/engine/internal/balance"
	"github.com/veilpool/engine/internal/nullifier"
	"github.com/veilpool/engine/pkg/types"
)

// Common errors.
var (
	ErrDuplicate    = errors.New("duplicate entry")
	ErrDBConnection = errors.New("database connection error")
)

// Config holds database configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns default database configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "veilpool",
		Password: "",
		Database: "veilpool",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// pgExecutor is satisfied by both *pgxpool.Pool and pgx.Tx, letting
// every query method run either directly against the pool or against
// an in-flight transaction without duplicating call sites.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements the AccountStore interfaces using
// PostgreSQL, for a pool instance's tree, config, nullifier and
// balance state.
type PostgresStore struct {
	pool *pgxpool.Pool

	txMu     sync.Mutex
	activeTx pgx.Tx
}

// db returns the executor for the current call: the in-flight
// transaction opened by Snapshot, if any, otherwise the pool itself.
func (s *PostgresStore) db() pgExecutor {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if s.activeTx != nil {
		return s.activeTx
	}
	return s.pool
}

// NewPostgresStore opens a connection pool and ensures the schema
// exists.
func NewPostgresStore(ctx context.Context, cfg *Config) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS tree_account (
			id               SMALLINT PRIMARY KEY DEFAULT 1,
			authority        BYTEA NOT NULL,
			next_index       BIGINT NOT NULL,
			root_index       BIGINT NOT NULL,
			max_deposit      BIGINT NOT NULL,
			root_history     BYTEA NOT NULL,
			filled_subtrees  BYTEA NOT NULL,
			CHECK (id = 1)
		);

		CREATE TABLE IF NOT EXISTS global_config (
			id                  SMALLINT PRIMARY KEY DEFAULT 1,
			authority           BYTEA NOT NULL,
			fee_recipient       BYTEA NOT NULL,
			deposit_fee_rate    INTEGER NOT NULL,
			withdrawal_fee_rate INTEGER NOT NULL,
			fee_error_margin    INTEGER NOT NULL,
			CHECK (id = 1)
		);

		CREATE TABLE IF NOT EXISTS nullifier_slots (
			address BYTEA PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS balances (
			mint    BYTEA NOT NULL,
			address BYTEA NOT NULL,
			amount  BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (mint, address)
		);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// --- merkle.Store ---

func (s *PostgresStore) GetNode(ctx context.Context, level int, index uint64) (types.Scalar, bool, error) {
	return types.Scalar{}, false, nil
}

func (s *PostgresStore) SetNode(ctx context.Context, level int, index uint64, hash types.Scalar) error {
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context) (*types.TreeAccount, error) {
	row := s.db().QueryRow(ctx, `
		SELECT authority, next_index, root_index, max_deposit, root_history, filled_subtrees
		FROM tree_account WHERE id = 1`)

	var authority, rootHistory, filledSubtrees []byte
	acc := &types.TreeAccount{Height: types.MerkleTreeHeight, RootHistorySize: types.RootHistorySize}
	if err := row.Scan(&authority, &acc.NextIndex, &acc.RootIndex, &acc.MaxDepositAmount, &rootHistory, &filledSubtrees); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	acc.Authority = types.AddressFromBytes(authority)
	unpackScalars(rootHistory, acc.RootHistory[:])
	unpackScalars(filledSubtrees, acc.FilledSubtrees[:])
	return acc, nil
}

func (s *PostgresStore) PutAccount(ctx context.Context, acc *types.TreeAccount) error {
	_, err := s.db().Exec(ctx, `
		INSERT INTO tree_account (id, authority, next_index, root_index, max_deposit, root_history, filled_subtrees)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			authority = EXCLUDED.authority,
			next_index = EXCLUDED.next_index,
			root_index = EXCLUDED.root_index,
			max_deposit = EXCLUDED.max_deposit,
			root_history = EXCLUDED.root_history,
			filled_subtrees = EXCLUDED.filled_subtrees`,
		acc.Authority.Bytes(), acc.NextIndex, acc.RootIndex, acc.MaxDepositAmount,
		packScalars(acc.RootHistory[:]), packScalars(acc.FilledSubtrees[:]))
	return err
}

// --- nullifier.Store ---

func (s *PostgresStore) Exists(ctx context.Context, addr types.Address) (bool, error) {
	var exists bool
	err := s.db().QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM nullifier_slots WHERE address = $1)`, addr.Bytes()).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) Create(ctx context.Context, addr types.Address) error {
	tag, err := s.db().Exec(ctx, `INSERT INTO nullifier_slots (address) VALUES ($1) ON CONFLICT DO NOTHING`, addr.Bytes())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nullifier.ErrSlotAlreadyExists
	}
	return nil
}

// --- ConfigStore ---

func (s *PostgresStore) GetConfig(ctx context.Context) (*types.GlobalConfig, error) {
	row := s.db().QueryRow(ctx, `
		SELECT authority, fee_recipient, deposit_fee_rate, withdrawal_fee_rate, fee_error_margin
		FROM global_config WHERE id = 1`)

	var authority, feeRecipient []byte
	cfg := &types.GlobalConfig{}
	if err := row.Scan(&authority, &feeRecipient, &cfg.DepositFeeRate, &cfg.WithdrawalFeeRate, &cfg.FeeErrorMargin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	cfg.Authority = types.AddressFromBytes(authority)
	cfg.FeeRecipient = types.AddressFromBytes(feeRecipient)
	return cfg, nil
}

func (s *PostgresStore) PutConfig(ctx context.Context, cfg *types.GlobalConfig) error {
	_, err := s.db().Exec(ctx, `
		INSERT INTO global_config (id, authority, fee_recipient, deposit_fee_rate, withdrawal_fee_rate, fee_error_margin)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			authority = EXCLUDED.authority,
			fee_recipient = EXCLUDED.fee_recipient,
			deposit_fee_rate = EXCLUDED.deposit_fee_rate,
			withdrawal_fee_rate = EXCLUDED.withdrawal_fee_rate,
			fee_error_margin = EXCLUDED.fee_error_margin`,
		cfg.Authority.Bytes(), cfg.FeeRecipient.Bytes(), cfg.DepositFeeRate, cfg.WithdrawalFeeRate, cfg.FeeErrorMargin)
	return err
}

// --- balance.Transferer / balance.TokenTransferer ---

var nativeMint types.Address // zero address keys the native ledger

func (s *PostgresStore) TransferNative(ctx context.Context, from, to types.Address, amount uint64) error {
	return s.transfer(ctx, nativeMint, from, to, amount)
}

func (s *PostgresStore) TransferToken(ctx context.Context, mint, from, to types.Address, amount uint64) error {
	return s.transfer(ctx, mint, from, to, amount)
}

// transfer moves amount from (mint, from) to (mint, to). If a
// Snapshot-opened transaction is active on this store, the two
// statements run on it directly so they roll back or commit together
// with the rest of the call; otherwise transfer opens and commits its
// own transaction so the debit and credit stay atomic on their own.
func (s *PostgresStore) transfer(ctx context.Context, mint, from, to types.Address, amount uint64) error {
	s.txMu.Lock()
	tx := s.activeTx
	s.txMu.Unlock()

	if tx != nil {
		return doTransfer(ctx, tx, mint, from, to, amount)
	}

	ownTx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer ownTx.Rollback(ctx)

	if err := doTransfer(ctx, ownTx, mint, from, to, amount); err != nil {
		return err
	}
	return ownTx.Commit(ctx)
}

func doTransfer(ctx context.Context, tx pgExecutor, mint, from, to types.Address, amount uint64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE balances SET amount = amount - $3
		WHERE mint = $1 AND address = $2 AND amount >= $3`,
		mint.Bytes(), from.Bytes(), amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return balance.ErrInsufficientBalance // no row updated: the payer has no row or too small a balance
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO balances (mint, address, amount) VALUES ($1, $2, $3)
		ON CONFLICT (mint, address) DO UPDATE SET amount = balances.amount + EXCLUDED.amount`,
		mint.Bytes(), to.Bytes(), amount)
	return err
}

// --- engine.Snapshotter ---

// Snapshot opens a transaction and holds it as the store's active
// executor, so every call the engine makes for the rest of this
// attempt — nullifier creation, tree/config writes, balance
// transfers — runs inside it.
func (s *PostgresStore) Snapshot(ctx context.Context) (any, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	s.txMu.Lock()
	s.activeTx = tx
	s.txMu.Unlock()
	return tx, nil
}

// Commit finalizes the transaction opened by Snapshot.
func (s *PostgresStore) Commit(ctx context.Context, snap any) error {
	tx, ok := snap.(pgx.Tx)
	if !ok {
		return errors.New("storage: invalid snapshot type")
	}
	s.txMu.Lock()
	s.activeTx = nil
	s.txMu.Unlock()
	return tx.Commit(ctx)
}

// Restore rolls back the transaction opened by Snapshot, undoing every
// statement run against it.
func (s *PostgresStore) Restore(ctx context.Context, snap any) error {
	tx, ok := snap.(pgx.Tx)
	if !ok {
		return errors.New("storage: invalid snapshot type")
	}
	s.txMu.Lock()
	s.activeTx = nil
	s.txMu.Unlock()
	return tx.Rollback(ctx)
}

func packScalars(scalars []types.Scalar) []byte {
	buf := make([]byte, len(scalars)*types.HashSize)
	for i, s := range scalars {
		copy(buf[i*types.HashSize:], s[:])
	}
	return buf
}

func unpackScalars(buf []byte, out []types.Scalar) {
	for i := range out {
		off := i * types.HashSize
		if off+types.HashSize > len(buf) {
			return
		}
		out[i] = types.ScalarFromBytes(buf[off : off+types.HashSize])
	}
}
