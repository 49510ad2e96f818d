// Package balance implements the balance and side-effect engine:
// interpreting the transaction's signed net amount, computing the fee
// split, and moving value — native transfer for the SOL pool, token
// transfer for the SPL pool.
package balance

import (
	"context"
	"errors"
	"math/bits"

	"github.com/veilpool/engine/pkg/types"
)

// ErrInsufficientBalance is the sentinel a Transferer implementation
// returns when the paying side lacks funds, distinguished from any
// other transfer failure so Engine can surface InsufficientFunds
// rather than the generic TransferFailed.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Transferer moves native value between two addresses, modeling the
// system-program transfer precompile.
type Transferer interface {
	TransferNative(ctx context.Context, from, to types.Address, amount uint64) error
}

// TokenTransferer moves SPL-token value for a given mint, modeling the
// token-program transfer instruction the SPL-pool variant drives.
type TokenTransferer interface {
	TransferToken(ctx context.Context, mint, from, to types.Address, amount uint64) error
}

// Engine drives value movement for one pool. A nil token transferer
// means the pool is SOL-only.
type Engine struct {
	native Transferer
	token  TokenTransferer
}

// New builds a balance engine. token may be nil for a native-only pool.
func New(native Transferer, token TokenTransferer) *Engine {
	return &Engine{native: native, token: token}
}

// mulFee computes amount*rateBps/FeeDenominator using a 128-bit
// intermediate product so large deposits never silently truncate; a
// product that overflows 64 bits is reported as ArithmeticOverflow
// rather than wrapping.
func mulFee(amount uint64, rateBps uint16) (uint64, error) {
	hi, lo := bits.Mul64(amount, uint64(rateBps))
	if hi != 0 {
		return 0, types.ErrArithmeticOverflow
	}
	return lo / types.FeeDenominator, nil
}

func classifyTransferErr(err error) error {
	if errors.Is(err, ErrInsufficientBalance) {
		return types.ErrInsufficientFunds
	}
	return types.ErrTransferFailed
}

// Move interprets netAmount's sign as deposit (positive) or withdrawal
// (negative) and performs the corresponding value movement for the
// native (SOL) pool.
func (e *Engine) Move(ctx context.Context, cfg *types.GlobalConfig, maxDeposit uint64, signer, vault, recipient types.Address, netAmount int64) error {
	switch {
	case netAmount > 0:
		return e.deposit(ctx, cfg, maxDeposit, signer, vault, uint64(netAmount))
	case netAmount < 0:
		return e.withdraw(ctx, cfg, vault, recipient, uint64(-netAmount))
	default:
		return nil
	}
}

// MoveToken is the SPL-pool variant of Move: identical fee semantics,
// all transfers routed through the token-transfer interface with the
// vault-authority PDA as signer for out-flows.
func (e *Engine) MoveToken(ctx context.Context, cfg *types.GlobalConfig, maxDeposit uint64, mint, signer, vault, recipient types.Address, netAmount int64) error {
	if e.token == nil {
		return types.ErrTransferFailed
	}
	switch {
	case netAmount > 0:
		amount := uint64(netAmount)
		if amount > maxDeposit {
			return types.ErrDepositLimitExceeded
		}
		fee, err := mulFee(amount, cfg.DepositFeeRate)
		if err != nil {
			return err
		}
		if err := e.token.TransferToken(ctx, mint, signer, vault, amount-fee); err != nil {
			return classifyTransferErr(err)
		}
		if fee > 0 {
			if err := e.token.TransferToken(ctx, mint, signer, cfg.FeeRecipient, fee); err != nil {
				return classifyTransferErr(err)
			}
		}
		return nil
	case netAmount < 0:
		amount := uint64(-netAmount)
		fee, err := mulFee(amount, cfg.WithdrawalFeeRate)
		if err != nil {
			return err
		}
		if err := e.token.TransferToken(ctx, mint, vault, recipient, amount-fee); err != nil {
			return classifyTransferErr(err)
		}
		if fee > 0 {
			if err := e.token.TransferToken(ctx, mint, vault, cfg.FeeRecipient, fee); err != nil {
				return classifyTransferErr(err)
			}
		}
		return nil
	default:
		return nil
	}
}

func (e *Engine) deposit(ctx context.Context, cfg *types.GlobalConfig, maxDeposit uint64, signer, vault types.Address, amount uint64) error {
	if amount > maxDeposit {
		return types.ErrDepositLimitExceeded
	}
	fee, err := mulFee(amount, cfg.DepositFeeRate)
	if err != nil {
		return err
	}
	if err := e.native.TransferNative(ctx, signer, vault, amount-fee); err != nil {
		return classifyTransferErr(err)
	}
	if fee > 0 {
		if err := e.native.TransferNative(ctx, signer, cfg.FeeRecipient, fee); err != nil {
			return classifyTransferErr(err)
		}
	}
	return nil
}

func (e *Engine) withdraw(ctx context.Context, cfg *types.GlobalConfig, vault, recipient types.Address, amount uint64) error {
	fee, err := mulFee(amount, cfg.WithdrawalFeeRate)
	if err != nil {
		return err
	}
	if err := e.native.TransferNative(ctx, vault, recipient, amount-fee); err != nil {
		return classifyTransferErr(err)
	}
	if fee > 0 {
		if err := e.native.TransferNative(ctx, vault, cfg.FeeRecipient, fee); err != nil {
			return classifyTransferErr(err)
		}
	}
	return nil
}
