package engine

import (
	"context"

	"github.com/veilpool/engine/internal/merkle"
	"github.com/veilpool/engine/pkg/types"
)

// Initialize runs the initialize instruction: seeds a fresh
// TreeAccount and GlobalConfig for a native pool, with authority set
// to signer and the default fee schedule.
func Initialize(ctx context.Context, tree *merkle.Tree, cfgStore ConfigStore, signer types.Address, args *types.InitializeArgs) error {
	if err := tree.Initialize(ctx, signer, args.MaxDepositAmount); err != nil {
		return err
	}
	cfg := types.DefaultGlobalConfig(signer, args.FeeRecipient)
	return cfgStore.PutConfig(ctx, cfg)
}

// InitializeSPL mirrors Initialize for the SPL-pool variant: the
// caller binds a TokenPoolAccount{Mint, Vault} itself, omitting the
// native vault; the tree and config state are identical.
func InitializeSPL(ctx context.Context, tree *merkle.Tree, cfgStore ConfigStore, signer types.Address, args *types.InitializeArgs) error {
	return Initialize(ctx, tree, cfgStore, signer, args)
}

// UpdateConfig runs the update_config instruction: the signer must
// match the stored authority, and the rates/fee_recipient are
// overwritten wholesale, never partially.
func UpdateConfig(ctx context.Context, cfgStore ConfigStore, signer types.Address, args *types.UpdateConfigArgs) error {
	cfg, err := cfgStore.GetConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Authority != signer {
		return types.ErrUnauthorized
	}
	cfg.DepositFeeRate = args.DepositFeeRate
	cfg.WithdrawalFeeRate = args.WithdrawalFeeRate
	cfg.FeeErrorMargin = args.FeeErrorMargin
	cfg.FeeRecipient = args.FeeRecipient
	return cfgStore.PutConfig(ctx, cfg)
}
