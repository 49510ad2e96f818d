package types

// Protocol-wide compile-time constants.
const (
	// MerkleTreeHeight is the fixed height of the commitment accumulator.
	MerkleTreeHeight = 26

	// RootHistorySize is the length of the root ring buffer.
	RootHistorySize = 100

	// NrPublicInputs is the number of public signals the circuit exposes.
	NrPublicInputs = 7

	// FeeDenominator is the bps denominator for fee-rate fields.
	FeeDenominator = 10_000

	// MaxLeaves is 2^MerkleTreeHeight, the tree's capacity.
	MaxLeaves = uint64(1) << MerkleTreeHeight
)

// TreeAccount is the Merkle accumulator's persistent state.
type TreeAccount struct {
	Authority        Address
	NextIndex        uint64
	RootIndex        uint64
	MaxDepositAmount uint64
	Height           uint8
	RootHistorySize  uint8
	RootHistory      [RootHistorySize]Scalar
	FilledSubtrees   [MerkleTreeHeight]Scalar
}

// GlobalConfig holds the pool's authority and fee schedule.
type GlobalConfig struct {
	Authority          Address
	FeeRecipient       Address
	DepositFeeRate     uint16
	WithdrawalFeeRate  uint16
	FeeErrorMargin     uint16
	Bump               uint8
}

// NullifierAccount is the liveness marker for a consumed nullifier.
// Its existence, not any field within it, is the double-spend flag.
type NullifierAccount struct {
	Live bool
}

// TokenPoolAccount binds an SPL-pool vault to a mint, sibling to the
// native pool_vault slot.
type TokenPoolAccount struct {
	Mint  Address
	Vault Address
}

// CommitmentEvent is emitted once per inserted leaf.
type CommitmentEvent struct {
	Index      uint64
	Commitment Scalar
}

// NewTreeAccount builds the zero-state tree seeded with zeroHashes:
// root_history[0] = zeroHashes[26], every filled_subtrees[L] =
// zeroHashes[L].
func NewTreeAccount(authority Address, maxDeposit uint64, zeroHashes [MerkleTreeHeight + 1]Scalar) *TreeAccount {
	t := &TreeAccount{
		Authority:        authority,
		MaxDepositAmount: maxDeposit,
		Height:           MerkleTreeHeight,
		RootHistorySize:  RootHistorySize,
	}
	t.RootHistory[0] = zeroHashes[MerkleTreeHeight]
	for l := 0; l < MerkleTreeHeight; l++ {
		t.FilledSubtrees[l] = zeroHashes[l]
	}
	return t
}

// DefaultGlobalConfig returns the defaults Initialize sets:
// deposit_fee_rate=0, withdrawal_fee_rate=25, fee_error_margin=500.
func DefaultGlobalConfig(authority, feeRecipient Address) *GlobalConfig {
	return &GlobalConfig{
		Authority:         authority,
		FeeRecipient:      feeRecipient,
		DepositFeeRate:    0,
		WithdrawalFeeRate: 25,
		FeeErrorMargin:    500,
	}
}
