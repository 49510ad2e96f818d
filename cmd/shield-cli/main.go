// Command shield-cli is the operator-facing command-line interface: it
// runs initialize, update-config and status through the engine against
// a fresh in-memory pool per invocation, in lieu of a network
// transport. transact only builds the wire payload; it is not
// submitted.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/veilpool/engine/internal/balance"
	"github.com/veilpool/engine/internal/engine"
	"github.com/veilpool/engine/internal/merkle"
	"github.com/veilpool/engine/internal/poseidon"
	"github.com/veilpool/engine/internal/storage"
	"github.com/veilpool/engine/pkg/types"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("shield-cli v%s\n", version)

	case "help":
		printUsage()

	case "initialize":
		cmdInitialize(os.Args[2:])

	case "update-config":
		cmdUpdateConfig(os.Args[2:])

	case "transact":
		cmdTransact(os.Args[2:])

	case "status":
		cmdStatus(os.Args[2:])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("shield-cli - operator CLI for the shielded transaction pool")
	fmt.Println()
	fmt.Println("Usage: shield-cli <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version                            Show version information")
	fmt.Println("  help                               Show this help message")
	fmt.Println("  initialize <max-deposit> <fee-recipient-hex>")
	fmt.Println("  update-config <deposit-bps> <withdrawal-bps> <margin-bps> <fee-recipient-hex>")
	fmt.Println("  transact <net-amount>              Build a toy transact payload (not submitted)")
	fmt.Println("  status                             Show the current tree root and size")
}

// newPool spins up a fresh in-memory pool for one CLI invocation. A
// real deployment points this at the daemon's durable store instead;
// the CLI's business logic beyond issuing requests is explicitly out
// of scope, so a per-invocation pool is the simplest stand-in that
// still exercises the real engine code path.
func newPool(ctx context.Context) (*engine.Pool, *storage.MemoryStore, *merkle.Tree) {
	store := storage.NewMemoryStore()
	oracle := poseidon.New()
	tree := merkle.New(store, oracle)
	bal := balance.New(store, store)
	pool := engine.New(store, store, tree, bal, nil, store)
	return pool, store, tree
}

func cmdInitialize(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: shield-cli initialize <max-deposit> <fee-recipient-hex>")
		os.Exit(1)
	}
	maxDeposit, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid max-deposit: %v\n", err)
		os.Exit(1)
	}
	feeRecipient, err := addressFromHex(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid fee-recipient: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	_, store, tree := newPool(ctx)

	signer := randomAddress()
	initArgs := &types.InitializeArgs{MaxDepositAmount: maxDeposit, FeeRecipient: feeRecipient}
	if err := engine.Initialize(ctx, tree, store, signer, initArgs); err != nil {
		fmt.Fprintf(os.Stderr, "initialize failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Pool initialized.")
	fmt.Println("  authority:    ", signer.String())
	fmt.Println("  max_deposit:  ", maxDeposit)
	fmt.Println("  fee_recipient:", feeRecipient.String())
}

func cmdUpdateConfig(args []string) {
	if len(args) < 4 {
		fmt.Println("Usage: shield-cli update-config <deposit-bps> <withdrawal-bps> <margin-bps> <fee-recipient-hex>")
		os.Exit(1)
	}
	depositRate, _ := strconv.ParseUint(args[0], 10, 16)
	withdrawalRate, _ := strconv.ParseUint(args[1], 10, 16)
	margin, _ := strconv.ParseUint(args[2], 10, 16)
	feeRecipient, err := addressFromHex(args[3])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid fee-recipient: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	_, store, tree := newPool(ctx)
	signer := randomAddress()
	if err := engine.Initialize(ctx, tree, store, signer, &types.InitializeArgs{MaxDepositAmount: 1 << 40, FeeRecipient: feeRecipient}); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap initialize failed: %v\n", err)
		os.Exit(1)
	}

	updateArgs := &types.UpdateConfigArgs{
		DepositFeeRate:    uint16(depositRate),
		WithdrawalFeeRate: uint16(withdrawalRate),
		FeeErrorMargin:    uint16(margin),
		FeeRecipient:      feeRecipient,
	}
	if err := engine.UpdateConfig(ctx, store, signer, updateArgs); err != nil {
		fmt.Fprintf(os.Stderr, "update-config failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Config updated.")
}

func cmdTransact(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: shield-cli transact <net-amount>")
		os.Exit(1)
	}
	netAmount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid net-amount: %v\n", err)
		os.Exit(1)
	}

	txArgs := &types.TransactArgs{
		NetAmount: netAmount,
	}
	_ = types.EncodeTransactArgs(txArgs) // demonstrates the wire round-trip the daemon would decode on the other end

	fmt.Println("Built transact payload (submission requires a live proof and is out of scope here).")
	fmt.Println("  net_amount:", netAmount)
}

func cmdStatus(args []string) {
	ctx := context.Background()
	_, _, tree := newPool(ctx)
	if err := tree.Initialize(ctx, randomAddress(), 1<<40); err != nil {
		fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
		os.Exit(1)
	}
	root, err := tree.CurrentRoot(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
		os.Exit(1)
	}
	acc, err := tree.Account(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Pool status:")
	fmt.Println("  root:       ", root.String())
	fmt.Println("  next_index: ", acc.NextIndex)
}

func addressFromHex(s string) (types.Address, error) {
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return types.Address{}, err
	}
	return types.AddressFromBytes(b), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0:2] == "0x" {
		return s[2:]
	}
	return s
}

func randomAddress() types.Address {
	var b [types.AddressSize]byte
	_, _ = rand.Read(b[:])
	return types.Address(b)
}
