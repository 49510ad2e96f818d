package types

import (
	"encoding/binary"
	"errors"
)

// Instruction discriminators.
var (
	DiscriminatorTransact     = [8]byte{0xD9, 0x95, 0x82, 0x8F, 0xDD, 0x34, 0xFC, 0x77}
	DiscriminatorInitialize   = [8]byte{0x1A, 0x2B, 0x3C, 0x4D, 0x5E, 0x6F, 0x70, 0x81}
	DiscriminatorUpdateConfig = [8]byte{0x91, 0xA2, 0xB3, 0xC4, 0xD5, 0xE6, 0xF7, 0x08}
)

// ProofSize is the Groth16 proof wire size: A(64) | B(128) | C(64).
const ProofSize = 64 + 128 + 64

// TransactSize is the bit-exact size of a transact instruction payload.
const TransactSize = 8 + ProofSize + 32*5 + 8 + 32

var ErrMalformedInstruction = errors.New("malformed instruction payload")

// Proof is the raw Groth16 proof as carried on the wire: A is
// pre-negated and all coordinates are big-endian.
type Proof struct {
	A [64]byte
	B [128]byte
	C [64]byte
}

// TransactArgs is the decoded argument set for transact/transact_spl.
type TransactArgs struct {
	Proof       Proof
	Root        Scalar
	InNul1      Scalar
	InNul2      Scalar
	OutC1       Scalar
	OutC2       Scalar
	NetAmount   int64
	ExtDataHash Scalar
}

// DecodeTransactArgs parses the 464-byte transact wire payload.
func DecodeTransactArgs(data []byte) (*TransactArgs, error) {
	if len(data) != TransactSize {
		return nil, ErrMalformedInstruction
	}
	if [8]byte(data[0:8]) != DiscriminatorTransact {
		return nil, ErrMalformedInstruction
	}
	off := 8
	var a TransactArgs
	copy(a.Proof.A[:], data[off:off+64])
	off += 64
	copy(a.Proof.B[:], data[off:off+128])
	off += 128
	copy(a.Proof.C[:], data[off:off+64])
	off += 64
	a.Root = ScalarFromBytes(data[off : off+32])
	off += 32
	a.InNul1 = ScalarFromBytes(data[off : off+32])
	off += 32
	a.InNul2 = ScalarFromBytes(data[off : off+32])
	off += 32
	a.OutC1 = ScalarFromBytes(data[off : off+32])
	off += 32
	a.OutC2 = ScalarFromBytes(data[off : off+32])
	off += 32
	a.NetAmount = int64(binary.LittleEndian.Uint64(data[off : off+8]))
	off += 8
	a.ExtDataHash = ScalarFromBytes(data[off : off+32])
	return &a, nil
}

// EncodeTransactArgs serializes args back into the 464-byte wire
// payload, the inverse of DecodeTransactArgs.
func EncodeTransactArgs(a *TransactArgs) []byte {
	buf := make([]byte, TransactSize)
	copy(buf[0:8], DiscriminatorTransact[:])
	off := 8
	copy(buf[off:off+64], a.Proof.A[:])
	off += 64
	copy(buf[off:off+128], a.Proof.B[:])
	off += 128
	copy(buf[off:off+64], a.Proof.C[:])
	off += 64
	copy(buf[off:off+32], a.Root[:])
	off += 32
	copy(buf[off:off+32], a.InNul1[:])
	off += 32
	copy(buf[off:off+32], a.InNul2[:])
	off += 32
	copy(buf[off:off+32], a.OutC1[:])
	off += 32
	copy(buf[off:off+32], a.OutC2[:])
	off += 32
	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(a.NetAmount))
	off += 8
	copy(buf[off:off+32], a.ExtDataHash[:])
	return buf
}

// InitializeArgs is the decoded argument set for initialize.
type InitializeArgs struct {
	MaxDepositAmount uint64
	FeeRecipient     Address
}

const InitializeSize = 8 + 8 + 32

func DecodeInitializeArgs(data []byte) (*InitializeArgs, error) {
	if len(data) != InitializeSize {
		return nil, ErrMalformedInstruction
	}
	if [8]byte(data[0:8]) != DiscriminatorInitialize {
		return nil, ErrMalformedInstruction
	}
	return &InitializeArgs{
		MaxDepositAmount: binary.LittleEndian.Uint64(data[8:16]),
		FeeRecipient:     AddressFromBytes(data[16:48]),
	}, nil
}

func EncodeInitializeArgs(a *InitializeArgs) []byte {
	buf := make([]byte, InitializeSize)
	copy(buf[0:8], DiscriminatorInitialize[:])
	binary.LittleEndian.PutUint64(buf[8:16], a.MaxDepositAmount)
	copy(buf[16:48], a.FeeRecipient[:])
	return buf
}

// UpdateConfigArgs is the decoded argument set for update_config.
type UpdateConfigArgs struct {
	DepositFeeRate    uint16
	WithdrawalFeeRate uint16
	FeeErrorMargin    uint16
	FeeRecipient      Address
}

const UpdateConfigSize = 8 + 2 + 2 + 2 + 32

func DecodeUpdateConfigArgs(data []byte) (*UpdateConfigArgs, error) {
	if len(data) != UpdateConfigSize {
		return nil, ErrMalformedInstruction
	}
	if [8]byte(data[0:8]) != DiscriminatorUpdateConfig {
		return nil, ErrMalformedInstruction
	}
	off := 8
	depositRate := binary.LittleEndian.Uint16(data[off : off+2])
	off += 2
	withdrawRate := binary.LittleEndian.Uint16(data[off : off+2])
	off += 2
	margin := binary.LittleEndian.Uint16(data[off : off+2])
	off += 2
	return &UpdateConfigArgs{
		DepositFeeRate:    depositRate,
		WithdrawalFeeRate: withdrawRate,
		FeeErrorMargin:    margin,
		FeeRecipient:      AddressFromBytes(data[off : off+32]),
	}, nil
}

func EncodeUpdateConfigArgs(a *UpdateConfigArgs) []byte {
	buf := make([]byte, UpdateConfigSize)
	copy(buf[0:8], DiscriminatorUpdateConfig[:])
	off := 8
	binary.LittleEndian.PutUint16(buf[off:off+2], a.DepositFeeRate)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:off+2], a.WithdrawalFeeRate)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:off+2], a.FeeErrorMargin)
	off += 2
	copy(buf[off:off+32], a.FeeRecipient[:])
	return buf
}
