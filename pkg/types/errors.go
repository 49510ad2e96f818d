package types

import "errors"

// Code identifies an error kind, letting a client discriminate
// failures without string-matching.
type Code int

const (
	CodeNone Code = iota
	CodeNullifierAlreadyUsed
	CodeCreateNullifierFailed
	CodeUnknownRoot
	CodeInvalidProof
	CodeDepositLimitExceeded
	CodeInsufficientFunds
	CodeTreeFull
	CodeUnauthorized
	CodeTransferFailed
	CodeG1AddFailed
	CodeG1MulFailed
	CodePairingFailed
	CodeArithmeticOverflow
	CodeFieldOverflow
)

// TxError pairs a Code with the sentinel error it wraps, so callers can
// either compare with errors.Is against the sentinel vars below or
// switch on Code().
type TxError struct {
	code Code
	err  error
}

func (e *TxError) Error() string { return e.err.Error() }
func (e *TxError) Unwrap() error { return e.err }
func (e *TxError) Code() Code    { return e.code }

func newTxError(code Code, err error) *TxError {
	return &TxError{code: code, err: err}
}

// Sentinel errors, one per error code: plain errors.New, package-level
// vars.
var (
	ErrNullifierAlreadyUsed  = errors.New("nullifier already used")
	ErrCreateNullifierFailed = errors.New("create nullifier failed")
	ErrUnknownRoot           = errors.New("unknown root")
	ErrInvalidProof          = errors.New("invalid proof")
	ErrDepositLimitExceeded  = errors.New("deposit limit exceeded")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrTreeFull              = errors.New("merkle tree is full")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrTransferFailed        = errors.New("transfer failed")
	ErrG1AddFailed           = errors.New("g1 add failed")
	ErrG1MulFailed           = errors.New("g1 mul failed")
	ErrPairingFailed         = errors.New("pairing failed")
	ErrArithmeticOverflow    = errors.New("arithmetic overflow")
	ErrFieldOverflow         = errors.New("field overflow")
)

var codeOf = map[error]Code{
	ErrNullifierAlreadyUsed:  CodeNullifierAlreadyUsed,
	ErrCreateNullifierFailed: CodeCreateNullifierFailed,
	ErrUnknownRoot:           CodeUnknownRoot,
	ErrInvalidProof:          CodeInvalidProof,
	ErrDepositLimitExceeded:  CodeDepositLimitExceeded,
	ErrInsufficientFunds:     CodeInsufficientFunds,
	ErrTreeFull:              CodeTreeFull,
	ErrUnauthorized:          CodeUnauthorized,
	ErrTransferFailed:        CodeTransferFailed,
	ErrG1AddFailed:           CodeG1AddFailed,
	ErrG1MulFailed:           CodeG1MulFailed,
	ErrPairingFailed:         CodePairingFailed,
	ErrArithmeticOverflow:    CodeArithmeticOverflow,
	ErrFieldOverflow:         CodeFieldOverflow,
}

// AsTxError wraps a sentinel from this package into a *TxError carrying
// its Code. Errors not in the taxonomy pass through as CodeNone.
func AsTxError(err error) *TxError {
	if err == nil {
		return nil
	}
	if code, ok := codeOf[err]; ok {
		return newTxError(code, err)
	}
	return newTxError(CodeNone, err)
}
