package entities

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientStake = errors.New("insufficient stake")
	ErrRoundNotOpen      = errors.New("round not open")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrUpkeepNotReady    = errors.New("upkeep not ready")
	ErrUnknownRequest    = errors.New("unknown randomness request")
	ErrPayoutFailed      = errors.New("payout failed")
	ErrTransferRejected  = errors.New("transfer rejected")
	ErrEmptyRandomWords  = errors.New("no random words delivered")

	// ErrNoPlayers means a draw reached winner selection with an empty
	// ledger. Readiness checks forbid it, so it signals a broken deployment.
	ErrNoPlayers = errors.New("draw resolved with no players")
)

// UpkeepNotReadyError carries the readiness diagnostic of a rejected trigger
type UpkeepNotReadyError struct {
	Diagnostic UpkeepDiagnostic
}

func (e *UpkeepNotReadyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUpkeepNotReady, e.Diagnostic)
}

// Is lets errors.Is match ErrUpkeepNotReady
func (e *UpkeepNotReadyError) Is(target error) bool {
	return target == ErrUpkeepNotReady
}

// PayoutFailedError carries the attempted payout of a failed draw resolution
type PayoutFailedError struct {
	Recipient common.Address
	Amount    *big.Int
	Err       error
}

func (e *PayoutFailedError) Error() string {
	return fmt.Sprintf("%s: paying %s to %s: %v", ErrPayoutFailed, e.Amount, e.Recipient.Hex(), e.Err)
}

// Is lets errors.Is match ErrPayoutFailed
func (e *PayoutFailedError) Is(target error) bool {
	return target == ErrPayoutFailed
}

// Unwrap returns the underlying transfer error
func (e *PayoutFailedError) Unwrap() error {
	return e.Err
}
