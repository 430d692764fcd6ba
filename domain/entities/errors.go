package entities

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors. Every one of them is turned into exactly one chat response.
var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrDuplicateCommand    = errors.New("command already exists")
	ErrNotFound            = errors.New("not found")
	ErrOnCooldown          = errors.New("command on cooldown")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidStake        = errors.New("invalid stake")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrIdempotencyConflict = errors.New("source id already used by another account")
	ErrVersionConflict     = errors.New("account version changed concurrently")
	ErrInvalidCommand      = errors.New("invalid command definition")
	ErrBalanceOverflow     = errors.New("balance would overflow")
)

// InsufficientFundsError carries the balance that was too small
type InsufficientFundsError struct {
	AccountID string
	Balance   int64
	Required  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for %s: have %d, need %d", e.AccountID, e.Balance, e.Required)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// CooldownError carries the time left before a command may run again
type CooldownError struct {
	Command   string
	Channel   string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("command %s on cooldown in %s for %s", e.Command, e.Channel, e.Remaining)
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrOnCooldown
}

// InvalidStakeError explains why a stake was rejected
type InvalidStakeError struct {
	Stake   int64
	Minimum int64
	Balance int64
	Reason  string
}

func (e *InvalidStakeError) Error() string {
	return fmt.Sprintf("invalid stake %d: %s", e.Stake, e.Reason)
}

func (e *InvalidStakeError) Is(target error) bool {
	return target == ErrInvalidStake
}

// PermissionError names the role a command required
type PermissionError struct {
	Command  string
	Required Role
	Actual   Role
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s requires %s, caller is %s", e.Command, e.Required, e.Actual)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// StorageError marks err as a storage failure while keeping it inspectable
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
