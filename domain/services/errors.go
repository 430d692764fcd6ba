package services

import (
	"errors"

	"happyfool/domain/entities"
)

var domainErrors = []error{
	entities.ErrInsufficientFunds,
	entities.ErrDuplicateCommand,
	entities.ErrNotFound,
	entities.ErrOnCooldown,
	entities.ErrPermissionDenied,
	entities.ErrInvalidStake,
	entities.ErrIdempotencyConflict,
	entities.ErrInvalidCommand,
}

// isDomainError reports whether err is one of the user-facing domain errors
// rather than an infrastructure failure
func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether err is a storage failure worth retrying
func IsRetryable(err error) bool {
	return errors.Is(err, entities.ErrStorageUnavailable) && !isDomainError(err)
}
