package application

import (
	"context"
	"fmt"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/interfaces"
	"happyfool/domain/services"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const defaultRetryInterval = 200 * time.Millisecond

// MutationRequest is one ledger change requested by a handler or worker
type MutationRequest struct {
	AccountID string
	SourceID  string
	Plan      services.MutationPlan
}

// TransactionExecutor applies ledger mutations atomically. A request is only
// abandoned if its context is already done when it arrives; once started it
// runs to completion.
type TransactionExecutor struct {
	ledger        *LedgerStore
	metrics       interfaces.MetricsRecorder
	retryInterval time.Duration
}

// NewTransactionExecutor creates a new executor on top of the ledger store
func NewTransactionExecutor(ledger *LedgerStore, metrics interfaces.MetricsRecorder) *TransactionExecutor {
	return &TransactionExecutor{
		ledger:        ledger,
		metrics:       metricsOrNoop(metrics),
		retryInterval: defaultRetryInterval,
	}
}

// Execute applies the request, retrying once with backoff if storage was unavailable
func (e *TransactionExecutor) Execute(ctx context.Context, req MutationRequest) (*services.MutationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("mutation %s abandoned: %w", req.SourceID, err)
	}
	ctx = context.WithoutCancel(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryInterval

	start := time.Now()
	attempt := 0
	var result *services.MutationResult

	operation := func() error {
		attempt++
		r, err := e.ledger.Mutate(ctx, req.AccountID, req.SourceID, req.Plan)
		if err != nil {
			if services.IsRetryable(err) {
				log.WithFields(log.Fields{
					"accountID": req.AccountID,
					"sourceID":  req.SourceID,
					"attempt":   attempt,
				}).WithError(err).Warn("Ledger mutation failed on storage")
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}

	err := backoff.Retry(operation, backoff.WithMaxRetries(b, 1))
	e.metrics.RecordMutation(mutationOutcome(result, err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Credit adds amount with the given reason
func (e *TransactionExecutor) Credit(ctx context.Context, accountID string, amount int64, reason entities.Reason, sourceID string, metadata map[string]any) (*services.MutationResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return e.Execute(ctx, MutationRequest{
		AccountID: accountID,
		SourceID:  sourceID,
		Plan: func(*entities.Account) (*services.Mutation, error) {
			return &services.Mutation{Delta: amount, Reason: reason, Metadata: metadata}, nil
		},
	})
}

// Debit removes amount with the given reason. Fails with
// InsufficientFundsError when the balance is too small.
func (e *TransactionExecutor) Debit(ctx context.Context, accountID string, amount int64, reason entities.Reason, sourceID string, metadata map[string]any) (*services.MutationResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	return e.Execute(ctx, MutationRequest{
		AccountID: accountID,
		SourceID:  sourceID,
		Plan: func(*entities.Account) (*services.Mutation, error) {
			return &services.Mutation{Delta: -amount, Reason: reason, Metadata: metadata}, nil
		},
	})
}

// DebitClamped removes up to amount, never taking the balance below zero.
// Nothing is recorded when the balance is already zero.
func (e *TransactionExecutor) DebitClamped(ctx context.Context, accountID string, amount int64, reason entities.Reason, sourceID string, metadata map[string]any) (*services.MutationResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	return e.Execute(ctx, MutationRequest{
		AccountID: accountID,
		SourceID:  sourceID,
		Plan: func(account *entities.Account) (*services.Mutation, error) {
			taken := min(amount, account.Balance)
			if taken == 0 {
				return nil, nil
			}
			meta := map[string]any{"requested": amount}
			for k, v := range metadata {
				meta[k] = v
			}
			return &services.Mutation{Delta: -taken, Reason: reason, Metadata: meta}, nil
		},
	})
}

func mutationOutcome(result *services.MutationResult, err error) string {
	switch {
	case err != nil && services.IsRetryable(err):
		return "storage_error"
	case err != nil:
		return "rejected"
	case result.Replayed:
		return "replayed"
	case result.Transaction == nil:
		return "noop"
	default:
		return "applied"
	}
}
