package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/events"
	"happyfool/domain/interfaces"
	"happyfool/domain/utils"

	log "github.com/sirupsen/logrus"
)

// Mutation is one balance change produced by a MutationPlan
type Mutation struct {
	Delta    int64
	Reason   entities.Reason
	Metadata map[string]any
	// Minutes of watch time credited together with the change
	Minutes int64
	// Events are published on the unit of work bus after the transaction is recorded
	Events []events.Event
}

// MutationPlan decides a change from the locked account state. Returning a
// nil mutation means there is nothing to do.
type MutationPlan func(account *entities.Account) (*Mutation, error)

// MutationResult describes the state after Apply
type MutationResult struct {
	Account *entities.Account
	// Transaction is nil when the plan was a no-op
	Transaction *entities.Transaction
	// Replayed is true if the source id had already been applied
	Replayed bool
}

// AuditReport compares an account balance with its ledger
type AuditReport struct {
	AccountID  string
	Balance    int64
	LedgerSum  int64
	Consistent bool
}

// LedgerService applies balance changes inside one unit of work. It relies
// on the caller for locking and transaction boundaries.
type LedgerService struct {
	accountRepo    interfaces.AccountRepository
	txRepo         interfaces.TransactionRepository
	eventPublisher interfaces.EventPublisher
	now            func() time.Time
}

// NewLedgerService creates a new ledger service bound to unit of work repositories
func NewLedgerService(accountRepo interfaces.AccountRepository, txRepo interfaces.TransactionRepository, eventPublisher interfaces.EventPublisher) *LedgerService {
	return &LedgerService{
		accountRepo:    accountRepo,
		txRepo:         txRepo,
		eventPublisher: eventPublisher,
		now:            time.Now,
	}
}

// Apply runs plan against the locked account and records the result.
// A source id that was already applied returns the recorded transaction
// without running the plan again.
func (s *LedgerService) Apply(ctx context.Context, accountID, sourceID string, plan MutationPlan) (*MutationResult, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("source id is required")
	}

	account, err := s.accountRepo.GetForUpdate(ctx, accountID)
	if err != nil {
		return nil, entities.StorageError("lock account", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, entities.ErrNotFound)
	}

	existing, err := s.txRepo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, entities.StorageError("lookup transaction", err)
	}
	if existing != nil {
		if existing.AccountID != accountID {
			return nil, fmt.Errorf("source %s: %w", sourceID, entities.ErrIdempotencyConflict)
		}
		log.WithFields(log.Fields{
			"accountID": accountID,
			"sourceID":  sourceID,
		}).Debug("Source already applied, returning recorded transaction")
		return &MutationResult{Account: account, Transaction: existing, Replayed: true}, nil
	}

	mutation, err := plan(account)
	if err != nil {
		return nil, err
	}
	if mutation == nil || mutation.Delta == 0 {
		return &MutationResult{Account: account}, nil
	}
	if !mutation.Reason.IsValid() {
		return nil, fmt.Errorf("invalid transaction reason %q", mutation.Reason)
	}
	if mutation.Minutes < 0 {
		return nil, fmt.Errorf("watch minutes cannot be negative")
	}

	if mutation.Delta > 0 && account.Balance > math.MaxInt64-mutation.Delta {
		return nil, fmt.Errorf("%w: %s has %d, adding %d", entities.ErrBalanceOverflow, accountID, account.Balance, mutation.Delta)
	}
	newBalance := account.Balance + mutation.Delta
	if newBalance < 0 {
		return nil, &entities.InsufficientFundsError{
			AccountID: accountID,
			Balance:   account.Balance,
			Required:  -mutation.Delta,
		}
	}

	if err := s.accountRepo.ApplyChange(ctx, accountID, newBalance, mutation.Minutes, account.Version); err != nil {
		return nil, entities.StorageError("apply balance change", err)
	}

	tx := &entities.Transaction{
		ID:               sourceID,
		AccountID:        accountID,
		Delta:            mutation.Delta,
		Reason:           mutation.Reason,
		ResultingBalance: newBalance,
		Metadata:         mutation.Metadata,
		CreatedAt:        s.now().UTC(),
	}
	if tx.Metadata == nil {
		tx.Metadata = map[string]any{}
	}

	if err := utils.RecordTransaction(ctx, s.txRepo, s.eventPublisher, tx); err != nil {
		if errors.Is(err, entities.ErrIdempotencyConflict) {
			return nil, err
		}
		return nil, entities.StorageError("record transaction", err)
	}

	for _, event := range mutation.Events {
		if err := s.eventPublisher.Publish(event); err != nil {
			log.WithError(err).WithField("eventType", event.Type()).Error("Failed to publish mutation event")
		}
	}

	updated := *account
	updated.Balance = newBalance
	updated.Version++
	updated.MinutesWatched += mutation.Minutes

	log.WithFields(log.Fields{
		"accountID":  accountID,
		"sourceID":   sourceID,
		"delta":      mutation.Delta,
		"reason":     mutation.Reason,
		"newBalance": newBalance,
	}).Debug("Applied ledger mutation")

	return &MutationResult{Account: &updated, Transaction: tx}, nil
}

// EnsureAccount creates the account on first sight or refreshes its login and
// last seen time. A positive starting balance is granted as an initial
// transaction. The bool result is true when the account was created.
func (s *LedgerService) EnsureAccount(ctx context.Context, id, login string, seenAt time.Time, startingBalance int64) (*entities.Account, bool, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, false, entities.StorageError("get account", err)
	}
	if account != nil {
		if err := s.accountRepo.Touch(ctx, id, login, seenAt); err != nil {
			return nil, false, entities.StorageError("touch account", err)
		}
		account.Login = login
		account.LastSeenAt = seenAt
		return account, false, nil
	}

	account, err = s.accountRepo.Create(ctx, id, login, seenAt)
	if err != nil {
		return nil, false, entities.StorageError("create account", err)
	}
	if account == nil {
		// Created concurrently by another process
		if err := s.accountRepo.Touch(ctx, id, login, seenAt); err != nil {
			return nil, false, entities.StorageError("touch account", err)
		}
		account, err = s.accountRepo.GetByID(ctx, id)
		if err != nil {
			return nil, false, entities.StorageError("get account", err)
		}
		return account, false, nil
	}

	if err := s.eventPublisher.Publish(events.AccountCreatedEvent{
		AccountID:      id,
		Login:          login,
		InitialBalance: startingBalance,
	}); err != nil {
		log.WithError(err).Error("Failed to publish account created event")
	}

	if startingBalance > 0 {
		result, err := s.Apply(ctx, id, InitialSourceID(id), func(*entities.Account) (*Mutation, error) {
			return &Mutation{
				Delta:    startingBalance,
				Reason:   entities.ReasonInitial,
				Metadata: map[string]any{"login": login},
			}, nil
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to grant starting balance: %w", err)
		}
		account = result.Account
	}

	log.WithFields(log.Fields{
		"accountID": id,
		"login":     login,
		"balance":   account.Balance,
	}).Info("Created account")

	return account, true, nil
}

// Audit checks that the balance equals the sum of recorded deltas
func (s *LedgerService) Audit(ctx context.Context, accountID string) (*AuditReport, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, entities.StorageError("get account", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, entities.ErrNotFound)
	}

	sum, err := s.txRepo.SumByAccount(ctx, accountID)
	if err != nil {
		return nil, entities.StorageError("sum transactions", err)
	}

	return &AuditReport{
		AccountID:  accountID,
		Balance:    account.Balance,
		LedgerSum:  sum,
		Consistent: sum == account.Balance,
	}, nil
}

// InitialSourceID is the idempotence key of an account's starting balance
func InitialSourceID(accountID string) string {
	return "initial:" + accountID
}

// AccrualSourceID is the idempotence key of one accrual tick for one account
func AccrualSourceID(tick int64, accountID string) string {
	return fmt.Sprintf("accrual:%d:%s", tick, accountID)
}
