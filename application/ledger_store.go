package application

import (
	"context"
	"fmt"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/interfaces"
	"happyfool/domain/services"
	"happyfool/domain/utils"

	log "github.com/sirupsen/logrus"
)

// LedgerStore owns accounts and their transaction log. Every mutation runs in
// its own unit of work under a per-account lock; reads take no lock.
type LedgerStore struct {
	uowFactory      interfaces.UnitOfWorkFactory
	locks           *utils.KeyedMutex
	startingBalance int64
	metrics         interfaces.MetricsRecorder
}

// NewLedgerStore creates a new ledger store
func NewLedgerStore(uowFactory interfaces.UnitOfWorkFactory, startingBalance int64, metrics interfaces.MetricsRecorder) *LedgerStore {
	return &LedgerStore{
		uowFactory:      uowFactory,
		locks:           utils.NewKeyedMutex(),
		startingBalance: startingBalance,
		metrics:         metricsOrNoop(metrics),
	}
}

// withUnitOfWork runs fn in a fresh unit of work and commits if fn succeeds
func (s *LedgerStore) withUnitOfWork(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	return runInUnitOfWork(ctx, s.uowFactory, fn)
}

// readOnly runs fn in a unit of work that is always rolled back
func (s *LedgerStore) readOnly(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return entities.StorageError("begin", err)
	}
	defer uow.Rollback()

	return fn(uow)
}

// Mutate applies plan to the account under its lock. A sourceID that was
// already applied returns the recorded transaction instead.
func (s *LedgerStore) Mutate(ctx context.Context, accountID, sourceID string, plan services.MutationPlan) (*services.MutationResult, error) {
	unlock, err := s.locks.Lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *services.MutationResult
	err = s.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		ledger := services.NewLedgerService(uow.AccountRepository(), uow.TransactionRepository(), uow.EventBus())
		r, err := ledger.Apply(ctx, accountID, sourceID, plan)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Transaction != nil && !result.Replayed {
		s.metrics.RecordLedgerTransaction(string(result.Transaction.Reason))
	}
	return result, nil
}

// Credit adds amount to the account
func (s *LedgerStore) Credit(ctx context.Context, accountID string, amount int64, reason entities.Reason, sourceID string) (*services.MutationResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return s.Mutate(ctx, accountID, sourceID, func(*entities.Account) (*services.Mutation, error) {
		return &services.Mutation{Delta: amount, Reason: reason}, nil
	})
}

// Debit removes amount from the account. It fails with an
// InsufficientFundsError, leaving the account untouched, when amount exceeds
// the balance.
func (s *LedgerStore) Debit(ctx context.Context, accountID string, amount int64, reason entities.Reason, sourceID string) (*services.MutationResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	return s.Mutate(ctx, accountID, sourceID, func(*entities.Account) (*services.Mutation, error) {
		return &services.Mutation{Delta: -amount, Reason: reason}, nil
	})
}

// EnsureAccount creates the account on first sight, granting the starting
// balance, or refreshes its login and last seen time
func (s *LedgerStore) EnsureAccount(ctx context.Context, id, login string, seenAt time.Time) (*entities.Account, bool, error) {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	var account *entities.Account
	var created bool
	err = s.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		ledger := services.NewLedgerService(uow.AccountRepository(), uow.TransactionRepository(), uow.EventBus())
		a, c, err := ledger.EnsureAccount(ctx, id, login, seenAt, s.startingBalance)
		if err != nil {
			return err
		}
		account, created = a, c
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created && s.startingBalance > 0 {
		s.metrics.RecordLedgerTransaction(string(entities.ReasonInitial))
	}
	return account, created, nil
}

// Balance returns the latest committed account state without taking the lock
func (s *LedgerStore) Balance(ctx context.Context, accountID string) (*entities.Account, error) {
	var account *entities.Account
	err := s.readOnly(ctx, func(uow interfaces.UnitOfWork) error {
		a, err := uow.AccountRepository().GetByID(ctx, accountID)
		if err != nil {
			return entities.StorageError("get account", err)
		}
		if a == nil {
			return fmt.Errorf("account %s: %w", accountID, entities.ErrNotFound)
		}
		account = a
		return nil
	})
	return account, err
}

// FindByLogin returns the account currently using a display name
func (s *LedgerStore) FindByLogin(ctx context.Context, login string) (*entities.Account, error) {
	var account *entities.Account
	err := s.readOnly(ctx, func(uow interfaces.UnitOfWork) error {
		a, err := uow.AccountRepository().GetByLogin(ctx, login)
		if err != nil {
			return entities.StorageError("get account by login", err)
		}
		if a == nil {
			return fmt.Errorf("user %s: %w", login, entities.ErrNotFound)
		}
		account = a
		return nil
	})
	return account, err
}

// ActiveSince returns the accounts seen at or after since
func (s *LedgerStore) ActiveSince(ctx context.Context, since time.Time) ([]*entities.Account, error) {
	var accounts []*entities.Account
	err := s.readOnly(ctx, func(uow interfaces.UnitOfWork) error {
		a, err := uow.AccountRepository().ListSeenSince(ctx, since)
		if err != nil {
			return entities.StorageError("list active accounts", err)
		}
		accounts = a
		return nil
	})
	return accounts, err
}

// History returns the newest transactions of an account
func (s *LedgerStore) History(ctx context.Context, accountID string, limit int) ([]*entities.Transaction, error) {
	var txs []*entities.Transaction
	err := s.readOnly(ctx, func(uow interfaces.UnitOfWork) error {
		t, err := uow.TransactionRepository().ListByAccount(ctx, accountID, limit)
		if err != nil {
			return entities.StorageError("list transactions", err)
		}
		txs = t
		return nil
	})
	return txs, err
}

// Audit compares the account balance with the sum of its transactions
func (s *LedgerStore) Audit(ctx context.Context, accountID string) (*services.AuditReport, error) {
	var report *services.AuditReport
	err := s.readOnly(ctx, func(uow interfaces.UnitOfWork) error {
		ledger := services.NewLedgerService(uow.AccountRepository(), uow.TransactionRepository(), uow.EventBus())
		r, err := ledger.Audit(ctx, accountID)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err == nil && !report.Consistent {
		log.WithFields(log.Fields{
			"accountID": accountID,
			"balance":   report.Balance,
			"ledgerSum": report.LedgerSum,
		}).Error("Account balance does not match its ledger")
	}
	return report, err
}

// runInUnitOfWork begins a unit of work, runs fn and commits. Any error rolls
// the whole unit back.
func runInUnitOfWork(ctx context.Context, factory interfaces.UnitOfWorkFactory, fn func(uow interfaces.UnitOfWork) error) error {
	uow := factory.Create()
	if err := uow.Begin(ctx); err != nil {
		return entities.StorageError("begin", err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return entities.StorageError("commit", err)
	}
	return nil
}
