package gormstore

import (
	"context"
	"fmt"

	"happyfool/database"
	"happyfool/domain/events"
	"happyfool/domain/interfaces"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// unitOfWork implements the UnitOfWork interface on a gorm transaction
type unitOfWork struct {
	db                     *gorm.DB
	tx                     *gorm.DB
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	accountRepo            interfaces.AccountRepository
	transactionRepo        interfaces.TransactionRepository
	commandRepo            interfaces.CommandRepository
}

// UnitOfWorkFactory creates SQLite backed units of work
type UnitOfWorkFactory struct {
	db *gorm.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.SQLiteDB) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db.DB}
}

// Create creates a UnitOfWork whose events are dropped on commit
func (f *UnitOfWorkFactory) Create() interfaces.UnitOfWork {
	return f.CreateWithPublisher(nil)
}

// CreateWithPublisher creates a new UnitOfWork with a specific transactional publisher
func (f *UnitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) interfaces.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	u.tx = tx
	u.ctx = ctx

	u.accountRepo = newAccountRepository(tx)
	u.transactionRepo = newTransactionRepository(tx)
	u.commandRepo = newCommandRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit().Error; err != nil {
		u.tx = nil
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Warn("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback().Error
	u.tx = nil

	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	if err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// TransactionRepository returns the ledger repository for this unit of work
func (u *unitOfWork) TransactionRepository() interfaces.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

// CommandRepository returns the command repository for this unit of work
func (u *unitOfWork) CommandRepository() interfaces.CommandRepository {
	if u.commandRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.commandRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	if u.transactionalPublisher == nil {
		return discardPublisher{}
	}
	return u.transactionalPublisher
}

type discardPublisher struct{}

func (discardPublisher) Publish(events.Event) error { return nil }
