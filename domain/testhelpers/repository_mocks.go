package testhelpers

import (
	"context"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/events"
	"happyfool/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetForUpdate(ctx context.Context, id string) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByLogin(ctx context.Context, login string) (*entities.Account, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, id, login string, seenAt time.Time) (*entities.Account, error) {
	args := m.Called(ctx, id, login, seenAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) Touch(ctx context.Context, id, login string, seenAt time.Time) error {
	args := m.Called(ctx, id, login, seenAt)
	return args.Error(0)
}

func (m *MockAccountRepository) ApplyChange(ctx context.Context, id string, newBalance, addMinutes, expectedVersion int64) error {
	args := m.Called(ctx, id, newBalance, addMinutes, expectedVersion)
	return args.Error(0)
}

func (m *MockAccountRepository) ListSeenSince(ctx context.Context, since time.Time) ([]*entities.Account, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Account), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Append(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCommandRepository is a mock implementation of CommandRepository
type MockCommandRepository struct {
	mock.Mock
}

func (m *MockCommandRepository) GetLive(ctx context.Context, name string) (*entities.CommandDefinition, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CommandDefinition), args.Error(1)
}

func (m *MockCommandRepository) Create(ctx context.Context, def *entities.CommandDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *MockCommandRepository) Update(ctx context.Context, def *entities.CommandDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *MockCommandRepository) Tombstone(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockCommandRepository) ListLive(ctx context.Context) ([]*entities.CommandDefinition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CommandDefinition), args.Error(1)
}

func (m *MockCommandRepository) TryAcquireCooldown(ctx context.Context, commandID int64, channel string, now time.Time, cooldown time.Duration) (bool, time.Time, error) {
	args := m.Called(ctx, commandID, channel, now, cooldown)
	return args.Bool(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockCommandRepository) IncrementUsage(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTransactionalPublisher is a mock implementation of TransactionalEventPublisher
type MockTransactionalPublisher struct {
	mock.Mock
}

func (m *MockTransactionalPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockTransactionalPublisher) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransactionalPublisher) Discard() {
	m.Called()
}

// MockUnitOfWork is a mock implementation of UnitOfWork whose repository
// getters return the embedded mocks
type MockUnitOfWork struct {
	mock.Mock
	Accounts     *MockAccountRepository
	Transactions *MockTransactionRepository
	Commands     *MockCommandRepository
	Events       *MockEventPublisher
}

// NewMockUnitOfWork creates a MockUnitOfWork with fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Accounts:     new(MockAccountRepository),
		Transactions: new(MockTransactionRepository),
		Commands:     new(MockCommandRepository),
		Events:       new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() interfaces.AccountRepository {
	return m.Accounts
}

func (m *MockUnitOfWork) TransactionRepository() interfaces.TransactionRepository {
	return m.Transactions
}

func (m *MockUnitOfWork) CommandRepository() interfaces.CommandRepository {
	return m.Commands
}

func (m *MockUnitOfWork) EventBus() interfaces.EventPublisher {
	return m.Events
}

// MockUnitOfWorkFactory always hands out the same MockUnitOfWork
type MockUnitOfWorkFactory struct {
	UnitOfWork *MockUnitOfWork
}

func (f *MockUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	return f.UnitOfWork
}
