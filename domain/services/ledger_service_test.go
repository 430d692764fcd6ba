package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newLedgerUnderTest(m *TestMocks) *LedgerService {
	s := NewLedgerService(m.AccountRepo, m.TransactionRepo, m.EventPublisher)
	s.now = func() time.Time { return TestNow }
	return s
}

func TestLedgerService_Apply_Debit(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(newTestAccount(100, 3), nil)
	mocks.TransactionRepo.On("GetByID", ctx, TestSourceID).Return(nil, nil)
	mocks.AccountRepo.On("ApplyChange", ctx, TestAccountID, int64(50), int64(0), int64(3)).Return(nil)
	mocks.TransactionRepo.On("Append", ctx, mock.MatchedBy(func(tx *entities.Transaction) bool {
		return tx.ID == TestSourceID &&
			tx.AccountID == TestAccountID &&
			tx.Delta == -50 &&
			tx.ResultingBalance == 50 &&
			tx.Reason == entities.ReasonGambleStake &&
			tx.CreatedAt.Equal(TestNow)
	})).Return(nil)
	mocks.EventPublisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil)

	result, err := service.Apply(ctx, TestAccountID, TestSourceID, debitPlan(50, entities.ReasonGambleStake))
	require.NoError(t, err)

	assert.False(t, result.Replayed)
	assert.Equal(t, int64(50), result.Account.Balance)
	assert.Equal(t, int64(4), result.Account.Version)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, int64(-50), result.Transaction.Delta)

	mocks.AssertAllExpectations(t)
}

func TestLedgerService_Apply_ReplayReturnsRecordedTransaction(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	recorded := &entities.Transaction{ID: TestSourceID, AccountID: TestAccountID, Delta: -50, ResultingBalance: 50, Reason: entities.ReasonGambleStake}
	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(newTestAccount(50, 4), nil)
	mocks.TransactionRepo.On("GetByID", ctx, TestSourceID).Return(recorded, nil)

	planCalled := false
	result, err := service.Apply(ctx, TestAccountID, TestSourceID, func(*entities.Account) (*Mutation, error) {
		planCalled = true
		return &Mutation{Delta: -50, Reason: entities.ReasonGambleStake}, nil
	})
	require.NoError(t, err)

	assert.True(t, result.Replayed)
	assert.False(t, planCalled)
	assert.Same(t, recorded, result.Transaction)
	mocks.AccountRepo.AssertNotCalled(t, "ApplyChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mocks.TransactionRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestLedgerService_Apply_SourceUsedByOtherAccount(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(newTestAccount(100, 0), nil)
	mocks.TransactionRepo.On("GetByID", ctx, TestSourceID).Return(&entities.Transaction{ID: TestSourceID, AccountID: "someone-else"}, nil)

	_, err := service.Apply(ctx, TestAccountID, TestSourceID, debitPlan(10, entities.ReasonCommandCost))
	assert.ErrorIs(t, err, entities.ErrIdempotencyConflict)
}

func TestLedgerService_Apply_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(newTestAccount(100, 0), nil)
	mocks.TransactionRepo.On("GetByID", ctx, TestSourceID).Return(nil, nil)

	_, err := service.Apply(ctx, TestAccountID, TestSourceID, debitPlan(150, entities.ReasonCommandCost))
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrInsufficientFunds)

	var insufficient *entities.InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(100), insufficient.Balance)
	assert.Equal(t, int64(150), insufficient.Required)

	mocks.AccountRepo.AssertNotCalled(t, "ApplyChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mocks.TransactionRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestLedgerService_Apply_CreditOverflow(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(newTestAccount(100, 0), nil)
	mocks.TransactionRepo.On("GetByID", ctx, TestSourceID).Return(nil, nil)

	plan := func(*entities.Account) (*Mutation, error) {
		return &Mutation{Delta: math.MaxInt64, Reason: entities.ReasonAdminAdjust}, nil
	}
	_, err := service.Apply(ctx, TestAccountID, TestSourceID, plan)
	assert.ErrorIs(t, err, entities.ErrBalanceOverflow)
	assert.NotErrorIs(t, err, entities.ErrInsufficientFunds)
	assert.False(t, IsRetryable(err))

	mocks.AccountRepo.AssertNotCalled(t, "ApplyChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mocks.TransactionRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestLedgerService_Apply_StorageFailure(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(newTestAccount(100, 0), nil)
	mocks.TransactionRepo.On("GetByID", ctx, TestSourceID).Return(nil, nil)
	mocks.AccountRepo.On("ApplyChange", ctx, TestAccountID, int64(90), int64(0), int64(0)).Return(errors.New("connection reset"))

	_, err := service.Apply(ctx, TestAccountID, TestSourceID, debitPlan(10, entities.ReasonCommandCost))
	assert.ErrorIs(t, err, entities.ErrStorageUnavailable)
	assert.True(t, IsRetryable(err))
}

func TestLedgerService_Apply_VersionConflictIsRetryable(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(newTestAccount(100, 2), nil)
	mocks.TransactionRepo.On("GetByID", ctx, TestSourceID).Return(nil, nil)
	mocks.AccountRepo.On("ApplyChange", ctx, TestAccountID, int64(110), int64(0), int64(2)).Return(entities.ErrVersionConflict)

	_, err := service.Apply(ctx, TestAccountID, TestSourceID, func(*entities.Account) (*Mutation, error) {
		return &Mutation{Delta: 10, Reason: entities.ReasonAdminAdjust}, nil
	})
	assert.ErrorIs(t, err, entities.ErrVersionConflict)
	assert.True(t, IsRetryable(err))
}

func TestLedgerService_Apply_NoOpPlan(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(newTestAccount(0, 0), nil)
	mocks.TransactionRepo.On("GetByID", ctx, TestSourceID).Return(nil, nil)

	result, err := service.Apply(ctx, TestAccountID, TestSourceID, func(*entities.Account) (*Mutation, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, result.Transaction)
	assert.Equal(t, int64(0), result.Account.Balance)
}

func TestLedgerService_Apply_AccountMissing(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(nil, nil)

	_, err := service.Apply(ctx, TestAccountID, TestSourceID, debitPlan(10, entities.ReasonCommandCost))
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestLedgerService_Apply_PlanErrorPassesThrough(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(newTestAccount(10, 0), nil)
	mocks.TransactionRepo.On("GetByID", ctx, TestSourceID).Return(nil, nil)

	_, err := service.Apply(ctx, TestAccountID, TestSourceID, func(*entities.Account) (*Mutation, error) {
		return nil, &entities.InvalidStakeError{Stake: 50, Reason: "more than balance"}
	})
	assert.ErrorIs(t, err, entities.ErrInvalidStake)
	assert.False(t, IsRetryable(err))
}

func TestLedgerService_EnsureAccount_CreatesWithStartingBalance(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	created := newTestAccount(0, 0)
	mocks.AccountRepo.On("GetByID", ctx, TestAccountID).Return(nil, nil)
	mocks.AccountRepo.On("Create", ctx, TestAccountID, TestLogin, TestNow).Return(created, nil)
	mocks.EventPublisher.On("Publish", mock.MatchedBy(func(e events.AccountCreatedEvent) bool {
		return e.AccountID == TestAccountID && e.InitialBalance == 100
	})).Return(nil)
	mocks.AccountRepo.On("GetForUpdate", ctx, TestAccountID).Return(created, nil)
	mocks.TransactionRepo.On("GetByID", ctx, InitialSourceID(TestAccountID)).Return(nil, nil)
	mocks.AccountRepo.On("ApplyChange", ctx, TestAccountID, int64(100), int64(0), int64(0)).Return(nil)
	mocks.TransactionRepo.On("Append", ctx, mock.MatchedBy(func(tx *entities.Transaction) bool {
		return tx.Reason == entities.ReasonInitial && tx.Delta == 100
	})).Return(nil)
	mocks.EventPublisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil)

	account, wasCreated, err := service.EnsureAccount(ctx, TestAccountID, TestLogin, TestNow, 100)
	require.NoError(t, err)

	assert.True(t, wasCreated)
	assert.Equal(t, int64(100), account.Balance)
	mocks.AssertAllExpectations(t)
}

func TestLedgerService_EnsureAccount_TouchesExisting(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetByID", ctx, TestAccountID).Return(newTestAccount(40, 1), nil)
	mocks.AccountRepo.On("Touch", ctx, TestAccountID, "Alice", TestNow).Return(nil)

	account, wasCreated, err := service.EnsureAccount(ctx, TestAccountID, "Alice", TestNow, 100)
	require.NoError(t, err)

	assert.False(t, wasCreated)
	assert.Equal(t, "Alice", account.Login)
	assert.Equal(t, int64(40), account.Balance)
	mocks.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestLedgerService_Audit(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newLedgerUnderTest(mocks)

	mocks.AccountRepo.On("GetByID", ctx, TestAccountID).Return(newTestAccount(70, 5), nil)
	mocks.TransactionRepo.On("SumByAccount", ctx, TestAccountID).Return(int64(70), nil)

	report, err := service.Audit(ctx, TestAccountID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, int64(70), report.LedgerSum)
}

func TestSourceIDs(t *testing.T) {
	assert.Equal(t, "initial:1001", InitialSourceID("1001"))
	assert.Equal(t, "accrual:1714564800:1001", AccrualSourceID(1714564800, "1001"))
}
