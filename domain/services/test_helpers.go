package services

import (
	"testing"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/testhelpers"
)

// Test constants for consistent test data
const (
	TestAccountID = "1001"
	TestLogin     = "alice"
	TestSourceID  = "msg-1"
	TestChannel   = "#happyfool"
)

var TestNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// TestMocks aggregates all repository mocks for testing
type TestMocks struct {
	AccountRepo     *testhelpers.MockAccountRepository
	TransactionRepo *testhelpers.MockTransactionRepository
	CommandRepo     *testhelpers.MockCommandRepository
	EventPublisher  *testhelpers.MockEventPublisher
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		AccountRepo:     &testhelpers.MockAccountRepository{},
		TransactionRepo: &testhelpers.MockTransactionRepository{},
		CommandRepo:     &testhelpers.MockCommandRepository{},
		EventPublisher:  &testhelpers.MockEventPublisher{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.AccountRepo.AssertExpectations(t)
	m.TransactionRepo.AssertExpectations(t)
	m.CommandRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// newTestAccount returns an account with the given balance and version
func newTestAccount(balance, version int64) *entities.Account {
	return &entities.Account{
		ID:         TestAccountID,
		Login:      TestLogin,
		Balance:    balance,
		Version:    version,
		LastSeenAt: TestNow,
		CreatedAt:  TestNow,
		UpdatedAt:  TestNow,
	}
}

func debitPlan(amount int64, reason entities.Reason) MutationPlan {
	return func(*entities.Account) (*Mutation, error) {
		return &Mutation{Delta: -amount, Reason: reason}, nil
	}
}
