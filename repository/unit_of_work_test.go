package repository

import (
	"context"
	"testing"
	"time"

	"happyfool/domain/events"
	"happyfool/domain/testhelpers"
	"happyfool/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitFlushesEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	publisher := &testhelpers.MockTransactionalPublisher{}
	publisher.On("Publish", mock.Anything).Return(nil)
	publisher.On("Flush", mock.Anything).Return(nil)

	uow := NewUnitOfWorkFactory(testDB.DB).CreateWithPublisher(publisher)
	require.NoError(t, uow.Begin(ctx))

	_, err := uow.AccountRepository().Create(ctx, "1001", "alice", time.Now())
	require.NoError(t, err)
	require.NoError(t, uow.EventBus().Publish(events.AccountCreatedEvent{AccountID: "1001"}))
	require.NoError(t, uow.Commit())

	account, err := NewAccountRepository(testDB.DB).GetByID(ctx, "1001")
	require.NoError(t, err)
	assert.NotNil(t, account)
	publisher.AssertCalled(t, "Flush", mock.Anything)
	publisher.AssertNotCalled(t, "Discard")
}

func TestUnitOfWork_RollbackDiscardsEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	publisher := &testhelpers.MockTransactionalPublisher{}
	publisher.On("Discard").Return()

	uow := NewUnitOfWorkFactory(testDB.DB).CreateWithPublisher(publisher)
	require.NoError(t, uow.Begin(ctx))

	_, err := uow.AccountRepository().Create(ctx, "1001", "alice", time.Now())
	require.NoError(t, err)
	require.NoError(t, uow.Rollback())

	account, err := NewAccountRepository(testDB.DB).GetByID(ctx, "1001")
	require.NoError(t, err)
	assert.Nil(t, account)
	publisher.AssertCalled(t, "Discard")
}

func TestUnitOfWork_RepositoriesRequireBegin(t *testing.T) {
	uow := (&UnitOfWorkFactory{}).Create()
	assert.Panics(t, func() { uow.AccountRepository() })
	assert.Panics(t, func() { uow.EventBus() })
	assert.NoError(t, uow.Rollback())
	assert.Error(t, uow.Commit())
}
