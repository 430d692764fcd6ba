package application

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"happyfool/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerStore_CreditDebit(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.fund(t, "1001", "alice", 100)

	result, err := app.ledger.Debit(ctx, "1001", 30, entities.ReasonCommandCost, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), result.Account.Balance)
	assert.Equal(t, int64(-30), result.Transaction.Delta)
	assert.Equal(t, int64(70), result.Transaction.ResultingBalance)

	t.Run("over debit leaves state unchanged", func(t *testing.T) {
		_, err := app.ledger.Debit(ctx, "1001", 71, entities.ReasonCommandCost, "msg-2")
		var insufficient *entities.InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, int64(70), insufficient.Balance)
		assert.ErrorIs(t, err, entities.ErrInsufficientFunds)

		assert.Equal(t, int64(70), app.balance(t, "1001"))
		history, err := app.ledger.History(ctx, "1001", 10)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})

	t.Run("non-positive amounts rejected", func(t *testing.T) {
		_, err := app.ledger.Credit(ctx, "1001", 0, entities.ReasonAdminAdjust, "msg-3")
		assert.Error(t, err)
		_, err = app.ledger.Debit(ctx, "1001", -5, entities.ReasonAdminAdjust, "msg-3")
		assert.Error(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := app.ledger.Credit(ctx, "404", 10, entities.ReasonAdminAdjust, "msg-4")
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})
}

func TestLedgerStore_ReplayIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.fund(t, "1001", "alice", 100)

	for i := 0; i < 5; i++ {
		result, err := app.ledger.Debit(ctx, "1001", 40, entities.ReasonGambleStake, "msg-dup")
		require.NoError(t, err)
		assert.Equal(t, i > 0, result.Replayed)
		assert.Equal(t, int64(60), result.Transaction.ResultingBalance)
	}

	assert.Equal(t, int64(60), app.balance(t, "1001"))
	history, err := app.ledger.History(ctx, "1001", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	t.Run("same source on another account conflicts", func(t *testing.T) {
		app.fund(t, "2002", "bob", 100)
		_, err := app.ledger.Debit(ctx, "2002", 40, entities.ReasonGambleStake, "msg-dup")
		assert.ErrorIs(t, err, entities.ErrIdempotencyConflict)
		assert.Equal(t, int64(100), app.balance(t, "2002"))
	})
}

func TestLedgerStore_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.fund(t, "1001", "alice", 30)
	app.fund(t, "2002", "bob", 30)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := map[string]int{}

	for i := 0; i < 40; i++ {
		for _, id := range []string{"1001", "2002"} {
			wg.Add(1)
			go func(id string, i int) {
				defer wg.Done()
				_, err := app.ledger.Debit(ctx, id, 1, entities.ReasonCommandCost, fmt.Sprintf("%s-%d", id, i))
				if err == nil {
					mu.Lock()
					succeeded[id]++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, entities.ErrInsufficientFunds)
			}(id, i)
		}
	}
	wg.Wait()

	for _, id := range []string{"1001", "2002"} {
		assert.Equal(t, 30, succeeded[id])
		assert.Equal(t, int64(0), app.balance(t, id))

		report, err := app.ledger.Audit(ctx, id)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.Equal(t, int64(0), report.LedgerSum)
	}
}

func TestLedgerStore_EnsureAccount(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.ledger.startingBalance = 25

	account, created, err := app.ledger.EnsureAccount(ctx, "1001", "alice", testNow)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(25), account.Balance)

	account, created, err = app.ledger.EnsureAccount(ctx, "1001", "Alice", testNow.Add(1))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Alice", account.Login)
	assert.Equal(t, int64(25), account.Balance)

	found, err := app.ledger.FindByLogin(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "1001", found.ID)

	report, err := app.ledger.Audit(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	_, err = app.ledger.FindByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}
