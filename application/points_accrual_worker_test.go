package application

import (
	"context"
	"testing"
	"time"

	"happyfool/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsAccrualWorker_RunOnce(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	worker := NewPointsAccrualWorker(app.ledger, app.executor, 10*time.Minute, 10)

	app.fund(t, "1001", "alice", 100)
	_, _, err := app.ledger.EnsureAccount(ctx, "2002", "bob", testNow.Add(-time.Hour))
	require.NoError(t, err)

	credited, err := worker.RunOnce(ctx, testNow.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, credited)

	t.Run("same tick credits nobody twice", func(t *testing.T) {
		credited, err := worker.RunOnce(ctx, testNow.Add(9*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 0, credited)
	})

	account, err := app.ledger.Balance(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, int64(110), account.Balance)
	assert.Equal(t, int64(10), account.MinutesWatched)
	assert.Equal(t, int64(0), app.balance(t, "2002"))

	t.Run("next tick", func(t *testing.T) {
		credited, err := worker.RunOnce(ctx, testNow.Add(12*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, credited)
		assert.Equal(t, int64(120), app.balance(t, "1001"))

		history, err := app.ledger.History(ctx, "1001", 1)
		require.NoError(t, err)
		assert.Equal(t, entities.ReasonAccrual, history[0].Reason)
	})
}

func TestPointsAccrualWorker_StartStop(t *testing.T) {
	app := newTestApp(t)
	worker := NewPointsAccrualWorker(app.ledger, app.executor, time.Hour, 10)

	stop, err := worker.Start(context.Background())
	require.NoError(t, err)
	stop()
}
