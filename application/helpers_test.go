package application

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"happyfool/config"
	"happyfool/database"
	"happyfool/domain/entities"
	"happyfool/domain/games"
	"happyfool/repository/gormstore"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

type testApp struct {
	factory    *gormstore.UnitOfWorkFactory
	ledger     *LedgerStore
	executor   *TransactionExecutor
	registry   *CommandRegistry
	dispatcher *Dispatcher
	builtins   BuiltinConfig
}

// newTestApp wires the full core over a fresh SQLite file
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "happyfool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, gormstore.Migrate(db))

	factory := gormstore.NewUnitOfWorkFactory(db)
	ledger := NewLedgerStore(factory, 0, nil)
	executor := NewTransactionExecutor(ledger, nil)
	executor.retryInterval = time.Millisecond
	registry := NewCommandRegistry(factory)

	builtins, err := NewBuiltinConfig(config.NewTestConfig())
	require.NoError(t, err)

	dispatcher := NewDispatcher(ledger, executor, registry, "!", builtins.PointsName, nil)
	dispatcher.RegisterBuiltins(builtins)
	dispatcher.now = func() time.Time { return testNow }

	return &testApp{
		factory:    factory,
		ledger:     ledger,
		executor:   executor,
		registry:   registry,
		dispatcher: dispatcher,
		builtins:   builtins,
	}
}

// fund creates the account and credits amount as an admin adjustment
func (a *testApp) fund(t *testing.T, id, login string, amount int64) {
	t.Helper()
	ctx := context.Background()

	_, _, err := a.ledger.EnsureAccount(ctx, id, login, testNow)
	require.NoError(t, err)
	if amount > 0 {
		_, err = a.ledger.Credit(ctx, id, amount, entities.ReasonAdminAdjust, "fund:"+id)
		require.NoError(t, err)
	}
}

func (a *testApp) balance(t *testing.T, id string) int64 {
	t.Helper()
	account, err := a.ledger.Balance(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func chatEvent(messageID, userID, login string, role entities.Role, text string) *entities.ChatEvent {
	return &entities.ChatEvent{
		MessageID: messageID,
		UserID:    userID,
		UserLogin: login,
		UserRole:  role,
		Channel:   "#happyfool",
		Text:      text,
		Timestamp: testNow,
	}
}

// messageIDFor searches for a message id whose seeded play of game ends with multiplier
func (a *testApp) messageIDFor(t *testing.T, game games.Game, stake, multiplier int64) string {
	t.Helper()
	for i := 0; i < 10000; i++ {
		id := fmt.Sprintf("msg-%s-%d", game, i)
		outcome, err := a.builtins.Engine.Play(game, stake, games.DeriveSeed(a.builtins.Salt, id))
		require.NoError(t, err)
		if outcome.Multiplier == multiplier {
			return id
		}
	}
	t.Fatalf("no message id plays %s with multiplier %d", game, multiplier)
	return ""
}
