package repository

import (
	"context"
	"testing"
	"time"

	"happyfool/domain/entities"
	"happyfool/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()
	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("account not found", func(t *testing.T) {
		account, err := repo.GetByID(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("create starts at zero", func(t *testing.T) {
		account, err := repo.Create(ctx, "1001", "Alice", seen)
		require.NoError(t, err)
		require.NotNil(t, account)

		assert.Equal(t, "1001", account.ID)
		assert.Equal(t, "Alice", account.Login)
		assert.Equal(t, int64(0), account.Balance)
		assert.Equal(t, int64(0), account.Version)
		assert.True(t, seen.Equal(account.LastSeenAt))
	})

	t.Run("create existing returns nil", func(t *testing.T) {
		account, err := repo.Create(ctx, "1001", "Other", seen)
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("lookup by login ignores case", func(t *testing.T) {
		account, err := repo.GetByLogin(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, "1001", account.ID)
	})
}

func TestAccountRepository_ApplyChange(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, "2002", "bob", time.Now())
	require.NoError(t, err)

	t.Run("matching version updates balance", func(t *testing.T) {
		err := repo.ApplyChange(ctx, "2002", 150, 10, 0)
		require.NoError(t, err)

		account, err := repo.GetByID(ctx, "2002")
		require.NoError(t, err)
		assert.Equal(t, int64(150), account.Balance)
		assert.Equal(t, int64(10), account.MinutesWatched)
		assert.Equal(t, int64(1), account.Version)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		err := repo.ApplyChange(ctx, "2002", 999, 0, 0)
		assert.ErrorIs(t, err, entities.ErrVersionConflict)
	})

	t.Run("negative balance rejected by schema", func(t *testing.T) {
		err := repo.ApplyChange(ctx, "2002", -1, 0, 1)
		assert.Error(t, err)
	})
}

func TestAccountRepository_TouchAndListSeenSince(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, "1", "early", base.Add(-time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, "2", "late", base)
	require.NoError(t, err)

	// Touch with an older time keeps the newer last seen
	require.NoError(t, repo.Touch(ctx, "2", "Late", base.Add(-2*time.Hour)))
	account, err := repo.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Late", account.Login)
	assert.True(t, base.Equal(account.LastSeenAt))

	err = repo.Touch(ctx, "missing", "x", base)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	accounts, err := repo.ListSeenSince(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "2", accounts[0].ID)
}
