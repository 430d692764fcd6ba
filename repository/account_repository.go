package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"happyfool/database"
	"happyfool/domain/entities"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, login, balance, version, minutes_watched, last_seen_at, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository on the pool
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepository creates a new account repository with a transaction
func newAccountRepository(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*entities.Account, error) {
	var a entities.Account
	err := row.Scan(
		&a.ID,
		&a.Login,
		&a.Balance,
		&a.Version,
		&a.MinutesWatched,
		&a.LastSeenAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) getOne(ctx context.Context, query string, args ...any) (*entities.Account, error) {
	account, err := scanAccount(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

// GetByID retrieves an account by platform user id
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entities.Account, error) {
	account, err := r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return account, nil
}

// GetForUpdate retrieves an account and holds a row lock until the transaction ends
func (r *AccountRepository) GetForUpdate(ctx context.Context, id string) (*entities.Account, error) {
	account, err := r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", id, err)
	}
	return account, nil
}

// GetByLogin retrieves the most recently seen account with a display name
func (r *AccountRepository) GetByLogin(ctx context.Context, login string) (*entities.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE LOWER(login) = LOWER($1)
		ORDER BY last_seen_at DESC
		LIMIT 1
	`
	account, err := r.getOne(ctx, query, login)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by login %s: %w", login, err)
	}
	return account, nil
}

// Create inserts a zero-balance account. Returns nil, nil if the id already exists.
func (r *AccountRepository) Create(ctx context.Context, id, login string, seenAt time.Time) (*entities.Account, error) {
	query := `
		INSERT INTO accounts (id, login, balance, version, minutes_watched, last_seen_at)
		VALUES ($1, $2, 0, 0, 0, $3)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + accountColumns

	account, err := r.getOne(ctx, query, id, login, seenAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", id, err)
	}
	return account, nil
}

// Touch refreshes login and last seen time. Last seen never moves backwards.
func (r *AccountRepository) Touch(ctx context.Context, id, login string, seenAt time.Time) error {
	query := `
		UPDATE accounts
		SET login = $2, last_seen_at = GREATEST(last_seen_at, $3), updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.Exec(ctx, query, id, login, seenAt)
	if err != nil {
		return fmt.Errorf("failed to touch account %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, entities.ErrNotFound)
	}
	return nil
}

// ApplyChange writes the new balance guarded by the expected version
func (r *AccountRepository) ApplyChange(ctx context.Context, id string, newBalance, addMinutes, expectedVersion int64) error {
	query := `
		UPDATE accounts
		SET balance = $2,
		    minutes_watched = minutes_watched + $3,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $4
	`
	result, err := r.q.Exec(ctx, query, id, newBalance, addMinutes, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s at version %d: %w", id, expectedVersion, entities.ErrVersionConflict)
	}
	return nil
}

// ListSeenSince returns accounts seen at or after since
func (r *AccountRepository) ListSeenSince(ctx context.Context, since time.Time) ([]*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE last_seen_at >= $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts seen since %s: %w", since, err)
	}
	defer rows.Close()

	var accounts []*entities.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}
