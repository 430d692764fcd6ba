package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"happyfool/database"
	"happyfool/domain/entities"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository on the pool
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepository creates a new transaction repository with a transaction
func newTransactionRepository(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

func scanTransaction(row pgx.Row) (*entities.Transaction, error) {
	var tx entities.Transaction
	var reason string
	var metadataJSON []byte

	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Delta,
		&reason,
		&tx.ResultingBalance,
		&metadataJSON,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Reason = entities.Reason(reason)

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}

	return &tx, nil
}

// GetByID retrieves a transaction by its source id
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*entities.Transaction, error) {
	query := `
		SELECT id, account_id, delta, reason, resulting_balance, metadata, created_at
		FROM ledger_transactions
		WHERE id = $1
	`
	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return tx, nil
}

// Append inserts a new ledger entry
func (r *TransactionRepository) Append(ctx context.Context, tx *entities.Transaction) error {
	metadataJSON, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}
	if tx.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	query := `
		INSERT INTO ledger_transactions
		(id, account_id, delta, reason, resulting_balance, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.q.Exec(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.Delta,
		string(tx.Reason),
		tx.ResultingBalance,
		metadataJSON,
		tx.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction %s: %w", tx.ID, entities.ErrIdempotencyConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to append transaction %s: %w", tx.ID, err)
	}

	return nil
}

// ListByAccount returns the newest transactions for an account first
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*entities.Transaction, error) {
	query := `
		SELECT id, account_id, delta, reason, resulting_balance, metadata, created_at
		FROM ledger_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var txs []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

// SumByAccount returns the sum of all deltas for an account
func (r *TransactionRepository) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(delta), 0)::BIGINT FROM ledger_transactions WHERE account_id = $1`,
		accountID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions for account %s: %w", accountID, err)
	}
	return sum, nil
}
