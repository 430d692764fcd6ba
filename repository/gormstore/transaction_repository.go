package gormstore

import (
	"context"
	"fmt"

	"happyfool/domain/entities"

	"gorm.io/gorm"
)

// TransactionRepository implements the TransactionRepository interface on gorm
type TransactionRepository struct {
	db *gorm.DB
}

func newTransactionRepository(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// GetByID retrieves a transaction by its source id
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*entities.Transaction, error) {
	var rec transactionRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return rec.toEntity()
}

// Append inserts a new ledger entry
func (r *TransactionRepository) Append(ctx context.Context, tx *entities.Transaction) error {
	rec, err := newTransactionRecord(tx)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Create(rec).Error
	if isDuplicateKey(err) {
		return fmt.Errorf("transaction %s: %w", tx.ID, entities.ErrIdempotencyConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to append transaction %s: %w", tx.ID, err)
	}
	return nil
}

// ListByAccount returns the newest transactions for an account first
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*entities.Transaction, error) {
	var recs []transactionRecord
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for account %s: %w", accountID, err)
	}

	txs := make([]*entities.Transaction, 0, len(recs))
	for i := range recs {
		tx, err := recs[i].toEntity()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// SumByAccount returns the sum of all deltas for an account
func (r *TransactionRepository) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&transactionRecord{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions for account %s: %w", accountID, err)
	}
	return sum, nil
}
