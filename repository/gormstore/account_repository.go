package gormstore

import (
	"context"
	"fmt"
	"time"

	"happyfool/domain/entities"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository implements the AccountRepository interface on gorm
type AccountRepository struct {
	db *gorm.DB
}

func newAccountRepository(tx *gorm.DB) *AccountRepository {
	return &AccountRepository{db: tx}
}

func (r *AccountRepository) take(ctx context.Context, query *gorm.DB) (*entities.Account, error) {
	var rec accountRecord
	err := query.WithContext(ctx).Take(&rec).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.toEntity(), nil
}

// GetByID retrieves an account by platform user id
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entities.Account, error) {
	account, err := r.take(ctx, r.db.Where("id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return account, nil
}

// GetForUpdate retrieves an account. SQLite serializes writers at the
// connection, so the read already runs under the exclusive transaction.
func (r *AccountRepository) GetForUpdate(ctx context.Context, id string) (*entities.Account, error) {
	return r.GetByID(ctx, id)
}

// GetByLogin retrieves the most recently seen account with a display name
func (r *AccountRepository) GetByLogin(ctx context.Context, login string) (*entities.Account, error) {
	query := r.db.Where("LOWER(login) = LOWER(?)", login).Order("last_seen_at DESC")
	account, err := r.take(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by login %s: %w", login, err)
	}
	return account, nil
}

// Create inserts a zero-balance account. Returns nil, nil if the id already exists.
func (r *AccountRepository) Create(ctx context.Context, id, login string, seenAt time.Time) (*entities.Account, error) {
	rec := accountRecord{
		ID:         id,
		Login:      login,
		LastSeenAt: seenAt.UTC(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return rec.toEntity(), nil
}

// Touch refreshes login and last seen time. Last seen never moves backwards.
func (r *AccountRepository) Touch(ctx context.Context, id, login string, seenAt time.Time) error {
	var rec accountRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if isNotFound(err) {
		return fmt.Errorf("account %s: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to touch account %s: %w", id, err)
	}

	lastSeen := rec.LastSeenAt
	if seenAt.After(lastSeen) {
		lastSeen = seenAt.UTC()
	}

	err = r.db.WithContext(ctx).Model(&accountRecord{}).Where("id = ?", id).Updates(map[string]any{
		"login":        login,
		"last_seen_at": lastSeen,
		"updated_at":   time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to touch account %s: %w", id, err)
	}
	return nil
}

// ApplyChange writes the new balance guarded by the expected version
func (r *AccountRepository) ApplyChange(ctx context.Context, id string, newBalance, addMinutes, expectedVersion int64) error {
	result := r.db.WithContext(ctx).Model(&accountRecord{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"balance":         newBalance,
			"minutes_watched": gorm.Expr("minutes_watched + ?", addMinutes),
			"version":         gorm.Expr("version + 1"),
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update balance for account %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account %s at version %d: %w", id, expectedVersion, entities.ErrVersionConflict)
	}
	return nil
}

// ListSeenSince returns accounts seen at or after since
func (r *AccountRepository) ListSeenSince(ctx context.Context, since time.Time) ([]*entities.Account, error) {
	var recs []accountRecord
	err := r.db.WithContext(ctx).Where("last_seen_at >= ?", since.UTC()).Order("id").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts seen since %s: %w", since, err)
	}

	accounts := make([]*entities.Account, 0, len(recs))
	for i := range recs {
		accounts = append(accounts, recs[i].toEntity())
	}
	return accounts, nil
}
