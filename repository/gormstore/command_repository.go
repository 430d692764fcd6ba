package gormstore

import (
	"context"
	"fmt"
	"time"

	"happyfool/domain/entities"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommandRepository implements the CommandRepository interface on gorm.
// Soft deletes are handled by gorm.DeletedAt, so every query only sees live rows.
type CommandRepository struct {
	db *gorm.DB
}

func newCommandRepository(tx *gorm.DB) *CommandRepository {
	return &CommandRepository{db: tx}
}

// GetLive retrieves the live definition for a normalized name
func (r *CommandRepository) GetLive(ctx context.Context, name string) (*entities.CommandDefinition, error) {
	var rec commandRecord
	err := r.db.WithContext(ctx).Where("name = ?", name).Take(&rec).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get command %s: %w", name, err)
	}
	return rec.toEntity()
}

// Create inserts a new definition
func (r *CommandRepository) Create(ctx context.Context, def *entities.CommandDefinition) error {
	rec := newCommandRecord(def)
	rec.ID = 0
	rec.UsageCount = 0

	err := r.db.WithContext(ctx).Create(rec).Error
	if isDuplicateKey(err) {
		return fmt.Errorf("!%s: %w", def.Name, entities.ErrDuplicateCommand)
	}
	if err != nil {
		return fmt.Errorf("failed to create command %s: %w", def.Name, err)
	}

	def.ID = rec.ID
	def.UsageCount = 0
	def.CreatedAt = rec.CreatedAt
	def.UpdatedAt = rec.UpdatedAt
	return nil
}

// Update writes the editable fields of a live definition
func (r *CommandRepository) Update(ctx context.Context, def *entities.CommandDefinition) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&commandRecord{}).Where("id = ?", def.ID).Updates(map[string]any{
		"body":             def.Body,
		"permission":       def.Permission.String(),
		"cooldown_seconds": int64(def.Cooldown / time.Second),
		"cost":             def.Cost,
		"updated_at":       now,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update command %d: %w", def.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("command %d: %w", def.ID, entities.ErrNotFound)
	}
	def.UpdatedAt = now
	return nil
}

// Tombstone marks a definition deleted at the given time
func (r *CommandRepository) Tombstone(ctx context.Context, id int64, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&commandRecord{}).Where("id = ?", id).Updates(map[string]any{
		"deleted_at": at.UTC(),
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to delete command %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("command %d: %w", id, entities.ErrNotFound)
	}
	return nil
}

// ListLive returns all live definitions ordered by name
func (r *CommandRepository) ListLive(ctx context.Context) ([]*entities.CommandDefinition, error) {
	var recs []commandRecord
	if err := r.db.WithContext(ctx).Order("name").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}

	defs := make([]*entities.CommandDefinition, 0, len(recs))
	for i := range recs {
		def, err := recs[i].toEntity()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// TryAcquireCooldown claims the (command, channel) slot. The read and the
// write share the unit of work transaction, which SQLite runs exclusively.
func (r *CommandRepository) TryAcquireCooldown(ctx context.Context, commandID int64, channel string, now time.Time, cooldown time.Duration) (bool, time.Time, error) {
	var rec cooldownRecord
	err := r.db.WithContext(ctx).Where("command_id = ? AND channel = ?", commandID, channel).Take(&rec).Error
	switch {
	case isNotFound(err):
	case err != nil:
		return false, time.Time{}, fmt.Errorf("failed to read cooldown for command %d: %w", commandID, err)
	case now.Sub(rec.LastInvokedAt) < cooldown:
		return false, rec.LastInvokedAt, nil
	}

	rec = cooldownRecord{CommandID: commandID, Channel: channel, LastInvokedAt: now.UTC()}
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "command_id"}, {Name: "channel"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_invoked_at"}),
	}
	if err := r.db.WithContext(ctx).Clauses(upsert).Create(&rec).Error; err != nil {
		return false, time.Time{}, fmt.Errorf("failed to acquire cooldown for command %d: %w", commandID, err)
	}
	return true, time.Time{}, nil
}

// IncrementUsage bumps the usage counter and returns the new value
func (r *CommandRepository) IncrementUsage(ctx context.Context, id int64) (int64, error) {
	err := r.db.WithContext(ctx).Model(&commandRecord{}).Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage for command %d: %w", id, err)
	}

	var count int64
	err = r.db.WithContext(ctx).Model(&commandRecord{}).Where("id = ?", id).
		Select("usage_count").Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read usage for command %d: %w", id, err)
	}
	return count, nil
}
