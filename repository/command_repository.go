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

const commandColumns = `id, name, body, permission, cooldown_seconds, cost, creator, usage_count, created_at, updated_at, deleted_at`

// CommandRepository implements the CommandRepository interface
type CommandRepository struct {
	q queryable
}

// NewCommandRepository creates a new command repository on the pool
func NewCommandRepository(db *database.DB) *CommandRepository {
	return &CommandRepository{q: db.Pool}
}

// newCommandRepository creates a new command repository with a transaction
func newCommandRepository(tx queryable) *CommandRepository {
	return &CommandRepository{q: tx}
}

func scanCommand(row pgx.Row) (*entities.CommandDefinition, error) {
	var def entities.CommandDefinition
	var permission string
	var cooldownSeconds int64

	err := row.Scan(
		&def.ID,
		&def.Name,
		&def.Body,
		&permission,
		&cooldownSeconds,
		&def.Cost,
		&def.Creator,
		&def.UsageCount,
		&def.CreatedAt,
		&def.UpdatedAt,
		&def.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	role, err := entities.ParseRole(permission)
	if err != nil {
		return nil, err
	}
	def.Permission = role
	def.Cooldown = time.Duration(cooldownSeconds) * time.Second

	return &def, nil
}

func cooldownSeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// GetLive retrieves the live definition for a normalized name
func (r *CommandRepository) GetLive(ctx context.Context, name string) (*entities.CommandDefinition, error) {
	query := `SELECT ` + commandColumns + ` FROM command_definitions WHERE name = $1 AND deleted_at IS NULL`

	def, err := scanCommand(r.q.QueryRow(ctx, query, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get command %s: %w", name, err)
	}
	return def, nil
}

// Create inserts a new definition
func (r *CommandRepository) Create(ctx context.Context, def *entities.CommandDefinition) error {
	query := `
		INSERT INTO command_definitions (name, body, permission, cooldown_seconds, cost, creator)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, usage_count, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		def.Name,
		def.Body,
		def.Permission.String(),
		cooldownSeconds(def.Cooldown),
		def.Cost,
		def.Creator,
	).Scan(&def.ID, &def.UsageCount, &def.CreatedAt, &def.UpdatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("!%s: %w", def.Name, entities.ErrDuplicateCommand)
	}
	if err != nil {
		return fmt.Errorf("failed to create command %s: %w", def.Name, err)
	}
	return nil
}

// Update writes the editable fields of a live definition
func (r *CommandRepository) Update(ctx context.Context, def *entities.CommandDefinition) error {
	query := `
		UPDATE command_definitions
		SET body = $2, permission = $3, cooldown_seconds = $4, cost = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query,
		def.ID,
		def.Body,
		def.Permission.String(),
		cooldownSeconds(def.Cooldown),
		def.Cost,
	).Scan(&def.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("command %d: %w", def.ID, entities.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update command %d: %w", def.ID, err)
	}
	return nil
}

// Tombstone marks a definition deleted
func (r *CommandRepository) Tombstone(ctx context.Context, id int64, at time.Time) error {
	result, err := r.q.Exec(ctx,
		`UPDATE command_definitions SET deleted_at = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to delete command %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("command %d: %w", id, entities.ErrNotFound)
	}
	return nil
}

// ListLive returns all live definitions ordered by name
func (r *CommandRepository) ListLive(ctx context.Context) ([]*entities.CommandDefinition, error) {
	rows, err := r.q.Query(ctx, `SELECT `+commandColumns+` FROM command_definitions WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	defer rows.Close()

	var defs []*entities.CommandDefinition
	for rows.Next() {
		def, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commands: %w", err)
	}

	return defs, nil
}

// TryAcquireCooldown claims the (command, channel) slot with a single
// conditional upsert so concurrent callers cannot both succeed
func (r *CommandRepository) TryAcquireCooldown(ctx context.Context, commandID int64, channel string, now time.Time, cooldown time.Duration) (bool, time.Time, error) {
	query := `
		INSERT INTO command_cooldowns (command_id, channel, last_invoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (command_id, channel) DO UPDATE
		SET last_invoked_at = EXCLUDED.last_invoked_at
		WHERE command_cooldowns.last_invoked_at <= $4
	`
	result, err := r.q.Exec(ctx, query, commandID, channel, now, now.Add(-cooldown))
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to acquire cooldown for command %d: %w", commandID, err)
	}
	if result.RowsAffected() == 1 {
		return true, time.Time{}, nil
	}

	var last time.Time
	err = r.q.QueryRow(ctx,
		`SELECT last_invoked_at FROM command_cooldowns WHERE command_id = $1 AND channel = $2`,
		commandID, channel,
	).Scan(&last)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to read cooldown for command %d: %w", commandID, err)
	}

	return false, last, nil
}

// IncrementUsage bumps the usage counter and returns the new value
func (r *CommandRepository) IncrementUsage(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx,
		`UPDATE command_definitions SET usage_count = usage_count + 1 WHERE id = $1 RETURNING usage_count`,
		id,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage for command %d: %w", id, err)
	}
	return count, nil
}
