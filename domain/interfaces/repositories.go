package interfaces

import (
	"context"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/events"
)

// AccountRepository defines the interface for account data access.
// Lookups return nil, nil when the account does not exist.
type AccountRepository interface {
	// GetByID retrieves an account by platform user id
	GetByID(ctx context.Context, id string) (*entities.Account, error)

	// GetForUpdate retrieves an account and locks its row until the unit of work ends
	GetForUpdate(ctx context.Context, id string) (*entities.Account, error)

	// GetByLogin retrieves an account by display name, case-insensitively
	GetByLogin(ctx context.Context, login string) (*entities.Account, error)

	// Create inserts a new zero-balance account
	Create(ctx context.Context, id, login string, seenAt time.Time) (*entities.Account, error)

	// Touch refreshes login and last seen time
	Touch(ctx context.Context, id, login string, seenAt time.Time) error

	// ApplyChange writes a new balance, adds watch minutes and bumps the version.
	// Returns entities.ErrVersionConflict if expectedVersion is stale.
	ApplyChange(ctx context.Context, id string, newBalance, addMinutes, expectedVersion int64) error

	// ListSeenSince returns accounts seen at or after since
	ListSeenSince(ctx context.Context, since time.Time) ([]*entities.Account, error)
}

// TransactionRepository defines the interface for the append-only ledger
type TransactionRepository interface {
	// GetByID retrieves a transaction by its source id, nil if absent
	GetByID(ctx context.Context, id string) (*entities.Transaction, error)

	// Append inserts a transaction. Returns entities.ErrIdempotencyConflict if
	// the id is already taken.
	Append(ctx context.Context, tx *entities.Transaction) error

	// ListByAccount returns the newest transactions for an account first
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*entities.Transaction, error)

	// SumByAccount returns the sum of all deltas for an account
	SumByAccount(ctx context.Context, accountID string) (int64, error)
}

// CommandRepository defines the interface for custom command data access.
// Only live (non tombstoned) definitions are visible.
type CommandRepository interface {
	// GetLive retrieves the live definition for a normalized name, nil if absent
	GetLive(ctx context.Context, name string) (*entities.CommandDefinition, error)

	// Create inserts a definition. Returns entities.ErrDuplicateCommand if a
	// live definition with the same name exists.
	Create(ctx context.Context, def *entities.CommandDefinition) error

	// Update writes body, permission, cooldown and cost
	Update(ctx context.Context, def *entities.CommandDefinition) error

	// Tombstone marks a definition deleted
	Tombstone(ctx context.Context, id int64, at time.Time) error

	// ListLive returns all live definitions ordered by name
	ListLive(ctx context.Context) ([]*entities.CommandDefinition, error)

	// TryAcquireCooldown records an invocation at now for (commandID, channel)
	// unless the previous one happened less than cooldown ago. It returns the
	// previous invocation time when the cooldown blocks.
	TryAcquireCooldown(ctx context.Context, commandID int64, channel string, now time.Time, cooldown time.Duration) (bool, time.Time, error)

	// IncrementUsage bumps the usage counter and returns the new value
	IncrementUsage(ctx context.Context, id int64) (int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the owning unit of work commits
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes every pending event
	Flush(ctx context.Context) error

	// Discard drops every pending event
	Discard()
}
