package entities

import (
	"strings"
	"time"
)

// CommandDefinition is a user-defined chat command. Definitions are
// tombstoned on delete so history and usage stay attributable.
type CommandDefinition struct {
	ID         int64         `db:"id"`
	Name       string        `db:"name"`
	Body       string        `db:"body"`
	Permission Role          `db:"permission"`
	Cooldown   time.Duration `db:"cooldown_seconds"`
	Cost       int64         `db:"cost"`
	Creator    string        `db:"creator"`
	UsageCount int64         `db:"usage_count"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
	DeletedAt  *time.Time    `db:"deleted_at"`
}

// IsLive returns true if the definition has not been deleted
func (c *CommandDefinition) IsLive() bool {
	return c.DeletedAt == nil
}

// CooldownRemaining returns how long until the command may run again given
// the last invocation time in the same channel
func (c *CommandDefinition) CooldownRemaining(lastInvokedAt, now time.Time) time.Duration {
	elapsed := now.Sub(lastInvokedAt)
	if elapsed >= c.Cooldown {
		return 0
	}
	return c.Cooldown - elapsed
}

// CommandChanges holds the fields an edit may replace. Nil fields are kept.
type CommandChanges struct {
	Body       *string
	Permission *Role
	Cooldown   *time.Duration
	Cost       *int64
}

// IsEmpty returns true if no field would change
func (c CommandChanges) IsEmpty() bool {
	return c.Body == nil && c.Permission == nil && c.Cooldown == nil && c.Cost == nil
}

// Apply copies the set fields onto def
func (c CommandChanges) Apply(def *CommandDefinition) {
	if c.Body != nil {
		def.Body = *c.Body
	}
	if c.Permission != nil {
		def.Permission = *c.Permission
	}
	if c.Cooldown != nil {
		def.Cooldown = *c.Cooldown
	}
	if c.Cost != nil {
		def.Cost = *c.Cost
	}
}

// NormalizeCommandName isolates a command name: lowercase, ASCII letters and
// digits only. Any prefix character ("!") is dropped with the other symbols.
func NormalizeCommandName(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
