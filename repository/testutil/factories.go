package testutil

import (
	"time"

	"happyfool/domain/entities"
)

// CreateTestCommand creates a live command definition with default values
func CreateTestCommand(name, body string) *entities.CommandDefinition {
	return &entities.CommandDefinition{
		Name:       name,
		Body:       body,
		Permission: entities.RoleEveryone,
		Cooldown:   5 * time.Second,
		Creator:    "alice",
	}
}

// CreateTestTransaction creates a ledger entry for an account
func CreateTestTransaction(id, accountID string, delta, resulting int64, reason entities.Reason) *entities.Transaction {
	return &entities.Transaction{
		ID:               id,
		AccountID:        accountID,
		Delta:            delta,
		Reason:           reason,
		ResultingBalance: resulting,
		Metadata:         map[string]any{"test": true},
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
}
