package gormstore

import (
	"fmt"

	"happyfool/database"

	log "github.com/sirupsen/logrus"
)

var appendOnlyTriggers = []string{
	`CREATE TRIGGER IF NOT EXISTS ledger_transactions_no_update
	BEFORE UPDATE ON ledger_transactions
	BEGIN SELECT RAISE(ABORT, 'ledger_transactions is append-only'); END`,
	`CREATE TRIGGER IF NOT EXISTS ledger_transactions_no_delete
	BEFORE DELETE ON ledger_transactions
	BEGIN SELECT RAISE(ABORT, 'ledger_transactions is append-only'); END`,
}

// Migrate creates or updates the embedded store schema
func Migrate(db *database.SQLiteDB) error {
	err := db.AutoMigrate(
		&accountRecord{},
		&transactionRecord{},
		&commandRecord{},
		&cooldownRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}

	for _, stmt := range appendOnlyTriggers {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to install ledger trigger: %w", err)
		}
	}

	log.Debug("SQLite schema is up to date")
	return nil
}
