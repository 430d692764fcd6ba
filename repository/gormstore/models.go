package gormstore

import (
	"encoding/json"
	"fmt"
	"time"

	"happyfool/domain/entities"

	"gorm.io/gorm"
)

type accountRecord struct {
	ID             string    `gorm:"primaryKey"`
	Login          string    `gorm:"not null;index"`
	Balance        int64     `gorm:"not null;default:0;check:chk_accounts_balance,balance >= 0"`
	Version        int64     `gorm:"not null;default:0"`
	MinutesWatched int64     `gorm:"not null;default:0"`
	LastSeenAt     time.Time `gorm:"not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (accountRecord) TableName() string { return "accounts" }

func (r *accountRecord) toEntity() *entities.Account {
	return &entities.Account{
		ID:             r.ID,
		Login:          r.Login,
		Balance:        r.Balance,
		Version:        r.Version,
		MinutesWatched: r.MinutesWatched,
		LastSeenAt:     r.LastSeenAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type transactionRecord struct {
	ID               string    `gorm:"primaryKey"`
	AccountID        string    `gorm:"not null;index:idx_ledger_account_created,priority:1"`
	Delta            int64     `gorm:"not null;check:chk_ledger_delta,delta <> 0"`
	Reason           string    `gorm:"not null"`
	ResultingBalance int64     `gorm:"not null;check:chk_ledger_resulting,resulting_balance >= 0"`
	Metadata         string    `gorm:"not null;default:'{}'"`
	CreatedAt        time.Time `gorm:"index:idx_ledger_account_created,priority:2"`
}

func (transactionRecord) TableName() string { return "ledger_transactions" }

func newTransactionRecord(tx *entities.Transaction) (*transactionRecord, error) {
	metadata := "{}"
	if tx.Metadata != nil {
		b, err := json.Marshal(tx.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal transaction metadata: %w", err)
		}
		metadata = string(b)
	}
	return &transactionRecord{
		ID:               tx.ID,
		AccountID:        tx.AccountID,
		Delta:            tx.Delta,
		Reason:           string(tx.Reason),
		ResultingBalance: tx.ResultingBalance,
		Metadata:         metadata,
		CreatedAt:        tx.CreatedAt.UTC(),
	}, nil
}

func (r *transactionRecord) toEntity() (*entities.Transaction, error) {
	tx := &entities.Transaction{
		ID:               r.ID,
		AccountID:        r.AccountID,
		Delta:            r.Delta,
		Reason:           entities.Reason(r.Reason),
		ResultingBalance: r.ResultingBalance,
		CreatedAt:        r.CreatedAt,
	}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &tx.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}
	return tx, nil
}

type commandRecord struct {
	ID              int64          `gorm:"primaryKey;autoIncrement"`
	Name            string         `gorm:"not null;uniqueIndex:idx_command_live_name,where:deleted_at IS NULL"`
	Body            string         `gorm:"not null"`
	Permission      string         `gorm:"not null"`
	CooldownSeconds int64          `gorm:"not null;default:0"`
	Cost            int64          `gorm:"not null;default:0"`
	Creator         string         `gorm:"not null"`
	UsageCount      int64          `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (commandRecord) TableName() string { return "command_definitions" }

func newCommandRecord(def *entities.CommandDefinition) *commandRecord {
	return &commandRecord{
		ID:              def.ID,
		Name:            def.Name,
		Body:            def.Body,
		Permission:      def.Permission.String(),
		CooldownSeconds: int64(def.Cooldown / time.Second),
		Cost:            def.Cost,
		Creator:         def.Creator,
		UsageCount:      def.UsageCount,
	}
}

func (r *commandRecord) toEntity() (*entities.CommandDefinition, error) {
	role, err := entities.ParseRole(r.Permission)
	if err != nil {
		return nil, err
	}
	def := &entities.CommandDefinition{
		ID:         r.ID,
		Name:       r.Name,
		Body:       r.Body,
		Permission: role,
		Cooldown:   time.Duration(r.CooldownSeconds) * time.Second,
		Cost:       r.Cost,
		Creator:    r.Creator,
		UsageCount: r.UsageCount,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.DeletedAt.Valid {
		at := r.DeletedAt.Time
		def.DeletedAt = &at
	}
	return def, nil
}

type cooldownRecord struct {
	CommandID     int64     `gorm:"primaryKey;autoIncrement:false"`
	Channel       string    `gorm:"primaryKey"`
	LastInvokedAt time.Time `gorm:"not null"`
}

func (cooldownRecord) TableName() string { return "command_cooldowns" }
