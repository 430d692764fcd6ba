package utils

import (
	"context"
	"fmt"

	"happyfool/domain/entities"
	"happyfool/domain/events"
	"happyfool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordTransaction appends a ledger entry and emits the matching balance
// change event. This is the single entry point for all balance changes.
func RecordTransaction(ctx context.Context, txRepo interfaces.TransactionRepository, eventPublisher interfaces.EventPublisher, tx *entities.Transaction) error {
	if err := txRepo.Append(ctx, tx); err != nil {
		return fmt.Errorf("failed to append transaction %s: %w", tx.ID, err)
	}

	event := events.BalanceChangeEvent{
		AccountID:     tx.AccountID,
		TransactionID: tx.ID,
		OldBalance:    tx.BalanceBefore(),
		NewBalance:    tx.ResultingBalance,
		ChangeAmount:  tx.Delta,
		Reason:        tx.Reason,
	}
	log.WithFields(log.Fields{
		"accountID":     event.AccountID,
		"transactionID": event.TransactionID,
		"oldBalance":    event.OldBalance,
		"newBalance":    event.NewBalance,
		"reason":        event.Reason,
	}).Debug("Publishing BalanceChangeEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}

	return nil
}
