package cmd

import (
	"context"
	"fmt"

	"happyfool/application"
	"happyfool/config"
	"happyfool/domain/entities"
	"happyfool/domain/services"
	"happyfool/infrastructure"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AdjustBalance applies an admin adjustment of delta points to accountID
// outside of chat. Negative deltas fail when the balance cannot cover them.
func AdjustBalance(ctx context.Context, accountID string, delta int64) error {
	if delta == 0 {
		return fmt.Errorf("delta must not be zero")
	}

	cfg := config.Get()
	ConfigureLogging(cfg.LogLevel, cfg.LogFormat)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	uowFactory := infrastructure.NewUnitOfWorkFactory(st.repositories, infrastructure.NewNoopEventPublisher())
	ledger := application.NewLedgerStore(uowFactory, cfg.StartingBalance, nil)
	executor := application.NewTransactionExecutor(ledger, nil)

	sourceID := "cli:" + uuid.NewString()
	metadata := map[string]any{"actor": "cli"}

	var result *services.MutationResult
	if delta > 0 {
		result, err = executor.Credit(ctx, accountID, delta, entities.ReasonAdminAdjust, sourceID, metadata)
	} else {
		result, err = executor.Debit(ctx, accountID, -delta, entities.ReasonAdminAdjust, sourceID, metadata)
	}
	if err != nil {
		return fmt.Errorf("failed to adjust balance of %s: %w", accountID, err)
	}

	log.WithFields(log.Fields{
		"accountID": accountID,
		"delta":     delta,
		"balance":   result.Account.Balance,
		"sourceID":  sourceID,
	}).Info("Balance adjusted")
	return nil
}
