package application

import (
	"context"
	"fmt"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/services"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// PointsAccrualWorker credits viewers that were active during the last interval
type PointsAccrualWorker struct {
	ledger   *LedgerStore
	executor *TransactionExecutor
	interval time.Duration
	amount   int64
}

// NewPointsAccrualWorker creates a new accrual worker
func NewPointsAccrualWorker(ledger *LedgerStore, executor *TransactionExecutor, interval time.Duration, amount int64) *PointsAccrualWorker {
	return &PointsAccrualWorker{
		ledger:   ledger,
		executor: executor,
		interval: interval,
		amount:   amount,
	}
}

// Start schedules RunOnce every interval. The returned func stops the
// schedule and waits for a running pass to finish.
func (w *PointsAccrualWorker) Start(ctx context.Context) (func(), error) {
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", w.interval), func() {
		if _, err := w.RunOnce(ctx, time.Now()); err != nil {
			log.WithError(err).Error("Points accrual pass failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule points accrual: %w", err)
	}

	c.Start()
	log.WithFields(log.Fields{
		"interval": w.interval,
		"amount":   w.amount,
	}).Info("Points accrual worker started")

	return func() {
		<-c.Stop().Done()
		log.Info("Points accrual worker stopped")
	}, nil
}

// RunOnce credits every account seen during the interval ending at now's tick.
// Running it twice for the same tick credits nobody twice.
func (w *PointsAccrualWorker) RunOnce(ctx context.Context, now time.Time) (int, error) {
	tick := now.Truncate(w.interval)
	since := tick.Add(-w.interval)
	minutes := int64(w.interval / time.Minute)

	accounts, err := w.ledger.ActiveSince(ctx, since)
	if err != nil {
		return 0, err
	}

	credited, failed := 0, 0
	for _, account := range accounts {
		result, err := w.executor.Execute(ctx, MutationRequest{
			AccountID: account.ID,
			SourceID:  services.AccrualSourceID(tick.Unix(), account.ID),
			Plan: func(*entities.Account) (*services.Mutation, error) {
				return &services.Mutation{
					Delta:    w.amount,
					Reason:   entities.ReasonAccrual,
					Minutes:  minutes,
					Metadata: map[string]any{"tick": tick.Unix()},
				}, nil
			},
		})
		if err != nil {
			log.WithError(err).WithField("accountID", account.ID).Error("Failed to credit accrual")
			failed++
			continue
		}
		if !result.Replayed {
			credited++
		}
	}

	log.WithFields(log.Fields{
		"tick":     tick.Format(time.RFC3339),
		"active":   len(accounts),
		"credited": credited,
		"failed":   failed,
	}).Info("Completed points accrual")

	return credited, nil
}
