package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"familybank/internal/core"
)

// InterestEngine credits periodic interest on accounts with an active
// interest configuration.
type InterestEngine struct {
	store  Store
	ledger *Ledger
	logger *slog.Logger
}

func NewInterestEngine(store Store, ledger *Ledger, logger *slog.Logger) *InterestEngine {
	return &InterestEngine{store: store, ledger: ledger, logger: logger}
}

// RunDuePass applies interest to every active config whose compounding
// period has elapsed and whose account holds a positive balance, and
// returns the number of configs processed. Zero-balance accounts are not
// due and stay unstamped, so funding one later starts its first period
// immediately. For due configs the stamp advances even when the computed
// interest rounds to zero, so sub-cent balances do not retrigger on every
// pass.
func (e *InterestEngine) RunDuePass(ctx context.Context, now time.Time) (int, error) {
	configs, err := e.store.ActiveInterestConfigs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active interest configs: %w", err)
	}

	applied := 0
	for _, cfg := range configs {
		if !core.CompoundDue(cfg.Frequency, cfg.LastApplied, now) {
			continue
		}
		ok, err := e.apply(ctx, cfg, now)
		if err != nil {
			e.logger.ErrorContext(ctx, "interest application failed",
				"config_id", cfg.ID,
				"account_id", cfg.AccountID,
				"error", err)
			continue
		}
		if ok {
			applied++
		}
	}

	if applied > 0 {
		e.logger.InfoContext(ctx, "interest pass complete", "applied", applied)
	}
	return applied, nil
}

func (e *InterestEngine) apply(ctx context.Context, cfg core.InterestConfig, now time.Time) (bool, error) {
	unlock := e.ledger.LockAccounts(cfg.AccountID)
	defer unlock()

	var recordedID int64
	var applied bool
	err := e.store.WithinTx(ctx, func(s Store) error {
		recordedID = 0
		applied = false
		account, err := s.GetAccount(ctx, cfg.AccountID)
		if err != nil {
			return fmt.Errorf("loading account %d: %w", cfg.AccountID, err)
		}
		if account.Balance.Cents <= 0 {
			return nil
		}
		applied = true

		amount := core.InterestAmount(account.Balance, cfg.AnnualRate, cfg.Frequency)
		if amount.Cents > 0 {
			accountID := account.ID
			txn, err := e.ledger.RecordInTx(ctx, s, TransactionInput{
				Kind:        core.KindInterest,
				ToAccountID: &accountID,
				Amount:      amount,
				Category:    "Interest",
				Description: fmt.Sprintf("Interest payment (%g%% annual rate)", cfg.AnnualRate),
			})
			if err != nil {
				return fmt.Errorf("recording interest for account %d: %w", account.ID, err)
			}
			recordedID = txn.ID
		}
		return s.MarkInterestApplied(ctx, cfg.ID, now)
	})
	if err != nil {
		return false, err
	}

	if recordedID != 0 {
		e.ledger.PublishRecorded(ctx, recordedID)
	}
	return applied, nil
}
