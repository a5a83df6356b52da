package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"familybank/internal/core"
)

// AllowanceEngine disburses due allowances. Each config is processed in
// its own unit of work: the disbursement transactions, the balance
// credits and the advance of the next due date commit together, so a
// crashed pass never pays twice.
type AllowanceEngine struct {
	store  Store
	ledger *Ledger
	logger *slog.Logger
}

func NewAllowanceEngine(store Store, ledger *Ledger, logger *slog.Logger) *AllowanceEngine {
	return &AllowanceEngine{store: store, ledger: ledger, logger: logger}
}

// RunDuePass disburses every active allowance whose due date is on or
// before now and returns the number of configs paid. A failing config is
// logged and skipped; the pass continues with the rest.
func (e *AllowanceEngine) RunDuePass(ctx context.Context, now time.Time) (int, error) {
	due, err := e.store.DueAllowanceConfigs(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing due allowance configs: %w", err)
	}

	paid := 0
	for _, cfg := range due {
		if err := e.disburse(ctx, cfg, now); err != nil {
			e.logger.ErrorContext(ctx, "allowance disbursement failed",
				"config_id", cfg.ID,
				"user_id", cfg.UserID,
				"error", err)
			continue
		}
		paid++
	}

	if paid > 0 {
		e.logger.InfoContext(ctx, "allowance pass complete", "disbursed", paid, "due", len(due))
	}
	return paid, nil
}

func (e *AllowanceEngine) disburse(ctx context.Context, cfg core.AllowanceConfig, now time.Time) error {
	allocations, err := e.resolveAllocations(ctx, cfg)
	if err != nil {
		return err
	}
	if len(allocations) == 0 {
		// Advance the schedule anyway so a misconfigured split does not
		// retrigger on every pass.
		return e.store.UpdateNextDueDate(ctx, cfg.ID, e.nextDue(cfg))
	}

	base := fmt.Sprintf("%s allowance - %s", titleFrequency(cfg.Frequency), now.Format("Jan 02, 2006"))

	ids := make([]int64, 0, len(allocations))
	for _, a := range allocations {
		ids = append(ids, a.AccountID)
	}
	unlock := e.ledger.LockAccounts(ids...)
	defer unlock()

	var recorded []int64
	err = e.store.WithinTx(ctx, func(s Store) error {
		recorded = recorded[:0]
		for _, alloc := range allocations {
			description := base
			if len(allocations) > 1 {
				description = fmt.Sprintf("%s (%s: %g%%)", base, alloc.Nickname, alloc.Percentage)
			}
			accountID := alloc.AccountID
			txn, err := e.ledger.RecordInTx(ctx, s, TransactionInput{
				Kind:        core.KindAllowance,
				ToAccountID: &accountID,
				Amount:      alloc.Amount,
				Category:    "Allowance",
				Description: description,
			})
			if err != nil {
				return fmt.Errorf("recording allowance to account %d: %w", alloc.AccountID, err)
			}
			recorded = append(recorded, txn.ID)
		}
		return s.UpdateNextDueDate(ctx, cfg.ID, e.nextDue(cfg))
	})
	if err != nil {
		return err
	}

	for _, id := range recorded {
		e.ledger.PublishRecorded(ctx, id)
	}
	return nil
}

// resolveAllocations maps a config to concrete amounts per destination
// account. With splits configured the amount is distributed across them;
// otherwise the whole amount goes to the member's default account of the
// configured type.
func (e *AllowanceEngine) resolveAllocations(ctx context.Context, cfg core.AllowanceConfig) ([]core.Allocation, error) {
	splits, err := e.store.SplitsForConfig(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("loading splits for config %d: %w", cfg.ID, err)
	}

	if len(splits) == 0 {
		account, err := e.store.DefaultAccount(ctx, cfg.UserID, cfg.TargetAccountType)
		if err != nil {
			if errors.Is(err, core.ErrAccountNotFound) {
				e.logger.WarnContext(ctx, "no destination account for allowance",
					"config_id", cfg.ID,
					"user_id", cfg.UserID,
					"account_type", string(cfg.TargetAccountType))
				return nil, core.ErrNoDestinationAccount
			}
			return nil, fmt.Errorf("loading default account for user %d: %w", cfg.UserID, err)
		}
		return []core.Allocation{{
			AccountID:  account.ID,
			Nickname:   account.Nickname,
			Percentage: 100,
			Amount:     cfg.Amount,
		}}, nil
	}

	shares := make([]core.SplitShare, 0, len(splits))
	for _, split := range splits {
		account, err := e.store.GetAccount(ctx, split.AccountID)
		if err != nil {
			return nil, fmt.Errorf("loading split account %d: %w", split.AccountID, err)
		}
		shares = append(shares, core.SplitShare{
			AccountID:  account.ID,
			Nickname:   account.Nickname,
			Percentage: split.Percentage,
		})
	}
	return core.Distribute(cfg.Amount, shares), nil
}

// nextDue computes the following due date from the schedule that was due,
// not from the processing time, so delayed passes do not drift.
func (e *AllowanceEngine) nextDue(cfg core.AllowanceConfig) time.Time {
	return core.NextDueDate(core.DateOf(cfg.NextDueDate), cfg.Frequency, cfg.DayOfWeek, cfg.DayOfMonth)
}

func titleFrequency(f core.Frequency) string {
	s := string(f)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
