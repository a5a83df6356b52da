package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"familybank/internal/core"
)

// Settings keys consulted by the approval workflow.
const (
	SettingApprovalRequired      = "withdrawal_approval_required"
	SettingMaxWithoutApproval    = "max_withdrawal_without_approval"
	SettingBankName              = "bank_name"
	SettingCurrencySymbol        = "currency_symbol"
	SettingKidsCanCreateChecking = "kids_can_create_checking"
	SettingMaxCheckingPerKid     = "max_checking_accounts_per_kid"
)

// ApprovalWorkflow routes withdrawals through parental review. Pending
// withdrawals hold no funds; the balance is checked again and deducted
// only when a parent approves.
type ApprovalWorkflow struct {
	store  Store
	ledger *Ledger
	logger *slog.Logger
}

func NewApprovalWorkflow(store Store, ledger *Ledger, logger *slog.Logger) *ApprovalWorkflow {
	return &ApprovalWorkflow{store: store, ledger: ledger, logger: logger}
}

// RequestWithdrawal records a withdrawal for the requesting user. Parents
// and amounts at or under the no-approval threshold complete immediately;
// everything else is recorded pending. The source balance is validated at
// request time either way so a kid cannot queue a withdrawal they cannot
// cover today.
func (w *ApprovalWorkflow) RequestWithdrawal(ctx context.Context, requester core.User, accountID int64, amount core.Money, category, description string) (core.Transaction, error) {
	if err := amount.Validate(); err != nil {
		return core.Transaction{}, err
	}

	account, err := w.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("loading account %d: %w", accountID, err)
	}
	if !account.IsVault() && account.Balance.Cents < amount.Cents {
		return core.Transaction{}, core.ErrInsufficientFunds
	}

	pending, err := w.needsApproval(ctx, requester, amount)
	if err != nil {
		return core.Transaction{}, err
	}

	txn, err := w.ledger.RecordTransaction(ctx, TransactionInput{
		Kind:          core.KindWithdrawal,
		FromAccountID: &accountID,
		Amount:        amount,
		Category:      category,
		Description:   description,
		Pending:       pending,
	})
	if err != nil {
		return core.Transaction{}, err
	}

	w.logger.InfoContext(ctx, "withdrawal requested",
		"transaction_id", txn.ID,
		"account_id", accountID,
		"amount", amount.String(),
		"status", string(txn.Status))
	return txn, nil
}

func (w *ApprovalWorkflow) needsApproval(ctx context.Context, requester core.User, amount core.Money) (bool, error) {
	if requester.Role == core.RoleParent {
		return false, nil
	}

	required, err := w.boolSetting(ctx, SettingApprovalRequired, true)
	if err != nil {
		return false, err
	}
	if !required {
		return false, nil
	}

	threshold, err := w.store.Setting(ctx, SettingMaxWithoutApproval)
	if err != nil {
		return false, fmt.Errorf("reading setting %s: %w", SettingMaxWithoutApproval, err)
	}
	maxDollars, err := strconv.ParseFloat(threshold, 64)
	if err != nil {
		w.logger.WarnContext(ctx, "unparseable approval threshold, requiring approval",
			"value", threshold,
			"error", err)
		return true, nil
	}
	maxCents := int64(maxDollars * 100)
	return amount.Cents > maxCents, nil
}

func (w *ApprovalWorkflow) boolSetting(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, err := w.store.Setting(ctx, key)
	if err != nil {
		return false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, nil
	}
	return v, nil
}

// Approve finalizes a pending withdrawal: the balance is re-checked and
// deducted inside one unit of work, and the review fields are stamped.
// Only pending transactions can be approved.
func (w *ApprovalWorkflow) Approve(ctx context.Context, transactionID, reviewerID int64) (core.Transaction, error) {
	txn, err := w.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return core.Transaction{}, err
	}
	if txn.Status != core.StatusPending {
		return core.Transaction{}, core.ErrAlreadyReviewed
	}

	unlock := w.ledger.LockAccounts(accountIDs(txn.FromAccountID, txn.ToAccountID)...)
	defer unlock()

	now := time.Now().UTC()
	err = w.store.WithinTx(ctx, func(s Store) error {
		current, err := s.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if current.Status != core.StatusPending {
			return core.ErrAlreadyReviewed
		}

		if current.FromAccountID != nil {
			src, err := s.GetAccount(ctx, *current.FromAccountID)
			if err != nil {
				return fmt.Errorf("loading source account %d: %w", *current.FromAccountID, err)
			}
			if !src.IsVault() && src.Balance.Cents < current.Amount.Cents {
				return core.ErrInsufficientFunds
			}
		}

		if err := s.ReviewTransaction(ctx, transactionID, core.StatusApproved, reviewerID, now, current.Description); err != nil {
			return fmt.Errorf("marking transaction approved: %w", err)
		}
		return applyBalanceEffects(ctx, s, current)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	w.logger.InfoContext(ctx, "withdrawal approved",
		"transaction_id", transactionID,
		"reviewer_id", reviewerID)
	w.ledger.PublishRecorded(ctx, transactionID)
	return w.store.GetTransaction(ctx, transactionID)
}

// Reject declines a pending withdrawal. No balance changes; the reason,
// when given, is appended to the description.
func (w *ApprovalWorkflow) Reject(ctx context.Context, transactionID, reviewerID int64, reason string) (core.Transaction, error) {
	txn, err := w.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return core.Transaction{}, err
	}
	if txn.Status != core.StatusPending {
		return core.Transaction{}, core.ErrAlreadyReviewed
	}

	description := txn.Description
	if reason != "" {
		description += " [Rejected: " + reason + "]"
	}

	now := time.Now().UTC()
	err = w.store.WithinTx(ctx, func(s Store) error {
		current, err := s.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if current.Status != core.StatusPending {
			return core.ErrAlreadyReviewed
		}
		return s.ReviewTransaction(ctx, transactionID, core.StatusRejected, reviewerID, now, description)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	w.logger.InfoContext(ctx, "withdrawal rejected",
		"transaction_id", transactionID,
		"reviewer_id", reviewerID,
		"reason", reason)
	return w.store.GetTransaction(ctx, transactionID)
}

// ListPending returns all withdrawals awaiting review.
func (w *ApprovalWorkflow) ListPending(ctx context.Context) ([]core.Transaction, error) {
	return w.store.PendingTransactions(ctx)
}
