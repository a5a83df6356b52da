package worker

import (
	"context"
	"fmt"
	"log/slog"

	"familybank/internal/amqp"
	"familybank/internal/core"
	"familybank/internal/services"
	"familybank/internal/statement"
)

// StatementWorker exports finalized transactions to the statement
// destination. It is driven by AMQP messages, with a periodic backup
// sweep that picks up anything the broker dropped.
type StatementWorker struct {
	store     services.Store
	appender  statement.Appender
	batchSize int
	logger    *slog.Logger
}

func NewStatementWorker(store services.Store, appender statement.Appender, batchSize int, logger *slog.Logger) *StatementWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &StatementWorker{
		store:     store,
		appender:  appender,
		batchSize: batchSize,
		logger:    logger,
	}
}

// HandleMessage processes one recorded-transaction message.
func (w *StatementWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	return w.Export(ctx, msg.TransactionID)
}

// Export appends one transaction to the statement and marks it exported.
// Pending transactions are skipped; they are exported once reviewed.
func (w *StatementWorker) Export(ctx context.Context, transactionID int64) error {
	txn, err := w.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", transactionID, err)
	}
	if !txn.Status.Terminal() {
		w.logger.InfoContext(ctx, "skipping unreviewed transaction", "transaction_id", txn.ID)
		return nil
	}

	entry, err := w.buildEntry(ctx, txn)
	if err != nil {
		return err
	}

	rowRef, err := w.appender.Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("append statement entry for transaction %d: %w", txn.ID, err)
	}
	if err := w.store.MarkTransactionExported(ctx, txn.ID); err != nil {
		return fmt.Errorf("mark transaction %d exported: %w", txn.ID, err)
	}

	w.logger.InfoContext(ctx, "transaction exported",
		"transaction_id", txn.ID,
		"row", rowRef)
	return nil
}

// RunBackupSweep exports any finalized transactions that were never
// delivered through the broker. Returns the number exported.
func (w *StatementWorker) RunBackupSweep(ctx context.Context) (int, error) {
	txns, err := w.store.UnexportedTransactions(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unexported transactions: %w", err)
	}

	exported := 0
	for _, txn := range txns {
		if err := w.Export(ctx, txn.ID); err != nil {
			w.logger.ErrorContext(ctx, "backup export failed",
				"transaction_id", txn.ID,
				"error", err)
			continue
		}
		exported++
	}
	return exported, nil
}

// buildEntry resolves the member and account names for the statement row.
// The destination account wins for deposits; withdrawals use the source
// and flip the sign.
func (w *StatementWorker) buildEntry(ctx context.Context, txn core.Transaction) (statement.Entry, error) {
	accountID := txn.ToAccountID
	amount := txn.Amount.Cents
	if accountID == nil {
		accountID = txn.FromAccountID
		amount = -amount
	}

	entry := statement.Entry{
		TransactionID: txn.ID,
		Date:          txn.CreatedAt,
		Kind:          string(txn.Kind),
		Category:      txn.Category,
		Description:   txn.Description,
		AmountCents:   amount,
		Status:        string(txn.Status),
	}

	if accountID == nil {
		return entry, nil
	}
	account, err := w.store.GetAccount(ctx, *accountID)
	if err != nil {
		return statement.Entry{}, fmt.Errorf("load account %d: %w", *accountID, err)
	}
	entry.Account = account.Nickname

	owner, err := w.store.GetUser(ctx, account.OwnerID)
	if err != nil {
		return statement.Entry{}, fmt.Errorf("load user %d: %w", account.OwnerID, err)
	}
	entry.Member = owner.DisplayName
	return entry, nil
}
