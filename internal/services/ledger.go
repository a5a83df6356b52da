package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"familybank/internal/core"
)

// Ledger records transactions and keeps account balances consistent with
// the transaction log. Balance reads, sufficiency checks and writes for a
// given set of accounts are serialized through per-account locks, and the
// log append plus the balance update happen in one storage unit of work.
type Ledger struct {
	store  Store
	events EventPublisher
	logger *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// TransactionInput is a request to record one ledger entry.
type TransactionInput struct {
	Kind          core.TransactionKind
	FromAccountID *int64
	ToAccountID   *int64
	Amount        core.Money
	Category      string
	Description   string
	Pending       bool
}

func NewLedger(store Store, events EventPublisher, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		events: events,
		logger: logger,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// RecordTransaction validates and persists one transaction. Completed
// transactions apply their balance effects in the same unit of work as the
// log append; pending transactions touch no balance until they are
// reviewed.
func (l *Ledger) RecordTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	unlock := l.LockAccounts(accountIDs(in.FromAccountID, in.ToAccountID)...)
	defer unlock()

	var recorded core.Transaction
	err := l.store.WithinTx(ctx, func(s Store) error {
		var err error
		recorded, err = l.RecordInTx(ctx, s, in)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	if recorded.Status == core.StatusCompleted {
		l.publishRecorded(ctx, recorded.ID)
	}
	return recorded, nil
}

// RecordInTx appends one transaction inside an already-open unit of work.
// Callers that batch several entries (the allowance and interest engines,
// the approval workflow) use this directly; they are responsible for
// holding the account locks and publishing events after commit.
func (l *Ledger) RecordInTx(ctx context.Context, s Store, in TransactionInput) (core.Transaction, error) {
	status := core.StatusCompleted
	if in.Pending {
		status = core.StatusPending
	}

	txn := core.Transaction{
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Amount:        in.Amount,
		Kind:          in.Kind,
		Category:      in.Category,
		Description:   in.Description,
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
	if err := txn.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validating transaction: %w", err)
	}

	if in.FromAccountID != nil {
		src, err := s.GetAccount(ctx, *in.FromAccountID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("loading source account %d: %w", *in.FromAccountID, err)
		}
		if !src.IsVault() && src.Balance.Cents < in.Amount.Cents {
			return core.Transaction{}, core.ErrInsufficientFunds
		}
	}
	if in.ToAccountID != nil {
		if _, err := s.GetAccount(ctx, *in.ToAccountID); err != nil {
			return core.Transaction{}, fmt.Errorf("loading destination account %d: %w", *in.ToAccountID, err)
		}
	}

	created, err := s.CreateTransaction(ctx, txn)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("inserting transaction: %w", err)
	}

	if status == core.StatusCompleted {
		if err := applyBalanceEffects(ctx, s, created); err != nil {
			return core.Transaction{}, err
		}
	}
	return created, nil
}

// applyBalanceEffects debits the source and credits the destination of a
// completed transaction. Vault sources are an unconstrained funding pool;
// their balance is never debited.
func applyBalanceEffects(ctx context.Context, s Store, txn core.Transaction) error {
	if txn.FromAccountID != nil {
		src, err := s.GetAccount(ctx, *txn.FromAccountID)
		if err != nil {
			return fmt.Errorf("loading source account %d: %w", *txn.FromAccountID, err)
		}
		if !src.IsVault() {
			if err := s.AdjustBalance(ctx, *txn.FromAccountID, -txn.Amount.Cents); err != nil {
				return fmt.Errorf("debiting account %d: %w", *txn.FromAccountID, err)
			}
		}
	}
	if txn.ToAccountID != nil {
		if err := s.AdjustBalance(ctx, *txn.ToAccountID, txn.Amount.Cents); err != nil {
			return fmt.Errorf("crediting account %d: %w", *txn.ToAccountID, err)
		}
	}
	return nil
}

// LockAccounts acquires the per-account mutexes for the given IDs in
// ascending order and returns the release func. Ordered acquisition keeps
// concurrent multi-account operations deadlock free.
func (l *Ledger) LockAccounts(ids ...int64) func() {
	if len(ids) == 0 {
		return func() {}
	}

	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	held := make([]*sync.Mutex, 0, len(unique))
	for _, id := range unique {
		mu := l.accountLock(id)
		mu.Lock()
		held = append(held, mu)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (l *Ledger) accountLock(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[id] = mu
	}
	return mu
}

// publishRecorded notifies downstream consumers. Publishing is best
// effort: a broker failure never rolls back a committed transaction.
func (l *Ledger) publishRecorded(ctx context.Context, transactionID int64) {
	if l.events == nil {
		return
	}
	if err := l.events.PublishTransactionRecorded(ctx, transactionID); err != nil {
		l.logger.WarnContext(ctx, "failed to publish transaction event",
			"transaction_id", transactionID,
			"error", err)
	}
}

// PublishRecorded is the engines' hook for post-commit event publication.
func (l *Ledger) PublishRecorded(ctx context.Context, transactionID int64) {
	l.publishRecorded(ctx, transactionID)
}

// GetBalance returns the current balance of one account.
func (l *Ledger) GetBalance(ctx context.Context, accountID int64) (core.Money, error) {
	account, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Money{}, fmt.Errorf("loading account %d: %w", accountID, err)
	}
	return account.Balance, nil
}

// ListTransactions returns an account's history newest first.
func (l *Ledger) ListTransactions(ctx context.Context, accountID int64, limit, offset int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	txns, err := l.store.TransactionsByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for account %d: %w", accountID, err)
	}
	return txns, nil
}

func accountIDs(ptrs ...*int64) []int64 {
	ids := make([]int64, 0, len(ptrs))
	for _, p := range ptrs {
		if p != nil {
			ids = append(ids, *p)
		}
	}
	return ids
}
