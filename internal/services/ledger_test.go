package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"familybank/internal/core"
	"familybank/internal/services"
	"familybank/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capturingPublisher struct {
	mu  sync.Mutex
	ids []int64
}

func (p *capturingPublisher) PublishTransactionRecorded(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return nil
}

func (p *capturingPublisher) published() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int64, len(p.ids))
	copy(out, p.ids)
	return out
}

func seedAccount(t *testing.T, store services.Store, accountType core.AccountType, cents int64) core.Account {
	t.Helper()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, core.User{
		Username:    "member",
		DisplayName: "Member",
		Role:        core.RoleKid,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	account, err := store.CreateAccount(ctx, core.Account{
		OwnerID:   user.ID,
		Type:      accountType,
		Nickname:  "Main",
		IsDefault: true,
		Balance:   core.Money{Cents: cents},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("creating account: %v", err)
	}
	return account
}

func TestRecordTransactionDeposit(t *testing.T) {
	store := memory.New()
	events := &capturingPublisher{}
	ledger := services.NewLedger(store, events, testLogger())
	ctx := context.Background()

	account := seedAccount(t, store, core.AccountChecking, 0)

	txn, err := ledger.RecordTransaction(ctx, services.TransactionInput{
		Kind:        core.KindDeposit,
		ToAccountID: &account.ID,
		Amount:      core.Money{Cents: 2500},
		Category:    "Gift",
		Description: "Birthday money",
	})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if txn.Status != core.StatusCompleted {
		t.Errorf("status = %s, want completed", txn.Status)
	}

	balance, err := ledger.GetBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance.Cents != 2500 {
		t.Errorf("balance = %d, want 2500", balance.Cents)
	}

	if got := events.published(); len(got) != 1 || got[0] != txn.ID {
		t.Errorf("published events = %v, want [%d]", got, txn.ID)
	}
}

func TestRecordTransactionInsufficientFunds(t *testing.T) {
	store := memory.New()
	ledger := services.NewLedger(store, nil, testLogger())
	ctx := context.Background()

	account := seedAccount(t, store, core.AccountChecking, 500)

	_, err := ledger.RecordTransaction(ctx, services.TransactionInput{
		Kind:          core.KindWithdrawal,
		FromAccountID: &account.ID,
		Amount:        core.Money{Cents: 600},
		Category:      "Toys",
	})
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}

	balance, err := ledger.GetBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance.Cents != 500 {
		t.Errorf("balance = %d after rejected withdrawal, want 500", balance.Cents)
	}
}

func TestRecordTransactionVaultBypassesBalanceCheck(t *testing.T) {
	store := memory.New()
	ledger := services.NewLedger(store, nil, testLogger())
	ctx := context.Background()

	vault := seedAccount(t, store, core.AccountVault, 0)
	kid := seedAccount(t, store, core.AccountChecking, 0)

	txn, err := ledger.RecordTransaction(ctx, services.TransactionInput{
		Kind:          core.KindParentDeposit,
		FromAccountID: &vault.ID,
		ToAccountID:   &kid.ID,
		Amount:        core.Money{Cents: 10000},
		Category:      "Allowance",
	})
	if err != nil {
		t.Fatalf("RecordTransaction from empty vault: %v", err)
	}
	if txn.Status != core.StatusCompleted {
		t.Errorf("status = %s, want completed", txn.Status)
	}

	kidBalance, _ := ledger.GetBalance(ctx, kid.ID)
	if kidBalance.Cents != 10000 {
		t.Errorf("kid balance = %d, want 10000", kidBalance.Cents)
	}
	vaultBalance, _ := ledger.GetBalance(ctx, vault.ID)
	if vaultBalance.Cents != 0 {
		t.Errorf("vault balance = %d, want untouched 0", vaultBalance.Cents)
	}
}

func TestRecordTransactionTransferMovesBothBalances(t *testing.T) {
	store := memory.New()
	ledger := services.NewLedger(store, nil, testLogger())
	ctx := context.Background()

	src := seedAccount(t, store, core.AccountChecking, 1000)
	dst := seedAccount(t, store, core.AccountSavings, 200)

	if _, err := ledger.RecordTransaction(ctx, services.TransactionInput{
		Kind:          core.KindTransfer,
		FromAccountID: &src.ID,
		ToAccountID:   &dst.ID,
		Amount:        core.Money{Cents: 300},
		Category:      "Savings Goal",
	}); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}

	srcBalance, _ := ledger.GetBalance(ctx, src.ID)
	dstBalance, _ := ledger.GetBalance(ctx, dst.ID)
	if srcBalance.Cents != 700 {
		t.Errorf("source balance = %d, want 700", srcBalance.Cents)
	}
	if dstBalance.Cents != 500 {
		t.Errorf("destination balance = %d, want 500", dstBalance.Cents)
	}
}

func TestRecordTransactionPendingTouchesNoBalance(t *testing.T) {
	store := memory.New()
	events := &capturingPublisher{}
	ledger := services.NewLedger(store, events, testLogger())
	ctx := context.Background()

	account := seedAccount(t, store, core.AccountChecking, 1000)

	txn, err := ledger.RecordTransaction(ctx, services.TransactionInput{
		Kind:          core.KindWithdrawal,
		FromAccountID: &account.ID,
		Amount:        core.Money{Cents: 400},
		Category:      "Toys",
		Pending:       true,
	})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if txn.Status != core.StatusPending {
		t.Errorf("status = %s, want pending", txn.Status)
	}

	balance, _ := ledger.GetBalance(ctx, account.ID)
	if balance.Cents != 1000 {
		t.Errorf("balance = %d, want untouched 1000", balance.Cents)
	}
	if got := events.published(); len(got) != 0 {
		t.Errorf("pending transaction published events %v, want none", got)
	}
}

func TestRecordTransactionConcurrentWithdrawals(t *testing.T) {
	store := memory.New()
	ledger := services.NewLedger(store, nil, testLogger())
	ctx := context.Background()

	account := seedAccount(t, store, core.AccountChecking, 1000)

	const workers = 20
	var wg sync.WaitGroup
	var succeeded int64
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RecordTransaction(ctx, services.TransactionInput{
				Kind:          core.KindWithdrawal,
				FromAccountID: &account.ID,
				Amount:        core.Money{Cents: 100},
				Category:      "Snacks",
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, core.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, _ := ledger.GetBalance(ctx, account.ID)
	if balance.Cents != 1000-succeeded*100 {
		t.Errorf("balance = %d, want %d after %d withdrawals", balance.Cents, 1000-succeeded*100, succeeded)
	}
	if balance.Cents < 0 {
		t.Errorf("balance went negative: %d", balance.Cents)
	}
	if succeeded != 10 {
		t.Errorf("succeeded = %d, want exactly 10", succeeded)
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	store := memory.New()
	ledger := services.NewLedger(store, nil, testLogger())
	ctx := context.Background()

	account := seedAccount(t, store, core.AccountChecking, 0)

	var last int64
	for i := 0; i < 3; i++ {
		txn, err := ledger.RecordTransaction(ctx, services.TransactionInput{
			Kind:        core.KindDeposit,
			ToAccountID: &account.ID,
			Amount:      core.Money{Cents: 100},
			Category:    "Gift",
		})
		if err != nil {
			t.Fatalf("RecordTransaction: %v", err)
		}
		last = txn.ID
	}

	txns, err := ledger.ListTransactions(ctx, account.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txns))
	}
	if txns[0].ID != last {
		t.Errorf("first transaction ID = %d, want newest %d", txns[0].ID, last)
	}
}
