package worker_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"familybank/internal/core"
	"familybank/internal/services"
	stmem "familybank/internal/statement/memory"
	"familybank/internal/storage/memory"
	"familybank/internal/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *memory.Store
	ledger   *services.Ledger
	appender *stmem.Appender
	worker   *worker.StatementWorker
	account  core.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	ledger := services.NewLedger(store, nil, testLogger())
	appender := stmem.New()

	ctx := context.Background()
	user, err := store.CreateUser(ctx, core.User{
		Username:    "sam",
		DisplayName: "Sam",
		Role:        core.RoleKid,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	account, err := store.CreateAccount(ctx, core.Account{
		OwnerID:   user.ID,
		Type:      core.AccountChecking,
		Nickname:  "Main",
		IsDefault: true,
		Balance:   core.Money{Cents: 5000},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("creating account: %v", err)
	}

	return &fixture{
		store:    store,
		ledger:   ledger,
		appender: appender,
		worker:   worker.NewStatementWorker(store, appender, 10, testLogger()),
		account:  account,
	}
}

func (f *fixture) record(t *testing.T, in services.TransactionInput) core.Transaction {
	t.Helper()
	txn, err := f.ledger.RecordTransaction(context.Background(), in)
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	return txn
}

func TestExportWritesEntryAndMarks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn := f.record(t, services.TransactionInput{
		Kind:        core.KindDeposit,
		ToAccountID: &f.account.ID,
		Amount:      core.Money{Cents: 1234},
		Category:    "Gift",
		Description: "Birthday",
	})

	if err := f.worker.Export(ctx, txn.ID); err != nil {
		t.Fatalf("Export: %v", err)
	}

	entries := f.appender.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.TransactionID != txn.ID || e.Member != "Sam" || e.Account != "Main" {
		t.Errorf("entry = %+v", e)
	}
	if e.AmountCents != 1234 {
		t.Errorf("amount = %d, want 1234", e.AmountCents)
	}

	remaining, _ := f.store.UnexportedTransactions(ctx, 10)
	if len(remaining) != 0 {
		t.Errorf("transaction still unexported after Export")
	}
}

func TestExportWithdrawalIsNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn := f.record(t, services.TransactionInput{
		Kind:          core.KindWithdrawal,
		FromAccountID: &f.account.ID,
		Amount:        core.Money{Cents: 500},
		Category:      "Toys",
	})

	if err := f.worker.Export(ctx, txn.ID); err != nil {
		t.Fatalf("Export: %v", err)
	}
	entries := f.appender.Entries()
	if len(entries) != 1 || entries[0].AmountCents != -500 {
		t.Errorf("entries = %+v, want one entry of -500", entries)
	}
}

func TestExportSkipsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn := f.record(t, services.TransactionInput{
		Kind:          core.KindWithdrawal,
		FromAccountID: &f.account.ID,
		Amount:        core.Money{Cents: 500},
		Category:      "Toys",
		Pending:       true,
	})

	if err := f.worker.Export(ctx, txn.ID); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(f.appender.Entries()) != 0 {
		t.Error("pending transaction must not be exported")
	}
}

func TestBackupSweepExportsAndContinuesOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.record(t, services.TransactionInput{
			Kind:        core.KindDeposit,
			ToAccountID: &f.account.ID,
			Amount:      core.Money{Cents: 100},
			Category:    "Gift",
		})
	}

	// First append fails; the sweep continues with the rest.
	f.appender.FailNext = true
	exported, err := f.worker.RunBackupSweep(ctx)
	if err != nil {
		t.Fatalf("RunBackupSweep: %v", err)
	}
	if exported != 2 {
		t.Errorf("exported = %d, want 2", exported)
	}

	// A second sweep picks up the one that failed.
	exported, err = f.worker.RunBackupSweep(ctx)
	if err != nil {
		t.Fatalf("second RunBackupSweep: %v", err)
	}
	if exported != 1 {
		t.Errorf("second sweep exported = %d, want 1", exported)
	}
	if len(f.appender.Entries()) != 3 {
		t.Errorf("total entries = %d, want 3", len(f.appender.Entries()))
	}
}
