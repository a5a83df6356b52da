package services_test

import (
	"context"
	"testing"
	"time"

	"familybank/internal/core"
	"familybank/internal/services"
	"familybank/internal/storage/memory"
)

type allowanceFixture struct {
	store    *memory.Store
	ledger   *services.Ledger
	engine   *services.AllowanceEngine
	user     core.User
	checking core.Account
	savings  core.Account
	vaultish core.Account
}

func newAllowanceFixture(t *testing.T) *allowanceFixture {
	t.Helper()
	store := memory.New()
	ledger := services.NewLedger(store, nil, testLogger())
	engine := services.NewAllowanceEngine(store, ledger, testLogger())

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

	mk := func(accountType core.AccountType, nickname string, isDefault bool) core.Account {
		a, err := store.CreateAccount(ctx, core.Account{
			OwnerID:   user.ID,
			Type:      accountType,
			Nickname:  nickname,
			IsDefault: isDefault,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("creating account %s: %v", nickname, err)
		}
		return a
	}

	return &allowanceFixture{
		store:    store,
		ledger:   ledger,
		engine:   engine,
		user:     user,
		checking: mk(core.AccountChecking, "Main", true),
		savings:  mk(core.AccountSavings, "Savings", true),
		vaultish: mk(core.AccountChecking, "Spending", false),
	}
}

func (f *allowanceFixture) addConfig(t *testing.T, amountCents int64, due time.Time) core.AllowanceConfig {
	t.Helper()
	cfg, err := f.store.CreateAllowanceConfig(context.Background(), core.AllowanceConfig{
		UserID:            f.user.ID,
		Amount:            core.Money{Cents: amountCents},
		Frequency:         core.Weekly,
		TargetAccountType: core.AccountChecking,
		NextDueDate:       due,
		Active:            true,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("creating allowance config: %v", err)
	}
	return cfg
}

func TestAllowancePassDefaultAccount(t *testing.T) {
	f := newAllowanceFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	f.addConfig(t, 1000, now.AddDate(0, 0, -1))

	paid, err := f.engine.RunDuePass(ctx, now)
	if err != nil {
		t.Fatalf("RunDuePass: %v", err)
	}
	if paid != 1 {
		t.Fatalf("paid = %d, want 1", paid)
	}

	balance, _ := f.ledger.GetBalance(ctx, f.checking.ID)
	if balance.Cents != 1000 {
		t.Errorf("checking balance = %d, want 1000", balance.Cents)
	}

	txns, _ := f.ledger.ListTransactions(ctx, f.checking.ID, 10, 0)
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].Kind != core.KindAllowance {
		t.Errorf("kind = %s, want allowance", txns[0].Kind)
	}
	if txns[0].Description != "Weekly allowance - Mar 15, 2024" {
		t.Errorf("description = %q", txns[0].Description)
	}
}

func TestAllowancePassSplits(t *testing.T) {
	f := newAllowanceFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	cfg := f.addConfig(t, 1000, now)
	err := f.store.ReplaceSplits(ctx, cfg.ID, []core.AllowanceSplit{
		{AccountID: f.checking.ID, Percentage: 50},
		{AccountID: f.savings.ID, Percentage: 30},
		{AccountID: f.vaultish.ID, Percentage: 20},
	})
	if err != nil {
		t.Fatalf("ReplaceSplits: %v", err)
	}

	if _, err := f.engine.RunDuePass(ctx, now); err != nil {
		t.Fatalf("RunDuePass: %v", err)
	}

	for _, tc := range []struct {
		account core.Account
		want    int64
	}{
		{f.checking, 500},
		{f.savings, 300},
		{f.vaultish, 200},
	} {
		balance, _ := f.ledger.GetBalance(ctx, tc.account.ID)
		if balance.Cents != tc.want {
			t.Errorf("%s balance = %d, want %d", tc.account.Nickname, balance.Cents, tc.want)
		}
	}

	txns, _ := f.ledger.ListTransactions(ctx, f.savings.ID, 10, 0)
	if len(txns) != 1 {
		t.Fatalf("savings got %d transactions, want 1", len(txns))
	}
	want := "Weekly allowance - Mar 15, 2024 (Savings: 30%)"
	if txns[0].Description != want {
		t.Errorf("description = %q, want %q", txns[0].Description, want)
	}
}

func TestAllowancePassSplitRemainderSumsExactly(t *testing.T) {
	f := newAllowanceFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	cfg := f.addConfig(t, 1001, now)
	err := f.store.ReplaceSplits(ctx, cfg.ID, []core.AllowanceSplit{
		{AccountID: f.checking.ID, Percentage: 33.33},
		{AccountID: f.savings.ID, Percentage: 33.33},
		{AccountID: f.vaultish.ID, Percentage: 33.34},
	})
	if err != nil {
		t.Fatalf("ReplaceSplits: %v", err)
	}

	if _, err := f.engine.RunDuePass(ctx, now); err != nil {
		t.Fatalf("RunDuePass: %v", err)
	}

	var sum int64
	for _, id := range []int64{f.checking.ID, f.savings.ID, f.vaultish.ID} {
		balance, _ := f.ledger.GetBalance(ctx, id)
		sum += balance.Cents
	}
	if sum != 1001 {
		t.Errorf("distributed sum = %d, want exactly 1001", sum)
	}
}

func TestAllowancePassIdempotent(t *testing.T) {
	f := newAllowanceFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	cfg := f.addConfig(t, 1000, now)

	paid, err := f.engine.RunDuePass(ctx, now)
	if err != nil || paid != 1 {
		t.Fatalf("first pass: paid = %d, err = %v", paid, err)
	}
	paid, err = f.engine.RunDuePass(ctx, now)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if paid != 0 {
		t.Errorf("second pass paid = %d, want 0", paid)
	}

	balance, _ := f.ledger.GetBalance(ctx, f.checking.ID)
	if balance.Cents != 1000 {
		t.Errorf("balance = %d, want 1000 after repeated passes", balance.Cents)
	}

	updated, _ := f.store.AllowanceConfigByID(ctx, cfg.ID)
	wantNext := core.NextDueDate(core.DateOf(now), core.Weekly, nil, nil)
	if !updated.NextDueDate.Equal(wantNext) {
		t.Errorf("next due = %v, want %v", updated.NextDueDate, wantNext)
	}
}

func TestAllowancePassSkipsInactiveAndFuture(t *testing.T) {
	f := newAllowanceFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	future := f.addConfig(t, 1000, now.AddDate(0, 0, 3))
	_ = future

	inactive := f.addConfig(t, 1000, now)
	inactive.Active = false
	if err := f.store.UpdateAllowanceConfig(ctx, inactive); err != nil {
		t.Fatalf("UpdateAllowanceConfig: %v", err)
	}

	paid, err := f.engine.RunDuePass(ctx, now)
	if err != nil {
		t.Fatalf("RunDuePass: %v", err)
	}
	if paid != 0 {
		t.Errorf("paid = %d, want 0", paid)
	}
}

func TestAllowancePassContinuesAfterFailure(t *testing.T) {
	f := newAllowanceFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	// A second member with no account of the target type.
	orphan, err := f.store.CreateUser(ctx, core.User{
		Username:    "alex",
		DisplayName: "Alex",
		Role:        core.RoleKid,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	if _, err := f.store.CreateAllowanceConfig(ctx, core.AllowanceConfig{
		UserID:            orphan.ID,
		Amount:            core.Money{Cents: 500},
		Frequency:         core.Weekly,
		TargetAccountType: core.AccountSavings,
		NextDueDate:       now,
		Active:            true,
		CreatedAt:         time.Now().UTC(),
	}); err != nil {
		t.Fatalf("creating orphan config: %v", err)
	}
	// Orphan sorts first; the healthy config must still be paid.
	f.addConfig(t, 1000, now)

	paid, err := f.engine.RunDuePass(ctx, now)
	if err != nil {
		t.Fatalf("RunDuePass: %v", err)
	}
	if paid != 1 {
		t.Errorf("paid = %d, want 1", paid)
	}

	balance, _ := f.ledger.GetBalance(ctx, f.checking.ID)
	if balance.Cents != 1000 {
		t.Errorf("healthy config balance = %d, want 1000", balance.Cents)
	}
}
