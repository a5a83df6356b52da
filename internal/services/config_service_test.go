package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"familybank/internal/core"
	"familybank/internal/services"
	"familybank/internal/storage/memory"
)

func newConfigFixture(t *testing.T) (*services.ConfigService, *memory.Store) {
	t.Helper()
	store := memory.New()
	return services.NewConfigService(store, testLogger()), store
}

func TestCreateMemberProvisionsDefaults(t *testing.T) {
	svc, store := newConfigFixture(t)
	ctx := context.Background()

	user, err := svc.CreateMember(ctx, "sam", "Sam", "#f59e0b")
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	if user.Role != core.RoleKid {
		t.Errorf("role = %s, want kid", user.Role)
	}

	accounts, err := store.AccountsByOwner(ctx, user.ID)
	if err != nil {
		t.Fatalf("AccountsByOwner: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want checking and savings", len(accounts))
	}

	var checking, savings *core.Account
	for i := range accounts {
		switch accounts[i].Type {
		case core.AccountChecking:
			checking = &accounts[i]
		case core.AccountSavings:
			savings = &accounts[i]
		}
	}
	if checking == nil || !checking.IsDefault || checking.Nickname != "Main" {
		t.Errorf("checking account = %+v, want default nicknamed Main", checking)
	}
	if savings == nil || !savings.IsDefault || savings.Nickname != "Savings" {
		t.Errorf("savings account = %+v, want default nicknamed Savings", savings)
	}

	cfg, err := store.AllowanceConfigByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("AllowanceConfigByUser: %v", err)
	}
	if cfg.Active {
		t.Error("seeded allowance must start inactive")
	}
	if cfg.Frequency != core.Weekly {
		t.Errorf("frequency = %s, want weekly", cfg.Frequency)
	}
	if cfg.NextDueDate.Weekday() != time.Monday {
		t.Errorf("next due %v falls on %s, want Monday", cfg.NextDueDate, cfg.NextDueDate.Weekday())
	}
	if !cfg.NextDueDate.After(core.DateOf(time.Now().UTC())) {
		t.Errorf("next due %v is not in the future", cfg.NextDueDate)
	}

	splits, err := store.SplitsForConfig(ctx, cfg.ID)
	if err != nil {
		t.Fatalf("SplitsForConfig: %v", err)
	}
	if len(splits) != 1 || splits[0].Percentage != 100 || splits[0].AccountID != checking.ID {
		t.Errorf("splits = %+v, want single 100%% share to checking", splits)
	}

	interest, err := store.InterestConfigByAccount(ctx, savings.ID)
	if err != nil {
		t.Fatalf("InterestConfigByAccount: %v", err)
	}
	if interest.Active {
		t.Error("seeded interest must start inactive")
	}
	if interest.AnnualRate != 5.0 || interest.Frequency != core.CompoundMonthly {
		t.Errorf("interest = %+v, want 5%% monthly", interest)
	}
}

func TestCreateParentProvisionsVault(t *testing.T) {
	svc, store := newConfigFixture(t)
	ctx := context.Background()

	user, err := svc.CreateParent(ctx, "dana", "Dana", "#3b82f6")
	if err != nil {
		t.Fatalf("CreateParent: %v", err)
	}
	if user.Role != core.RoleParent {
		t.Errorf("role = %s, want parent", user.Role)
	}

	accounts, _ := store.AccountsByOwner(ctx, user.ID)
	if len(accounts) != 1 {
		t.Fatalf("got %d accounts, want 1 vault", len(accounts))
	}
	if !accounts[0].IsVault() {
		t.Errorf("account type = %s, want vault", accounts[0].Type)
	}
}

func TestCreateCheckingAccount(t *testing.T) {
	svc, store := newConfigFixture(t)
	ctx := context.Background()

	user, err := svc.CreateMember(ctx, "sam", "Sam", "")
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	account, err := svc.CreateCheckingAccount(ctx, user.ID, "Spending")
	if err != nil {
		t.Fatalf("CreateCheckingAccount: %v", err)
	}
	if account.IsDefault {
		t.Error("second checking account must not become default")
	}

	if _, err := svc.CreateCheckingAccount(ctx, user.ID, "spending"); !errors.Is(err, core.ErrNicknameTaken) {
		t.Errorf("duplicate nickname error = %v, want ErrNicknameTaken", err)
	}
	if _, err := svc.CreateCheckingAccount(ctx, user.ID, "  "); err == nil {
		t.Error("blank nickname must be rejected")
	}

	if err := store.SetSetting(ctx, services.SettingMaxCheckingPerKid, "2"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if _, err := svc.CreateCheckingAccount(ctx, user.ID, "Third"); err == nil {
		t.Error("account limit must be enforced")
	}
}

func TestRenameAccount(t *testing.T) {
	svc, store := newConfigFixture(t)
	ctx := context.Background()

	user, _ := svc.CreateMember(ctx, "sam", "Sam", "")
	extra, err := svc.CreateCheckingAccount(ctx, user.ID, "Spending")
	if err != nil {
		t.Fatalf("CreateCheckingAccount: %v", err)
	}

	if err := svc.RenameAccount(ctx, extra.ID, "Main"); !errors.Is(err, core.ErrNicknameTaken) {
		t.Errorf("rename onto existing nickname error = %v, want ErrNicknameTaken", err)
	}
	if err := svc.RenameAccount(ctx, extra.ID, "Fun Money"); err != nil {
		t.Fatalf("RenameAccount: %v", err)
	}
	renamed, _ := store.GetAccount(ctx, extra.ID)
	if renamed.Nickname != "Fun Money" {
		t.Errorf("nickname = %q, want Fun Money", renamed.Nickname)
	}
	// Renaming to itself is allowed.
	if err := svc.RenameAccount(ctx, extra.ID, "Fun Money"); err != nil {
		t.Errorf("self-rename: %v", err)
	}
}

func TestSetDefaultAccountClearsPrevious(t *testing.T) {
	svc, store := newConfigFixture(t)
	ctx := context.Background()

	user, _ := svc.CreateMember(ctx, "sam", "Sam", "")
	extra, err := svc.CreateCheckingAccount(ctx, user.ID, "Spending")
	if err != nil {
		t.Fatalf("CreateCheckingAccount: %v", err)
	}

	if err := svc.SetDefaultAccount(ctx, extra.ID); err != nil {
		t.Fatalf("SetDefaultAccount: %v", err)
	}

	accounts, _ := store.AccountsByOwner(ctx, user.ID)
	defaults := 0
	for _, a := range accounts {
		if a.Type == core.AccountChecking && a.IsDefault {
			defaults++
			if a.ID != extra.ID {
				t.Errorf("default checking = %d, want %d", a.ID, extra.ID)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("got %d default checking accounts, want exactly 1", defaults)
	}
}

func TestUpdateAllowanceRecomputesSchedule(t *testing.T) {
	svc, store := newConfigFixture(t)
	ctx := context.Background()

	user, _ := svc.CreateMember(ctx, "sam", "Sam", "")
	cfg, _ := store.AllowanceConfigByUser(ctx, user.ID)
	originalDue := cfg.NextDueDate

	// Amount-only change keeps the schedule.
	cfg.Amount = core.Money{Cents: 1500}
	cfg.Active = true
	if err := svc.UpdateAllowance(ctx, cfg); err != nil {
		t.Fatalf("UpdateAllowance: %v", err)
	}
	updated, _ := store.AllowanceConfigByID(ctx, cfg.ID)
	if !updated.NextDueDate.Equal(originalDue) {
		t.Errorf("next due changed on amount update: %v -> %v", originalDue, updated.NextDueDate)
	}

	// Frequency change recomputes from today.
	day := 15
	updated.Frequency = core.Monthly
	updated.DayOfWeek = nil
	updated.DayOfMonth = &day
	if err := svc.UpdateAllowance(ctx, updated); err != nil {
		t.Fatalf("UpdateAllowance: %v", err)
	}
	recomputed, _ := store.AllowanceConfigByID(ctx, cfg.ID)
	if recomputed.NextDueDate.Day() != 15 {
		t.Errorf("next due day = %d, want 15", recomputed.NextDueDate.Day())
	}
	if !recomputed.NextDueDate.After(core.DateOf(time.Now().UTC())) {
		t.Errorf("recomputed due %v is not in the future", recomputed.NextDueDate)
	}
}

func TestUpdateAllowanceSplitsValidation(t *testing.T) {
	svc, store := newConfigFixture(t)
	ctx := context.Background()

	user, _ := svc.CreateMember(ctx, "sam", "Sam", "")
	other, _ := svc.CreateMember(ctx, "alex", "Alex", "")
	cfg, _ := store.AllowanceConfigByUser(ctx, user.ID)

	accounts, _ := store.AccountsByOwner(ctx, user.ID)
	var checking, savings core.Account
	for _, a := range accounts {
		if a.Type == core.AccountChecking {
			checking = a
		} else {
			savings = a
		}
	}
	otherAccounts, _ := store.AccountsByOwner(ctx, other.ID)

	err := svc.UpdateAllowanceSplits(ctx, cfg.ID, []core.AllowanceSplit{
		{AccountID: checking.ID, Percentage: 60},
		{AccountID: savings.ID, Percentage: 40},
	})
	if err != nil {
		t.Fatalf("valid splits rejected: %v", err)
	}

	err = svc.UpdateAllowanceSplits(ctx, cfg.ID, []core.AllowanceSplit{
		{AccountID: checking.ID, Percentage: 60},
		{AccountID: savings.ID, Percentage: 50},
	})
	if !errors.Is(err, core.ErrInvalidSplitConfiguration) {
		t.Errorf("110%% splits error = %v, want ErrInvalidSplitConfiguration", err)
	}

	err = svc.UpdateAllowanceSplits(ctx, cfg.ID, []core.AllowanceSplit{
		{AccountID: otherAccounts[0].ID, Percentage: 100},
	})
	if !errors.Is(err, core.ErrInvalidSplitConfiguration) {
		t.Errorf("foreign account split error = %v, want ErrInvalidSplitConfiguration", err)
	}
}

func TestUpdateInterestPreservesLastApplied(t *testing.T) {
	svc, store := newConfigFixture(t)
	ctx := context.Background()

	user, _ := svc.CreateMember(ctx, "sam", "Sam", "")
	accounts, _ := store.AccountsByOwner(ctx, user.ID)
	var savings core.Account
	for _, a := range accounts {
		if a.Type == core.AccountSavings {
			savings = a
		}
	}
	cfg, _ := store.InterestConfigByAccount(ctx, savings.ID)

	stamp := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.MarkInterestApplied(ctx, cfg.ID, stamp); err != nil {
		t.Fatalf("MarkInterestApplied: %v", err)
	}

	cfg.AnnualRate = 7.5
	cfg.Active = true
	if err := svc.UpdateInterest(ctx, cfg); err != nil {
		t.Fatalf("UpdateInterest: %v", err)
	}

	updated, _ := store.InterestConfigByID(ctx, cfg.ID)
	if updated.AnnualRate != 7.5 || !updated.Active {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.LastApplied == nil || !updated.LastApplied.Equal(stamp) {
		t.Errorf("LastApplied = %v, want preserved %v", updated.LastApplied, stamp)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	svc, _ := newConfigFixture(t)
	ctx := context.Background()

	if err := svc.SetSetting(ctx, services.SettingBankName, "Piggy Palace"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	got, err := svc.Setting(ctx, services.SettingBankName)
	if err != nil {
		t.Fatalf("Setting: %v", err)
	}
	if got != "Piggy Palace" {
		t.Errorf("setting = %q, want Piggy Palace", got)
	}

	if err := svc.SetSetting(ctx, "  ", "x"); err == nil {
		t.Error("blank key must be rejected")
	}
}
