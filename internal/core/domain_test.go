package core

import (
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	src := int64(1)
	dst := int64(2)

	tests := []struct {
		name    string
		txn     Transaction
		wantErr bool
	}{
		{
			name: "valid transfer",
			txn:  Transaction{FromAccountID: &src, ToAccountID: &dst, Amount: Money{Cents: 100}, Kind: KindTransfer, Status: StatusCompleted},
		},
		{
			name: "valid deposit without source",
			txn:  Transaction{ToAccountID: &dst, Amount: Money{Cents: 100}, Kind: KindAllowance, Status: StatusCompleted},
		},
		{
			name:    "no endpoints",
			txn:     Transaction{Amount: Money{Cents: 100}, Kind: KindDeposit, Status: StatusCompleted},
			wantErr: true,
		},
		{
			name:    "zero amount",
			txn:     Transaction{ToAccountID: &dst, Kind: KindDeposit, Status: StatusCompleted},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			txn:     Transaction{ToAccountID: &dst, Amount: Money{Cents: 100}, Kind: "refund", Status: StatusCompleted},
			wantErr: true,
		},
		{
			name:    "unknown status",
			txn:     Transaction{ToAccountID: &dst, Amount: Money{Cents: 100}, Kind: KindDeposit, Status: "queued"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.txn.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []TransactionStatus{StatusApproved, StatusRejected, StatusCompleted} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

func TestAllowanceConfigDueOn(t *testing.T) {
	today := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		cfg  AllowanceConfig
		want bool
	}{
		{
			name: "due today",
			cfg:  AllowanceConfig{Active: true, Amount: Money{Cents: 500}, NextDueDate: day(2024, time.March, 15)},
			want: true,
		},
		{
			name: "overdue",
			cfg:  AllowanceConfig{Active: true, Amount: Money{Cents: 500}, NextDueDate: day(2024, time.March, 1)},
			want: true,
		},
		{
			name: "due tomorrow",
			cfg:  AllowanceConfig{Active: true, Amount: Money{Cents: 500}, NextDueDate: day(2024, time.March, 16)},
			want: false,
		},
		{
			name: "inactive",
			cfg:  AllowanceConfig{Active: false, Amount: Money{Cents: 500}, NextDueDate: day(2024, time.March, 15)},
			want: false,
		},
		{
			name: "zero amount",
			cfg:  AllowanceConfig{Active: true, NextDueDate: day(2024, time.March, 15)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DueOn(today); got != tt.want {
				t.Errorf("DueOn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllowanceConfigValidate(t *testing.T) {
	base := AllowanceConfig{
		Amount:            Money{Cents: 1000},
		Frequency:         Weekly,
		TargetAccountType: AccountChecking,
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	bad := base
	bad.Frequency = "fortnightly"
	if err := bad.Validate(); err == nil {
		t.Error("unknown frequency should not validate")
	}

	bad = base
	bad.DayOfWeek = intp(7)
	if err := bad.Validate(); err == nil {
		t.Error("day of week 7 should not validate")
	}

	bad = base
	bad.DayOfMonth = intp(0)
	if err := bad.Validate(); err == nil {
		t.Error("day of month 0 should not validate")
	}

	bad = base
	bad.TargetAccountType = AccountVault
	if err := bad.Validate(); err == nil {
		t.Error("vault target should not validate")
	}
}
