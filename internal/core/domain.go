package core

import (
	"errors"
	"strings"
	"time"
)

const (
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
	AccountVault    AccountType = "vault"
)

const (
	KindDeposit       TransactionKind = "deposit"
	KindWithdrawal    TransactionKind = "withdrawal"
	KindTransfer      TransactionKind = "transfer"
	KindAllowance     TransactionKind = "allowance"
	KindInterest      TransactionKind = "interest"
	KindParentDeposit TransactionKind = "parent_deposit"
)

const (
	StatusPending   TransactionStatus = "pending"
	StatusApproved  TransactionStatus = "approved"
	StatusRejected  TransactionStatus = "rejected"
	StatusCompleted TransactionStatus = "completed"
)

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

const (
	CompoundDaily   CompoundFrequency = "daily"
	CompoundWeekly  CompoundFrequency = "weekly"
	CompoundMonthly CompoundFrequency = "monthly"
)

const (
	RoleParent Role = "parent"
	RoleKid    Role = "kid"
)

type (
	AccountType       string
	TransactionKind   string
	TransactionStatus string
	Frequency         string
	CompoundFrequency string
	Role              string

	// Account holds a member's balance for one account type. Balance is
	// mutated only through the ledger.
	Account struct {
		ID        int64
		OwnerID   int64
		Type      AccountType
		Nickname  string
		IsDefault bool
		Balance   Money
		CreatedAt time.Time
	}

	// Transaction is one append-only ledger entry. Immutable once created
	// except for the status and review fields.
	Transaction struct {
		ID            int64
		FromAccountID *int64
		ToAccountID   *int64
		Amount        Money
		Kind          TransactionKind
		Category      string
		Description   string
		Status        TransactionStatus
		CreatedAt     time.Time
		ReviewedBy    *int64
		ReviewedAt    *time.Time
	}

	// AllowanceConfig is one member's recurring allowance schedule.
	AllowanceConfig struct {
		ID                int64
		UserID            int64
		Amount            Money
		Frequency         Frequency
		DayOfWeek         *int // 0=Monday .. 6=Sunday
		DayOfMonth        *int // 1..31, clamped to shorter months
		TargetAccountType AccountType
		NextDueDate       time.Time
		Active            bool
		CreatedAt         time.Time
	}

	// AllowanceSplit routes a percentage of a disbursement to one account.
	AllowanceSplit struct {
		ID         int64
		ConfigID   int64
		AccountID  int64
		Percentage float64
	}

	// InterestConfig enables periodic compounding on one account.
	InterestConfig struct {
		ID          int64
		AccountID   int64
		AnnualRate  float64 // percent
		Frequency   CompoundFrequency
		LastApplied *time.Time
		Active      bool
		CreatedAt   time.Time
	}

	User struct {
		ID          int64
		Username    string
		DisplayName string
		Role        Role
		AvatarColor string
		CreatedAt   time.Time
	}

	// Category labels transactions for reporting. Seeded by migration,
	// read-only at runtime.
	Category struct {
		ID    int64
		Name  string
		Icon  string
		Color string
	}
)

// IsVault reports whether the account is a balance-unconstrained source.
func (a Account) IsVault() bool {
	return a.Type == AccountVault
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountVault:
		return true
	}
	return false
}

func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindTransfer, KindAllowance, KindInterest, KindParentDeposit:
		return true
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transition.
func (s TransactionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCompleted
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Biweekly, Monthly:
		return true
	}
	return false
}

func (f CompoundFrequency) Valid() bool {
	switch f {
	case CompoundDaily, CompoundWeekly, CompoundMonthly:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	if t.FromAccountID == nil && t.ToAccountID == nil {
		return errors.New("transaction needs a source or a destination account")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return errors.New("invalid transaction kind: " + string(t.Kind))
	}
	if !t.Status.Valid() {
		return errors.New("invalid transaction status: " + string(t.Status))
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (c AllowanceConfig) Validate() error {
	if c.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !c.Frequency.Valid() {
		return errors.New("invalid allowance frequency: " + string(c.Frequency))
	}
	if c.DayOfWeek != nil && (*c.DayOfWeek < 0 || *c.DayOfWeek > 6) {
		return errors.New("day of week must be between 0 (Monday) and 6 (Sunday)")
	}
	if c.DayOfMonth != nil && (*c.DayOfMonth < 1 || *c.DayOfMonth > 31) {
		return errors.New("day of month must be between 1 and 31")
	}
	if c.TargetAccountType != AccountChecking && c.TargetAccountType != AccountSavings {
		return errors.New("allowance target must be a checking or savings account")
	}
	return nil
}

// DueOn reports whether the config is due for disbursement on the given day.
func (c AllowanceConfig) DueOn(today time.Time) bool {
	return c.Active && c.Amount.Cents > 0 && !DateOf(c.NextDueDate).After(DateOf(today))
}

func (c InterestConfig) Validate() error {
	if c.AnnualRate < 0 {
		return errors.New("annual rate cannot be negative")
	}
	if !c.Frequency.Valid() {
		return errors.New("invalid compound frequency: " + string(c.Frequency))
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("username is required")
	}
	if strings.TrimSpace(u.DisplayName) == "" {
		return errors.New("display name is required")
	}
	if u.Role != RoleParent && u.Role != RoleKid {
		return errors.New("invalid role: " + string(u.Role))
	}
	return nil
}

// DateOf truncates a timestamp to its calendar day in UTC. Due-date
// comparisons work on whole days, never on clock time.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
