// Package services holds the business logic of the family bank: the
// ledger, the withdrawal approval workflow, the allowance and interest
// engines, and configuration management. Every service depends on the
// Store port, never on a concrete database.
package services

import (
	"context"
	"time"

	"familybank/internal/core"
)

// Store is the persistence port. Implementations must make WithinTx a
// single atomic unit of work: either every write inside fn is applied or
// none is. Calling WithinTx on a Store that is already transactional runs
// fn against the same unit of work.
type Store interface {
	WithinTx(ctx context.Context, fn func(Store) error) error

	// Users
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)

	// Accounts
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	AccountsByOwner(ctx context.Context, ownerID int64) ([]core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	DefaultAccount(ctx context.Context, ownerID int64, t core.AccountType) (core.Account, error)
	CountAccounts(ctx context.Context, ownerID int64, t core.AccountType) (int, error)
	NicknameInUse(ctx context.Context, ownerID int64, t core.AccountType, nickname string, excludeID int64) (bool, error)
	RenameAccount(ctx context.Context, accountID int64, nickname string) error
	SetDefaultAccount(ctx context.Context, accountID int64) error
	AdjustBalance(ctx context.Context, accountID int64, deltaCents int64) error

	// Transactions
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	TransactionsByAccount(ctx context.Context, accountID int64, limit, offset int) ([]core.Transaction, error)
	PendingTransactions(ctx context.Context) ([]core.Transaction, error)
	ReviewTransaction(ctx context.Context, id int64, status core.TransactionStatus, reviewerID int64, reviewedAt time.Time, description string) error
	UnexportedTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkTransactionExported(ctx context.Context, id int64) error

	// Allowance schedules
	DueAllowanceConfigs(ctx context.Context, today time.Time) ([]core.AllowanceConfig, error)
	AllowanceConfigByID(ctx context.Context, id int64) (core.AllowanceConfig, error)
	AllowanceConfigByUser(ctx context.Context, userID int64) (core.AllowanceConfig, error)
	ListAllowanceConfigs(ctx context.Context) ([]core.AllowanceConfig, error)
	CreateAllowanceConfig(ctx context.Context, cfg core.AllowanceConfig) (core.AllowanceConfig, error)
	UpdateAllowanceConfig(ctx context.Context, cfg core.AllowanceConfig) error
	UpdateNextDueDate(ctx context.Context, configID int64, next time.Time) error
	SplitsForConfig(ctx context.Context, configID int64) ([]core.AllowanceSplit, error)
	ReplaceSplits(ctx context.Context, configID int64, splits []core.AllowanceSplit) error

	// Interest schedules
	ActiveInterestConfigs(ctx context.Context) ([]core.InterestConfig, error)
	InterestConfigByID(ctx context.Context, id int64) (core.InterestConfig, error)
	InterestConfigByAccount(ctx context.Context, accountID int64) (core.InterestConfig, error)
	ListInterestConfigs(ctx context.Context) ([]core.InterestConfig, error)
	CreateInterestConfig(ctx context.Context, cfg core.InterestConfig) (core.InterestConfig, error)
	UpdateInterestConfig(ctx context.Context, cfg core.InterestConfig) error
	MarkInterestApplied(ctx context.Context, configID int64, at time.Time) error

	// Settings and categories
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ListCategories(ctx context.Context) ([]core.Category, error)
}

// EventPublisher notifies downstream consumers that a transaction was
// recorded. Implemented by the AMQP client; nil-safe at the call sites so
// the core works without a broker.
type EventPublisher interface {
	PublishTransactionRecorded(ctx context.Context, transactionID int64) error
}
