// Package storage implements the Store port on SQLite. Timestamps are
// stored as RFC 3339 text and money as integer cents.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"familybank/internal/core"
	"familybank/internal/services"

	_ "modernc.org/sqlite"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// every query method works both inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
	q  dbtx
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath
// and brings the schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithinTx runs fn inside one SQLite transaction. A repository already
// bound to a transaction reuses it, so nested units of work compose.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(services.Store) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&SQLiteRepository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO users (username, display_name, role, avatar_color, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.DisplayName, string(u.Role), u.AvatarColor, formatTime(u.CreatedAt))
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, username, display_name, role, avatar_color, created_at
		FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	return u, err
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, username, display_name, role, avatar_color, created_at
		FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Accounts

const accountColumns = "id, owner_id, type, nickname, is_default, balance_cents, created_at"

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (owner_id, type, nickname, is_default, balance_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.OwnerID, string(a.Type), a.Nickname, a.IsDefault, a.Balance.Cents, formatTime(a.CreatedAt))
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account insert id: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrAccountNotFound
	}
	return a, err
}

func (r *SQLiteRepository) AccountsByOwner(ctx context.Context, ownerID int64) ([]core.Account, error) {
	return r.queryAccounts(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE owner_id = ? ORDER BY id", ownerID)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return r.queryAccounts(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY id")
}

func (r *SQLiteRepository) DefaultAccount(ctx context.Context, ownerID int64, t core.AccountType) (core.Account, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+` FROM accounts
		WHERE owner_id = ? AND type = ?
		ORDER BY is_default DESC, id LIMIT 1`, ownerID, string(t))
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrAccountNotFound
	}
	return a, err
}

func (r *SQLiteRepository) CountAccounts(ctx context.Context, ownerID int64, t core.AccountType) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE owner_id = ? AND type = ?",
		ownerID, string(t)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) NicknameInUse(ctx context.Context, ownerID int64, t core.AccountType, nickname string, excludeID int64) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM accounts
		WHERE owner_id = ? AND type = ? AND nickname = ? COLLATE NOCASE AND id != ?`,
		ownerID, string(t), nickname, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check nickname: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) RenameAccount(ctx context.Context, accountID int64, nickname string) error {
	return r.execExpectingRow(ctx, core.ErrAccountNotFound,
		"UPDATE accounts SET nickname = ? WHERE id = ?", nickname, accountID)
}

func (r *SQLiteRepository) SetDefaultAccount(ctx context.Context, accountID int64) error {
	account, err := r.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx, `
		UPDATE accounts SET is_default = (id = ?)
		WHERE owner_id = ? AND type = ?`,
		accountID, account.OwnerID, string(account.Type)); err != nil {
		return fmt.Errorf("set default account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AdjustBalance(ctx context.Context, accountID int64, deltaCents int64) error {
	return r.execExpectingRow(ctx, core.ErrAccountNotFound,
		"UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?",
		deltaCents, accountID)
}

func (r *SQLiteRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]core.Account, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Transactions

const transactionColumns = `id, from_account_id, to_account_id, amount_cents, kind,
	category, description, status, created_at, reviewed_by, reviewed_at`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions
			(from_account_id, to_account_id, amount_cents, kind, category,
			 description, status, created_at, reviewed_by, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.FromAccountID, t.ToAccountID, t.Amount.Cents, string(t.Kind), t.Category,
		t.Description, string(t.Status), formatTime(t.CreatedAt),
		t.ReviewedBy, formatTimePtr(t.ReviewedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return t, err
}

func (r *SQLiteRepository) TransactionsByAccount(ctx context.Context, accountID int64, limit, offset int) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		"SELECT "+transactionColumns+` FROM transactions
		WHERE from_account_id = ? OR to_account_id = ?
		ORDER BY id DESC LIMIT ? OFFSET ?`,
		accountID, accountID, limit, offset)
}

func (r *SQLiteRepository) PendingTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		"SELECT "+transactionColumns+` FROM transactions
		WHERE status = 'pending' ORDER BY id`)
}

func (r *SQLiteRepository) ReviewTransaction(ctx context.Context, id int64, status core.TransactionStatus, reviewerID int64, reviewedAt time.Time, description string) error {
	return r.execExpectingRow(ctx, core.ErrTransactionNotFound, `
		UPDATE transactions
		SET status = ?, reviewed_by = ?, reviewed_at = ?, description = ?
		WHERE id = ?`,
		string(status), reviewerID, formatTime(reviewedAt), description, id)
}

func (r *SQLiteRepository) UnexportedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		"SELECT "+transactionColumns+` FROM transactions
		WHERE exported = 0 AND status IN ('approved', 'rejected', 'completed')
		ORDER BY id LIMIT ?`, limit)
}

func (r *SQLiteRepository) MarkTransactionExported(ctx context.Context, id int64) error {
	return r.execExpectingRow(ctx, core.ErrTransactionNotFound,
		"UPDATE transactions SET exported = 1 WHERE id = ?", id)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Allowance schedules

const allowanceColumns = `id, user_id, amount_cents, frequency, day_of_week,
	day_of_month, target_account_type, next_due_date, active, created_at`

func (r *SQLiteRepository) DueAllowanceConfigs(ctx context.Context, today time.Time) ([]core.AllowanceConfig, error) {
	return r.queryAllowanceConfigs(ctx,
		"SELECT "+allowanceColumns+` FROM allowance_configs
		WHERE active = 1 AND amount_cents > 0 AND next_due_date <= ?
		ORDER BY id`, formatDate(today))
}

func (r *SQLiteRepository) AllowanceConfigByID(ctx context.Context, id int64) (core.AllowanceConfig, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+allowanceColumns+" FROM allowance_configs WHERE id = ?", id)
	cfg, err := scanAllowanceConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.AllowanceConfig{}, core.ErrConfigNotFound
	}
	return cfg, err
}

func (r *SQLiteRepository) AllowanceConfigByUser(ctx context.Context, userID int64) (core.AllowanceConfig, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+allowanceColumns+" FROM allowance_configs WHERE user_id = ? LIMIT 1", userID)
	cfg, err := scanAllowanceConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.AllowanceConfig{}, core.ErrConfigNotFound
	}
	return cfg, err
}

func (r *SQLiteRepository) ListAllowanceConfigs(ctx context.Context) ([]core.AllowanceConfig, error) {
	return r.queryAllowanceConfigs(ctx,
		"SELECT "+allowanceColumns+" FROM allowance_configs ORDER BY id")
}

func (r *SQLiteRepository) CreateAllowanceConfig(ctx context.Context, cfg core.AllowanceConfig) (core.AllowanceConfig, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO allowance_configs
			(user_id, amount_cents, frequency, day_of_week, day_of_month,
			 target_account_type, next_due_date, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.UserID, cfg.Amount.Cents, string(cfg.Frequency), cfg.DayOfWeek, cfg.DayOfMonth,
		string(cfg.TargetAccountType), formatDate(cfg.NextDueDate), cfg.Active, formatTime(cfg.CreatedAt))
	if err != nil {
		return core.AllowanceConfig{}, fmt.Errorf("insert allowance config: %w", err)
	}
	cfg.ID, err = res.LastInsertId()
	if err != nil {
		return core.AllowanceConfig{}, fmt.Errorf("allowance config insert id: %w", err)
	}
	return cfg, nil
}

func (r *SQLiteRepository) UpdateAllowanceConfig(ctx context.Context, cfg core.AllowanceConfig) error {
	return r.execExpectingRow(ctx, core.ErrConfigNotFound, `
		UPDATE allowance_configs
		SET amount_cents = ?, frequency = ?, day_of_week = ?, day_of_month = ?,
			target_account_type = ?, next_due_date = ?, active = ?
		WHERE id = ?`,
		cfg.Amount.Cents, string(cfg.Frequency), cfg.DayOfWeek, cfg.DayOfMonth,
		string(cfg.TargetAccountType), formatDate(cfg.NextDueDate), cfg.Active, cfg.ID)
}

func (r *SQLiteRepository) UpdateNextDueDate(ctx context.Context, configID int64, next time.Time) error {
	return r.execExpectingRow(ctx, core.ErrConfigNotFound,
		"UPDATE allowance_configs SET next_due_date = ? WHERE id = ?",
		formatDate(next), configID)
}

func (r *SQLiteRepository) SplitsForConfig(ctx context.Context, configID int64) ([]core.AllowanceSplit, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, config_id, account_id, percentage
		FROM allowance_splits WHERE config_id = ? ORDER BY account_id`, configID)
	if err != nil {
		return nil, fmt.Errorf("query splits: %w", err)
	}
	defer rows.Close()

	var out []core.AllowanceSplit
	for rows.Next() {
		var s core.AllowanceSplit
		if err := rows.Scan(&s.ID, &s.ConfigID, &s.AccountID, &s.Percentage); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ReplaceSplits(ctx context.Context, configID int64, splits []core.AllowanceSplit) error {
	return r.WithinTx(ctx, func(s services.Store) error {
		tx := s.(*SQLiteRepository)
		if _, err := tx.q.ExecContext(ctx,
			"DELETE FROM allowance_splits WHERE config_id = ?", configID); err != nil {
			return fmt.Errorf("clear splits: %w", err)
		}
		for _, split := range splits {
			if _, err := tx.q.ExecContext(ctx, `
				INSERT INTO allowance_splits (config_id, account_id, percentage)
				VALUES (?, ?, ?)`,
				configID, split.AccountID, split.Percentage); err != nil {
				return fmt.Errorf("insert split: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) queryAllowanceConfigs(ctx context.Context, query string, args ...any) ([]core.AllowanceConfig, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query allowance configs: %w", err)
	}
	defer rows.Close()

	var out []core.AllowanceConfig
	for rows.Next() {
		cfg, err := scanAllowanceConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// Interest schedules

const interestColumns = "id, account_id, annual_rate, frequency, last_applied, active, created_at"

func (r *SQLiteRepository) ActiveInterestConfigs(ctx context.Context) ([]core.InterestConfig, error) {
	return r.queryInterestConfigs(ctx,
		"SELECT "+interestColumns+" FROM interest_configs WHERE active = 1 ORDER BY id")
}

func (r *SQLiteRepository) InterestConfigByID(ctx context.Context, id int64) (core.InterestConfig, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+interestColumns+" FROM interest_configs WHERE id = ?", id)
	cfg, err := scanInterestConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.InterestConfig{}, core.ErrConfigNotFound
	}
	return cfg, err
}

func (r *SQLiteRepository) InterestConfigByAccount(ctx context.Context, accountID int64) (core.InterestConfig, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+interestColumns+" FROM interest_configs WHERE account_id = ? LIMIT 1", accountID)
	cfg, err := scanInterestConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.InterestConfig{}, core.ErrConfigNotFound
	}
	return cfg, err
}

func (r *SQLiteRepository) ListInterestConfigs(ctx context.Context) ([]core.InterestConfig, error) {
	return r.queryInterestConfigs(ctx,
		"SELECT "+interestColumns+" FROM interest_configs ORDER BY id")
}

func (r *SQLiteRepository) CreateInterestConfig(ctx context.Context, cfg core.InterestConfig) (core.InterestConfig, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO interest_configs
			(account_id, annual_rate, frequency, last_applied, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cfg.AccountID, cfg.AnnualRate, string(cfg.Frequency),
		formatTimePtr(cfg.LastApplied), cfg.Active, formatTime(cfg.CreatedAt))
	if err != nil {
		return core.InterestConfig{}, fmt.Errorf("insert interest config: %w", err)
	}
	cfg.ID, err = res.LastInsertId()
	if err != nil {
		return core.InterestConfig{}, fmt.Errorf("interest config insert id: %w", err)
	}
	return cfg, nil
}

func (r *SQLiteRepository) UpdateInterestConfig(ctx context.Context, cfg core.InterestConfig) error {
	return r.execExpectingRow(ctx, core.ErrConfigNotFound, `
		UPDATE interest_configs
		SET annual_rate = ?, frequency = ?, active = ?
		WHERE id = ?`,
		cfg.AnnualRate, string(cfg.Frequency), cfg.Active, cfg.ID)
}

func (r *SQLiteRepository) MarkInterestApplied(ctx context.Context, configID int64, at time.Time) error {
	return r.execExpectingRow(ctx, core.ErrConfigNotFound,
		"UPDATE interest_configs SET last_applied = ? WHERE id = ?",
		formatTime(at), configID)
}

func (r *SQLiteRepository) queryInterestConfigs(ctx context.Context, query string, args ...any) ([]core.InterestConfig, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interest configs: %w", err)
	}
	defer rows.Close()

	var out []core.InterestConfig
	for rows.Next() {
		cfg, err := scanInterestConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// Settings and categories

func (r *SQLiteRepository) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.q.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrConfigNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, name, icon, color FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Helpers

func (r *SQLiteRepository) execExpectingRow(ctx context.Context, missing error, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var u core.User
	var role, createdAt string
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &role, &u.AvatarColor, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, err
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = core.Role(role)
	var err error
	u.CreatedAt, err = parseTime(createdAt)
	return u, err
}

func scanAccount(row rowScanner) (core.Account, error) {
	var a core.Account
	var accountType, createdAt string
	if err := row.Scan(&a.ID, &a.OwnerID, &accountType, &a.Nickname, &a.IsDefault, &a.Balance.Cents, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, err
		}
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Type = core.AccountType(accountType)
	var err error
	a.CreatedAt, err = parseTime(createdAt)
	return a, err
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var kind, status, createdAt string
	var reviewedAt sql.NullString
	if err := row.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &t.Amount.Cents, &kind,
		&t.Category, &t.Description, &status, &createdAt, &t.ReviewedBy, &reviewedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Kind = core.TransactionKind(kind)
	t.Status = core.TransactionStatus(status)

	var err error
	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	if reviewedAt.Valid {
		v, err := parseTime(reviewedAt.String)
		if err != nil {
			return core.Transaction{}, err
		}
		t.ReviewedAt = &v
	}
	return t, nil
}

func scanAllowanceConfig(row rowScanner) (core.AllowanceConfig, error) {
	var cfg core.AllowanceConfig
	var frequency, targetType, nextDue, createdAt string
	var dayOfWeek, dayOfMonth sql.NullInt64
	if err := row.Scan(&cfg.ID, &cfg.UserID, &cfg.Amount.Cents, &frequency, &dayOfWeek,
		&dayOfMonth, &targetType, &nextDue, &cfg.Active, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.AllowanceConfig{}, err
		}
		return core.AllowanceConfig{}, fmt.Errorf("scan allowance config: %w", err)
	}
	cfg.Frequency = core.Frequency(frequency)
	cfg.TargetAccountType = core.AccountType(targetType)
	if dayOfWeek.Valid {
		v := int(dayOfWeek.Int64)
		cfg.DayOfWeek = &v
	}
	if dayOfMonth.Valid {
		v := int(dayOfMonth.Int64)
		cfg.DayOfMonth = &v
	}

	var err error
	cfg.NextDueDate, err = parseDate(nextDue)
	if err != nil {
		return core.AllowanceConfig{}, err
	}
	cfg.CreatedAt, err = parseTime(createdAt)
	return cfg, err
}

func scanInterestConfig(row rowScanner) (core.InterestConfig, error) {
	var cfg core.InterestConfig
	var frequency, createdAt string
	var lastApplied sql.NullString
	if err := row.Scan(&cfg.ID, &cfg.AccountID, &cfg.AnnualRate, &frequency, &lastApplied, &cfg.Active, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.InterestConfig{}, err
		}
		return core.InterestConfig{}, fmt.Errorf("scan interest config: %w", err)
	}
	cfg.Frequency = core.CompoundFrequency(frequency)
	if lastApplied.Valid {
		v, err := parseTime(lastApplied.String)
		if err != nil {
			return core.InterestConfig{}, err
		}
		cfg.LastApplied = &v
	}

	var err error
	cfg.CreatedAt, err = parseTime(createdAt)
	return cfg, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func formatDate(t time.Time) string {
	return core.DateOf(t).Format("2006-01-02")
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t.UTC(), nil
}
