// Package memory provides an in-memory Store used by tests and by local
// development without a database file. Operations are serialized through
// one mutex; WithinTx groups calls under that lock but cannot roll back,
// which is acceptable for its audience.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"familybank/internal/core"
	"familybank/internal/services"
)

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithinTx(_ context.Context, fn func(services.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateUser(ctx, u)
}

func (s *Store) GetUser(ctx context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetUser(ctx, id)
}

func (s *Store) ListUsers(ctx context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListUsers(ctx)
}

func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateAccount(ctx, a)
}

func (s *Store) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetAccount(ctx, id)
}

func (s *Store) AccountsByOwner(ctx context.Context, ownerID int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.AccountsByOwner(ctx, ownerID)
}

func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListAccounts(ctx)
}

func (s *Store) DefaultAccount(ctx context.Context, ownerID int64, t core.AccountType) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DefaultAccount(ctx, ownerID, t)
}

func (s *Store) CountAccounts(ctx context.Context, ownerID int64, t core.AccountType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CountAccounts(ctx, ownerID, t)
}

func (s *Store) NicknameInUse(ctx context.Context, ownerID int64, t core.AccountType, nickname string, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.NicknameInUse(ctx, ownerID, t, nickname, excludeID)
}

func (s *Store) RenameAccount(ctx context.Context, accountID int64, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.RenameAccount(ctx, accountID, nickname)
}

func (s *Store) SetDefaultAccount(ctx context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.SetDefaultAccount(ctx, accountID)
}

func (s *Store) AdjustBalance(ctx context.Context, accountID int64, deltaCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.AdjustBalance(ctx, accountID, deltaCents)
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateTransaction(ctx, t)
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetTransaction(ctx, id)
}

func (s *Store) TransactionsByAccount(ctx context.Context, accountID int64, limit, offset int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.TransactionsByAccount(ctx, accountID, limit, offset)
}

func (s *Store) PendingTransactions(ctx context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.PendingTransactions(ctx)
}

func (s *Store) ReviewTransaction(ctx context.Context, id int64, status core.TransactionStatus, reviewerID int64, reviewedAt time.Time, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ReviewTransaction(ctx, id, status, reviewerID, reviewedAt, description)
}

func (s *Store) UnexportedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UnexportedTransactions(ctx, limit)
}

func (s *Store) MarkTransactionExported(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.MarkTransactionExported(ctx, id)
}

func (s *Store) DueAllowanceConfigs(ctx context.Context, today time.Time) ([]core.AllowanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DueAllowanceConfigs(ctx, today)
}

func (s *Store) AllowanceConfigByID(ctx context.Context, id int64) (core.AllowanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.AllowanceConfigByID(ctx, id)
}

func (s *Store) AllowanceConfigByUser(ctx context.Context, userID int64) (core.AllowanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.AllowanceConfigByUser(ctx, userID)
}

func (s *Store) ListAllowanceConfigs(ctx context.Context) ([]core.AllowanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListAllowanceConfigs(ctx)
}

func (s *Store) CreateAllowanceConfig(ctx context.Context, cfg core.AllowanceConfig) (core.AllowanceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateAllowanceConfig(ctx, cfg)
}

func (s *Store) UpdateAllowanceConfig(ctx context.Context, cfg core.AllowanceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateAllowanceConfig(ctx, cfg)
}

func (s *Store) UpdateNextDueDate(ctx context.Context, configID int64, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateNextDueDate(ctx, configID, next)
}

func (s *Store) SplitsForConfig(ctx context.Context, configID int64) ([]core.AllowanceSplit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.SplitsForConfig(ctx, configID)
}

func (s *Store) ReplaceSplits(ctx context.Context, configID int64, splits []core.AllowanceSplit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ReplaceSplits(ctx, configID, splits)
}

func (s *Store) ActiveInterestConfigs(ctx context.Context) ([]core.InterestConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ActiveInterestConfigs(ctx)
}

func (s *Store) InterestConfigByID(ctx context.Context, id int64) (core.InterestConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.InterestConfigByID(ctx, id)
}

func (s *Store) InterestConfigByAccount(ctx context.Context, accountID int64) (core.InterestConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.InterestConfigByAccount(ctx, accountID)
}

func (s *Store) ListInterestConfigs(ctx context.Context) ([]core.InterestConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListInterestConfigs(ctx)
}

func (s *Store) CreateInterestConfig(ctx context.Context, cfg core.InterestConfig) (core.InterestConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateInterestConfig(ctx, cfg)
}

func (s *Store) UpdateInterestConfig(ctx context.Context, cfg core.InterestConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateInterestConfig(ctx, cfg)
}

func (s *Store) MarkInterestApplied(ctx context.Context, configID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.MarkInterestApplied(ctx, configID, at)
}

func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Setting(ctx, key)
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.SetSetting(ctx, key, value)
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListCategories(ctx)
}

// state holds the data and implements the store operations without
// locking. WithinTx hands it to the callback while the outer lock is
// held, so nested calls reuse the same unit of work.
type state struct {
	users            map[int64]core.User
	accounts         map[int64]core.Account
	transactions     map[int64]core.Transaction
	exported         map[int64]bool
	allowanceConfigs map[int64]core.AllowanceConfig
	splits           map[int64][]core.AllowanceSplit
	interestConfigs  map[int64]core.InterestConfig
	settings         map[string]string
	categories       []core.Category
	nextID           int64
}

func newState() *state {
	return &state{
		users:            make(map[int64]core.User),
		accounts:         make(map[int64]core.Account),
		transactions:     make(map[int64]core.Transaction),
		exported:         make(map[int64]bool),
		allowanceConfigs: make(map[int64]core.AllowanceConfig),
		splits:           make(map[int64][]core.AllowanceSplit),
		interestConfigs:  make(map[int64]core.InterestConfig),
		settings: map[string]string{
			"withdrawal_approval_required":    "true",
			"max_withdrawal_without_approval": "0",
			"bank_name":                       "Family Bank",
			"currency_symbol":                 "$",
			"kids_can_create_checking":        "true",
			"max_checking_accounts_per_kid":   "5",
		},
		categories: []core.Category{
			{ID: 1, Name: "Allowance", Icon: "coins", Color: "#22c55e"},
			{ID: 2, Name: "Interest", Icon: "trending-up", Color: "#3b82f6"},
			{ID: 3, Name: "Toys", Icon: "toy-brick", Color: "#f59e0b"},
			{ID: 4, Name: "Games", Icon: "gamepad-2", Color: "#8b5cf6"},
			{ID: 5, Name: "Books", Icon: "book-open", Color: "#06b6d4"},
			{ID: 6, Name: "Snacks", Icon: "candy", Color: "#ec4899"},
			{ID: 7, Name: "Savings Goal", Icon: "piggy-bank", Color: "#14b8a6"},
			{ID: 8, Name: "Gift", Icon: "gift", Color: "#ef4444"},
			{ID: 9, Name: "Chores", Icon: "check-circle", Color: "#84cc16"},
			{ID: 10, Name: "Other", Icon: "circle-ellipsis", Color: "#6b7280"},
		},
	}
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

func (st *state) WithinTx(_ context.Context, fn func(services.Store) error) error {
	return fn(st)
}

func (st *state) CreateUser(_ context.Context, u core.User) (core.User, error) {
	u.ID = st.id()
	st.users[u.ID] = u
	return u, nil
}

func (st *state) GetUser(_ context.Context, id int64) (core.User, error) {
	u, ok := st.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (st *state) ListUsers(_ context.Context) ([]core.User, error) {
	out := make([]core.User, 0, len(st.users))
	for _, u := range st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	a.ID = st.id()
	st.accounts[a.ID] = a
	return a, nil
}

func (st *state) GetAccount(_ context.Context, id int64) (core.Account, error) {
	a, ok := st.accounts[id]
	if !ok {
		return core.Account{}, core.ErrAccountNotFound
	}
	return a, nil
}

func (st *state) AccountsByOwner(_ context.Context, ownerID int64) ([]core.Account, error) {
	var out []core.Account
	for _, a := range st.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) ListAccounts(_ context.Context) ([]core.Account, error) {
	out := make([]core.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) DefaultAccount(_ context.Context, ownerID int64, t core.AccountType) (core.Account, error) {
	var fallback *core.Account
	for _, a := range st.accounts {
		if a.OwnerID != ownerID || a.Type != t {
			continue
		}
		if a.IsDefault {
			return a, nil
		}
		a := a
		if fallback == nil || a.ID < fallback.ID {
			fallback = &a
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return core.Account{}, core.ErrAccountNotFound
}

func (st *state) CountAccounts(_ context.Context, ownerID int64, t core.AccountType) (int, error) {
	n := 0
	for _, a := range st.accounts {
		if a.OwnerID == ownerID && a.Type == t {
			n++
		}
	}
	return n, nil
}

func (st *state) NicknameInUse(_ context.Context, ownerID int64, t core.AccountType, nickname string, excludeID int64) (bool, error) {
	for _, a := range st.accounts {
		if a.ID == excludeID {
			continue
		}
		if a.OwnerID == ownerID && a.Type == t && strings.EqualFold(a.Nickname, nickname) {
			return true, nil
		}
	}
	return false, nil
}

func (st *state) RenameAccount(_ context.Context, accountID int64, nickname string) error {
	a, ok := st.accounts[accountID]
	if !ok {
		return core.ErrAccountNotFound
	}
	a.Nickname = nickname
	st.accounts[accountID] = a
	return nil
}

func (st *state) SetDefaultAccount(_ context.Context, accountID int64) error {
	target, ok := st.accounts[accountID]
	if !ok {
		return core.ErrAccountNotFound
	}
	for id, a := range st.accounts {
		if a.OwnerID == target.OwnerID && a.Type == target.Type {
			a.IsDefault = id == accountID
			st.accounts[id] = a
		}
	}
	return nil
}

func (st *state) AdjustBalance(_ context.Context, accountID int64, deltaCents int64) error {
	a, ok := st.accounts[accountID]
	if !ok {
		return core.ErrAccountNotFound
	}
	a.Balance.Cents += deltaCents
	st.accounts[accountID] = a
	return nil
}

func (st *state) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = st.id()
	st.transactions[t.ID] = t
	return t, nil
}

func (st *state) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := st.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return t, nil
}

func (st *state) TransactionsByAccount(_ context.Context, accountID int64, limit, offset int) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range st.transactions {
		from := t.FromAccountID != nil && *t.FromAccountID == accountID
		to := t.ToAccountID != nil && *t.ToAccountID == accountID
		if from || to {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (st *state) PendingTransactions(_ context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range st.transactions {
		if t.Status == core.StatusPending {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) ReviewTransaction(_ context.Context, id int64, status core.TransactionStatus, reviewerID int64, reviewedAt time.Time, description string) error {
	t, ok := st.transactions[id]
	if !ok {
		return core.ErrTransactionNotFound
	}
	t.Status = status
	t.ReviewedBy = &reviewerID
	t.ReviewedAt = &reviewedAt
	t.Description = description
	st.transactions[id] = t
	return nil
}

func (st *state) UnexportedTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range st.transactions {
		if t.Status.Terminal() && !st.exported[t.ID] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (st *state) MarkTransactionExported(_ context.Context, id int64) error {
	if _, ok := st.transactions[id]; !ok {
		return core.ErrTransactionNotFound
	}
	st.exported[id] = true
	return nil
}

func (st *state) DueAllowanceConfigs(_ context.Context, today time.Time) ([]core.AllowanceConfig, error) {
	var out []core.AllowanceConfig
	for _, cfg := range st.allowanceConfigs {
		if cfg.DueOn(today) {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) AllowanceConfigByID(_ context.Context, id int64) (core.AllowanceConfig, error) {
	cfg, ok := st.allowanceConfigs[id]
	if !ok {
		return core.AllowanceConfig{}, core.ErrConfigNotFound
	}
	return cfg, nil
}

func (st *state) AllowanceConfigByUser(_ context.Context, userID int64) (core.AllowanceConfig, error) {
	for _, cfg := range st.allowanceConfigs {
		if cfg.UserID == userID {
			return cfg, nil
		}
	}
	return core.AllowanceConfig{}, core.ErrConfigNotFound
}

func (st *state) ListAllowanceConfigs(_ context.Context) ([]core.AllowanceConfig, error) {
	out := make([]core.AllowanceConfig, 0, len(st.allowanceConfigs))
	for _, cfg := range st.allowanceConfigs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) CreateAllowanceConfig(_ context.Context, cfg core.AllowanceConfig) (core.AllowanceConfig, error) {
	cfg.ID = st.id()
	st.allowanceConfigs[cfg.ID] = cfg
	return cfg, nil
}

func (st *state) UpdateAllowanceConfig(_ context.Context, cfg core.AllowanceConfig) error {
	if _, ok := st.allowanceConfigs[cfg.ID]; !ok {
		return core.ErrConfigNotFound
	}
	st.allowanceConfigs[cfg.ID] = cfg
	return nil
}

func (st *state) UpdateNextDueDate(_ context.Context, configID int64, next time.Time) error {
	cfg, ok := st.allowanceConfigs[configID]
	if !ok {
		return core.ErrConfigNotFound
	}
	cfg.NextDueDate = next
	st.allowanceConfigs[configID] = cfg
	return nil
}

func (st *state) SplitsForConfig(_ context.Context, configID int64) ([]core.AllowanceSplit, error) {
	out := make([]core.AllowanceSplit, len(st.splits[configID]))
	copy(out, st.splits[configID])
	return out, nil
}

func (st *state) ReplaceSplits(_ context.Context, configID int64, splits []core.AllowanceSplit) error {
	if _, ok := st.allowanceConfigs[configID]; !ok {
		return core.ErrConfigNotFound
	}
	replaced := make([]core.AllowanceSplit, len(splits))
	copy(replaced, splits)
	for i := range replaced {
		replaced[i].ID = st.id()
		replaced[i].ConfigID = configID
	}
	st.splits[configID] = replaced
	return nil
}

func (st *state) ActiveInterestConfigs(_ context.Context) ([]core.InterestConfig, error) {
	var out []core.InterestConfig
	for _, cfg := range st.interestConfigs {
		if cfg.Active {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) InterestConfigByID(_ context.Context, id int64) (core.InterestConfig, error) {
	cfg, ok := st.interestConfigs[id]
	if !ok {
		return core.InterestConfig{}, core.ErrConfigNotFound
	}
	return cfg, nil
}

func (st *state) InterestConfigByAccount(_ context.Context, accountID int64) (core.InterestConfig, error) {
	for _, cfg := range st.interestConfigs {
		if cfg.AccountID == accountID {
			return cfg, nil
		}
	}
	return core.InterestConfig{}, core.ErrConfigNotFound
}

func (st *state) ListInterestConfigs(_ context.Context) ([]core.InterestConfig, error) {
	out := make([]core.InterestConfig, 0, len(st.interestConfigs))
	for _, cfg := range st.interestConfigs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) CreateInterestConfig(_ context.Context, cfg core.InterestConfig) (core.InterestConfig, error) {
	cfg.ID = st.id()
	st.interestConfigs[cfg.ID] = cfg
	return cfg, nil
}

func (st *state) UpdateInterestConfig(_ context.Context, cfg core.InterestConfig) error {
	if _, ok := st.interestConfigs[cfg.ID]; !ok {
		return core.ErrConfigNotFound
	}
	st.interestConfigs[cfg.ID] = cfg
	return nil
}

func (st *state) MarkInterestApplied(_ context.Context, configID int64, at time.Time) error {
	cfg, ok := st.interestConfigs[configID]
	if !ok {
		return core.ErrConfigNotFound
	}
	cfg.LastApplied = &at
	st.interestConfigs[configID] = cfg
	return nil
}

func (st *state) Setting(_ context.Context, key string) (string, error) {
	v, ok := st.settings[key]
	if !ok {
		return "", core.ErrConfigNotFound
	}
	return v, nil
}

func (st *state) SetSetting(_ context.Context, key, value string) error {
	st.settings[key] = value
	return nil
}

func (st *state) ListCategories(_ context.Context) ([]core.Category, error) {
	out := make([]core.Category, len(st.categories))
	copy(out, st.categories)
	return out, nil
}
