// Package http exposes the bank as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"familybank/internal/core"
	"familybank/internal/services"
	"familybank/internal/worker"
)

// ttlCache memoizes one value per key for a short window. The dashboard
// aggregates every account and is the only hot read.
type ttlCache[T any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]cacheItem[T]
}

type cacheItem[T any] struct {
	data      T
	expiresAt time.Time
}

func newTTLCache[T any](ttl time.Duration) *ttlCache[T] {
	return &ttlCache[T]{ttl: ttl, items: make(map[string]cacheItem[T])}
}

func (c *ttlCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	item, ok := c.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return item.data, true
}

func (c *ttlCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem[T]{data: data, expiresAt: time.Now().Add(c.ttl)}
}

func (c *ttlCache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
}

type Server struct {
	http.Server

	store     services.Store
	ledger    *services.Ledger
	approvals *services.ApprovalWorkflow
	configs   *services.ConfigService
	scheduler *worker.Scheduler
	logger    *slog.Logger

	dashboardCache *ttlCache[[]memberSummary]
}

func NewServer(addr string, store services.Store, ledger *services.Ledger, approvals *services.ApprovalWorkflow, configs *services.ConfigService, scheduler *worker.Scheduler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:          store,
		ledger:         ledger,
		approvals:      approvals,
		configs:        configs,
		scheduler:      scheduler,
		logger:         logger,
		dashboardCache: newTTLCache[[]memberSummary](30 * time.Second),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("/api/users", s.withMiddleware(s.handleUsers))
	mux.HandleFunc("/api/accounts", s.withMiddleware(s.handleAccounts))
	mux.HandleFunc("/api/accounts/create", s.withMiddleware(s.handleCreateAccount))
	mux.HandleFunc("/api/accounts/rename", s.withMiddleware(s.handleRenameAccount))
	mux.HandleFunc("/api/accounts/default", s.withMiddleware(s.handleSetDefault))
	mux.HandleFunc("/api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("/api/transactions/deposit", s.withMiddleware(s.handleDeposit))
	mux.HandleFunc("/api/transactions/withdraw", s.withMiddleware(s.handleWithdraw))
	mux.HandleFunc("/api/transactions/transfer", s.withMiddleware(s.handleTransfer))
	mux.HandleFunc("/api/approvals", s.withMiddleware(s.handleApprovals))
	mux.HandleFunc("/api/approvals/approve", s.withMiddleware(s.handleApprove))
	mux.HandleFunc("/api/approvals/reject", s.withMiddleware(s.handleReject))
	mux.HandleFunc("/api/allowances", s.withMiddleware(s.handleAllowances))
	mux.HandleFunc("/api/allowances/splits", s.withMiddleware(s.handleAllowanceSplits))
	mux.HandleFunc("/api/interest", s.withMiddleware(s.handleInterest))
	mux.HandleFunc("/api/settings", s.withMiddleware(s.handleSettings))
	mux.HandleFunc("/api/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("/api/jobs/run", s.withMiddleware(s.handleRunJobs))

	return s
}

// withMiddleware adds security headers and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ctx := r.Context()

		s.logger.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// JSON plumbing

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInsufficientFunds),
		errors.Is(err, core.ErrInvalidSplitConfiguration),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNoDestinationAccount):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrAccountNotFound),
		errors.Is(err, core.ErrTransactionNotFound),
		errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrConfigNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyReviewed),
		errors.Is(err, core.ErrNicknameTaken):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func queryInt64(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, fmt.Errorf("missing query parameter %s", key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// parseAmount converts a user-entered amount string to Money.
func parseAmount(raw string) (core.Money, error) {
	cents, err := core.ParseAmountToCents(raw)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	return core.Money{Cents: cents}, nil
}

// Views

type transactionView struct {
	ID            int64  `json:"id"`
	FromAccountID *int64 `json:"from_account_id,omitempty"`
	ToAccountID   *int64 `json:"to_account_id,omitempty"`
	Amount        string `json:"amount"`
	AmountCents   int64  `json:"amount_cents"`
	Kind          string `json:"kind"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

func viewTransaction(t core.Transaction) transactionView {
	return transactionView{
		ID:            t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount.String(),
		AmountCents:   t.Amount.Cents,
		Kind:          string(t.Kind),
		Category:      t.Category,
		Description:   t.Description,
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
}

func viewTransactions(txns []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txns))
	for _, t := range txns {
		out = append(out, viewTransaction(t))
	}
	return out
}

type accountView struct {
	ID        int64  `json:"id"`
	OwnerID   int64  `json:"owner_id"`
	Type      string `json:"type"`
	Nickname  string `json:"nickname"`
	IsDefault bool   `json:"is_default"`
	Balance   string `json:"balance"`
	Cents     int64  `json:"balance_cents"`
}

func viewAccount(a core.Account) accountView {
	return accountView{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Type:      string(a.Type),
		Nickname:  a.Nickname,
		IsDefault: a.IsDefault,
		Balance:   a.Balance.String(),
		Cents:     a.Balance.Cents,
	}
}

type memberSummary struct {
	UserID      int64         `json:"user_id"`
	DisplayName string        `json:"display_name"`
	Role        string        `json:"role"`
	Accounts    []accountView `json:"accounts"`
	TotalCents  int64         `json:"total_cents"`
}

// Handlers

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if summary, ok := s.dashboardCache.Get("dashboard"); ok {
		writeJSON(w, http.StatusOK, summary)
		return
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	summaries := make([]memberSummary, 0, len(users))
	for _, u := range users {
		accounts, err := s.store.AccountsByOwner(ctx, u.ID)
		if err != nil {
			s.writeError(ctx, w, err)
			return
		}
		ms := memberSummary{
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			Role:        string(u.Role),
			Accounts:    make([]accountView, 0, len(accounts)),
		}
		for _, a := range accounts {
			ms.Accounts = append(ms.Accounts, viewAccount(a))
			if !a.IsVault() {
				ms.TotalCents += a.Balance.Cents
			}
		}
		summaries = append(summaries, ms)
	}

	s.dashboardCache.Set("dashboard", summaries)
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		users, err := s.store.ListUsers(ctx)
		if err != nil {
			s.writeError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	case http.MethodPost:
		var req struct {
			Username    string `json:"username"`
			DisplayName string `json:"display_name"`
			Role        string `json:"role"`
			AvatarColor string `json:"avatar_color"`
		}
		if err := readJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		var user core.User
		var err error
		if core.Role(req.Role) == core.RoleParent {
			user, err = s.configs.CreateParent(ctx, req.Username, req.DisplayName, req.AvatarColor)
		} else {
			user, err = s.configs.CreateMember(ctx, req.Username, req.DisplayName, req.AvatarColor)
		}
		if err != nil {
			s.writeError(ctx, w, err)
			return
		}
		s.dashboardCache.Invalidate()
		writeJSON(w, http.StatusCreated, user)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var accounts []core.Account
	var err error
	if r.URL.Query().Get("owner_id") != "" {
		ownerID, qerr := queryInt64(r, "owner_id")
		if qerr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": qerr.Error()})
			return
		}
		accounts, err = s.store.AccountsByOwner(ctx, ownerID)
	} else {
		accounts, err = s.store.ListAccounts(ctx)
	}
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, viewAccount(a))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx := r.Context()

	var req struct {
		OwnerID  int64  `json:"owner_id"`
		Nickname string `json:"nickname"`
	}
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	account, err := s.configs.CreateCheckingAccount(ctx, req.OwnerID, req.Nickname)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.dashboardCache.Invalidate()
	writeJSON(w, http.StatusCreated, viewAccount(account))
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx := r.Context()

	var req struct {
		AccountID int64  `json:"account_id"`
		Nickname  string `json:"nickname"`
	}
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.configs.RenameAccount(ctx, req.AccountID, req.Nickname); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.dashboardCache.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx := r.Context()

	var req struct {
		AccountID int64 `json:"account_id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.configs.SetDefaultAccount(ctx, req.AccountID); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.dashboardCache.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	accountID, err := queryInt64(r, "account_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txns, err := s.ledger.ListTransactions(ctx, accountID, limit, offset)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewTransactions(txns))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx := r.Context()

	var req struct {
		FromAccountID *int64 `json:"from_account_id"`
		ToAccountID   int64  `json:"to_account_id"`
		Amount        string `json:"amount"`
		Category      string `json:"category"`
		Description   string `json:"description"`
	}
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	kind := core.KindDeposit
	if req.FromAccountID != nil {
		kind = core.KindParentDeposit
	}
	txn, err := s.ledger.RecordTransaction(ctx, services.TransactionInput{
		Kind:          kind,
		FromAccountID: req.FromAccountID,
		ToAccountID:   &req.ToAccountID,
		Amount:        amount,
		Category:      req.Category,
		Description:   req.Description,
	})
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.dashboardCache.Invalidate()
	writeJSON(w, http.StatusCreated, viewTransaction(txn))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx := r.Context()

	var req struct {
		UserID      int64  `json:"user_id"`
		AccountID   int64  `json:"account_id"`
		Amount      string `json:"amount"`
		Category    string `json:"category"`
		Description string `json:"description"`
	}
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	user, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if user.Role != core.RoleParent && account.OwnerID != user.ID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "account does not belong to user"})
		return
	}

	txn, err := s.approvals.RequestWithdrawal(ctx, user, req.AccountID, amount, req.Category, req.Description)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.dashboardCache.Invalidate()
	writeJSON(w, http.StatusCreated, viewTransaction(txn))
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx := r.Context()

	var req struct {
		FromAccountID int64  `json:"from_account_id"`
		ToAccountID   int64  `json:"to_account_id"`
		Amount        string `json:"amount"`
		Category      string `json:"category"`
		Description   string `json:"description"`
	}
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	txn, err := s.ledger.RecordTransaction(ctx, services.TransactionInput{
		Kind:          core.KindTransfer,
		FromAccountID: &req.FromAccountID,
		ToAccountID:   &req.ToAccountID,
		Amount:        amount,
		Category:      req.Category,
		Description:   req.Description,
	})
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.dashboardCache.Invalidate()
	writeJSON(w, http.StatusCreated, viewTransaction(txn))
}

func (s *Server) handleApprovals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	pending, err := s.approvals.ListPending(ctx)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewTransactions(pending))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx := r.Context()

	var req struct {
		TransactionID int64 `json:"transaction_id"`
		ReviewerID    int64 `json:"reviewer_id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	txn, err := s.approvals.Approve(ctx, req.TransactionID, req.ReviewerID)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.dashboardCache.Invalidate()
	writeJSON(w, http.StatusOK, viewTransaction(txn))
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx := r.Context()

	var req struct {
		TransactionID int64  `json:"transaction_id"`
		ReviewerID    int64  `json:"reviewer_id"`
		Reason        string `json:"reason"`
	}
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	txn, err := s.approvals.Reject(ctx, req.TransactionID, req.ReviewerID, req.Reason)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewTransaction(txn))
}

func (s *Server) handleAllowances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		configs, err := s.store.ListAllowanceConfigs(ctx)
		if err != nil {
			s.writeError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, configs)
	case http.MethodPost:
		var req struct {
			ConfigID          int64  `json:"config_id"`
			Amount            string `json:"amount"`
			Frequency         string `json:"frequency"`
			DayOfWeek         *int   `json:"day_of_week"`
			DayOfMonth        *int   `json:"day_of_month"`
			TargetAccountType string `json:"target_account_type"`
			Active            bool   `json:"active"`
		}
		if err := readJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			s.writeError(ctx, w, err)
			return
		}

		cfg := core.AllowanceConfig{
			ID:                req.ConfigID,
			Amount:            amount,
			Frequency:         core.Frequency(req.Frequency),
			DayOfWeek:         req.DayOfWeek,
			DayOfMonth:        req.DayOfMonth,
			TargetAccountType: core.AccountType(req.TargetAccountType),
			Active:            req.Active,
		}
		if err := s.configs.UpdateAllowance(ctx, cfg); err != nil {
			s.writeError(ctx, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAllowanceSplits(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx := r.Context()

	var req struct {
		ConfigID int64 `json:"config_id"`
		Splits   []struct {
			AccountID  int64   `json:"account_id"`
			Percentage float64 `json:"percentage"`
		} `json:"splits"`
	}
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	splits := make([]core.AllowanceSplit, 0, len(req.Splits))
	for _, split := range req.Splits {
		splits = append(splits, core.AllowanceSplit{
			ConfigID:   req.ConfigID,
			AccountID:  split.AccountID,
			Percentage: split.Percentage,
		})
	}

	if err := s.configs.UpdateAllowanceSplits(ctx, req.ConfigID, splits); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInterest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		configs, err := s.store.ListInterestConfigs(ctx)
		if err != nil {
			s.writeError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, configs)
	case http.MethodPost:
		var req struct {
			ConfigID   int64   `json:"config_id"`
			AnnualRate float64 `json:"annual_rate"`
			Frequency  string  `json:"frequency"`
			Active     bool    `json:"active"`
		}
		if err := readJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		cfg := core.InterestConfig{
			ID:         req.ConfigID,
			AnnualRate: req.AnnualRate,
			Frequency:  core.CompoundFrequency(req.Frequency),
			Active:     req.Active,
		}
		if err := s.configs.UpdateInterest(ctx, cfg); err != nil {
			s.writeError(ctx, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		key := r.URL.Query().Get("key")
		if key == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter key"})
			return
		}
		value, err := s.configs.Setting(ctx, key)
		if err != nil {
			s.writeError(ctx, w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
	case http.MethodPost:
		var req struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if err := readJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := s.configs.SetSetting(ctx, req.Key, req.Value); err != nil {
			s.writeError(ctx, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleRunJobs triggers the due passes on demand, the manual override
// for "allowance day was yesterday and the server was off".
func (s *Server) handleRunJobs(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx := r.Context()

	s.scheduler.RunOnce(ctx, time.Now().UTC())
	s.dashboardCache.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}
