// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lodestar-app/server/auth"
	"github.com/lodestar-app/server/bank"
	"github.com/lodestar-app/server/cliparse"
	"github.com/lodestar-app/server/middleware"
	"github.com/lodestar-app/server/models"
)

type PlaidHandler struct {
	db   *sql.DB
	cfg  cliparse.Config
	bank bank.Client // nil when Plaid credentials are not configured
}

func NewPlaidHandler(db *sql.DB, cfg cliparse.Config, client bank.Client) *PlaidHandler {
	return &PlaidHandler{db: db, cfg: cfg, bank: client}
}

func (h *PlaidHandler) configured(w http.ResponseWriter) bool {
	if h.bank == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "bank linking is not configured")
		return false
	}
	return true
}

// LinkToken handles POST /plaid/link-token
func (h *PlaidHandler) LinkToken(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	userID := middleware.UserID(r)

	token, err := h.bank.CreateLinkToken(r.Context(), userID)
	if err != nil {
		slog.Error("failed to create link token", "user_id", userID, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "bank provider is unavailable")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.LinkTokenResponse{LinkToken: token})
}

// Exchange handles POST /plaid/exchange: trades the Link public token for
// an access token, stores the item, and pulls the initial account list.
func (h *PlaidHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	userID := middleware.UserID(r)

	var req models.ExchangeTokenRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.PublicToken) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "public_token is required")
		return
	}

	itemID, accessToken, err := h.bank.ExchangePublicToken(r.Context(), req.PublicToken)
	if err != nil {
		slog.Error("failed to exchange public token", "user_id", userID, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "bank provider is unavailable")
		return
	}

	itemPK, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate item ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to link bank")
		return
	}

	var institution interface{}
	if inst := strings.TrimSpace(req.Institution); inst != "" {
		institution = inst
	}
	_, err = h.db.Exec(`
		INSERT INTO plaid_item (id, user_id, item_id, access_token, institution, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, itemPK, userID, itemID, accessToken, institution, time.Now())
	if err != nil {
		slog.Error("failed to insert plaid item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to link bank")
		return
	}

	accounts, err := h.syncItem(r.Context(), userID, itemPK, accessToken)
	if err != nil {
		slog.Error("failed to sync accounts after exchange", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch accounts")
		return
	}

	slog.Info("bank linked", "user_id", userID, "accounts", len(accounts))

	middleware.JSONResponse(w, http.StatusCreated, models.ExchangeTokenResponse{
		ItemID:   itemPK,
		Accounts: accounts,
	})
}

// Accounts handles GET /plaid/accounts
func (h *PlaidHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	accounts, err := h.loadAccounts(userID)
	if err != nil {
		slog.Error("failed to query bank accounts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, accounts)
}

// Sync handles POST /plaid/sync: refreshes balances for every linked item
// and pushes the deltas into linked savings goals as plaid contributions.
func (h *PlaidHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	userID := middleware.UserID(r)

	rows, err := h.db.Query(`SELECT id, access_token FROM plaid_item WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("failed to query plaid items", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	type item struct{ pk, token string }
	var items []item
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.pk, &it.token); err != nil {
			rows.Close()
			slog.Error("failed to scan plaid item", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		slog.Error("failed to read plaid items", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	for _, it := range items {
		if _, err := h.syncItem(r.Context(), userID, it.pk, it.token); err != nil {
			slog.Error("failed to sync plaid item", "item", it.pk, "error", err)
			middleware.ErrorResponse(w, http.StatusBadGateway, "bank provider is unavailable")
			return
		}
	}

	accounts, err := h.loadAccounts(userID)
	if err != nil {
		slog.Error("failed to query bank accounts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, accounts)
}

// syncItem fetches current balances for one item, upserts bank_account
// rows, and applies balance changes to linked goals.
func (h *PlaidHandler) syncItem(ctx context.Context, userID, itemPK, accessToken string) ([]models.BankAccount, error) {
	balances, err := h.bank.GetBalances(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	accounts := make([]models.BankAccount, 0, len(balances))
	for _, bal := range balances {
		acct, err := h.upsertAccount(ctx, itemPK, bal, now)
		if err != nil {
			return nil, err
		}
		if err := h.applyBalanceToGoals(ctx, userID, bal); err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

func (h *PlaidHandler) upsertAccount(ctx context.Context, itemPK string, bal bank.Balance, now time.Time) (models.BankAccount, error) {
	acct := models.BankAccount{
		AccountID: bal.AccountID,
		Name:      bal.Name,
		Balance:   bal.Current,
		SyncedAt:  now,
	}
	if bal.Mask != "" {
		acct.Mask = &bal.Mask
	}
	if bal.Type != "" {
		acct.Type = &bal.Type
	}

	var existingID string
	err := h.db.QueryRowContext(ctx, `
		SELECT id FROM bank_account WHERE account_id = $1
	`, bal.AccountID).Scan(&existingID)
	if err == sql.ErrNoRows {
		id, err := auth.GenerateID(16)
		if err != nil {
			return acct, err
		}
		_, err = h.db.ExecContext(ctx, `
			INSERT INTO bank_account (id, item_pk, account_id, name, mask, type, balance, synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, id, itemPK, bal.AccountID, bal.Name, nullable(bal.Mask), nullable(bal.Type),
			bal.Current.String(), now)
		if err != nil {
			return acct, err
		}
		acct.ID = id
		return acct, nil
	}
	if err != nil {
		return acct, err
	}

	_, err = h.db.ExecContext(ctx, `
		UPDATE bank_account SET name = $1, balance = $2, synced_at = $3 WHERE id = $4
	`, bal.Name, bal.Current.String(), now, existingID)
	if err != nil {
		return acct, err
	}
	acct.ID = existingID
	return acct, nil
}

// applyBalanceToGoals moves active savings goals linked to an account to
// the account's current balance, recording the change as a plaid-sourced
// contribution. A completed target flips the goal to completed.
func (h *PlaidHandler) applyBalanceToGoals(ctx context.Context, userID string, bal bank.Balance) error {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, current_amount, target_amount FROM goal
		WHERE user_id = $1 AND linked_account_id = $2 AND status = $3
	`, userID, bal.AccountID, models.StatusActive)
	if err != nil {
		return err
	}
	defer rows.Close()

	type linkedGoal struct {
		id      string
		current decimal.Decimal
		target  *decimal.Decimal
	}
	var goals []linkedGoal
	for rows.Next() {
		var g linkedGoal
		var current string
		var target sql.NullString
		if err := rows.Scan(&g.id, &current, &target); err != nil {
			return err
		}
		if g.current, err = decimal.NewFromString(current); err != nil {
			return err
		}
		if target.Valid {
			d, err := decimal.NewFromString(target.String)
			if err != nil {
				return err
			}
			g.target = &d
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, g := range goals {
		delta := bal.Current.Sub(g.current)
		if delta.IsZero() {
			continue
		}

		contribID, err := auth.GenerateID(16)
		if err != nil {
			return err
		}
		note := "Balance sync: " + bal.Name
		now := time.Now()
		_, err = h.db.ExecContext(ctx, `
			INSERT INTO contribution (id, goal_id, amount, note, source, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, contribID, g.id, delta.String(), note, models.SourcePlaid, now)
		if err != nil {
			return err
		}

		status := models.StatusActive
		if g.target != nil && bal.Current.GreaterThanOrEqual(*g.target) {
			status = models.StatusCompleted
		}
		_, err = h.db.ExecContext(ctx, `
			UPDATE goal SET current_amount = $1, status = $2, updated_at = $3 WHERE id = $4
		`, bal.Current.String(), status, now, g.id)
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *PlaidHandler) loadAccounts(userID string) ([]models.BankAccount, error) {
	rows, err := h.db.Query(`
		SELECT b.id, b.account_id, b.name, b.mask, b.type, b.balance, b.synced_at
		FROM bank_account b
		JOIN plaid_item p ON p.id = b.item_pk
		WHERE p.user_id = $1
		ORDER BY b.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.BankAccount{}
	for rows.Next() {
		var a models.BankAccount
		var mask, acctType sql.NullString
		var balance string
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Name, &mask, &acctType, &balance, &a.SyncedAt); err != nil {
			return nil, err
		}
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, err
		}
		if mask.Valid {
			a.Mask = &mask.String
		}
		if acctType.Valid {
			a.Type = &acctType.String
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
