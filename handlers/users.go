// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lodestar-app/server/auth"
	"github.com/lodestar-app/server/cliparse"
	"github.com/lodestar-app/server/middleware"
	"github.com/lodestar-app/server/models"
)

type UserHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	tokens *auth.TokenService
}

func NewUserHandler(db *sql.DB, cfg cliparse.Config, tokens *auth.TokenService) *UserHandler {
	return &UserHandler{db: db, cfg: cfg, tokens: tokens}
}

// Register handles POST /auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		middleware.ErrorResponse(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(req.Password) < 8 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	// Check for an existing account first
	var existingID string
	err := h.db.QueryRow(`SELECT id FROM account_user WHERE email = $1`, email).Scan(&existingID)
	if err == nil {
		middleware.ErrorResponse(w, http.StatusConflict, "email is already registered")
		return
	}
	if err != sql.ErrNoRows {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	userID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate user ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	var displayName interface{}
	if dn := strings.TrimSpace(req.DisplayName); dn != "" {
		displayName = dn
	}

	now := time.Now()
	_, err = h.db.Exec(`
		INSERT INTO account_user (id, email, password_hash, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, email, hash, displayName, now)
	if err != nil {
		slog.Error("failed to insert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	token, err := h.tokens.GenerateToken(userID, email)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	slog.Info("user registered", "user_id", userID)

	user := models.User{ID: userID, Email: email, CreatedAt: now}
	if displayName != nil {
		dn := req.DisplayName
		user.DisplayName = &dn
	}
	middleware.JSONResponse(w, http.StatusCreated, models.AuthResponse{Token: token, User: user})
}

// Login handles POST /auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	var displayName sql.NullString
	err := h.db.QueryRow(`
		SELECT id, email, password_hash, display_name, created_at
		FROM account_user WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &displayName, &user.CreatedAt)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}
	if displayName.Valid {
		user.DisplayName = &displayName.String
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	slog.Info("user logged in", "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusOK, models.AuthResponse{Token: token, User: user})
}

// Me handles GET /auth/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var user models.User
	var displayName sql.NullString
	err := h.db.QueryRow(`
		SELECT id, email, display_name, created_at
		FROM account_user WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &displayName, &user.CreatedAt)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if displayName.Valid {
		user.DisplayName = &displayName.String
	}

	middleware.JSONResponse(w, http.StatusOK, user)
}
