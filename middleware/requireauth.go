// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lodestar-app/server/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth validates the Authorization bearer token and stores the
// user ID on the request context. Unauthenticated requests get 401.
func RequireAuth(tokens *auth.TokenService, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			ErrorResponse(w, http.StatusUnauthorized, "Authorization bearer token required")
			return
		}

		userID, err := tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// UserID returns the authenticated user ID set by RequireAuth.
// Returns "" when the request went through an unauthenticated route.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
