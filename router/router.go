// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/lodestar-app/server/auth"
	"github.com/lodestar-app/server/bank"
	"github.com/lodestar-app/server/cliparse"
	"github.com/lodestar-app/server/goalcmd"
	"github.com/lodestar-app/server/handlers"
	"github.com/lodestar-app/server/middleware"
	"github.com/lodestar-app/server/scrape"
)

// NewRouter wires all handlers. assistant and bankClient may be nil when
// their integrations are not configured; the handlers answer 503 then.
func NewRouter(db *sql.DB, cfg cliparse.Config, assistant handlers.Assistant,
	bankClient bank.Client, queue *scrape.Queue, retailers []string) *http.ServeMux {
	mux := http.NewServeMux()

	tokens := auth.NewTokenService(cfg.JWTSecret, auth.DefaultTokenTTL)
	engine := goalcmd.NewService(db)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(db, cfg, tokens)
	goalHandler := handlers.NewGoalHandler(db, cfg, engine)
	chatHandler := handlers.NewChatHandler(db, cfg, assistant)
	plaidHandler := handlers.NewPlaidHandler(db, cfg, bankClient)
	scrapeHandler := handlers.NewScrapeHandler(db, cfg, queue, retailers)

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAuth(tokens, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth
	mux.HandleFunc("POST /auth/register", middleware.WithLogging(userHandler.Register))
	mux.HandleFunc("POST /auth/login", middleware.WithLogging(userHandler.Login))
	mux.HandleFunc("GET /auth/me", authed(userHandler.Me))

	// Goals
	mux.HandleFunc("GET /goals", authed(goalHandler.List))
	mux.HandleFunc("POST /goals", authed(goalHandler.Create))
	mux.HandleFunc("GET /goals/{id}", authed(goalHandler.Get))
	mux.HandleFunc("PATCH /goals/{id}", authed(goalHandler.Update))
	mux.HandleFunc("POST /goals/{id}/archive", authed(goalHandler.Archive))
	mux.HandleFunc("POST /goals/{id}/complete", authed(goalHandler.Complete))
	mux.HandleFunc("POST /goals/{id}/contributions", authed(goalHandler.Contribute))
	mux.HandleFunc("PUT /goals/{id}/filters", authed(goalHandler.UpdateFilters))

	// Tasks
	mux.HandleFunc("POST /goals/{id}/tasks", authed(goalHandler.AddTask))
	mux.HandleFunc("POST /goals/{id}/tasks/{taskId}/toggle", authed(goalHandler.ToggleTask))
	mux.HandleFunc("DELETE /goals/{id}/tasks/{taskId}", authed(goalHandler.DeleteTask))

	// AI chat
	mux.HandleFunc("POST /chat", authed(chatHandler.Send))
	mux.HandleFunc("GET /chat/stream", authed(chatHandler.Stream))
	mux.HandleFunc("GET /chat/history", authed(chatHandler.History))

	// Bank linking
	mux.HandleFunc("POST /plaid/link-token", authed(plaidHandler.LinkToken))
	mux.HandleFunc("POST /plaid/exchange", authed(plaidHandler.Exchange))
	mux.HandleFunc("GET /plaid/accounts", authed(plaidHandler.Accounts))
	mux.HandleFunc("POST /plaid/sync", authed(plaidHandler.Sync))

	// Listing search
	mux.HandleFunc("POST /goals/{id}/search", authed(scrapeHandler.Search))
	mux.HandleFunc("GET /goals/{id}/listings", authed(scrapeHandler.Listings))
	mux.HandleFunc("POST /scrape/callback", middleware.WithLogging(scrapeHandler.Callback))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("lodestar API v1"))
	})

	return mux
}
