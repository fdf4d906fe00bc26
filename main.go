// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/lodestar-app/server/ai"
	"github.com/lodestar-app/server/bank"
	"github.com/lodestar-app/server/cliparse"
	"github.com/lodestar-app/server/db"
	"github.com/lodestar-app/server/goalcmd"
	"github.com/lodestar-app/server/handlers"
	"github.com/lodestar-app/server/middleware"
	"github.com/lodestar-app/server/router"
	"github.com/lodestar-app/server/scrape"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database (sqlite for dev, postgres for deployment)
	driver := "sqlite"
	if cfg.DatabaseType == "postgres" {
		driver = "postgres"
	}
	dbConn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready")

	engine := goalcmd.NewService(dbConn)

	// AI chat is optional
	var assistant handlers.Assistant
	if cfg.ChatEnabled() {
		chat, err := ai.NewService(dbConn, engine, cfg.AnthropicKey, cfg.Model)
		if err != nil {
			slog.Error("failed to create chat service", "error", err)
			os.Exit(1)
		}
		assistant = chat
		slog.Info("AI chat enabled", "model", cfg.Model)
	} else {
		slog.Info("AI chat disabled (no ANTHROPIC_API_KEY)")
	}

	// Plaid is optional
	var bankClient bank.Client
	if cfg.PlaidEnabled() {
		plaidClient, err := bank.NewPlaidClient(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnv)
		if err != nil {
			slog.Error("failed to create plaid client", "error", err)
			os.Exit(1)
		}
		bankClient = plaidClient
		slog.Info("Plaid enabled", "env", cfg.PlaidEnv)
	} else {
		slog.Info("Plaid disabled (no PLAID_CLIENT_ID / PLAID_SECRET)")
	}

	// Scrape queue is always available; external workers post through the
	// callback endpoint. In-process workers are opt-in.
	queue := scrape.NewQueue(dbConn)
	searcher := scrape.NewRodSearcher(nil)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var pool *scrape.Pool
	if cfg.ScrapeWorkers > 0 {
		pool = scrape.NewPool(queue, searcher, cfg.ScrapeWorkers)
		pool.Start(workerCtx)
	}

	// Create router
	mux := router.NewRouter(dbConn, cfg, assistant, bankClient, queue, searcher.Retailers())

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		stopWorkers()
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}

	stopWorkers()
	if pool != nil {
		pool.Wait()
	}
}
