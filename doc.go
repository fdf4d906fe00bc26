// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Lodestar API server.

Lodestar is a personal goals service: users track savings, purchase,
and habit goals, and an AI assistant manages them through chat. Typed
commands extracted from assistant replies run through the same engine
as the REST API, so "set aside $200 for the bike fund" and a POST to
/goals/{id}/contributions are the same operation.

# Starting the Server

The server requires environment variables or CLI flags for
configuration:

	DATABASE_URL=lodestar.db JWT_SECRET=... go run main.go

Or with flags:

	go run main.go -p 4217 -d lodestar.db --jwt-secret ...

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite file path or postgres connection string
  - JWT_SECRET (--jwt-secret): session token signing secret

Optional settings:

  - PORT (-p): server port (default: 4217)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - ANTHROPIC_API_KEY: enables the AI chat layer
  - LODESTAR_MODEL: overrides the default chat model
  - PLAID_CLIENT_ID / PLAID_SECRET / PLAID_ENV: enables bank linking
  - SCRAPE_WORKERS (--workers): in-process listing-search workers
  - SCRAPE_WORKER_KEY (--worker-key): shared key for external workers

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (users, goals, chat, plaid, scrape)
  - router: route definitions using Go 1.22+ routing
  - middleware: auth, CORS, logging, JSON helpers
  - goalcmd: transactional command engine shared by REST and chat
  - ai: Anthropic-backed assistant that emits goal commands
  - bank: Plaid client for linked savings accounts
  - scrape: job queue, worker pool, and headless-browser searcher
  - models: request/response and domain types
  - auth: password hashing and session tokens
*/
package main
