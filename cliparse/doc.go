// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration from CLI flags and environment variables.

CLI flags take precedence over environment variables:

	go run main.go -p 4217 -d "file:lodestar.db"

Required settings:

  - DATABASE_URL (-d): connection string (sqlite file or postgres URL)
  - JWT_SECRET (--jwt-secret): HS256 signing secret for session tokens

Optional settings:

  - PORT (-p): server port (default: 4217)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SCRAPE_WORKERS (--workers): in-process scrape worker count (default: 0)
  - SCRAPE_WORKER_KEY (--worker-key): shared key for external worker callbacks
  - ANTHROPIC_API_KEY, LODESTAR_MODEL: enable the AI chat layer
  - PLAID_CLIENT_ID, PLAID_SECRET, PLAID_ENV: enable the Plaid integration

Integrations left unconfigured simply disable their endpoints (503) rather
than failing startup.
*/
package cliparse
