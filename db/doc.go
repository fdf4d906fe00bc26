// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db provides database schema creation.

The schema is a single idempotent SQL script (IF NOT EXISTS) kept portable
between sqlite (modernc.org/sqlite, dev and tests) and postgres (lib/pq,
production). Monetary amounts are stored as decimal strings and handled with
shopspring/decimal in Go; enum-ish columns carry CHECK constraints.

Tables:

  - account_user: registered users
  - goal: polymorphic goals (savings, purchase, habit) with self-referencing
    parent_id for subgoals
  - goal_filter: purchase search filters as name/value pairs
  - task: checklist items under a goal
  - contribution: progress entries (manual, chat, plaid)
  - chat_message: per-user AI conversation transcript
  - plaid_item, bank_account: linked banking data
  - scrape_job, listing: listing-search pipeline state
*/
package db
