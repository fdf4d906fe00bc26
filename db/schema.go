// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The SQL is kept portable between sqlite and postgres: TEXT primary keys,
// amounts stored as decimal strings, CURRENT_TIMESTAMP defaults.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Users
CREATE TABLE IF NOT EXISTS account_user (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    display_name TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_account_user_email ON account_user(email);

-- Goals (polymorphic: savings, purchase, habit)
CREATE TABLE IF NOT EXISTS goal (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES account_user(id) ON DELETE CASCADE,
    parent_id TEXT REFERENCES goal(id) ON DELETE CASCADE,
    type TEXT NOT NULL CHECK (type IN ('savings', 'purchase', 'habit')),
    title TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'archived')),
    target_amount TEXT,
    current_amount TEXT NOT NULL DEFAULT '0',
    target_date TIMESTAMP,
    search_query TEXT,
    cadence TEXT,
    linked_account_id TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    archived_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_goal_user_id ON goal(user_id);
CREATE INDEX IF NOT EXISTS idx_goal_parent_id ON goal(parent_id);
CREATE INDEX IF NOT EXISTS idx_goal_status ON goal(status);

-- Purchase goal search filters (name/value pairs, e.g. maxPrice, color)
CREATE TABLE IF NOT EXISTS goal_filter (
    goal_id TEXT NOT NULL REFERENCES goal(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (goal_id, name)
);

-- Habit/action tasks
CREATE TABLE IF NOT EXISTS task (
    id TEXT PRIMARY KEY,
    goal_id TEXT NOT NULL REFERENCES goal(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    done BOOLEAN NOT NULL DEFAULT FALSE,
    position INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_task_goal_id ON task(goal_id);

-- Progress contributions against savings/purchase goals
CREATE TABLE IF NOT EXISTS contribution (
    id TEXT PRIMARY KEY,
    goal_id TEXT NOT NULL REFERENCES goal(id) ON DELETE CASCADE,
    amount TEXT NOT NULL,
    note TEXT,
    source TEXT NOT NULL DEFAULT 'manual' CHECK (source IN ('manual', 'chat', 'plaid')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_contribution_goal_id ON contribution(goal_id);

-- Chat transcript
CREATE TABLE IF NOT EXISTS chat_message (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES account_user(id) ON DELETE CASCADE,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chat_message_user_id ON chat_message(user_id, created_at);

-- Plaid items (one per linked institution login)
CREATE TABLE IF NOT EXISTS plaid_item (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES account_user(id) ON DELETE CASCADE,
    item_id TEXT NOT NULL UNIQUE,
    access_token TEXT NOT NULL,
    institution TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_plaid_item_user_id ON plaid_item(user_id);

-- Bank accounts under a Plaid item
CREATE TABLE IF NOT EXISTS bank_account (
    id TEXT PRIMARY KEY,
    item_pk TEXT NOT NULL REFERENCES plaid_item(id) ON DELETE CASCADE,
    account_id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    mask TEXT,
    type TEXT,
    balance TEXT NOT NULL DEFAULT '0',
    synced_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_bank_account_item_pk ON bank_account(item_pk);

-- Listing-search jobs for purchase goals
CREATE TABLE IF NOT EXISTS scrape_job (
    id TEXT PRIMARY KEY,
    goal_id TEXT NOT NULL REFERENCES goal(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES account_user(id) ON DELETE CASCADE,
    retailer TEXT NOT NULL,
    query TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'running', 'done', 'error')),
    error TEXT,
    requested_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    started_at TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_scrape_job_status ON scrape_job(status, requested_at);
CREATE INDEX IF NOT EXISTS idx_scrape_job_goal_id ON scrape_job(goal_id);

-- Product listings found for a purchase goal
CREATE TABLE IF NOT EXISTS listing (
    id TEXT PRIMARY KEY,
    job_id TEXT NOT NULL REFERENCES scrape_job(id) ON DELETE CASCADE,
    goal_id TEXT NOT NULL REFERENCES goal(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    price TEXT,
    url TEXT,
    source TEXT NOT NULL,
    scraped_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_listing_goal_id ON listing(goal_id);
CREATE INDEX IF NOT EXISTS idx_listing_job_id ON listing(job_id);
`
