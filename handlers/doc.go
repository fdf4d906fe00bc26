// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP handlers for the API.

Handlers are grouped by concern (users, goals, tasks, chat, plaid,
scrape) and hold their dependencies directly: the database, the parsed
config, and whichever service they front. Goal and task mutations are
not implemented here; they build a GoalCommand and hand it to the
goalcmd engine, so the REST API and the AI chat layer run the exact
same code.

Optional integrations (chat, Plaid) are injected as nil when their
credentials are missing, and the handlers answer 503 for those routes.
*/
package handlers
