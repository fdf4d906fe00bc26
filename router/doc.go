// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Lodestar API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, assistant, bankClient, queue, retailers)

# Endpoints

Health:

	GET /health

Auth:

	POST /auth/register - Create account
	POST /auth/login    - Log in
	GET  /auth/me       - Current user

Goals (all authenticated):

	GET    /goals                    - List goals (status/type filters)
	POST   /goals                    - Create goal or subgoal
	GET    /goals/{id}               - Goal detail with tasks, filters, contributions, subgoals
	PATCH  /goals/{id}               - Update fields
	POST   /goals/{id}/archive       - Archive goal and subgoals
	POST   /goals/{id}/complete      - Mark completed
	POST   /goals/{id}/contributions - Record progress
	PUT    /goals/{id}/filters       - Replace or merge search filters
	POST   /goals/{id}/tasks         - Add task
	POST   /goals/{id}/tasks/{taskId}/toggle - Toggle task done
	DELETE /goals/{id}/tasks/{taskId}        - Delete task

AI chat:

	POST /chat         - One chat turn
	GET  /chat/stream  - Same turn as server-sent events
	GET  /chat/history - Recent transcript

Bank linking (Plaid):

	POST /plaid/link-token - Start Link flow
	POST /plaid/exchange   - Trade public token, store item
	GET  /plaid/accounts   - Linked accounts
	POST /plaid/sync       - Refresh balances, update linked goals

Listing search:

	POST /goals/{id}/search   - Queue scrape jobs
	GET  /goals/{id}/listings - Scraped listings
	POST /scrape/callback     - External worker results (X-Worker-Key)

# Handler Initialization

The router creates handler instances with dependency injection. The
assistant and bank client are nil when their credentials are missing;
those routes then answer 503.
*/
package router
