// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and JSON helpers.

  - WithLogging: request/response slog logging
  - RequireAuth: bearer-token validation, user ID on the request context
  - CORS: cross-origin headers and preflight handling
  - JSONResponse / ErrorResponse / ParseJSONBody: JSON plumbing
  - GetClientIP: client address extraction behind proxies

Handlers read the authenticated user via middleware.UserID(r).
*/
package middleware
