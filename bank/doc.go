// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package bank wraps the Plaid API behind the small Client interface the
handlers consume: link token creation, public token exchange, and balance
fetches. Balances come back as decimals keyed by Plaid account ID.

The handlers own all persistence (plaid_item, bank_account tables); this
package is a thin provider client so tests can swap in a fake.
*/
package bank
