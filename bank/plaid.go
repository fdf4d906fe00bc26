// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bank

import (
	"context"
	"fmt"

	"github.com/plaid/plaid-go/v31/plaid"
	"github.com/shopspring/decimal"
)

// Client is the slice of the banking provider the handlers need.
// *PlaidClient implements it; tests use a fake.
type Client interface {
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (itemID, accessToken string, err error)
	GetBalances(ctx context.Context, accessToken string) ([]Balance, error)
}

// Balance is one account's state as reported by the provider.
type Balance struct {
	AccountID string
	Name      string
	Mask      string
	Type      string
	Current   decimal.Decimal
}

// PlaidClient talks to the Plaid API.
type PlaidClient struct {
	api *plaid.APIClient
}

// NewPlaidClient creates a client for the given environment
// (sandbox or production).
func NewPlaidClient(clientID, secret, env string) (*PlaidClient, error) {
	cfg := plaid.NewConfiguration()
	cfg.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	cfg.AddDefaultHeader("PLAID-SECRET", secret)

	switch env {
	case "sandbox":
		cfg.UseEnvironment(plaid.Sandbox)
	case "production":
		cfg.UseEnvironment(plaid.Production)
	default:
		return nil, fmt.Errorf("unknown plaid environment %q", env)
	}

	return &PlaidClient{api: plaid.NewAPIClient(cfg)}, nil
}

// CreateLinkToken starts the Link flow for a user
func (c *PlaidClient) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{ClientUserId: userID}
	req := plaid.NewLinkTokenCreateRequest("Lodestar", "en", []plaid.CountryCode{plaid.COUNTRYCODE_US}, user)
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	resp, _, err := c.api.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
	if err != nil {
		return "", fmt.Errorf("plaid link token create failed: %w", err)
	}
	return resp.GetLinkToken(), nil
}

// ExchangePublicToken trades a Link public token for a permanent access token
func (c *PlaidClient) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)

	resp, _, err := c.api.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return "", "", fmt.Errorf("plaid public token exchange failed: %w", err)
	}
	return resp.GetItemId(), resp.GetAccessToken(), nil
}

// GetBalances fetches current balances for all accounts under an item
func (c *PlaidClient) GetBalances(ctx context.Context, accessToken string) ([]Balance, error) {
	req := plaid.NewAccountsBalanceGetRequest(accessToken)

	resp, _, err := c.api.PlaidApi.AccountsBalanceGet(ctx).AccountsBalanceGetRequest(*req).Execute()
	if err != nil {
		return nil, fmt.Errorf("plaid balance fetch failed: %w", err)
	}

	accounts := resp.GetAccounts()
	balances := make([]Balance, 0, len(accounts))
	for _, a := range accounts {
		bal := a.GetBalances()
		balances = append(balances, Balance{
			AccountID: a.GetAccountId(),
			Name:      a.GetName(),
			Mask:      a.GetMask(),
			Type:      string(a.GetType()),
			Current:   decimal.NewFromFloat(bal.GetCurrent()),
		})
	}
	return balances, nil
}
