package service

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// AccountAPI is the account-status query capability. Tests substitute a
// fixture; production uses the Stripe client.
type AccountAPI interface {
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
}

type stripeAccountAPI struct {
	api *client.API
}

// NewStripeAccountAPI returns an AccountAPI backed by the official client.
func NewStripeAccountAPI(apiKey string) AccountAPI {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &stripeAccountAPI{api: api}
}

func (s *stripeAccountAPI) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	params := &stripe.AccountParams{Params: stripe.Params{Context: ctx}}
	return s.api.Accounts.GetByID(accountID, params)
}
