package customers

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"

	pkgstripe "github.com/angelmondragon/stripe-payments/pkg/stripe"
)

// StripeCustomerClient updates customers on Stripe.
type StripeCustomerClient interface {
	Update(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error)
}

type stripeCustomerWrapper struct{}

func NewStripeClient(api *pkgstripe.Client) StripeCustomerClient {
	if api == nil {
		return nil
	}
	return &stripeCustomerWrapper{}
}

func (w *stripeCustomerWrapper) Update(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if params == nil {
		params = &stripe.CustomerParams{}
	}
	params.Context = ctx
	return customer.Update(id, params)
}
