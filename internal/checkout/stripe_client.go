package checkout

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/paymentintent"

	pkgstripe "github.com/angelmondragon/stripe-payments/pkg/stripe"
)

// PaymentClient exposes the Stripe calls used by checkout and reconciliation.
// Lookups return (nil, nil) when Stripe reports the object as missing.
type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

type stripePaymentClient struct{}

// NewStripePaymentClient wraps the package-level Stripe API configured by api.
func NewStripePaymentClient(api *pkgstripe.Client) PaymentClient {
	if api == nil {
		return nil
	}
	return &stripePaymentClient{}
}

func (c *stripePaymentClient) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		params = &stripe.CheckoutSessionParams{}
	}
	params.Context = ctx
	return session.New(params)
}

func (c *stripePaymentClient) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := session.Get(id, params)
	if err != nil {
		if pkgstripe.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

func (c *stripePaymentClient) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	intent, err := paymentintent.Get(id, params)
	if err != nil {
		if pkgstripe.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return intent, nil
}
