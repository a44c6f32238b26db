package connects

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/oauth"
)

var errConnectClientIDMissing = errors.New("stripe connect client id not configured")

// OAuthClient drives Stripe Connect Standard onboarding: the authorize link a
// vendor follows and the code exchange on the way back.
type OAuthClient interface {
	AuthorizeURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (string, error)
}

type stripeOAuth struct {
	clientID string
}

// NewStripeOAuthClient builds links for the platform's Connect client id
// (ca_...). The code exchange authenticates with the key set by pkg/stripe.
func NewStripeOAuthClient(clientID string) OAuthClient {
	return stripeOAuth{clientID: strings.TrimSpace(clientID)}
}

func (o stripeOAuth) AuthorizeURL(state string) (string, error) {
	if o.clientID == "" {
		return "", errConnectClientIDMissing
	}
	return oauth.AuthorizeURL(&stripe.AuthorizeURLParams{
		ClientID:     stripe.String(o.clientID),
		ResponseType: stripe.String("code"),
		Scope:        stripe.String("read_write"),
		State:        stripe.String(state),
	}), nil
}

func (stripeOAuth) ExchangeCode(ctx context.Context, code string) (string, error) {
	params := &stripe.OAuthTokenParams{
		GrantType: stripe.String("authorization_code"),
		Code:      stripe.String(code),
	}
	params.Context = ctx
	token, err := oauth.New(params)
	if err != nil {
		return "", err
	}
	return token.StripeUserID, nil
}
