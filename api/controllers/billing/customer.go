package billing

import (
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/stripe-payments/api/responses"
	"github.com/angelmondragon/stripe-payments/api/validators"
	"github.com/angelmondragon/stripe-payments/internal/customers"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
)

type customerResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email,omitempty"`
	DefaultSource string `json:"default_source,omitempty"`
}

// UpdateBillingInfo swaps the buyer's default card for the tokenized one.
// Checkout.js posts the token as stripeToken.
func UpdateBillingInfo(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customer service unavailable"))
			return
		}

		values, err := validators.BodyValues(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		token := values.Get("token")
		if token == "" {
			token = values.Get("stripeToken")
		}

		cust, err := svc.UpdateBillingInfo(r.Context(), validators.SanitizeString(token, 255), validators.SanitizeString(values.Get("email"), 320))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteAction(w, r, values.Get("redirect"), map[string]any{"customer": newCustomerResponse(cust)})
	}
}

func newCustomerResponse(c *stripe.Customer) customerResponse {
	if c == nil {
		return customerResponse{}
	}
	resp := customerResponse{ID: c.ID, Email: c.Email}
	if c.DefaultSource != nil {
		resp.DefaultSource = c.DefaultSource.ID
	}
	return resp
}
