package subscriptions

import (
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/stripe-payments/api/responses"
	"github.com/angelmondragon/stripe-payments/api/validators"
	subsvc "github.com/angelmondragon/stripe-payments/internal/subscriptions"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
)

const (
	maxSubscriptionIDLen = 255
	maxEmailLen          = 320
)

type subscriptionResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CanceledAt        int64  `json:"canceled_at,omitempty"`
}

// Cancel stops a subscription. The buyer email must match the order that sold
// it. cancel_at_period_end is optional and falls back to the configured default.
func Cancel(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		values, err := validators.BodyValues(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		atPeriodEnd, err := validators.ParseOptionalBool(values.Get("cancel_at_period_end"), "cancel_at_period_end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Cancel(r.Context(), subscriptionID(values.Get("subscription_id")), buyerEmail(values.Get("email")), atPeriodEnd)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteAction(w, r, values.Get("redirect"), map[string]any{"subscription": newSubscriptionResponse(sub)})
	}
}

// Reactivate clears a pending cancel-at-period-end.
func Reactivate(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		values, err := validators.BodyValues(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Reactivate(r.Context(), subscriptionID(values.Get("subscription_id")), buyerEmail(values.Get("email")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteAction(w, r, values.Get("redirect"), map[string]any{"subscription": newSubscriptionResponse(sub)})
	}
}

func subscriptionID(raw string) string {
	return validators.SanitizeString(raw, maxSubscriptionIDLen)
}

func buyerEmail(raw string) string {
	return validators.SanitizeString(raw, maxEmailLen)
}

func newSubscriptionResponse(sub *stripe.Subscription) subscriptionResponse {
	if sub == nil {
		return subscriptionResponse{}
	}
	return subscriptionResponse{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CanceledAt:        sub.CanceledAt,
	}
}
