package connects

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/stripe-payments/api/responses"
	"github.com/angelmondragon/stripe-payments/api/validators"
	connectsvc "github.com/angelmondragon/stripe-payments/internal/connects"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
)

type vendorResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	StripeAccountID string    `json:"stripe_account_id"`
}

// VendorOnboardingURL hands an admin the Stripe Connect link for a vendor.
func VendorOnboardingURL(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		vendorID, err := validators.ParseUUID(chi.URLParam(r, "vendorId"), "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		link, err := svc.VendorOnboardingURL(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"url": link})
	}
}

// OAuthCallback completes Stripe Connect onboarding. Stripe echoes back the
// vendor id we sent as state.
func OAuthCallback(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}

		q := r.URL.Query()
		if reason := q.Get("error"); reason != "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe connect authorization declined").
				WithDetails(map[string]any{"error": reason, "error_description": q.Get("error_description")}))
			return
		}

		vendorID, err := validators.ParseUUID(q.Get("state"), "state")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.LinkVendorAccount(r.Context(), vendorID, q.Get("code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := vendorResponse{ID: vendor.ID, Name: vendor.Name}
		if vendor.StripeAccountID != nil {
			resp.StripeAccountID = *vendor.StripeAccountID
		}
		responses.WriteAction(w, r, q.Get("redirect"), map[string]any{"vendor": resp})
	}
}
