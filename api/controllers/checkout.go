package controllers

import (
	"net/http"

	"github.com/angelmondragon/stripe-payments/api/responses"
	"github.com/angelmondragon/stripe-payments/api/validators"
	checkoutsvc "github.com/angelmondragon/stripe-payments/internal/checkout"
	"github.com/angelmondragon/stripe-payments/internal/reconcile"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
)

// SaveOrder creates the pending order and its Stripe Checkout session.
// Browsers are sent straight to Stripe; API callers get the session URL.
func SaveOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutsvc.SaveOrderInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateSession(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if responses.WantsJSON(r) {
			responses.WriteJSON(w, http.StatusOK, result)
			return
		}
		http.Redirect(w, r, result.URL, http.StatusSeeOther)
	}
}

// FinishOrder is Stripe's success redirect target. It always answers with a
// redirect, falling back to the default return URL when reconciliation fails.
func FinishOrder(svc reconcile.Service, fallback string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := fallback
		if svc != nil {
			target = svc.FinishOrder(r.Context(), r.URL.Query().Get("session_id"))
		}
		if target == "" {
			target = "/"
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}
