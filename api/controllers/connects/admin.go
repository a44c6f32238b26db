package connects

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stripe-payments/api/responses"
	"github.com/angelmondragon/stripe-payments/api/validators"
	connectsvc "github.com/angelmondragon/stripe-payments/internal/connects"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
)

type connectResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProductKind   string          `json:"product_kind"`
	ProductFormID *uuid.UUID      `json:"product_form_id,omitempty"`
	VendorID      *uuid.UUID      `json:"vendor_id,omitempty"`
	Rate          decimal.Decimal `json:"rate"`
	Enabled       bool            `json:"enabled"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func newConnectResponse(c *models.Connect) connectResponse {
	return connectResponse{
		ID:            c.ID,
		ProductKind:   string(c.ProductKind),
		ProductFormID: c.ProductFormID,
		VendorID:      c.VendorID,
		Rate:          c.Rate,
		Enabled:       c.Enabled,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "connect service unavailable"))
}

func List(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		connects, err := svc.ListConnects(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]connectResponse, 0, len(connects))
		for i := range connects {
			out = append(out, newConnectResponse(&connects[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func Create(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		var payload connectsvc.CreateConnectInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseProductKind(payload.ProductKind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported product kind"))
			return
		}
		connect, err := svc.CreateNewConnect(r.Context(), kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newConnectResponse(connect))
	}
}

func Get(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		id, err := validators.ParseUUID(chi.URLParam(r, "connectId"), "connectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		connect, err := svc.GetConnectByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newConnectResponse(connect))
	}
}

func Update(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		id, err := validators.ParseUUID(chi.URLParam(r, "connectId"), "connectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload connectsvc.UpdateConnectInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		connect, err := svc.UpdateConnect(r.Context(), id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newConnectResponse(connect))
	}
}

// Delete removes the connect together with every commission it produced.
func Delete(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		id, err := validators.ParseUUID(chi.URLParam(r, "connectId"), "connectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteConnect(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ProductKinds(svc connectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		responses.WriteSuccess(w, svc.ProductKindOptions())
	}
}
