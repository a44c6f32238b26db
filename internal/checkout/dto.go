package checkout

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/stripe-payments/pkg/types"
)

// SaveOrderInput is the checkout form payload.
type SaveOrderInput struct {
	FormHandle        string            `json:"form_handle" validate:"required,max=100"`
	Email             string            `json:"email" validate:"required,email"`
	LineItems         []types.LineItem  `json:"line_items" validate:"required,min=1,dive"`
	BillingAddress    *types.Address    `json:"billing_address,omitempty"`
	Address           *types.Address    `json:"address,omitempty"`
	SameAddressToggle bool              `json:"same_address_toggle"`
	Metadata          map[string]string `json:"metadata,omitempty" validate:"omitempty,max=20"`
	CancelURL         string            `json:"cancel_url,omitempty" validate:"omitempty,url"`
}

// ShippingAddress resolves the address to ship to, honouring the same-as-billing toggle.
func (in SaveOrderInput) ShippingAddress() *types.Address {
	if in.SameAddressToggle && in.BillingAddress != nil {
		copied := *in.BillingAddress
		return &copied
	}
	return in.Address
}

// SessionResult is returned once the Stripe session exists.
type SessionResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	SessionID   string    `json:"session_id"`
	URL         string    `json:"url"`
}
