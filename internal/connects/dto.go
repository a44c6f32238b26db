package connects

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stripe-payments/pkg/types"
)

// CreateConnectInput is the admin payload for a new connect.
type CreateConnectInput struct {
	ProductKind string `json:"product_kind" validate:"required"`
}

// UpdateConnectInput carries the fields an admin may change. Absent fields
// are left as they are; explicit nulls clear the reference.
type UpdateConnectInput struct {
	ProductKind   *string            `json:"product_kind,omitempty"`
	ProductFormID types.NullableUUID `json:"product_form_id"`
	VendorID      types.NullableUUID `json:"vendor_id"`
	Rate          *decimal.Decimal   `json:"rate,omitempty"`
	Enabled       *bool              `json:"enabled,omitempty"`
}

// ProductKindOption is one entry of the product kind selector.
type ProductKindOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
