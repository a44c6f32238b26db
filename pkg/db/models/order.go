package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/pkg/enums"
	"github.com/angelmondragon/stripe-payments/pkg/types"
)

// Order is created pending before the buyer is sent to Stripe and later keyed
// by the Stripe identifier (charge id or subscription id) once payment lands.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Number              string              `gorm:"column:number;not null;uniqueIndex"`
	PaymentFormID       uuid.UUID           `gorm:"column:payment_form_id;type:uuid;not null;index"`
	PaymentForm         *PaymentForm        `gorm:"foreignKey:PaymentFormID"`
	Email               string              `gorm:"column:email;not null"`
	Status              enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	Mode                enums.PaymentMode   `gorm:"column:mode;type:text;not null"`
	LineItems           types.LineItems     `gorm:"column:line_items;type:jsonb;not null"`
	TotalCents          int64               `gorm:"column:total_cents;not null"`
	Currency            string              `gorm:"column:currency;not null;default:'usd'"`
	ApplicationFeeCents *int64              `gorm:"column:application_fee_cents"`
	ConnectID           *uuid.UUID          `gorm:"column:connect_id;type:uuid;index"`
	ConnectRate         decimal.NullDecimal `gorm:"column:connect_rate;type:numeric(6,3)"`
	TransferDestination *string             `gorm:"column:transfer_destination"`
	CheckoutSessionID   *string             `gorm:"column:checkout_session_id;uniqueIndex"`
	StripeID            *string             `gorm:"column:stripe_id;uniqueIndex"`
	BillingAddress      *types.Address      `gorm:"column:billing_address;type:jsonb;serializer:json"`
	ShippingAddress     *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Metadata            types.Metadata      `gorm:"column:metadata;type:jsonb"`
	PaidAt              *time.Time          `gorm:"column:paid_at"`
	FailedAt            *time.Time          `gorm:"column:failed_at"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Number == "" {
		o.Number = NewOrderNumber()
	}
	return nil
}

// NewOrderNumber returns a 32 character hex reference.
func NewOrderNumber() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ShortNumber is the first seven characters of Number, used in receipts.
func (o *Order) ShortNumber() string {
	if len(o.Number) <= 7 {
		return o.Number
	}
	return o.Number[:7]
}

// HasSplit reports whether a fee split was attached when the session was created.
func (o *Order) HasSplit() bool {
	return o.ConnectID != nil && o.ConnectRate.Valid && o.ApplicationFeeCents != nil
}

// Attributes exposes the order as template variables for success URLs.
func (o *Order) Attributes() map[string]any {
	attrs := map[string]any{
		"id":          o.ID.String(),
		"number":      o.Number,
		"shortNumber": o.ShortNumber(),
		"email":       o.Email,
		"status":      string(o.Status),
		"mode":        string(o.Mode),
		"totalCents":  o.TotalCents,
		"currency":    o.Currency,
		"stripeId":    "",
	}
	if o.StripeID != nil {
		attrs["stripeId"] = *o.StripeID
	}
	if o.CheckoutSessionID != nil {
		attrs["sessionId"] = *o.CheckoutSessionID
	}
	if o.PaymentForm != nil {
		attrs["formHandle"] = o.PaymentForm.Handle
	}
	for key, value := range o.Metadata {
		if _, taken := attrs[key]; !taken {
			attrs[key] = value
		}
	}
	return attrs
}
