package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/pkg/enums"
)

// PaymentForm is a configured checkout: a handle buyers post against, the
// Stripe mode it runs in, and the templated URLs buyers return to.
type PaymentForm struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Handle             string            `gorm:"column:handle;not null;uniqueIndex"`
	Name               string            `gorm:"column:name;not null"`
	Mode               enums.PaymentMode `gorm:"column:mode;type:text;not null;default:'payment'"`
	Currency           string            `gorm:"column:currency;not null;default:'usd'"`
	Interval           *string           `gorm:"column:interval"`
	CheckoutSuccessURL *string           `gorm:"column:checkout_success_url"`
	CheckoutCancelURL  *string           `gorm:"column:checkout_cancel_url"`
	Enabled            bool              `gorm:"column:enabled;not null;default:true"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (f *PaymentForm) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
