package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vendor is a marketplace seller. StripeAccountID stays nil until the vendor
// completes Connect onboarding.
type Vendor struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Email           string    `gorm:"column:email;not null"`
	StripeAccountID *string   `gorm:"column:stripe_account_id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// HasStripeAccount reports whether funds can be transferred to the vendor.
func (v *Vendor) HasStripeAccount() bool {
	return v != nil && v.StripeAccountID != nil && *v.StripeAccountID != ""
}
