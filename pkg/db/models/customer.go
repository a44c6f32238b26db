package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer maps a buyer email to the Stripe customer created for it.
type Customer struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email            string    `gorm:"column:email;not null;uniqueIndex"`
	StripeCustomerID string    `gorm:"column:stripe_customer_id;not null;uniqueIndex"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
