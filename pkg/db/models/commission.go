package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/pkg/enums"
)

// Commission records the platform fee taken on one settled order. Amounts are
// copied from the order snapshot and never recomputed.
type Commission struct {
	ID                        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ConnectID                 uuid.UUID              `gorm:"column:connect_id;type:uuid;not null;index"`
	OrderID                   uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	ProductKind               enums.ProductKind      `gorm:"column:product_kind;type:text;not null"`
	TotalCents                int64                  `gorm:"column:total_cents;not null"`
	Rate                      decimal.Decimal        `gorm:"column:rate;type:numeric(6,3);not null"`
	FeeCents                  int64                  `gorm:"column:fee_cents;not null"`
	Currency                  string                 `gorm:"column:currency;not null;default:'usd'"`
	StripeTransferDestination *string                `gorm:"column:stripe_transfer_destination"`
	Status                    enums.CommissionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt                 time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                 time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Commission) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
