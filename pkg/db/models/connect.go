package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/pkg/enums"
)

// Connect ties a product (payment form) to a vendor and the share of each
// sale the vendor keeps. Rate is a percentage in [0,100].
type Connect struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductKind   enums.ProductKind `gorm:"column:product_kind;type:text;not null"`
	ProductFormID *uuid.UUID        `gorm:"column:product_form_id;type:uuid;index"`
	Enabled       bool              `gorm:"column:enabled;not null;default:false"`
	Rate          decimal.Decimal   `gorm:"column:rate;type:numeric(6,3);not null"`
	VendorID      *uuid.UUID        `gorm:"column:vendor_id;type:uuid;index"`
	Vendor        *Vendor           `gorm:"foreignKey:VendorID"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Connect) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
