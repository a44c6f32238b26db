// Package dbtest opens throwaway sqlite databases migrated with the payment
// models and seeds canonical fixtures.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/pkg/db"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
	"github.com/angelmondragon/stripe-payments/pkg/types"
)

// Open returns a client over a private in-memory database. The pool is capped
// at one connection so callers must use the tx handle inside WithTx.
func Open(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(
		&models.PaymentForm{},
		&models.Vendor{},
		&models.Connect{},
		&models.Order{},
		&models.Commission{},
		&models.Customer{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db.Wrap(conn)
}

func SeedPaymentForm(t *testing.T, conn *gorm.DB, mode enums.PaymentMode, successURL *string) *models.PaymentForm {
	t.Helper()
	form := &models.PaymentForm{
		Handle:             "form-" + uuid.NewString()[:8],
		Name:               "Donations",
		Mode:               mode,
		Currency:           "usd",
		CheckoutSuccessURL: successURL,
		Enabled:            true,
	}
	if mode == enums.PaymentModeSubscription {
		interval := "month"
		form.Interval = &interval
	}
	if err := conn.Create(form).Error; err != nil {
		t.Fatalf("seed payment form: %v", err)
	}
	return form
}

func SeedVendor(t *testing.T, conn *gorm.DB, stripeAccountID *string) *models.Vendor {
	t.Helper()
	vendor := &models.Vendor{
		Name:            "Acme Supplies",
		Email:           "vendor-" + uuid.NewString()[:8] + "@example.com",
		StripeAccountID: stripeAccountID,
	}
	if err := conn.Create(vendor).Error; err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	return vendor
}

func SeedConnect(t *testing.T, conn *gorm.DB, formID, vendorID *uuid.UUID, rate int64, enabled bool) *models.Connect {
	t.Helper()
	connect := &models.Connect{
		ProductKind:   enums.ProductKindPaymentForm,
		ProductFormID: formID,
		VendorID:      vendorID,
		Rate:          decimal.NewFromInt(rate),
	}
	if err := conn.Create(connect).Error; err != nil {
		t.Fatalf("seed connect: %v", err)
	}
	// enabled has a DB default so false must be written explicitly after insert.
	if err := conn.Model(connect).Update("enabled", enabled).Error; err != nil {
		t.Fatalf("seed connect enabled flag: %v", err)
	}
	connect.Enabled = enabled
	return connect
}

func SeedOrder(t *testing.T, conn *gorm.DB, formID uuid.UUID, stripeID *string) *models.Order {
	t.Helper()
	items := types.LineItems{{Name: "Gift", UnitAmountCents: 1000, Quantity: 1}}
	order := &models.Order{
		PaymentFormID: formID,
		Email:         "buyer@example.com",
		Status:        enums.OrderStatusPending,
		Mode:          enums.PaymentModePayment,
		LineItems:     items,
		TotalCents:    items.Total(),
		Currency:      "usd",
		StripeID:      stripeID,
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func SeedCommission(t *testing.T, conn *gorm.DB, connectID, orderID uuid.UUID) *models.Commission {
	t.Helper()
	commission := &models.Commission{
		ConnectID:   connectID,
		OrderID:     orderID,
		ProductKind: enums.ProductKindPaymentForm,
		TotalCents:  1000,
		Rate:        decimal.NewFromInt(80),
		FeeCents:    200,
		Currency:    "usd",
		Status:      enums.CommissionStatusPending,
	}
	if err := conn.Create(commission).Error; err != nil {
		t.Fatalf("seed commission: %v", err)
	}
	return commission
}
