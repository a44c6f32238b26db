package orders

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/stripe-payments/pkg/db/dbtest"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return impl, client.DB()
}

func seedSessionOrder(t *testing.T, conn *gorm.DB, sessionID string) *models.Order {
	t.Helper()
	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModePayment, nil)
	order := dbtest.SeedOrder(t, conn, form.ID, nil)
	if err := conn.Model(order).Update("checkout_session_id", sessionID).Error; err != nil {
		t.Fatalf("tag session: %v", err)
	}
	return order
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatal("expected error without repository")
	}
}

func TestMarkPaidStoresExternalID(t *testing.T) {
	svc, conn := newTestService(t)
	seeded := seedSessionOrder(t, conn, "cs_paid")

	order, err := svc.MarkPaid(context.Background(), conn, "cs_paid", "ch_1")
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if order.ID != seeded.ID || order.Status != enums.OrderStatusPaid {
		t.Fatalf("unexpected order state %+v", order)
	}
	if order.PaidAt == nil || !order.PaidAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected paid_at from clock, got %v", order.PaidAt)
	}

	var stored models.Order
	if err := conn.First(&stored, "id = ?", seeded.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.StripeID == nil || *stored.StripeID != "ch_1" {
		t.Fatalf("expected stripe id persisted, got %v", stored.StripeID)
	}
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	svc, conn := newTestService(t)
	seedSessionOrder(t, conn, "cs_twice")
	ctx := context.Background()

	if _, err := svc.MarkPaid(ctx, conn, "cs_twice", "ch_2"); err != nil {
		t.Fatalf("first mark paid: %v", err)
	}
	if _, err := svc.MarkPaid(ctx, conn, "cs_twice", "ch_2"); err != nil {
		t.Fatalf("replay should be a no-op, got %v", err)
	}

	_, err := svc.MarkPaid(ctx, conn, "cs_twice", "ch_other")
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for different identifier, got %v", err)
	}
}

func TestMarkPaidUnknownSession(t *testing.T) {
	svc, conn := newTestService(t)

	_, err := svc.MarkPaid(context.Background(), conn, "cs_unknown", "ch_3")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = svc.MarkPaid(context.Background(), conn, "cs_unknown", " ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty id, got %v", err)
	}
}

func TestMarkFailedLeavesPaidOrdersAlone(t *testing.T) {
	svc, conn := newTestService(t)
	seedSessionOrder(t, conn, "cs_fail")
	seedSessionOrder(t, conn, "cs_keep")
	ctx := context.Background()

	failed, err := svc.MarkFailed(ctx, conn, "cs_fail")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if failed.Status != enums.OrderStatusFailed || failed.FailedAt == nil {
		t.Fatalf("expected failed order, got %+v", failed)
	}

	if _, err := svc.MarkPaid(ctx, conn, "cs_keep", "ch_keep"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	kept, err := svc.MarkFailed(ctx, conn, "cs_keep")
	if err != nil {
		t.Fatalf("mark failed on paid: %v", err)
	}
	if kept.Status != enums.OrderStatusPaid {
		t.Fatalf("paid order must stay paid, got %s", kept.Status)
	}
}
