package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/pkg/db"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
)

const externalIDConstraint = "idx_orders_stripe_id"

// Service moves orders through their payment lifecycle. Both operations run
// on the supplied transaction handle so callers can bundle follow-up writes.
type Service interface {
	MarkPaid(ctx context.Context, tx *gorm.DB, sessionID, externalID string) (*models.Order, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Order, error)
}

type service struct {
	repo   Repository
	logger *logger.Logger
	now    func() time.Time
}

// NewService builds the order lifecycle service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo, logger: logg, now: time.Now}, nil
}

// MarkPaid stores the Stripe identifier on the order created for sessionID
// and flips it to paid. Replaying the same pair is a no-op.
func (s *service) MarkPaid(ctx context.Context, tx *gorm.DB, sessionID, externalID string) (*models.Order, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external identifier required")
	}

	repo := s.repo.WithTx(tx)
	order, err := s.loadBySession(ctx, repo, sessionID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case enums.OrderStatusPaid:
		if order.StripeID != nil && *order.StripeID == externalID {
			return order, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid with a different identifier").
			WithDetails(map[string]any{"order_id": order.ID.String()})
	case enums.OrderStatusFailed:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already failed").
			WithDetails(map[string]any{"order_id": order.ID.String()})
	}

	now := s.now().UTC()
	order.StripeID = &externalID
	order.Status = enums.OrderStatusPaid
	order.PaidAt = &now

	if err := repo.Update(ctx, order); err != nil {
		if db.IsUniqueViolation(err, externalIDConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "external identifier already assigned to another order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
	}

	s.logger.Info(s.logger.WithOrderID(ctx, order.ID.String()), "order marked paid")
	return order, nil
}

// MarkFailed closes a pending order. Orders already paid or failed are left untouched.
func (s *service) MarkFailed(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Order, error) {
	repo := s.repo.WithTx(tx)
	order, err := s.loadBySession(ctx, repo, sessionID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return order, nil
	}

	now := s.now().UTC()
	order.Status = enums.OrderStatusFailed
	order.FailedAt = &now
	if err := repo.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order failed")
	}

	s.logger.Info(s.logger.WithOrderID(ctx, order.ID.String()), "order marked failed")
	return order, nil
}

func (s *service) loadBySession(ctx context.Context, repo Repository, sessionID string) (*models.Order, error) {
	order, err := repo.FindByCheckoutSessionID(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for checkout session").
			WithDetails(map[string]any{"session_id": sessionID})
	}
	return order, nil
}
