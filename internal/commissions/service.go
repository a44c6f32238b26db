package commissions

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/pkg/db"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
)

const orderConstraint = "idx_commissions_order_id"

// Service records the platform fee for settled orders.
type Service interface {
	RecordForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Commission, error)
}

type service struct {
	repo   Repository
	logger *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	return &service{repo: repo, logger: logg}, nil
}

// RecordForOrder copies the split snapshot taken at checkout into a
// Commission. Orders without a split yield (nil, nil); an existing commission
// for the order is returned as is.
func (s *service) RecordForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Commission, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if !order.HasSplit() {
		return nil, nil
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load commission")
	}
	if existing != nil {
		return existing, nil
	}

	commission := &models.Commission{
		ConnectID:                 *order.ConnectID,
		OrderID:                   order.ID,
		ProductKind:               enums.ProductKindPaymentForm,
		TotalCents:                order.TotalCents,
		Rate:                      order.ConnectRate.Decimal,
		FeeCents:                  *order.ApplicationFeeCents,
		Currency:                  order.Currency,
		StripeTransferDestination: order.TransferDestination,
		Status:                    enums.CommissionStatusSettled,
	}
	created, err := repo.Create(ctx, commission)
	if err != nil {
		if db.IsUniqueViolation(err, orderConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "commission already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create commission")
	}

	s.logger.Info(s.logger.WithOrderID(ctx, order.ID.String()), "commission recorded")
	return created, nil
}
