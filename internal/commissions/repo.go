package commissions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/internal/repo"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
)

// Repository defines persistence operations for commissions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, commission *models.Commission) (*models.Commission, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Commission, error)
	ListIDsByConnect(ctx context.Context, connectID uuid.UUID) ([]uuid.UUID, error)
	DeleteByConnect(ctx context.Context, connectID uuid.UUID) (int64, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds a commissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, commission *models.Commission) (*models.Commission, error) {
	if err := r.base.DB(ctx).Create(commission).Error; err != nil {
		return nil, err
	}
	return commission, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	found, err := r.base.First(ctx, &commission, "order_id = ?", orderID)
	if err != nil || !found {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) ListIDsByConnect(ctx context.Context, connectID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.base.DB(ctx).
		Model(&models.Commission{}).
		Where("connect_id = ?", connectID).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) DeleteByConnect(ctx context.Context, connectID uuid.UUID) (int64, error) {
	res := r.base.DB(ctx).Where("connect_id = ?", connectID).Delete(&models.Commission{})
	return res.RowsAffected, res.Error
}
