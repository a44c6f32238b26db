package vendors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/internal/repo"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
)

// Repository persists marketplace vendors.
type Repository interface {
	Create(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	SetStripeAccount(ctx context.Context, id uuid.UUID, accountID string) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds a vendor repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	if err := r.base.DB(ctx).Create(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	found, err := r.base.First(ctx, &vendor, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) SetStripeAccount(ctx context.Context, id uuid.UUID, accountID string) error {
	res := r.base.DB(ctx).Model(&models.Vendor{}).Where("id = ?", id).Update("stripe_account_id", accountID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
