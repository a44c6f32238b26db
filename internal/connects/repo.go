package connects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/internal/repo"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
)

// Repository defines persistence operations for connects. Finders return
// (nil, nil) when no row matches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, connect *models.Connect) (*models.Connect, error)
	Update(ctx context.Context, connect *models.Connect) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Connect, error)
	FindEnabledByProductFormID(ctx context.Context, formID uuid.UUID) (*models.Connect, error)
	List(ctx context.Context) ([]models.Connect, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds a connects repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, connect *models.Connect) (*models.Connect, error) {
	// Select keeps enabled=false from being swapped for the column default.
	if err := r.base.DB(ctx).Omit("Vendor").Select("*").Create(connect).Error; err != nil {
		return nil, err
	}
	return connect, nil
}

func (r *repository) Update(ctx context.Context, connect *models.Connect) error {
	return r.base.DB(ctx).Omit("Vendor").Save(connect).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Connect, error) {
	var connect models.Connect
	found, err := r.base.First(ctx, &connect, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &connect, nil
}

func (r *repository) FindEnabledByProductFormID(ctx context.Context, formID uuid.UUID) (*models.Connect, error) {
	var connect models.Connect
	found, err := r.base.First(ctx, &connect, "product_form_id = ? AND enabled = ?", formID, true)
	if err != nil || !found {
		return nil, err
	}
	return &connect, nil
}

func (r *repository) List(ctx context.Context) ([]models.Connect, error) {
	var connects []models.Connect
	if err := r.base.DB(ctx).Order("created_at ASC").Find(&connects).Error; err != nil {
		return nil, err
	}
	return connects, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.base.DB(ctx).Where("id = ?", id).Delete(&models.Connect{})
	return res.RowsAffected, res.Error
}
