package forms

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/internal/repo"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
)

// Repository loads payment forms. Finders return (nil, nil) when absent.
type Repository interface {
	Create(ctx context.Context, form *models.PaymentForm) (*models.PaymentForm, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentForm, error)
	FindByHandle(ctx context.Context, handle string) (*models.PaymentForm, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds a payment form repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, form *models.PaymentForm) (*models.PaymentForm, error) {
	if err := r.base.DB(ctx).Create(form).Error; err != nil {
		return nil, err
	}
	return form, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentForm, error) {
	var form models.PaymentForm
	found, err := r.base.First(ctx, &form, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &form, nil
}

func (r *repository) FindByHandle(ctx context.Context, handle string) (*models.PaymentForm, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, nil
	}
	var form models.PaymentForm
	found, err := r.base.First(ctx, &form, "handle = ?", handle)
	if err != nil || !found {
		return nil, err
	}
	return &form, nil
}
