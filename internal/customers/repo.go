package customers

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stripe-payments/internal/repo"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
)

// Repository persists the email to Stripe customer mapping.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	Upsert(ctx context.Context, email, stripeCustomerID string) (*models.Customer, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds a customers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var customer models.Customer
	found, err := r.base.First(ctx, &customer, "email = ?", email)
	if err != nil || !found {
		return nil, err
	}
	return &customer, nil
}

// Upsert keys on email; a later checkout with a new Stripe customer replaces the id.
func (r *repository) Upsert(ctx context.Context, email, stripeCustomerID string) (*models.Customer, error) {
	customer := &models.Customer{
		Email:            normalizeEmail(email),
		StripeCustomerID: strings.TrimSpace(stripeCustomerID),
	}
	err := r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"stripe_customer_id", "updated_at"}),
	}).Create(customer).Error
	if err != nil {
		return nil, err
	}
	return r.FindByEmail(ctx, customer.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
