package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
	pkgstripe "github.com/angelmondragon/stripe-payments/pkg/stripe"
)

// Service manages the Stripe customers behind buyer emails.
type Service interface {
	RecordCheckoutCustomer(ctx context.Context, tx *gorm.DB, email, stripeCustomerID string) (*models.Customer, error)
	UpdateBillingInfo(ctx context.Context, token, email string) (*stripe.Customer, error)
}

type service struct {
	repo   Repository
	stripe StripeCustomerClient
	logger *logger.Logger
}

func NewService(repo Repository, client StripeCustomerClient, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if client == nil {
		return nil, fmt.Errorf("stripe customer client required")
	}
	return &service{repo: repo, stripe: client, logger: logg}, nil
}

// RecordCheckoutCustomer remembers the Stripe customer a checkout created.
// Blank values are ignored.
func (s *service) RecordCheckoutCustomer(ctx context.Context, tx *gorm.DB, email, stripeCustomerID string) (*models.Customer, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(stripeCustomerID) == "" {
		return nil, nil
	}
	customer, err := s.repo.WithTx(tx).Upsert(ctx, email, stripeCustomerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store stripe customer")
	}
	return customer, nil
}

// UpdateBillingInfo attaches the tokenized card as the customer's default source.
func (s *service) UpdateBillingInfo(ctx context.Context, token, email string) (*stripe.Customer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card token required")
	}
	local, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}
	if local == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}

	updated, err := s.stripe.Update(ctx, local.StripeCustomerID, &stripe.CustomerParams{
		Source: stripe.String(token),
	})
	if err != nil {
		if pkgstripe.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "stripe customer missing")
		}
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "card rejected").
				WithDetails(map[string]any{"reason": stripeErr.Msg})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stripe customer")
	}

	s.logger.Info(s.logger.WithField(ctx, "customer_id", local.ID.String()), "billing info updated")
	return updated, nil
}
