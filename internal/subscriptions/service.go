package subscriptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/stripe-payments/internal/settings"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
	pkgstripe "github.com/angelmondragon/stripe-payments/pkg/stripe"
)

type orderFinder interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.Order, error)
}

// Service cancels and reactivates Stripe subscriptions sold through payment
// forms. Callers prove ownership with the buyer email of the selling order.
type Service interface {
	Cancel(ctx context.Context, subscriptionID, email string, atPeriodEnd *bool) (*stripe.Subscription, error)
	Reactivate(ctx context.Context, subscriptionID, email string) (*stripe.Subscription, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Stripe   StripeSubscriptionClient
	Orders   orderFinder
	Settings settings.Provider
	Logger   *logger.Logger
}

type service struct {
	stripe   StripeSubscriptionClient
	orders   orderFinder
	settings settings.Provider
	logger   *logger.Logger
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Stripe == nil {
		return nil, fmt.Errorf("stripe subscription client required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order finder required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	return &service{
		stripe:   params.Stripe,
		orders:   params.Orders,
		settings: params.Settings,
		logger:   params.Logger,
	}, nil
}

// Cancel ends the subscription now or at the end of the paid period. A nil
// atPeriodEnd uses the configured default.
func (s *service) Cancel(ctx context.Context, subscriptionID, email string, atPeriodEnd *bool) (*stripe.Subscription, error) {
	subscriptionID, err := s.requireOwned(ctx, subscriptionID, email)
	if err != nil {
		return nil, err
	}
	ctx = s.logger.WithField(ctx, "subscription_id", subscriptionID)

	atEnd := s.settings.CancelAtPeriodEnd()
	if atPeriodEnd != nil {
		atEnd = *atPeriodEnd
	}

	var sub *stripe.Subscription
	if atEnd {
		sub, err = s.stripe.Update(ctx, subscriptionID, &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		})
	} else {
		sub, err = s.stripe.Cancel(ctx, subscriptionID, &stripe.SubscriptionCancelParams{})
	}
	if err != nil {
		return nil, stripeError(err, "cancel stripe subscription")
	}

	s.logger.Info(s.logger.WithField(ctx, "at_period_end", atEnd), "subscription cancelled")
	return sub, nil
}

// Reactivate clears a pending cancel-at-period-end.
func (s *service) Reactivate(ctx context.Context, subscriptionID, email string) (*stripe.Subscription, error) {
	subscriptionID, err := s.requireOwned(ctx, subscriptionID, email)
	if err != nil {
		return nil, err
	}
	ctx = s.logger.WithField(ctx, "subscription_id", subscriptionID)

	sub, err := s.stripe.Update(ctx, subscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
	})
	if err != nil {
		return nil, stripeError(err, "reactivate stripe subscription")
	}
	if sub != nil && sub.Status == stripe.SubscriptionStatusCanceled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription already ended")
	}

	s.logger.Info(ctx, "subscription reactivated")
	return sub, nil
}

// requireOwned only lets through subscriptions sold here whose order carries
// the given buyer email. A wrong email looks the same as an unknown id.
func (s *service) requireOwned(ctx context.Context, subscriptionID, email string) (string, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	order, err := s.orders.FindByExternalID(ctx, subscriptionID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription order")
	}
	if order == nil || order.Mode != enums.PaymentModeSubscription {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if !strings.EqualFold(strings.TrimSpace(order.Email), email) {
		s.logger.Warn(s.logger.WithField(ctx, "subscription_id", subscriptionID), "subscription email mismatch")
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return subscriptionID, nil
}

func stripeError(err error, message string) error {
	if pkgstripe.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
