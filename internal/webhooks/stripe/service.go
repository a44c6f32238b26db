package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/internal/orders"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
	"github.com/angelmondragon/stripe-payments/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type externalIDResolver interface {
	ExternalID(ctx context.Context, sess *stripe.CheckoutSession) (string, error)
}

type commissionRecorder interface {
	RecordForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Commission, error)
}

type customerRecorder interface {
	RecordCheckoutCustomer(ctx context.Context, tx *gorm.DB, email, stripeCustomerID string) (*models.Customer, error)
}

type ServiceParams struct {
	Orders            orders.Service
	Commissions       commissionRecorder
	Customers         customerRecorder
	Resolver          externalIDResolver
	TransactionRunner txRunner
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
}

// Service settles orders from Checkout session events.
type Service struct {
	orders      orders.Service
	commissions commissionRecorder
	customers   customerRecorder
	resolver    externalIDResolver
	txRunner    txRunner
	metrics     *metrics.PaymentMetrics
	logger      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Commissions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "commission recorder required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer recorder required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "external id resolver required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		orders:      params.Orders,
		commissions: params.Commissions,
		customers:   params.Customers,
		resolver:    params.Resolver,
		txRunner:    params.TransactionRunner,
		metrics:     params.Metrics,
		logger:      params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logger.WithField(ctx, "event_type", string(event.Type))

	var err error
	result := "ignored"
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var sess *stripe.CheckoutSession
		if sess, err = decodeSession(event); err == nil {
			result, err = s.settlePaid(ctx, event.Type, sess)
		}
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		var sess *stripe.CheckoutSession
		if sess, err = decodeSession(event); err == nil {
			result, err = s.settleFailed(ctx, sess)
		}
	}
	if err != nil {
		result = "error"
	}
	s.metrics.IncWebhook(string(event.Type), result)
	return err
}

// settlePaid marks the order paid and records its commission in one
// transaction. A completed session still awaiting an async payment waits for
// the async_payment_succeeded event.
func (s *Service) settlePaid(ctx context.Context, eventType stripe.EventType, sess *stripe.CheckoutSession) (string, error) {
	ctx = s.logger.WithSessionID(ctx, sess.ID)
	if eventType == stripe.EventTypeCheckoutSessionCompleted && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		s.logger.Info(ctx, "checkout completed with payment pending")
		return "pending", nil
	}

	externalID, err := s.resolver.ExternalID(ctx, sess)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve external id")
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.MarkPaid(ctx, tx, sess.ID, externalID)
		if err != nil {
			return err
		}
		if _, err := s.commissions.RecordForOrder(ctx, tx, order); err != nil {
			return err
		}
		_, err = s.customers.RecordCheckoutCustomer(ctx, tx, sessionEmail(sess), sessionCustomerID(sess))
		return err
	})
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		s.logger.Warn(ctx, "no local order for checkout session")
		return "unknown_session", nil
	}
	if err != nil {
		return "", err
	}
	return "paid", nil
}

func (s *Service) settleFailed(ctx context.Context, sess *stripe.CheckoutSession) (string, error) {
	ctx = s.logger.WithSessionID(ctx, sess.ID)
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.orders.MarkFailed(ctx, tx, sess.ID)
		return err
	})
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		s.logger.Warn(ctx, "no local order for checkout session")
		return "unknown_session", nil
	}
	if err != nil {
		return "", err
	}
	return "failed", nil
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if strings.TrimSpace(sess.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	return &sess, nil
}

func sessionEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	return sess.CustomerEmail
}

func sessionCustomerID(sess *stripe.CheckoutSession) string {
	if sess.Customer == nil {
		return ""
	}
	return sess.Customer.ID
}
