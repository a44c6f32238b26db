package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/stripe-payments/internal/checkout"
	"github.com/angelmondragon/stripe-payments/internal/settings"
	"github.com/angelmondragon/stripe-payments/pkg/config"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
	"github.com/angelmondragon/stripe-payments/pkg/metrics"
	"github.com/angelmondragon/stripe-payments/pkg/render"
)

type orderFinder interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.Order, error)
}

type templateRenderer interface {
	RenderObjectTemplate(tmpl string, attrs map[string]any) (string, error)
}

// Service maps a returning Stripe Checkout session onto the local order and
// decides where the buyer lands. It only reads, so it is safe to repeat.
type Service interface {
	ResolveOrderFromSession(ctx context.Context, sessionID string) (*models.Order, error)
	ExternalID(ctx context.Context, sess *stripe.CheckoutSession) (string, error)
	ReturnURL(ctx context.Context, order *models.Order) string
	FinishOrder(ctx context.Context, sessionID string) string
}

// ServiceParams groups the reconciler dependencies.
type ServiceParams struct {
	Payments checkout.PaymentClient
	Orders   orderFinder
	Settings settings.Provider
	Renderer templateRenderer
	Config   config.ReconcileConfig
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

type service struct {
	payments checkout.PaymentClient
	orders   orderFinder
	settings settings.Provider
	renderer templateRenderer
	cfg      config.ReconcileConfig
	metrics  *metrics.PaymentMetrics
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Payments == nil {
		return nil, fmt.Errorf("payment client required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order finder required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	renderer := params.Renderer
	if renderer == nil {
		renderer = render.New()
	}
	cfg := params.Config
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = cfg.BaseBackoff
	}
	return &service{
		payments: params.Payments,
		orders:   params.Orders,
		settings: params.Settings,
		renderer: renderer,
		cfg:      cfg,
		metrics:  params.Metrics,
		logger:   params.Logger,
		now:      time.Now,
	}, nil
}

// ResolveOrderFromSession walks session -> external id -> order. Failures come
// back as *StepError wrapping one of the package sentinels.
func (s *service) ResolveOrderFromSession(ctx context.Context, sessionID string) (*models.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, failAt(StepStarted, "", ErrSessionNotFound)
	}

	sess, err := s.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, failAt(StepStarted, sessionID, err)
	}
	if sess == nil {
		return nil, failAt(StepStarted, sessionID, ErrSessionNotFound)
	}

	externalID, err := s.ExternalID(ctx, sess)
	if err != nil {
		return nil, err
	}

	order, err := s.awaitOrder(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ExternalID is the charge id for one-off payments and the subscription id
// for recurring ones.
func (s *service) ExternalID(ctx context.Context, sess *stripe.CheckoutSession) (string, error) {
	if sess == nil {
		return "", failAt(StepStarted, "", ErrSessionNotFound)
	}
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		intent := sess.PaymentIntent
		if intent.LatestCharge == nil {
			fetched, err := s.payments.GetPaymentIntent(ctx, intent.ID)
			if err != nil {
				return "", failAt(StepSessionFetched, intent.ID, err)
			}
			if fetched == nil {
				return "", failAt(StepSessionFetched, intent.ID, ErrPaymentIntentNotFound)
			}
			intent = fetched
		}
		if intent.LatestCharge == nil || intent.LatestCharge.ID == "" {
			return "", failAt(StepSessionFetched, intent.ID, ErrNoExternalIdentifier)
		}
		return intent.LatestCharge.ID, nil
	}
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		return sess.Subscription.ID, nil
	}
	return "", failAt(StepSessionFetched, sess.ID, ErrNoExternalIdentifier)
}

// awaitOrder gives the webhook time to land: one settling delay, then bounded
// exponential backoff while the order is still missing.
func (s *service) awaitOrder(ctx context.Context, externalID string) (*models.Order, error) {
	if err := sleep(ctx, s.cfg.SettlingDelay); err != nil {
		return nil, failAt(StepIdentifierResolved, externalID, err)
	}

	backoff := retry.NewExponential(s.cfg.BaseBackoff)
	backoff = retry.WithCappedDuration(s.cfg.MaxBackoff, backoff)
	backoff = retry.WithMaxRetries(s.cfg.MaxAttempts-1, backoff)

	var order *models.Order
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		found, err := s.orders.FindByExternalID(ctx, externalID)
		if err != nil {
			return err
		}
		if found == nil {
			return retry.RetryableError(ErrOrderNotFound)
		}
		order = found
		return nil
	})
	if err != nil {
		return nil, failAt(StepIdentifierResolved, externalID, err)
	}
	return order, nil
}

// ReturnURL renders the form's success template, falling back to the default
// landing location when there is none or it cannot be rendered.
func (s *service) ReturnURL(ctx context.Context, order *models.Order) string {
	fallback := s.settings.DefaultReturnURL()
	if order == nil || order.PaymentForm == nil || order.PaymentForm.CheckoutSuccessURL == nil {
		return fallback
	}
	tmpl := strings.TrimSpace(*order.PaymentForm.CheckoutSuccessURL)
	if tmpl == "" {
		return fallback
	}
	rendered, err := s.renderer.RenderObjectTemplate(tmpl, order.Attributes())
	if err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "template", tmpl), "success url template failed to render")
		return fallback
	}
	if rendered = strings.TrimSpace(rendered); rendered == "" {
		return fallback
	}
	return rendered
}

// FinishOrder runs the whole return flow and never fails: any problem sends
// the buyer to the default landing location.
func (s *service) FinishOrder(ctx context.Context, sessionID string) string {
	started := s.now()
	ctx = s.logger.WithSessionID(ctx, sessionID)

	order, err := s.ResolveOrderFromSession(ctx, sessionID)
	if err != nil {
		step := StepOf(err)
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
			"step":   string(step),
			"reason": err.Error(),
		}), "order reconciliation failed, redirecting to default")
		s.metrics.ObserveReconcile("failed", string(step), s.now().Sub(started))
		return s.settings.DefaultReturnURL()
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())
	location := s.ReturnURL(ctx, order)
	s.metrics.ObserveReconcile("redirected", string(StepRedirected), s.now().Sub(started))
	s.logger.Info(s.logger.WithField(ctx, "step", string(StepRedirected)), "order reconciled")
	return location
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
