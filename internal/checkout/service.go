package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/internal/fees"
	"github.com/angelmondragon/stripe-payments/internal/orders"
	"github.com/angelmondragon/stripe-payments/internal/settings"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
	"github.com/angelmondragon/stripe-payments/pkg/metrics"
	"github.com/angelmondragon/stripe-payments/pkg/types"
)

// FinishOrderPath is where Stripe sends the buyer after checkout.
const FinishOrderPath = "/stripe/finish-order"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type formLoader interface {
	FindByHandle(ctx context.Context, handle string) (*models.PaymentForm, error)
}

type connectResolver interface {
	FindConnectByProductFormID(ctx context.Context, formID uuid.UUID) (*models.Connect, error)
	GetVendor(ctx context.Context, connect *models.Connect) (*models.Vendor, error)
}

// Service turns a submitted payment form into a pending order and a Stripe
// Checkout session.
type Service interface {
	CreateSession(ctx context.Context, input SaveOrderInput) (*SessionResult, error)
}

// ServiceParams groups the checkout dependencies.
type ServiceParams struct {
	Forms    formLoader
	Connects connectResolver
	Orders   orders.Repository
	Payments PaymentClient
	Fees     *fees.Calculator
	Settings settings.Provider
	Tx       txRunner
	BaseURL  string
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

type service struct {
	forms    formLoader
	connects connectResolver
	orders   orders.Repository
	payments PaymentClient
	fees     *fees.Calculator
	settings settings.Provider
	tx       txRunner
	baseURL  string
	metrics  *metrics.PaymentMetrics
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Forms == nil {
		return nil, fmt.Errorf("payment form loader required")
	}
	if params.Connects == nil {
		return nil, fmt.Errorf("connect resolver required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment client required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	base := strings.TrimRight(strings.TrimSpace(params.BaseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("absolute base url required: %w", err)
	}
	calculator := params.Fees
	if calculator == nil {
		calculator = fees.NewCalculator(params.Logger)
	}
	return &service{
		forms:    params.Forms,
		connects: params.Connects,
		orders:   params.Orders,
		payments: params.Payments,
		fees:     calculator,
		settings: params.Settings,
		tx:       params.Tx,
		baseURL:  base,
		metrics:  params.Metrics,
		logger:   params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) CreateSession(ctx context.Context, input SaveOrderInput) (*SessionResult, error) {
	items, total, err := normalizeItems(input.LineItems)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	form, err := s.forms.FindByHandle(ctx, input.FormHandle)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment form")
	}
	if form == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment form not found")
	}
	if !form.Enabled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment form is disabled")
	}

	connect, err := s.connects.FindConnectByProductFormID(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	vendor, err := s.connects.GetVendor(ctx, connect)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New(),
		Number:          models.NewOrderNumber(),
		PaymentFormID:   form.ID,
		Email:           email,
		Status:          enums.OrderStatusPending,
		Mode:            form.Mode,
		LineItems:       items,
		TotalCents:      total,
		Currency:        strings.ToLower(form.Currency),
		BillingAddress:  normalizedAddress(input.BillingAddress),
		ShippingAddress: normalizedAddress(input.ShippingAddress()),
		Metadata:        types.Metadata(input.Metadata),
	}
	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	result := s.fees.ComputeSessionFee(ctx, s.sessionParams(form, order, input.CancelURL), connect, vendor)
	s.metrics.IncFeeSplit(string(result.Outcome))
	if result.Split != nil {
		fee := result.Split.FeeCents
		destination := result.Split.Destination
		order.ConnectID = &connect.ID
		order.ConnectRate = decimal.NewNullDecimal(result.Split.Rate)
		order.ApplicationFeeCents = &fee
		order.TransferDestination = &destination
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.orders.WithTx(tx).Create(ctx, order)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create pending order")
	}

	sess, err := s.payments.CreateCheckoutSession(ctx, result.Params)
	if err != nil || sess == nil {
		if err == nil {
			err = fmt.Errorf("stripe returned no session")
		}
		s.abandon(ctx, order, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	sessionID := sess.ID
	order.CheckoutSessionID = &sessionID
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store checkout session id")
	}

	s.logger.Info(s.logger.WithSessionID(ctx, sessionID), "checkout session created")
	return &SessionResult{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		SessionID:   sessionID,
		URL:         sess.URL,
	}, nil
}

func (s *service) sessionParams(form *models.PaymentForm, order *models.Order, cancelURL string) *stripe.CheckoutSessionParams {
	mode := stripe.CheckoutSessionModePayment
	if form.Mode == enums.PaymentModeSubscription {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(mode)),
		CustomerEmail:     stripe.String(order.Email),
		ClientReferenceID: stripe.String(order.Number),
		SuccessURL:        stripe.String(s.baseURL + FinishOrderPath + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.cancelURL(form, cancelURL)),
	}
	for _, item := range order.LineItems {
		priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(order.Currency),
			UnitAmount: stripe.Int64(item.UnitAmountCents),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(item.Name),
			},
		}
		if mode == stripe.CheckoutSessionModeSubscription {
			interval := "month"
			if form.Interval != nil && *form.Interval != "" {
				interval = *form.Interval
			}
			priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(interval),
			}
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: priceData,
			Quantity:  stripe.Int64(item.Quantity),
		})
	}
	for key, value := range order.Metadata {
		params.AddMetadata(key, value)
	}
	params.AddMetadata("order_number", order.Number)
	return params
}

func (s *service) cancelURL(form *models.PaymentForm, requested string) string {
	if requested = strings.TrimSpace(requested); requested != "" {
		return s.absolute(requested)
	}
	if form.CheckoutCancelURL != nil && strings.TrimSpace(*form.CheckoutCancelURL) != "" {
		return s.absolute(*form.CheckoutCancelURL)
	}
	return s.absolute(s.settings.DefaultReturnURL())
}

// absolute resolves site-relative paths against the base url.
func (s *service) absolute(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return s.baseURL + "/" + strings.TrimLeft(raw, "/")
}

// abandon marks the pending order failed when no session could be created.
func (s *service) abandon(ctx context.Context, order *models.Order, cause error) {
	s.logger.Error(ctx, "stripe checkout session failed", cause)
	failedAt := s.now().UTC()
	order.Status = enums.OrderStatusFailed
	order.FailedAt = &failedAt
	if err := s.orders.Update(ctx, order); err != nil {
		s.logger.Error(ctx, "failed to mark abandoned order", err)
	}
}

func normalizeItems(in []types.LineItem) (types.LineItems, int64, error) {
	if len(in) == 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item required")
	}
	items := make(types.LineItems, 0, len(in))
	for i, item := range in {
		item.Name = strings.TrimSpace(item.Name)
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		if item.Name == "" ||
			item.UnitAmountCents < 0 || item.UnitAmountCents > types.MaxAmountCents ||
			item.Quantity < 0 || item.Quantity > types.MaxAmountCents {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid line item").
				WithDetails(map[string]any{"index": i})
		}
		items = append(items, item)
	}
	total, err := items.CheckedTotal()
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order total exceeds the maximum charge").
			WithDetails(map[string]any{"max_cents": types.MaxAmountCents})
	}
	if total <= 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}
	return items, total, nil
}

func normalizedAddress(addr *types.Address) *types.Address {
	if addr == nil || addr.IsZero() {
		return nil
	}
	normalized := addr.Normalized()
	return &normalized
}
