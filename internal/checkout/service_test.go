package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/stripe-payments/internal/commissions"
	"github.com/angelmondragon/stripe-payments/internal/connects"
	"github.com/angelmondragon/stripe-payments/internal/forms"
	"github.com/angelmondragon/stripe-payments/internal/orders"
	"github.com/angelmondragon/stripe-payments/internal/settings"
	"github.com/angelmondragon/stripe-payments/internal/vendors"
	"github.com/angelmondragon/stripe-payments/pkg/db"
	"github.com/angelmondragon/stripe-payments/pkg/db/dbtest"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/types"
)

type stubPayments struct {
	params []*stripe.CheckoutSessionParams
	err    error
}

func (s *stubPayments) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (s *stubPayments) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return nil, nil
}

func (s *stubPayments) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	return nil, nil
}

type checkoutFixture struct {
	client   *db.Client
	svc      Service
	payments *stubPayments
}

func newCheckoutFixture(t *testing.T) checkoutFixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	static := settings.Static{ReturnURL: "/thanks"}

	connectSvc, err := connects.NewService(connects.ServiceParams{
		Repo:        connects.NewRepository(conn),
		Commissions: commissions.NewRepository(conn),
		Vendors:     vendors.NewRepository(conn),
		Forms:       forms.NewRepository(conn),
		Settings:    static,
		Tx:          client,
	})
	require.NoError(t, err)

	payments := &stubPayments{}
	svc, err := NewService(ServiceParams{
		Forms:    forms.NewRepository(conn),
		Connects: connectSvc,
		Orders:   orders.NewRepository(conn),
		Payments: payments,
		Settings: static,
		Tx:       client,
		BaseURL:  "https://shop.example.com/",
	})
	require.NoError(t, err)
	return checkoutFixture{client: client, svc: svc, payments: payments}
}

func giftInput(handle string) SaveOrderInput {
	return SaveOrderInput{
		FormHandle: handle,
		Email:      " buyer@example.com ",
		LineItems: []types.LineItem{
			{Name: "Gift", UnitAmountCents: 1000, Quantity: 1},
			{Name: "Card", UnitAmountCents: 500, Quantity: 1},
		},
	}
}

func loadOrder(t *testing.T, f checkoutFixture, number string) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.client.DB().First(&order, "number = ?", number).Error)
	return order
}

func TestNewServiceRequiresAbsoluteBaseURL(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	_, err := NewService(ServiceParams{
		Forms:    forms.NewRepository(conn),
		Connects: stubResolver{},
		Orders:   orders.NewRepository(conn),
		Payments: &stubPayments{},
		Settings: settings.Static{},
		Tx:       client,
		BaseURL:  "shop",
	})
	assert.Error(t, err)
}

type stubResolver struct{}

func (stubResolver) FindConnectByProductFormID(ctx context.Context, formID uuid.UUID) (*models.Connect, error) {
	return nil, nil
}

func (stubResolver) GetVendor(ctx context.Context, connect *models.Connect) (*models.Vendor, error) {
	return nil, nil
}

func TestCreateSessionAppliesFeeSplit(t *testing.T) {
	f := newCheckoutFixture(t)
	conn := f.client.DB()
	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModePayment, nil)
	acct := "acct_vendor"
	vendor := dbtest.SeedVendor(t, conn, &acct)
	connect := dbtest.SeedConnect(t, conn, &form.ID, &vendor.ID, 80, true)

	result, err := f.svc.CreateSession(context.Background(), giftInput(form.Handle))
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", result.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", result.URL)

	require.Len(t, f.payments.params, 1)
	params := f.payments.params[0]
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *params.Mode)
	assert.Equal(t, "https://shop.example.com/stripe/finish-order?session_id={CHECKOUT_SESSION_ID}", *params.SuccessURL)
	assert.Equal(t, "https://shop.example.com/thanks", *params.CancelURL)
	assert.Equal(t, result.OrderNumber, params.Metadata["order_number"])
	require.NotNil(t, params.PaymentIntentData)
	assert.Equal(t, int64(300), *params.PaymentIntentData.ApplicationFeeAmount)
	assert.Equal(t, "acct_vendor", *params.PaymentIntentData.TransferData.Destination)

	order := loadOrder(t, f, result.OrderNumber)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, "buyer@example.com", order.Email)
	assert.Equal(t, int64(1500), order.TotalCents)
	require.NotNil(t, order.CheckoutSessionID)
	assert.Equal(t, "cs_test_1", *order.CheckoutSessionID)
	require.True(t, order.HasSplit())
	assert.Equal(t, connect.ID, *order.ConnectID)
	assert.Equal(t, int64(300), *order.ApplicationFeeCents)
	assert.Equal(t, "acct_vendor", *order.TransferDestination)
}

func TestCreateSessionWithoutConnectSkipsSplit(t *testing.T) {
	f := newCheckoutFixture(t)
	form := dbtest.SeedPaymentForm(t, f.client.DB(), enums.PaymentModePayment, nil)

	result, err := f.svc.CreateSession(context.Background(), giftInput(form.Handle))
	require.NoError(t, err)

	params := f.payments.params[0]
	assert.Nil(t, params.PaymentIntentData)
	order := loadOrder(t, f, result.OrderNumber)
	assert.False(t, order.HasSplit())
	assert.Nil(t, order.ApplicationFeeCents)
}

func TestCreateSessionSubscriptionUsesRecurringPrices(t *testing.T) {
	f := newCheckoutFixture(t)
	conn := f.client.DB()
	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModeSubscription, nil)
	acct := "acct_vendor"
	vendor := dbtest.SeedVendor(t, conn, &acct)
	dbtest.SeedConnect(t, conn, &form.ID, &vendor.ID, 80, true)

	_, err := f.svc.CreateSession(context.Background(), giftInput(form.Handle))
	require.NoError(t, err)

	params := f.payments.params[0]
	assert.Equal(t, string(stripe.CheckoutSessionModeSubscription), *params.Mode)
	for _, item := range params.LineItems {
		require.NotNil(t, item.PriceData.Recurring)
		assert.Equal(t, "month", *item.PriceData.Recurring.Interval)
	}
	assert.Nil(t, params.PaymentIntentData)
	require.NotNil(t, params.SubscriptionData)
	assert.InDelta(t, 20.0, *params.SubscriptionData.ApplicationFeePercent, 0.0001)
}

func TestCreateSessionCopiesBillingAddressWhenToggled(t *testing.T) {
	f := newCheckoutFixture(t)
	form := dbtest.SeedPaymentForm(t, f.client.DB(), enums.PaymentModePayment, nil)

	input := giftInput(form.Handle)
	input.SameAddressToggle = true
	input.BillingAddress = &types.Address{Line1: " 1 Main St ", City: "Austin", PostalCode: "78701", Country: "us"}
	input.Address = &types.Address{Line1: "ignored", City: "Nowhere", PostalCode: "00000", Country: "US"}

	result, err := f.svc.CreateSession(context.Background(), input)
	require.NoError(t, err)

	order := loadOrder(t, f, result.OrderNumber)
	require.NotNil(t, order.ShippingAddress)
	assert.Equal(t, "1 Main St", order.ShippingAddress.Line1)
	assert.Equal(t, "US", order.ShippingAddress.Country)
	assert.Equal(t, *order.BillingAddress, *order.ShippingAddress)
}

func TestCreateSessionRejectsUnknownAndDisabledForms(t *testing.T) {
	f := newCheckoutFixture(t)
	conn := f.client.DB()

	_, err := f.svc.CreateSession(context.Background(), giftInput("missing"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModePayment, nil)
	require.NoError(t, conn.Model(form).Update("enabled", false).Error)
	_, err = f.svc.CreateSession(context.Background(), giftInput(form.Handle))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, f.payments.params)
}

func TestCreateSessionValidatesItems(t *testing.T) {
	f := newCheckoutFixture(t)
	form := dbtest.SeedPaymentForm(t, f.client.DB(), enums.PaymentModePayment, nil)

	input := giftInput(form.Handle)
	input.LineItems = nil
	_, err := f.svc.CreateSession(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input.LineItems = []types.LineItem{{Name: "Free", UnitAmountCents: 0, Quantity: 1}}
	_, err = f.svc.CreateSession(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input.LineItems = []types.LineItem{{Name: "Too much", UnitAmountCents: types.MaxAmountCents + 1, Quantity: 1}}
	_, err = f.svc.CreateSession(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input = giftInput(form.Handle)
	input.Email = "  "
	_, err = f.svc.CreateSession(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateSessionRejectsWrappingTotals(t *testing.T) {
	f := newCheckoutFixture(t)
	form := dbtest.SeedPaymentForm(t, f.client.DB(), enums.PaymentModePayment, nil)

	input := giftInput(form.Handle)
	input.LineItems = []types.LineItem{
		{Name: "Huge", UnitAmountCents: 1 << 62, Quantity: 2},
		{Name: "Huge", UnitAmountCents: 1 << 62, Quantity: 2},
		{Name: "Cheap", UnitAmountCents: 100, Quantity: 1},
	}
	_, err := f.svc.CreateSession(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	input.LineItems = []types.LineItem{
		{Name: "Big", UnitAmountCents: 60000000, Quantity: 1},
		{Name: "Big", UnitAmountCents: 60000000, Quantity: 1},
	}
	_, err = f.svc.CreateSession(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	assert.Empty(t, f.payments.params)
	var count int64
	require.NoError(t, f.client.DB().Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateSessionMarksOrderFailedWhenStripeFails(t *testing.T) {
	f := newCheckoutFixture(t)
	form := dbtest.SeedPaymentForm(t, f.client.DB(), enums.PaymentModePayment, nil)
	f.payments.err = errors.New("stripe down")

	_, err := f.svc.CreateSession(context.Background(), giftInput(form.Handle))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var stored []models.Order
	require.NoError(t, f.client.DB().Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, enums.OrderStatusFailed, stored[0].Status)
	assert.NotNil(t, stored[0].FailedAt)
	assert.Nil(t, stored[0].CheckoutSessionID)
}

func TestCancelURLPrefersRequestThenForm(t *testing.T) {
	svc := &service{baseURL: "https://shop.example.com", settings: settings.Static{}}
	cancel := "/forms/donate"
	form := &models.PaymentForm{CheckoutCancelURL: &cancel}

	assert.Equal(t, "https://elsewhere.example.com/back", svc.cancelURL(form, "https://elsewhere.example.com/back"))
	assert.Equal(t, "https://shop.example.com/forms/donate", svc.cancelURL(form, ""))
	assert.True(t, strings.HasSuffix(svc.cancelURL(&models.PaymentForm{}, ""), ".example.com/"))
}
