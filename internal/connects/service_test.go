package connects

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/internal/commissions"
	"github.com/angelmondragon/stripe-payments/internal/forms"
	"github.com/angelmondragon/stripe-payments/internal/settings"
	"github.com/angelmondragon/stripe-payments/internal/vendors"
	"github.com/angelmondragon/stripe-payments/pkg/db"
	"github.com/angelmondragon/stripe-payments/pkg/db/dbtest"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
	"github.com/angelmondragon/stripe-payments/pkg/types"
)

type stubOAuth struct {
	accountID string
	err       error
	codes     []string
	linkErr   error
}

func (s *stubOAuth) AuthorizeURL(state string) (string, error) {
	if s.linkErr != nil {
		return "", s.linkErr
	}
	return "https://connect.stripe.com/oauth/authorize?state=" + state, nil
}

func (s *stubOAuth) ExchangeCode(ctx context.Context, code string) (string, error) {
	s.codes = append(s.codes, code)
	return s.accountID, s.err
}

// failingDeleteRepo lets every call through except the final connect delete.
type failingDeleteRepo struct {
	Repository
}

func (r failingDeleteRepo) WithTx(tx *gorm.DB) Repository {
	return failingDeleteRepo{Repository: r.Repository.WithTx(tx)}
}

func (r failingDeleteRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	return 0, errors.New("disk on fire")
}

type fixture struct {
	client *db.Client
	svc    Service
	oauth  *stubOAuth
}

func newFixture(t *testing.T, wrap func(Repository) Repository) fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	var connectsRepo Repository = NewRepository(conn)
	if wrap != nil {
		connectsRepo = wrap(connectsRepo)
	}
	oauth := &stubOAuth{accountID: "acct_linked"}
	svc, err := NewService(ServiceParams{
		Repo:        connectsRepo,
		Commissions: commissions.NewRepository(conn),
		Vendors:     vendors.NewRepository(conn),
		Forms:       forms.NewRepository(conn),
		OAuth:       oauth,
		Settings:    settings.Static{Rate: decimal.RequireFromString("87.5"), ReturnURL: "/"},
		Tx:          client,
	})
	require.NoError(t, err)
	return fixture{client: client, svc: svc, oauth: oauth}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing repository to fail")
	}
}

func TestCreateNewConnectStartsDisabledAtDefaultRate(t *testing.T) {
	f := newFixture(t, nil)

	connect, err := f.svc.CreateNewConnect(context.Background(), enums.ProductKindPaymentForm)
	require.NoError(t, err)

	stored, err := f.svc.GetConnectByID(context.Background(), connect.ID)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)
	assert.True(t, stored.Rate.Equal(decimal.RequireFromString("87.5")), "rate %s", stored.Rate)
	assert.Nil(t, stored.ProductFormID)
	assert.Nil(t, stored.VendorID)
}

func TestCreateNewConnectRejectsUnknownKind(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CreateNewConnect(context.Background(), enums.ProductKind("ticket"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetConnectByIDNotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.GetConnectByID(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFindConnectByProductFormIDIgnoresDisabled(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.client.DB()
	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModePayment, nil)
	dbtest.SeedConnect(t, conn, &form.ID, nil, 80, false)

	connect, err := f.svc.FindConnectByProductFormID(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Nil(t, connect)

	enabled := dbtest.SeedConnect(t, conn, &form.ID, nil, 80, true)
	connect, err = f.svc.FindConnectByProductFormID(context.Background(), form.ID)
	require.NoError(t, err)
	require.NotNil(t, connect)
	assert.Equal(t, enabled.ID, connect.ID)
}

func TestGetVendor(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.client.DB()
	vendor := dbtest.SeedVendor(t, conn, nil)

	got, err := f.svc.GetVendor(context.Background(), &models.Connect{VendorID: &vendor.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, vendor.ID, got.ID)

	missing := uuid.New()
	got, err = f.svc.GetVendor(context.Background(), &models.Connect{VendorID: &missing})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.svc.GetVendor(context.Background(), &models.Connect{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProductKindOptions(t *testing.T) {
	f := newFixture(t, nil)

	options := f.svc.ProductKindOptions()
	require.Len(t, options, 1)
	assert.Equal(t, ProductKindOption{Label: "Payment Form", Value: "payment_form"}, options[0])
}

func TestUpdateConnectAppliesFields(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.client.DB()
	ctx := context.Background()
	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModePayment, nil)
	vendor := dbtest.SeedVendor(t, conn, nil)

	connect, err := f.svc.CreateNewConnect(ctx, enums.ProductKindPaymentForm)
	require.NoError(t, err)

	rate := decimal.NewFromInt(90)
	enabled := true
	updated, err := f.svc.UpdateConnect(ctx, connect.ID, UpdateConnectInput{
		ProductFormID: types.NullableUUID{Valid: true, Value: &form.ID},
		VendorID:      types.NullableUUID{Valid: true, Value: &vendor.ID},
		Rate:          &rate,
		Enabled:       &enabled,
	})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)

	found, err := f.svc.FindConnectByProductFormID(ctx, form.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, connect.ID, found.ID)
	assert.True(t, found.Rate.Equal(rate))
	require.NotNil(t, found.VendorID)
	assert.Equal(t, vendor.ID, *found.VendorID)

	// an explicit null clears the vendor and leaves the form alone
	updated, err = f.svc.UpdateConnect(ctx, connect.ID, UpdateConnectInput{
		VendorID: types.NullableUUID{Valid: true},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.VendorID)
	require.NotNil(t, updated.ProductFormID)
}

func TestUpdateConnectValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	connect, err := f.svc.CreateNewConnect(ctx, enums.ProductKindPaymentForm)
	require.NoError(t, err)

	missing := uuid.New()
	enabled := true
	badKind := "ticket"
	cases := map[string]UpdateConnectInput{
		"rate above 100":  {Rate: decimalPtr("100.5")},
		"negative rate":   {Rate: decimalPtr("-1")},
		"three decimals":  {Rate: decimalPtr("87.125")},
		"unknown form":    {ProductFormID: types.NullableUUID{Valid: true, Value: &missing}},
		"unknown vendor":  {VendorID: types.NullableUUID{Valid: true, Value: &missing}},
		"enabled no form": {Enabled: &enabled},
		"unknown kind":    {ProductKind: &badKind},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.UpdateConnect(ctx, connect.ID, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	stored, err := f.svc.GetConnectByID(ctx, connect.ID)
	require.NoError(t, err)
	assert.True(t, stored.Rate.Equal(decimal.RequireFromString("87.5")))
	assert.False(t, stored.Enabled)
}

func TestUpdateConnectAcceptsRateBounds(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	connect, err := f.svc.CreateNewConnect(ctx, enums.ProductKindPaymentForm)
	require.NoError(t, err)

	for _, raw := range []string{"0", "100", "87.12", "87.120"} {
		_, err := f.svc.UpdateConnect(ctx, connect.ID, UpdateConnectInput{Rate: decimalPtr(raw)})
		require.NoError(t, err, raw)
	}
}

func TestDeleteConnectRemovesCommissions(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.client.DB()
	ctx := context.Background()
	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModePayment, nil)
	connect := dbtest.SeedConnect(t, conn, &form.ID, nil, 80, true)
	for i := 0; i < 2; i++ {
		order := dbtest.SeedOrder(t, conn, form.ID, nil)
		dbtest.SeedCommission(t, conn, connect.ID, order.ID)
	}

	require.NoError(t, f.svc.DeleteConnect(ctx, connect.ID))

	var connects, remaining int64
	require.NoError(t, conn.Model(&models.Connect{}).Count(&connects).Error)
	require.NoError(t, conn.Model(&models.Commission{}).Count(&remaining).Error)
	assert.Zero(t, connects)
	assert.Zero(t, remaining)

	// orders survive their commissions
	var orders int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(2), orders)
}

func TestDeleteConnectRollsBackOnFailure(t *testing.T) {
	f := newFixture(t, func(r Repository) Repository { return failingDeleteRepo{Repository: r} })
	conn := f.client.DB()
	ctx := context.Background()
	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModePayment, nil)
	connect := dbtest.SeedConnect(t, conn, &form.ID, nil, 80, true)
	for i := 0; i < 2; i++ {
		order := dbtest.SeedOrder(t, conn, form.ID, nil)
		dbtest.SeedCommission(t, conn, connect.ID, order.ID)
	}

	err := f.svc.DeleteConnect(ctx, connect.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	var connects, remaining int64
	require.NoError(t, conn.Model(&models.Connect{}).Count(&connects).Error)
	require.NoError(t, conn.Model(&models.Commission{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), connects)
	assert.Equal(t, int64(2), remaining)
}

func TestDeleteConnectNotFound(t *testing.T) {
	f := newFixture(t, nil)

	err := f.svc.DeleteConnect(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestLinkVendorAccountStoresAccount(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.client.DB()
	vendor := dbtest.SeedVendor(t, conn, nil)

	linked, err := f.svc.LinkVendorAccount(context.Background(), vendor.ID, " ac_123 ")
	require.NoError(t, err)
	require.True(t, linked.HasStripeAccount())
	assert.Equal(t, []string{"ac_123"}, f.oauth.codes)

	var stored models.Vendor
	require.NoError(t, conn.First(&stored, "id = ?", vendor.ID).Error)
	require.NotNil(t, stored.StripeAccountID)
	assert.Equal(t, "acct_linked", *stored.StripeAccountID)
}

func TestLinkVendorAccountErrors(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.client.DB()
	vendor := dbtest.SeedVendor(t, conn, nil)
	ctx := context.Background()

	_, err := f.svc.LinkVendorAccount(ctx, vendor.ID, "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.LinkVendorAccount(ctx, uuid.New(), "ac_123")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	f.oauth.err = errors.New("invalid_grant: authorization code expired")
	_, err = f.svc.LinkVendorAccount(ctx, vendor.ID, "ac_used")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	f.oauth.err = errors.New("connection reset")
	_, err = f.svc.LinkVendorAccount(ctx, vendor.ID, "ac_123")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestVendorOnboardingURLCarriesVendorState(t *testing.T) {
	f := newFixture(t, nil)
	vendor := dbtest.SeedVendor(t, f.client.DB(), nil)

	link, err := f.svc.VendorOnboardingURL(context.Background(), vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://connect.stripe.com/oauth/authorize?state="+vendor.ID.String(), link)
}

func TestVendorOnboardingURLErrors(t *testing.T) {
	f := newFixture(t, nil)
	vendor := dbtest.SeedVendor(t, f.client.DB(), nil)
	ctx := context.Background()

	_, err := f.svc.VendorOnboardingURL(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	f.oauth.linkErr = errors.New("stripe connect client id not configured")
	_, err = f.svc.VendorOnboardingURL(ctx, vendor.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
}

func decimalPtr(raw string) *decimal.Decimal {
	d := decimal.RequireFromString(raw)
	return &d
}
