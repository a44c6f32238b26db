package commissions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/pkg/db/dbtest"
	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/enums"
)

func seedSplitOrder(t *testing.T, conn *gorm.DB) (*models.Order, *models.Connect) {
	t.Helper()
	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModePayment, nil)
	acct := "acct_vendor"
	vendor := dbtest.SeedVendor(t, conn, &acct)
	connect := dbtest.SeedConnect(t, conn, &form.ID, &vendor.ID, 80, true)
	order := dbtest.SeedOrder(t, conn, form.ID, nil)

	fee := int64(200)
	order.ConnectID = &connect.ID
	order.ConnectRate = decimal.NewNullDecimal(decimal.NewFromInt(80))
	order.ApplicationFeeCents = &fee
	order.TransferDestination = &acct
	require.NoError(t, conn.Save(order).Error)
	return order, connect
}

func TestRecordForOrderCopiesSnapshot(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	order, connect := seedSplitOrder(t, conn)

	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)

	commission, err := svc.RecordForOrder(context.Background(), conn, order)
	require.NoError(t, err)
	require.NotNil(t, commission)

	assert.Equal(t, connect.ID, commission.ConnectID)
	assert.Equal(t, order.ID, commission.OrderID)
	assert.Equal(t, int64(1000), commission.TotalCents)
	assert.Equal(t, int64(200), commission.FeeCents)
	assert.True(t, commission.Rate.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, enums.CommissionStatusSettled, commission.Status)
	require.NotNil(t, commission.StripeTransferDestination)
	assert.Equal(t, "acct_vendor", *commission.StripeTransferDestination)
}

func TestRecordForOrderIsIdempotent(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	order, connect := seedSplitOrder(t, conn)

	repo := NewRepository(conn)
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.RecordForOrder(ctx, conn, order)
	require.NoError(t, err)
	second, err := svc.RecordForOrder(ctx, conn, order)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	ids, err := repo.ListIDsByConnect(ctx, connect.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestRecordForOrderWithoutSplit(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModePayment, nil)
	order := dbtest.SeedOrder(t, conn, form.ID, nil)

	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)

	commission, err := svc.RecordForOrder(context.Background(), conn, order)
	require.NoError(t, err)
	assert.Nil(t, commission)

	_, err = svc.RecordForOrder(context.Background(), conn, nil)
	assert.Error(t, err)
}

func TestDeleteByConnectRemovesOnlyThatConnect(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	ctx := context.Background()
	form := dbtest.SeedPaymentForm(t, conn, enums.PaymentModePayment, nil)
	keep := dbtest.SeedConnect(t, conn, nil, nil, 50, false)
	drop := dbtest.SeedConnect(t, conn, nil, nil, 50, false)

	dbtest.SeedCommission(t, conn, drop.ID, dbtest.SeedOrder(t, conn, form.ID, nil).ID)
	dbtest.SeedCommission(t, conn, drop.ID, dbtest.SeedOrder(t, conn, form.ID, nil).ID)
	dbtest.SeedCommission(t, conn, keep.ID, dbtest.SeedOrder(t, conn, form.ID, nil).ID)

	repo := NewRepository(conn)
	deleted, err := repo.DeleteByConnect(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.ListIDsByConnect(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	none, err := repo.FindByOrderID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}
