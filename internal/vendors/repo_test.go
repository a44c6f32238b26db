package vendors

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/stripe-payments/pkg/db/dbtest"
)

func TestSetStripeAccount(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, conn, nil)

	repo := NewRepository(conn)
	require.NoError(t, repo.SetStripeAccount(ctx, vendor.ID, "acct_linked"))

	found, err := repo.FindByID(ctx, vendor.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.HasStripeAccount())
	assert.Equal(t, "acct_linked", *found.StripeAccountID)
}

func TestSetStripeAccountUnknownVendor(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())

	err := repo.SetStripeAccount(context.Background(), uuid.New(), "acct_x")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	missing, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
