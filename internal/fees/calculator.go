// Package fees computes the platform's share of a Connect checkout and
// attaches it to the Stripe session parameters.
package fees

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/stripe-payments/pkg/db/models"
	"github.com/angelmondragon/stripe-payments/pkg/logger"
	"github.com/angelmondragon/stripe-payments/pkg/types"
)

// Outcome describes what the calculator did with a session.
type Outcome string

const (
	OutcomeApplied            Outcome = "applied"
	OutcomeSkippedNoConnect   Outcome = "skipped_no_connect"
	OutcomeSkippedNoVendor    Outcome = "skipped_no_vendor"
	OutcomeSkippedNoAccount   Outcome = "skipped_no_account"
	OutcomeSkippedInvalidRate Outcome = "skipped_invalid_rate"
	OutcomeSkippedBadTotal    Outcome = "skipped_bad_total"
)

// RatePlaces is the precision Stripe accepts for application_fee_percent.
const RatePlaces = 2

// Skipped reports whether fee splitting was bypassed. Skips are a
// configuration state, never an error.
func (o Outcome) Skipped() bool {
	return o != OutcomeApplied
}

var hundred = decimal.NewFromInt(100)

// Split summarises an applied fee so it can be snapshotted on the order.
type Split struct {
	TotalCents      int64
	Rate            decimal.Decimal
	PlatformFeeRate decimal.Decimal
	FeeCents        int64
	Destination     string
}

// Result pairs the returned parameters with the decision taken.
type Result struct {
	Params  *stripe.CheckoutSessionParams
	Outcome Outcome
	Split   *Split
}

// Calculator is stateless; the logger only records skip decisions.
type Calculator struct {
	logger *logger.Logger
}

func NewCalculator(logg *logger.Logger) *Calculator {
	return &Calculator{logger: logg}
}

// ComputeSessionFee returns params with the application fee and transfer
// destination attached, or params itself when the connect, the vendor or the
// vendor's Stripe account is missing. The input is never mutated.
//
// platformFee = trunc(total * (100 - round(connect.Rate, 2)) / 100)
func (c *Calculator) ComputeSessionFee(ctx context.Context, params *stripe.CheckoutSessionParams, connect *models.Connect, vendor *models.Vendor) Result {
	switch {
	case connect == nil:
		return c.skip(ctx, params, OutcomeSkippedNoConnect)
	case vendor == nil:
		return c.skip(ctx, params, OutcomeSkippedNoVendor)
	case !vendor.HasStripeAccount():
		return c.skip(ctx, params, OutcomeSkippedNoAccount)
	case connect.Rate.LessThan(decimal.Zero) || connect.Rate.GreaterThan(hundred):
		return c.skip(ctx, params, OutcomeSkippedInvalidRate)
	}

	total, err := SessionTotal(params)
	if err != nil {
		return c.skip(ctx, params, OutcomeSkippedBadTotal)
	}
	rate := EffectiveRate(connect.Rate)
	platformRate := hundred.Sub(rate)
	fee := PlatformFee(total, rate)
	destination := *vendor.StripeAccountID

	out := cloneParams(params)
	if out.Mode != nil && *out.Mode == string(stripe.CheckoutSessionModeSubscription) {
		data := &stripe.CheckoutSessionSubscriptionDataParams{}
		if out.SubscriptionData != nil {
			copied := *out.SubscriptionData
			data = &copied
		}
		data.ApplicationFeePercent = stripe.Float64(platformRate.InexactFloat64())
		data.TransferData = &stripe.CheckoutSessionSubscriptionDataTransferDataParams{
			Destination: stripe.String(destination),
		}
		out.SubscriptionData = data
	} else {
		data := &stripe.CheckoutSessionPaymentIntentDataParams{}
		if out.PaymentIntentData != nil {
			copied := *out.PaymentIntentData
			data = &copied
		}
		data.ApplicationFeeAmount = stripe.Int64(fee)
		data.TransferData = &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
			Destination: stripe.String(destination),
		}
		out.PaymentIntentData = data
	}

	return Result{
		Params:  out,
		Outcome: OutcomeApplied,
		Split: &Split{
			TotalCents:      total,
			Rate:            rate,
			PlatformFeeRate: platformRate,
			FeeCents:        fee,
			Destination:     destination,
		},
	}
}

// PlatformFee truncates total * (100 - rate) / 100 to whole minor units.
// For rate in [0,100] the result lies in [0,total].
func PlatformFee(total int64, rate decimal.Decimal) int64 {
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(total).
		Mul(hundred.Sub(rate)).
		Div(hundred).
		Truncate(0).
		IntPart()
}

// EffectiveRate rounds the vendor rate to RatePlaces so the percentage sent
// to Stripe and the snapshot agree.
func EffectiveRate(rate decimal.Decimal) decimal.Decimal {
	return rate.Round(RatePlaces)
}

// SessionTotal sums unit_amount * quantity over the session's line items. It
// fails when a product or the running total leaves the range Stripe charges.
func SessionTotal(params *stripe.CheckoutSessionParams) (int64, error) {
	if params == nil {
		return 0, nil
	}
	var total int64
	for _, item := range params.LineItems {
		if item == nil || item.PriceData == nil || item.PriceData.UnitAmount == nil {
			continue
		}
		qty := int64(1)
		if item.Quantity != nil {
			qty = *item.Quantity
		}
		amount, err := types.MulCents(*item.PriceData.UnitAmount, qty)
		if err != nil {
			return 0, err
		}
		if total, err = types.AddCents(total, amount); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func (c *Calculator) skip(ctx context.Context, params *stripe.CheckoutSessionParams, outcome Outcome) Result {
	c.logger.Info(c.logger.WithField(ctx, "fee_outcome", string(outcome)), "fee split skipped")
	return Result{Params: params, Outcome: outcome}
}

func cloneParams(params *stripe.CheckoutSessionParams) *stripe.CheckoutSessionParams {
	if params == nil {
		return &stripe.CheckoutSessionParams{}
	}
	out := *params
	return &out
}
