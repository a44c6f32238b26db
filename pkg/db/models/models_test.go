package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stripe-payments/pkg/types"
)

func TestOrderBeforeCreateAssignsIdentity(t *testing.T) {
	order := &Order{}
	if err := order.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if order.ID == uuid.Nil {
		t.Fatal("expected id to be assigned")
	}
	if len(order.Number) != 32 {
		t.Fatalf("expected 32 character number, got %q", order.Number)
	}
	if len(order.ShortNumber()) != 7 {
		t.Fatalf("expected short number of 7 chars, got %q", order.ShortNumber())
	}
}

func TestOrderAttributesKeepsReservedKeys(t *testing.T) {
	stripeID := "ch_123"
	order := &Order{
		Number:   "abcdef0123456789",
		Email:    "buyer@example.com",
		StripeID: &stripeID,
		Metadata: types.Metadata{"number": "spoofed", "campaign": "spring"},
	}

	attrs := order.Attributes()
	if attrs["number"] != "abcdef0123456789" {
		t.Fatalf("metadata must not override number, got %v", attrs["number"])
	}
	if attrs["campaign"] != "spring" {
		t.Fatalf("expected metadata to be exposed, got %v", attrs["campaign"])
	}
	if attrs["stripeId"] != "ch_123" {
		t.Fatalf("unexpected stripe id %v", attrs["stripeId"])
	}
}

func TestOrderHasSplit(t *testing.T) {
	order := &Order{}
	if order.HasSplit() {
		t.Fatal("empty order should not carry a split")
	}

	connectID := uuid.New()
	fee := int64(300)
	order.ConnectID = &connectID
	order.ApplicationFeeCents = &fee
	order.ConnectRate = decimal.NewNullDecimal(decimal.NewFromInt(80))
	if !order.HasSplit() {
		t.Fatal("expected split to be present")
	}
}

func TestVendorHasStripeAccount(t *testing.T) {
	var nilVendor *Vendor
	if nilVendor.HasStripeAccount() {
		t.Fatal("nil vendor has no account")
	}
	empty := ""
	if (&Vendor{StripeAccountID: &empty}).HasStripeAccount() {
		t.Fatal("blank account id should not count")
	}
	acct := "acct_123"
	if !(&Vendor{StripeAccountID: &acct}).HasStripeAccount() {
		t.Fatal("expected account to be detected")
	}
}
