package enums

import "fmt"

// PaymentMode mirrors the Stripe Checkout session mode a payment form uses.
type PaymentMode string

const (
	PaymentModePayment      PaymentMode = "payment"
	PaymentModeSubscription PaymentMode = "subscription"
)

var validPaymentModes = []PaymentMode{
	PaymentModePayment,
	PaymentModeSubscription,
}

// String implements fmt.Stringer.
func (m PaymentMode) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
