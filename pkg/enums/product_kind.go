package enums

import "fmt"

// ProductKind identifies the sellable entity a Connect governs.
type ProductKind string

const (
	ProductKindPaymentForm ProductKind = "payment_form"
)

// productKindLabels is the lookup table of supported kinds and their display names.
var productKindLabels = map[ProductKind]string{
	ProductKindPaymentForm: "Payment Form",
}

var validProductKinds = []ProductKind{
	ProductKindPaymentForm,
}

// ProductKinds lists supported kinds in display order.
func ProductKinds() []ProductKind {
	out := make([]ProductKind, len(validProductKinds))
	copy(out, validProductKinds)
	return out
}

// String implements fmt.Stringer.
func (k ProductKind) String() string {
	return string(k)
}

// Label returns the human readable name of the kind.
func (k ProductKind) Label() string {
	return productKindLabels[k]
}

// IsValid reports whether the value is known.
func (k ProductKind) IsValid() bool {
	_, ok := productKindLabels[k]
	return ok
}

// ParseProductKind converts raw input into a ProductKind.
func ParseProductKind(value string) (ProductKind, error) {
	for _, candidate := range validProductKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product kind %q", value)
}
