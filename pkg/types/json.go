package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// Metadata stores free-form string pairs forwarded to Stripe and kept on the order.
type Metadata map[string]string

// Value serializes the metadata to JSON.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan decodes a JSON column into the metadata map.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded Metadata
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// MaxAmountCents is the largest amount Stripe accepts for a unit price or a
// charge (999,999.99 in a two-decimal currency). Quantities share the cap.
const MaxAmountCents = 99999999

// ErrAmountOutOfRange reports a line item or total past MaxAmountCents.
var ErrAmountOutOfRange = errors.New("amount out of range")

// LineItem is a single priced entry of a checkout, in minor currency units.
type LineItem struct {
	Name            string `json:"name" validate:"required,max=250"`
	UnitAmountCents int64  `json:"unit_amount_cents" validate:"gte=0,max=99999999"`
	Quantity        int64  `json:"quantity" validate:"gte=0,max=99999999"`
}

// Amount is unit amount times quantity. Use CheckedTotal for unvalidated input.
func (l LineItem) Amount() int64 {
	return l.UnitAmountCents * l.Quantity
}

// MulCents multiplies a unit amount by a quantity and fails on negative
// operands or a product that does not fit in int64.
func MulCents(unit, quantity int64) (int64, error) {
	if unit < 0 || quantity < 0 {
		return 0, ErrAmountOutOfRange
	}
	hi, lo := bits.Mul64(uint64(unit), uint64(quantity))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, ErrAmountOutOfRange
	}
	return int64(lo), nil
}

// AddCents sums two non-negative amounts and fails when the result passes
// MaxAmountCents.
func AddCents(total, amount int64) (int64, error) {
	if total < 0 || amount < 0 || amount > MaxAmountCents-total {
		return 0, ErrAmountOutOfRange
	}
	return total + amount, nil
}

// LineItems is the ordered list of items purchased on an order.
type LineItems []LineItem

// Total sums the amount of every line item.
func (l LineItems) Total() int64 {
	var total int64
	for _, item := range l {
		total += item.Amount()
	}
	return total
}

// CheckedTotal is Total with every product and partial sum kept within
// MaxAmountCents.
func (l LineItems) CheckedTotal() (int64, error) {
	var total int64
	for _, item := range l {
		amount, err := MulCents(item.UnitAmountCents, item.Quantity)
		if err != nil {
			return 0, err
		}
		if total, err = AddCents(total, amount); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Value serializes the line items to JSON.
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan decodes a JSON column into the line items.
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded LineItems
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*l = decoded
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
