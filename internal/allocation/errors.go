package allocation

import "errors"

var (
	// ErrInvalidDiscount is returned when a rate or amount is outside its
	// valid range before any allocation arithmetic runs.
	ErrInvalidDiscount = errors.New("invalid discount")
	// ErrInvalidItem is returned when a line item carries a negative unit
	// price or a non-positive quantity.
	ErrInvalidItem = errors.New("invalid line item")
	// ErrDegenerateCart is returned when every item is priced at zero, so
	// a proportional split is undefined.
	ErrDegenerateCart = errors.New("cart subtotal is zero")
	// ErrUnknownCurrency is returned when the currency code is absent from
	// the precision table. The engine never substitutes a default.
	ErrUnknownCurrency = errors.New("unknown currency")
)
