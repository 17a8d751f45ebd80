package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/promo-engine/pkg/currency"
)

// DefaultEpsilon is the reconciliation tolerance expressed as a fraction of
// one minor unit. Shortfalls below it are treated as representation noise.
var DefaultEpsilon = decimal.RequireFromString("0.001")

var oneHundred = decimal.NewFromInt(100)

// Engine splits a discount across cart line items so that every per-item
// amount is rounded to the currency's minor unit and the rounded amounts
// sum exactly to the rounded target. It holds no mutable state across
// calls and is safe for concurrent use.
type Engine struct {
	currencies *currency.Table
	epsilon    decimal.Decimal
}

// Option tunes an Engine at construction time.
type Option func(*Engine)

// WithEpsilon overrides DefaultEpsilon. Zero is honored as strict zero
// tolerance, not treated as unset.
func WithEpsilon(epsilon decimal.Decimal) Option {
	return func(e *Engine) {
		e.epsilon = epsilon
	}
}

// NewEngine builds an engine on top of the read-only precision table.
func NewEngine(currencies *currency.Table, opts ...Option) (*Engine, error) {
	if currencies == nil {
		return nil, fmt.Errorf("currency table required")
	}
	e := &Engine{currencies: currencies, epsilon: DefaultEpsilon}
	for _, opt := range opts {
		opt(e)
	}
	if e.epsilon.IsNegative() {
		return nil, fmt.Errorf("rounding epsilon must not be negative")
	}
	return e, nil
}

// Allocate dispatches on the discount kind. It exists for callers that
// carry a Discount descriptor; the kind-specific entry points below are
// the primary contract.
func (e *Engine) Allocate(items []LineItem, d Discount, code string) (*AllocationResult, error) {
	switch d.Kind {
	case DiscountPercentage:
		return e.AllocatePercentage(items, d.Rate, code)
	case DiscountFixed:
		return e.AllocateFixedAmount(items, d.Amount, code)
	default:
		return nil, fmt.Errorf("%w: unsupported kind %q", ErrInvalidDiscount, d.Kind)
	}
}

// AllocatePercentage distributes a rate in (0, 100] proportionally across
// the items. An empty cart yields an empty zero result; a non-empty cart
// whose subtotal is zero fails with ErrDegenerateCart.
func (e *Engine) AllocatePercentage(items []LineItem, rate decimal.Decimal, code string) (*AllocationResult, error) {
	if !rate.IsPositive() || rate.GreaterThan(oneHundred) {
		return nil, fmt.Errorf("%w: rate %s outside (0, 100]", ErrInvalidDiscount, rate)
	}
	precision, err := e.precisionFor(code)
	if err != nil {
		return nil, err
	}
	if err := validateItems(items, precision); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return emptyResult(), nil
	}

	// rate.Shift(-2) is an exact exponent shift, so the target carries no
	// division error before rounding.
	fraction := rate.Shift(-2)

	if len(items) == 1 {
		item := items[0]
		lineTotal := item.LineTotal()
		if lineTotal.IsZero() {
			return nil, fmt.Errorf("%w: single item priced at zero", ErrDegenerateCart)
		}
		discount := lineTotal.Mul(fraction).Round(precision)
		return singleItemResult(item, lineTotal, discount), nil
	}

	subtotal := sumLineTotals(items)
	if subtotal.IsZero() {
		return nil, fmt.Errorf("%w: all items priced at zero", ErrDegenerateCart)
	}

	// The rounded discount is computed once from the subtotal; every step
	// after this must reconstruct it exactly via per-item sums.
	target := subtotal.Mul(fraction).Round(precision)
	return e.distribute(items, subtotal, target, precision), nil
}

// AllocateFixedAmount distributes a flat positive amount proportionally
// across the items, capped at the subtotal. The cap is silent: a
// threshold promotion routinely names an amount larger than a nearly
// empty cart, and that is not a caller error.
func (e *Engine) AllocateFixedAmount(items []LineItem, amount decimal.Decimal, code string) (*AllocationResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount %s must be positive", ErrInvalidDiscount, amount)
	}
	precision, err := e.precisionFor(code)
	if err != nil {
		return nil, err
	}
	if err := validateItems(items, precision); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return emptyResult(), nil
	}

	if len(items) == 1 {
		item := items[0]
		lineTotal := item.LineTotal()
		if lineTotal.IsZero() {
			return nil, fmt.Errorf("%w: single item priced at zero", ErrDegenerateCart)
		}
		discount := decimal.Min(amount, lineTotal).Round(precision)
		return singleItemResult(item, lineTotal, discount), nil
	}

	subtotal := sumLineTotals(items)
	if subtotal.IsZero() {
		return nil, fmt.Errorf("%w: all items priced at zero", ErrDegenerateCart)
	}

	target := decimal.Min(amount, subtotal).Round(precision)
	return e.distribute(items, subtotal, target, precision), nil
}

// RoundToCurrency rounds half away from zero to the currency's minor unit.
// The allocation passes deliberately do not call this per item; they floor
// and reconcile so the reconciliation step stays the sole source of
// final-cent adjustment.
func (e *Engine) RoundToCurrency(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	precision, err := e.precisionFor(code)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Round(precision), nil
}

func (e *Engine) precisionFor(code string) (int32, error) {
	precision, ok := e.currencies.Precision(code)
	if !ok {
		return 0, fmt.Errorf("%w: %q not in precision table", ErrUnknownCurrency, code)
	}
	return precision, nil
}

func validateItems(items []LineItem, precision int32) error {
	for _, item := range items {
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %q has negative unit price", ErrInvalidItem, item.ID)
		}
		// A price carrying digits below the minor unit cannot be settled in
		// this currency, and flooring it would let a reconciliation
		// increment push an item's discount past its own value.
		if !item.UnitPrice.RoundDown(precision).Equal(item.UnitPrice) {
			return fmt.Errorf("%w: item %q price %s is finer than the currency's minor unit", ErrInvalidItem, item.ID, item.UnitPrice)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %q has quantity %d", ErrInvalidItem, item.ID, item.Quantity)
		}
	}
	return nil
}

func sumLineTotals(items []LineItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

func emptyResult() *AllocationResult {
	return &AllocationResult{
		Records:       []AllocationRecord{},
		Subtotal:      decimal.Zero,
		TotalDiscount: decimal.Zero,
	}
}

// singleItemResult is the one-item fast path: the discount is computed
// directly from the line total, so no proportional split can introduce
// rounding slack that a reconciliation pass would need to repair.
func singleItemResult(item LineItem, lineTotal, discount decimal.Decimal) *AllocationResult {
	discounted := lineTotal.Sub(discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	return &AllocationResult{
		Records: []AllocationRecord{{
			ItemID:           item.ID,
			OriginalAmount:   lineTotal,
			DiscountAmount:   discount,
			DiscountedAmount: discounted,
		}},
		Subtotal:      lineTotal,
		TotalDiscount: discount,
	}
}
