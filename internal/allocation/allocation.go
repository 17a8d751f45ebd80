package allocation

import (
	"github.com/shopspring/decimal"
)

// DiscountKind distinguishes the two supported discount shapes.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed_amount"
)

// Discount is a tagged descriptor; exactly one of Rate or Amount is
// meaningful depending on Kind. The engine never infers the kind.
type Discount struct {
	Kind   DiscountKind
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// LineItem is one entry of a cart snapshot. It is immutable for the
// duration of an allocation call; the engine never writes to it.
type LineItem struct {
	ID        string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns unit price times quantity, computed on demand.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AllocationRecord is the per-item outcome of an allocation pass.
type AllocationRecord struct {
	ItemID           string
	OriginalAmount   decimal.Decimal
	DiscountAmount   decimal.Decimal
	DiscountedAmount decimal.Decimal
}

// AllocationResult aggregates the records for one allocation call.
// Records preserve the input item order, and the per-record discount
// amounts sum exactly to TotalDiscount in minor-unit arithmetic.
type AllocationResult struct {
	Records       []AllocationRecord
	Subtotal      decimal.Decimal
	TotalDiscount decimal.Decimal
}
