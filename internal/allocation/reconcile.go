package allocation

import (
	"sort"

	"github.com/shopspring/decimal"
)

type share struct {
	index     int
	exact     decimal.Decimal
	rounded   decimal.Decimal
	remainder decimal.Decimal
}

// distribute splits target across the items proportionally to their line
// totals. Every share is floored to the minor unit first, which
// systematically under-allocates, so the largest-remainder pass only ever
// adds increments; it never has to claw an item back down.
func (e *Engine) distribute(items []LineItem, subtotal, target decimal.Decimal, precision int32) *AllocationResult {
	minorUnit := decimal.New(1, -precision)

	shares := make([]share, len(items))
	roundedSum := decimal.Zero
	for i, item := range items {
		exact := target.Mul(item.LineTotal()).Div(subtotal)
		rounded := exact.RoundDown(precision)
		shares[i] = share{
			index:     i,
			exact:     exact,
			rounded:   rounded,
			remainder: exact.Sub(rounded),
		}
		roundedSum = roundedSum.Add(rounded)
	}

	shortfall := target.Sub(roundedSum)
	if shortfall.GreaterThan(e.epsilon.Mul(minorUnit)) {
		increments := int(shortfall.DivRound(minorUnit, 0).IntPart())
		reconcile(shares, minorUnit, increments)
	}

	records := make([]AllocationRecord, len(items))
	for i, item := range items {
		original := item.LineTotal()
		discounted := original.Sub(shares[i].rounded)
		if discounted.IsNegative() {
			// Unreachable while rates stay <= 100 and fixed amounts are
			// capped at the subtotal.
			discounted = decimal.Zero
		}
		records[i] = AllocationRecord{
			ItemID:           item.ID,
			OriginalAmount:   original,
			DiscountAmount:   shares[i].rounded,
			DiscountedAmount: discounted,
		}
	}

	return &AllocationResult{
		Records:       records,
		Subtotal:      subtotal,
		TotalDiscount: target,
	}
}

// reconcile hands out the shortfall one minor unit at a time to the items
// with the largest fractional remainders. Ties break on the lower input
// index, so the outcome is deterministic and reproducible. A shortfall
// larger than the item count wraps around the ranking.
func reconcile(shares []share, minorUnit decimal.Decimal, increments int) {
	if increments <= 0 {
		return
	}

	ranked := make([]*share, len(shares))
	for i := range shares {
		ranked[i] = &shares[i]
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].remainder.GreaterThan(ranked[b].remainder)
	})

	for k := 0; k < increments; k++ {
		recipient := ranked[k%len(ranked)]
		recipient.rounded = recipient.rounded.Add(minorUnit)
	}
}
