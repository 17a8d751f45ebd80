package allocation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/promo-engine/pkg/currency"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	table, err := currency.NewTable(nil)
	require.NoError(t, err)
	engine, err := NewEngine(table)
	require.NoError(t, err)
	return engine
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(id, unitPrice string, qty int) LineItem {
	return LineItem{ID: id, UnitPrice: dec(unitPrice), Quantity: qty}
}

func sumDiscounts(records []AllocationRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range records {
		sum = sum.Add(rec.DiscountAmount)
	}
	return sum
}

func TestAllocatePercentageProportionalSplit(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	items := []LineItem{
		item("1", "12.99", 1),
		item("2", "8.50", 2),
		item("3", "22.45", 1),
	}

	result, err := engine.AllocatePercentage(items, dec("15"), "EUR")
	require.NoError(t, err)

	require.True(t, result.Subtotal.Equal(dec("52.44")), "subtotal %s", result.Subtotal)
	require.True(t, result.TotalDiscount.Equal(dec("7.87")), "total discount %s", result.TotalDiscount)

	// Floors are 1.94 / 2.55 / 3.36; the two-cent shortfall goes to the
	// items with the largest fractional remainders (items 1 and 3).
	require.True(t, result.Records[0].DiscountAmount.Equal(dec("1.95")))
	require.True(t, result.Records[1].DiscountAmount.Equal(dec("2.55")))
	require.True(t, result.Records[2].DiscountAmount.Equal(dec("3.37")))

	require.True(t, sumDiscounts(result.Records).Equal(result.TotalDiscount))
	for i, rec := range result.Records {
		require.Equal(t, items[i].ID, rec.ItemID, "order must match input")
		require.False(t, rec.DiscountAmount.GreaterThan(rec.OriginalAmount))
		require.False(t, rec.DiscountedAmount.IsNegative())
		require.True(t, rec.DiscountedAmount.Equal(rec.OriginalAmount.Sub(rec.DiscountAmount)))
	}
}

func TestAllocatePercentageSumInvariant(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	carts := [][]LineItem{
		{item("a", "0.01", 1), item("b", "0.01", 1), item("c", "0.01", 1)},
		{item("a", "19.99", 3), item("b", "0.05", 7), item("c", "104.49", 1), item("d", "1.11", 9)},
		{item("a", "33.33", 1), item("b", "33.33", 1), item("c", "33.33", 1)},
		{item("a", "999999.99", 2), item("b", "0.01", 1)},
		{item("a", "7.77", 13), item("b", "7.77", 13), item("c", "0.02", 1), item("d", "150.00", 2)},
	}
	rates := []string{"0.5", "1", "3", "7.5", "15", "33.333", "50", "99.99", "100"}

	for _, items := range carts {
		for _, rate := range rates {
			result, err := engine.AllocatePercentage(items, dec(rate), "EUR")
			require.NoError(t, err, "rate %s", rate)
			require.True(t, sumDiscounts(result.Records).Equal(result.TotalDiscount),
				"rate %s: sum %s != total %s", rate, sumDiscounts(result.Records), result.TotalDiscount)
			for _, rec := range result.Records {
				require.False(t, rec.DiscountedAmount.IsNegative(), "rate %s item %s", rate, rec.ItemID)
			}
		}
	}
}

func TestAllocatePercentageSingleItemFastPath(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	result, err := engine.AllocatePercentage([]LineItem{item("only", "9.99", 3)}, dec("7"), "EUR")
	require.NoError(t, err)

	// 29.97 * 0.07 = 2.0979, rounded half away from zero.
	require.Len(t, result.Records, 1)
	require.True(t, result.Records[0].DiscountAmount.Equal(dec("2.10")))
	require.True(t, result.TotalDiscount.Equal(dec("2.10")))
	require.True(t, result.Subtotal.Equal(dec("29.97")))
}

func TestAllocatePercentageEmptyCart(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	result, err := engine.AllocatePercentage(nil, dec("15"), "EUR")
	require.NoError(t, err)
	require.Empty(t, result.Records)
	require.True(t, result.Subtotal.IsZero())
	require.True(t, result.TotalDiscount.IsZero())
}

func TestAllocatePercentageDegenerateCart(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	_, err := engine.AllocatePercentage([]LineItem{
		item("a", "0.00", 1),
		item("b", "0.00", 4),
	}, dec("15"), "EUR")
	require.ErrorIs(t, err, ErrDegenerateCart)

	_, err = engine.AllocatePercentage([]LineItem{item("a", "0.00", 1)}, dec("15"), "EUR")
	require.ErrorIs(t, err, ErrDegenerateCart)
}

func TestAllocatePercentageValidation(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	cases := []struct {
		name  string
		items []LineItem
		rate  string
		code  string
		want  error
	}{
		{"zero rate", []LineItem{item("a", "1.00", 1)}, "0", "EUR", ErrInvalidDiscount},
		{"negative rate", []LineItem{item("a", "1.00", 1)}, "-5", "EUR", ErrInvalidDiscount},
		{"rate above 100", []LineItem{item("a", "1.00", 1)}, "100.01", "EUR", ErrInvalidDiscount},
		{"unknown currency", []LineItem{item("a", "1.00", 1)}, "10", "XXX", ErrUnknownCurrency},
		{"negative price", []LineItem{item("a", "-1.00", 1)}, "10", "EUR", ErrInvalidItem},
		{"zero quantity", []LineItem{item("a", "1.00", 0)}, "10", "EUR", ErrInvalidItem},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.AllocatePercentage(tc.items, dec(tc.rate), tc.code)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAllocateRejectsPricesFinerThanMinorUnit(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	// A half-cent price would let the reconciliation pass hand an item more
	// discount than its own value (floors 0.01/0.01, target 0.03).
	items := []LineItem{item("a", "0.015", 1), item("b", "0.015", 1)}
	_, err := engine.AllocatePercentage(items, dec("100"), "EUR")
	require.ErrorIs(t, err, ErrInvalidItem)

	// And the single-item fixed path would round the cap above the subtotal.
	_, err = engine.AllocateFixedAmount([]LineItem{item("a", "0.015", 1)}, dec("10"), "EUR")
	require.ErrorIs(t, err, ErrInvalidItem)

	// Trailing zeros are representation, not extra precision.
	result, err := engine.AllocatePercentage([]LineItem{item("a", "8.500", 1), item("b", "1.00", 1)}, dec("10"), "EUR")
	require.NoError(t, err)
	require.True(t, sumDiscounts(result.Records).Equal(result.TotalDiscount))

	// The same digits are valid where the currency carries them.
	_, err = engine.AllocateFixedAmount([]LineItem{item("a", "1.234", 1), item("b", "2.345", 1)}, dec("0.015"), "BHD")
	require.NoError(t, err)
}

func TestAllocateFixedAmountCapsAtSubtotal(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	items := []LineItem{
		item("a", "3.00", 1),
		item("b", "7.00", 1),
	}

	result, err := engine.AllocateFixedAmount(items, dec("50.00"), "EUR")
	require.NoError(t, err)

	require.True(t, result.TotalDiscount.Equal(dec("10.00")))
	require.True(t, sumDiscounts(result.Records).Equal(result.TotalDiscount))
	for _, rec := range result.Records {
		require.True(t, rec.DiscountedAmount.IsZero(), "item %s should be fully discounted", rec.ItemID)
	}
}

func TestAllocateFixedAmountProportional(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	items := []LineItem{
		item("a", "10.00", 1),
		item("b", "20.00", 1),
		item("c", "0.10", 1),
	}

	result, err := engine.AllocateFixedAmount(items, dec("5.00"), "EUR")
	require.NoError(t, err)

	require.True(t, result.TotalDiscount.Equal(dec("5.00")))
	require.True(t, sumDiscounts(result.Records).Equal(dec("5.00")))
	// b carries twice a's share.
	require.True(t, result.Records[1].DiscountAmount.GreaterThan(result.Records[0].DiscountAmount))
}

func TestAllocateFixedAmountSingleItem(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	result, err := engine.AllocateFixedAmount([]LineItem{item("a", "2.50", 1)}, dec("5.00"), "EUR")
	require.NoError(t, err)

	require.True(t, result.TotalDiscount.Equal(dec("2.50")))
	require.True(t, result.Records[0].DiscountedAmount.IsZero())
}

func TestAllocateFixedAmountValidation(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	_, err := engine.AllocateFixedAmount([]LineItem{item("a", "1.00", 1)}, dec("0"), "EUR")
	require.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = engine.AllocateFixedAmount([]LineItem{item("a", "1.00", 1)}, dec("-3"), "EUR")
	require.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestZeroDecimalCurrency(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	items := []LineItem{
		item("a", "101", 1),
		item("b", "200", 1),
	}

	result, err := engine.AllocatePercentage(items, dec("10"), "JPY")
	require.NoError(t, err)

	// 301 * 0.10 = 30.1 rounds to 30 whole yen; floors are 10 and 19 and
	// the remaining yen lands on b, which has the larger remainder.
	require.True(t, result.TotalDiscount.Equal(dec("30")))
	require.True(t, result.Records[0].DiscountAmount.Equal(dec("10")))
	require.True(t, result.Records[1].DiscountAmount.Equal(dec("20")))
}

func TestThreeDecimalCurrency(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	items := []LineItem{
		item("a", "1.234", 1),
		item("b", "5.678", 1),
	}

	result, err := engine.AllocatePercentage(items, dec("33.333"), "BHD")
	require.NoError(t, err)
	require.True(t, sumDiscounts(result.Records).Equal(result.TotalDiscount))
}

func TestRoundToCurrency(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	rounded, err := engine.RoundToCurrency(dec("6.516"), "EUR")
	require.NoError(t, err)
	require.True(t, rounded.Equal(dec("6.52")))

	rounded, err = engine.RoundToCurrency(dec("6.515"), "EUR")
	require.NoError(t, err)
	require.True(t, rounded.Equal(dec("6.52")), "half rounds away from zero")

	rounded, err = engine.RoundToCurrency(dec("-6.515"), "EUR")
	require.NoError(t, err)
	require.True(t, rounded.Equal(dec("-6.52")))

	_, err = engine.RoundToCurrency(dec("1"), "NOPE")
	require.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestAllocateDispatch(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	items := []LineItem{item("a", "10.00", 1), item("b", "5.00", 1)}

	pct, err := engine.Allocate(items, Discount{Kind: DiscountPercentage, Rate: dec("10")}, "EUR")
	require.NoError(t, err)
	require.True(t, pct.TotalDiscount.Equal(dec("1.50")))

	fixed, err := engine.Allocate(items, Discount{Kind: DiscountFixed, Amount: dec("3.00")}, "EUR")
	require.NoError(t, err)
	require.True(t, fixed.TotalDiscount.Equal(dec("3.00")))

	_, err = engine.Allocate(items, Discount{Kind: "buy_one_get_one"}, "EUR")
	require.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestEngineConstruction(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(nil)
	require.Error(t, err)

	table, err := currency.NewTable(nil)
	require.NoError(t, err)

	_, err = NewEngine(table, WithEpsilon(dec("-0.1")))
	require.Error(t, err)

	engine, err := NewEngine(table)
	require.NoError(t, err)
	require.True(t, engine.epsilon.Equal(DefaultEpsilon))

	strict, err := NewEngine(table, WithEpsilon(decimal.Zero))
	require.NoError(t, err)
	require.True(t, strict.epsilon.IsZero(), "explicit zero epsilon must not be promoted to the default")
}

func TestStrictZeroEpsilonStillReconciles(t *testing.T) {
	t.Parallel()

	table, err := currency.NewTable(nil)
	require.NoError(t, err)
	engine, err := NewEngine(table, WithEpsilon(decimal.Zero))
	require.NoError(t, err)

	items := []LineItem{
		item("a", "12.99", 1),
		item("b", "8.50", 2),
		item("c", "22.45", 1),
	}
	result, err := engine.AllocatePercentage(items, dec("15"), "EUR")
	require.NoError(t, err)
	require.True(t, sumDiscounts(result.Records).Equal(result.TotalDiscount))
}

func TestErrorsAreDeterministic(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	items := []LineItem{item("a", "0.00", 2), item("b", "0.00", 1)}
	for i := 0; i < 3; i++ {
		_, err := engine.AllocatePercentage(items, dec("15"), "EUR")
		if !errors.Is(err, ErrDegenerateCart) {
			t.Fatalf("call %d: expected degenerate cart error, got %v", i, err)
		}
	}
}
