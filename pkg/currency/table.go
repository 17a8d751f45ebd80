package currency

import (
	"fmt"
	"strconv"
	"strings"
)

// Minor-unit digits for the currencies the platform quotes in. Precision is
// a property of the currency, fixed for the process lifetime and looked up,
// never derived from a price's decimal representation.
var defaultPrecisions = map[string]int32{
	"AED": 2,
	"AUD": 2,
	"BHD": 3,
	"BRL": 2,
	"CAD": 2,
	"CHF": 2,
	"CLP": 0,
	"CNY": 2,
	"DKK": 2,
	"EUR": 2,
	"GBP": 2,
	"HKD": 2,
	"IDR": 2,
	"INR": 2,
	"ISK": 0,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"MXN": 2,
	"NOK": 2,
	"NZD": 2,
	"OMR": 3,
	"PLN": 2,
	"SEK": 2,
	"SGD": 2,
	"THB": 2,
	"TND": 3,
	"USD": 2,
	"VND": 0,
	"ZAR": 2,
}

// Table maps currency codes to minor-unit digits. It is built once at
// startup and read-only afterwards, so concurrent lookups need no locking.
type Table struct {
	precisions map[string]int32
}

// NewTable builds a precision table from the built-in defaults merged with
// the provided overrides. Override keys are upper-cased; an override may
// add a currency or change a default.
func NewTable(overrides map[string]int32) (*Table, error) {
	precisions := make(map[string]int32, len(defaultPrecisions)+len(overrides))
	for code, digits := range defaultPrecisions {
		precisions[code] = digits
	}
	for code, digits := range overrides {
		normalized := strings.ToUpper(strings.TrimSpace(code))
		if normalized == "" {
			return nil, fmt.Errorf("currency override: empty code")
		}
		if digits < 0 || digits > 4 {
			return nil, fmt.Errorf("currency override %s: precision %d out of range", normalized, digits)
		}
		precisions[normalized] = digits
	}
	return &Table{precisions: precisions}, nil
}

// Precision returns the minor-unit digits for the code. The second return
// reports whether the currency is known; callers decide how to fail.
func (t *Table) Precision(code string) (int32, bool) {
	if t == nil {
		return 0, false
	}
	digits, ok := t.precisions[strings.ToUpper(strings.TrimSpace(code))]
	return digits, ok
}

// ParseOverrides decodes the "CODE:digits,CODE:digits" format used by the
// PROMOENGINE_CURRENCY_OVERRIDES environment variable.
func ParseOverrides(raw string) (map[string]int32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	overrides := map[string]int32{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("currency override %q: expected CODE:digits", entry)
		}
		digits, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("currency override %q: %w", entry, err)
		}
		overrides[strings.ToUpper(strings.TrimSpace(parts[0]))] = int32(digits)
	}
	return overrides, nil
}
