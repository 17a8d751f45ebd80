package allocation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Signature is an opaque, comparable fingerprint of a cart snapshot.
type Signature string

// ComputeSignature fingerprints (id, quantity, unit price) for every item,
// independent of input order: two snapshots holding the same multiset of
// items hash identically. Callers compare signatures to skip reallocation
// when nothing relevant changed.
func ComputeSignature(items []LineItem) Signature {
	sorted := make([]LineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].ID < sorted[b].ID
	})

	h := sha256.New()
	for _, item := range sorted {
		fmt.Fprintf(h, "%s|%d|%s\n", item.ID, item.Quantity, canonicalAmount(item.UnitPrice))
	}
	return Signature(hex.EncodeToString(h.Sum(nil)))
}

// canonicalAmount strips trailing fraction zeros so that 8.5 and 8.50,
// which are the same price, fingerprint identically.
func canonicalAmount(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
