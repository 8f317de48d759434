package model

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// IDRPerUSD is the fixed rate used to derive rupiah prices when a record has none.
const IDRPerUSD = 15500

// USDToIDR converts a dollar price to whole rupiah.
// Examples: 500 → 7750000, 0.01 → 155
func USDToIDR(usd decimal.Decimal) decimal.Decimal {
	return usd.Mul(decimal.NewFromInt(IDRPerUSD)).Round(0)
}

// ParsePrice coerces a loosely typed price value to a decimal.
// Accepts numbers, numeric strings and anything cast can read as a float.
// Returns ok=false for nil, empty, NaN/Inf or unparseable input.
// Examples: 99.5 → 99.5, "1234.56" → 1234.56, "" → (0, false), "abc" → (0, false)
func ParsePrice(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero, false
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d, true
		}
	}

	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}
