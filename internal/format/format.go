// Package format renders deal fields for operators.
package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smartdevs17/escrow-admin/internal/models"
)

// ShortAddress renders 0x-prefixed values as 0x1234…abcd. Anything else,
// including short strings, is returned unchanged.
func ShortAddress(s string) string {
	if !strings.HasPrefix(s, "0x") || len(s) < 10 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}

// OptionalHash renders an optional tx hash, "-" when absent.
func OptionalHash(h *string) string {
	if h == nil || *h == "" {
		return "-"
	}
	return *h
}

// Amount scales a smallest-unit integer string by the token's decimals.
// Unparseable input is returned as-is.
func Amount(raw string, decimals uint8) string {
	v, err := models.ParseAmount(raw)
	if err != nil {
		return raw
	}
	return decimal.NewFromBigInt(v, 0).Shift(-int32(decimals)).String()
}

// Time renders a timestamp in local time, "-" for the zero value.
func Time(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// Score renders an optional risk score.
func Score(v *float64) string {
	if v == nil {
		return "-"
	}
	return decimal.NewFromFloat(*v).Round(2).String()
}
