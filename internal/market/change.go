// Package market holds the volume arithmetic shared by the alert loop and
// the status report.
package market

import (
	"github.com/shopspring/decimal"
)

// NotAvailable is printed in place of a change that cannot be computed.
const NotAvailable = "N/A"

var hundred = decimal.NewFromInt(100)

// ChangePercent returns (current-baseline)/baseline*100. ok is false when
// the baseline is missing or zero.
func ChangePercent(current decimal.Decimal, baseline decimal.NullDecimal) (change decimal.Decimal, ok bool) {
	if !baseline.Valid || baseline.Decimal.IsZero() {
		return decimal.Zero, false
	}
	return current.Sub(baseline.Decimal).Div(baseline.Decimal).Mul(hundred), true
}

// Exceeds reports whether an available change is strictly above threshold.
func Exceeds(change decimal.Decimal, ok bool, threshold float64) bool {
	return ok && change.GreaterThan(decimal.NewFromFloat(threshold))
}

// FormatChange renders a change with two decimals, or N/A.
func FormatChange(change decimal.Decimal, ok bool) string {
	if !ok {
		return NotAvailable
	}
	return change.StringFixed(2)
}

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// FormatLargeNumber shortens n to one decimal with a k, m or b suffix.
func FormatLargeNumber(n decimal.Decimal) string {
	switch {
	case n.GreaterThanOrEqual(billion):
		return n.Div(billion).StringFixed(1) + "b"
	case n.GreaterThanOrEqual(million):
		return n.Div(million).StringFixed(1) + "m"
	case n.GreaterThanOrEqual(thousand):
		return n.Div(thousand).StringFixed(1) + "k"
	default:
		return n.StringFixed(1)
	}
}
