// Package money holds integer minor-unit arithmetic for line items, GST and
// deposits. All amounts are cents.
package money

import (
	"fmt"
	"math"
)

// BasisPoints is the denominator for rates expressed in basis points.
const BasisPoints = 10000

// Line is the priced input of a single line item.
type Line struct {
	Quantity   float64
	UnitPrice  int64
	GSTRateBps int64
}

// Priced is a line with its computed amounts.
type Priced struct {
	Amount int64
	GST    int64
}

// Totals are the document aggregates derived from its lines.
type Totals struct {
	Subtotal int64
	GST      int64
	Total    int64
}

// Price computes the ex-GST amount and GST of a line, rounding half away from zero.
func Price(line Line) Priced {
	amount := int64(math.Round(line.Quantity * float64(line.UnitPrice)))
	return Priced{
		Amount: amount,
		GST:    Rate(amount, line.GSTRateBps),
	}
}

// Rate applies a basis-point rate to amount.
func Rate(amount, bps int64) int64 {
	if bps == 0 || amount == 0 {
		return 0
	}
	return int64(math.Round(float64(amount) * float64(bps) / BasisPoints))
}

// Percent returns pct percent of amount, rounded to the nearest cent.
func Percent(amount int64, pct float64) int64 {
	return int64(math.Round(float64(amount) * pct / 100))
}

// Sum aggregates priced lines into document totals.
func Sum(lines []Priced) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal += l.Amount
		t.GST += l.GST
	}
	t.Total = t.Subtotal + t.GST
	return t
}

// Format renders cents as a dollar amount, e.g. "$1,234.50".
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := fmt.Sprintf("%d", cents/100)
	for i := len(whole) - 3; i > 0; i -= 3 {
		whole = whole[:i] + "," + whole[i:]
	}
	return fmt.Sprintf("%s$%s.%02d", sign, whole, cents%100)
}
