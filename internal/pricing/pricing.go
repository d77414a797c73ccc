// Package pricing computes order totals in integer minor units. Floats never
// enter the math, so the same cart always prices to the same cent.
package pricing

import (
	"fmt"
	"strings"
)

// Money is an amount in minor currency units (cents for USD).
type Money = int64

// Item is one priceable line: a unit price and a quantity.
type Item struct {
	ProductID string
	Title     string
	UnitPrice Money
	Qty       int32
}

// Line is a priced item with its extended total.
type Line struct {
	Item
	LineTotal Money
}

// Summary is the result of pricing a set of items.
type Summary struct {
	Lines []Line
	Total Money
}

// Compute prices each item and sums the lines. Order of input is preserved.
func Compute(items []Item) Summary {
	s := Summary{Lines: make([]Line, 0, len(items))}
	for _, it := range items {
		lt := it.UnitPrice * Money(it.Qty)
		s.Lines = append(s.Lines, Line{Item: it, LineTotal: lt})
		s.Total += lt
	}
	return s
}

// FormatUSD renders cents as a dollar string. Whole-dollar amounts drop the
// fractional part: 2000 renders as "$20", 2050 as "$20.50".
func FormatUSD(cents Money) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	dollars := cents / 100
	frac := cents % 100
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	if frac == 0 {
		fmt.Fprintf(&b, "%d", dollars)
	} else {
		fmt.Fprintf(&b, "%d.%02d", dollars, frac)
	}
	return b.String()
}
