package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/pricing"
)

func TestComputeSumsLines(t *testing.T) {
	sum := pricing.Compute([]pricing.Item{
		{ProductID: "a", Title: "Mug", UnitPrice: 1250, Qty: 2},
		{ProductID: "b", Title: "Shirt", UnitPrice: 1999, Qty: 1},
	})
	require.Len(t, sum.Lines, 2)
	require.Equal(t, int64(2500), sum.Lines[0].LineTotal)
	require.Equal(t, int64(1999), sum.Lines[1].LineTotal)
	require.Equal(t, int64(4499), sum.Total)
}

func TestComputeEmpty(t *testing.T) {
	sum := pricing.Compute(nil)
	require.Empty(t, sum.Lines)
	require.Equal(t, int64(0), sum.Total)
}

func TestComputePreservesOrder(t *testing.T) {
	items := []pricing.Item{
		{ProductID: "z", UnitPrice: 100, Qty: 1},
		{ProductID: "a", UnitPrice: 200, Qty: 1},
		{ProductID: "m", UnitPrice: 300, Qty: 1},
	}
	sum := pricing.Compute(items)
	for i, ln := range sum.Lines {
		require.Equal(t, items[i].ProductID, ln.ProductID)
	}
}

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{2000, "$20"},
		{2050, "$20.50"},
		{5, "$0.05"},
		{0, "$0"},
		{199, "$1.99"},
		{-2550, "-$25.50"},
	}
	for _, c := range cases {
		if got := pricing.FormatUSD(c.cents); got != c.want {
			t.Fatalf("FormatUSD(%d) = %q, want %q", c.cents, got, c.want)
		}
	}
}
