package invoice_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/invoice"
	"github.com/noah-isme/backend-storefront/internal/order"
)

func sampleOrder() order.Order {
	return order.Order{
		ID:         "6b6f2c61-0c5e-4a0f-9f2e-0d6a51a6a001",
		Status:     "paid",
		Currency:   "usd",
		TotalCents: 4499,
		CreatedAt:  time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Items: []order.Item{
			{Title: "Mug", UnitPriceCents: 1250, Qty: 2, LineTotalCents: 2500},
			{Title: "Shirt", UnitPriceCents: 1999, Qty: 1, LineTotalCents: 1999},
		},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	data, err := invoice.Generator{}.Render(sampleOrder())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")), "output must be a PDF document")
}

func TestRenderIsDeterministic(t *testing.T) {
	gen := invoice.Generator{}
	first, err := gen.Render(sampleOrder())
	require.NoError(t, err)
	second, err := gen.Render(sampleOrder())
	require.NoError(t, err)
	require.Equal(t, first, second, "same order must render to identical bytes")
}

func TestRenderEmptyOrder(t *testing.T) {
	ord := sampleOrder()
	ord.Items = nil
	ord.TotalCents = 0
	data, err := invoice.Generator{}.Render(ord)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestItemLines(t *testing.T) {
	rows := invoice.ItemLines(sampleOrder())
	require.Equal(t, []string{
		"Mug - 2 x $12.50",
		"Shirt - 1 x $19.99",
	}, rows)
}

func TestFilename(t *testing.T) {
	if got := invoice.Filename("abc-123"); got != "invoice-abc-123.pdf" {
		t.Fatalf("Filename = %q", got)
	}
}
