// Package invoice renders paid orders as PDF documents. Rendering reads only
// the frozen order snapshot, so an invoice regenerated years later is
// byte-identical to the one produced at purchase time.
package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/noah-isme/backend-storefront/internal/order"
	"github.com/noah-isme/backend-storefront/internal/pricing"
)

// Generator renders invoices with a fixed layout.
type Generator struct{}

// Filename returns the canonical invoice file name for an order.
func Filename(orderID string) string {
	return fmt.Sprintf("invoice-%s.pdf", orderID)
}

const separator = "-----------------------"

// ItemLines returns the per-item rows in render order, one
// "title - qty x $price" row per frozen item.
func ItemLines(ord order.Order) []string {
	rows := make([]string, 0, len(ord.Items))
	for _, it := range ord.Items {
		rows = append(rows, fmt.Sprintf("%s - %d x %s", it.Title, it.Qty, pricing.FormatUSD(it.UnitPriceCents)))
	}
	return rows
}

// Render produces the PDF for an order. Output depends only on the order's
// frozen items and totals: the creation date is pinned so repeated renders of
// the same order produce identical bytes.
func (Generator) Render(ord order.Order) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.AddPage()

	pdf.SetFont("Helvetica", "BU", 20)
	pdf.CellFormat(0, 12, "Invoice", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Order %s", ord.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, separator, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range ItemLines(ord) {
		pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 6, separator, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, fmt.Sprintf("Total Price: %s", pricing.FormatUSD(ord.TotalCents)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}
