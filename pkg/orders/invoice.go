package orders

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	invoiceMargin     = 100.0
	invoiceLineHeight = 20.0
	invoicePageBottom = 740.0
)

// InvoiceFilename is the attachment name offered for an order's invoice.
func InvoiceFilename(id string) string {
	return fmt.Sprintf("invoice-%s.pdf", id)
}

// RenderInvoice writes a one-column Letter PDF listing the order lines and
// the grand total to w.
func RenderInvoice(w io.Writer, o *Order) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetTitle("Invoice "+o.ID, false)
	pdf.SetCreator("catalogd", false)
	pdf.SetCreationDate(o.CreatedAt)
	// Core fonts are cp1252; product names may carry accents or trademark signs.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 25)
	pdf.Text(invoiceMargin, 50, "INVOICE")

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(invoiceMargin, 80, "Date: "+o.CreatedAt.UTC().Format("2006-01-02"))
	pdf.Text(invoiceMargin, 100, "Order ID: "+tr(o.ID))
	pdf.Text(invoiceMargin, 120, "User ID: "+tr(o.UserID))
	pdf.Text(invoiceMargin, 150, "Items:")

	y := 170.0
	for _, item := range o.Items {
		if y > invoicePageBottom {
			pdf.AddPage()
			y = 50
		}
		pdf.Text(invoiceMargin, y, tr(fmt.Sprintf("%s - Qty: %d x $%s = $%s",
			item.Name, item.Quantity, item.Price.StringFixed(2), item.Subtotal().StringFixed(2))))
		y += invoiceLineHeight
	}

	if y+invoiceLineHeight > invoicePageBottom {
		pdf.AddPage()
		y = 50
	}
	pdf.SetFont("Helvetica", "", 16)
	pdf.Text(invoiceMargin, y+invoiceLineHeight, "Grand Total: $"+o.Total.StringFixed(2))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render invoice %s: %w", o.ID, err)
	}
	return nil
}
