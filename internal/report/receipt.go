package report

import (
	"fmt"
	"io"

	"go-dokan-pos/internal/models"

	"github.com/go-pdf/fpdf"
)

// Receipt renders a 74mm-wide thermal-style receipt for one sale. The page
// grows with the number of lines so nothing spills onto a second page.
func Receipt(out io.Writer, shop string, sale *models.Sale) error {
	height := 70.0 + 5*float64(len(sale.Items))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(shop), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Sales Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Receipt #%d", sale.ID), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Date: "+sale.SaleDate, "", 1, "L", false, 0, "")
	customer := sale.CustomerName
	if sale.CustomerPhone != "" {
		customer += " (" + sale.CustomerPhone + ")"
	}
	pdf.CellFormat(contentW, 4, tr("Customer: "+customer), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, it := range sale.Items {
		name := []rune(it.ProductName)
		if len(name) > 22 {
			name = append(name[:21], '.')
		}
		pdf.CellFormat(col1, 5, tr(string(name)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", it.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, "Tk "+it.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	amount := func(label, value string) {
		pdf.CellFormat(col1+col2, 5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, value, "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 7)
	if !sale.Discount.IsZero() {
		amount("Subtotal:", "Tk "+sale.TotalAmount.StringFixed(2))
		amount("Discount:", "-Tk "+sale.Discount.StringFixed(2))
	}
	pdf.SetFont("Helvetica", "B", 9)
	amount("TOTAL:", "Tk "+sale.FinalAmount.StringFixed(2))
	pdf.SetFont("Helvetica", "", 7)
	amount("Paid:", "Tk "+sale.PaidAmount.StringFixed(2))
	if sale.DueAmount.IsPositive() {
		pdf.SetFont("Helvetica", "B", 7)
		amount("Due:", "Tk "+sale.DueAmount.StringFixed(2))
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Thank you for shopping with us!", "", 1, "C", false, 0, "")

	if err := pdf.Output(out); err != nil {
		return fmt.Errorf("report: write receipt: %w", err)
	}
	return nil
}
