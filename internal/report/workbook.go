// Package report renders ledger data as downloadable documents: Excel
// workbooks for valuation and sales, and a PDF receipt per sale.
package report

import (
	"io"

	"go-dokan-pos/internal/ledger"
	"go-dokan-pos/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	valuationSheet = "Valuation"
	salesSheet     = "Sales"
	linesSheet     = "Lines"
)

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	bold  int
	err   error
}

func newSheetWriter(f *excelize.File, sheet string) *sheetWriter {
	w := &sheetWriter{f: f, sheet: sheet}
	w.bold, w.err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	return w
}

// add appends one row; a bold row gets the header style.
func (w *sheetWriter) add(bold bool, values ...any) {
	if w.err != nil {
		return
	}
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	if w.err = w.f.SetSheetRow(w.sheet, cell, &values); w.err != nil {
		return
	}
	if bold {
		end, _ := excelize.CoordinatesToCellName(len(values), w.row)
		w.err = w.f.SetCellStyle(w.sheet, cell, end, w.bold)
	}
}

func (w *sheetWriter) blank() {
	w.row++
}

func (w *sheetWriter) widths(cols map[string]float64) {
	for col, width := range cols {
		if w.err != nil {
			return
		}
		w.err = w.f.SetColWidth(w.sheet, col, col, width)
	}
}

// ValuationWorkbook writes the stock valuation grouped by category, with a
// subtotal per category and the grand total on the last row.
func ValuationWorkbook(out io.Writer, v *ledger.Valuation) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", valuationSheet); err != nil {
		return err
	}

	w := newSheetWriter(f, valuationSheet)
	w.widths(map[string]float64{"A": 32, "B": 10, "C": 8, "D": 12, "E": 14})
	for _, cat := range v.Categories {
		w.add(true, cat.CategoryName)
		w.add(true, "Product", "Quantity", "Unit", "Cost Price", "Total Cost")
		for _, it := range cat.Items {
			w.add(false, it.Name, it.Quantity, it.Unit, it.CostPrice.InexactFloat64(), it.TotalCost.InexactFloat64())
		}
		w.add(true, "Subtotal", "", "", "", cat.Subtotal.InexactFloat64())
		w.blank()
	}
	w.add(true, "Grand Total", "", "", "", v.GrandTotal.InexactFloat64())
	if w.err != nil {
		return w.err
	}
	return f.Write(out)
}

// SalesWorkbook writes one sheet of sale headers and one of sale lines.
func SalesWorkbook(out io.Writer, sales []models.Sale) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return err
	}

	hw := newSheetWriter(f, salesSheet)
	hw.widths(map[string]float64{"B": 12, "C": 24, "D": 16})
	hw.add(true, "Sale ID", "Date", "Customer", "Phone", "Total", "Discount", "Final", "Paid", "Due", "Status")

	lw := newSheetWriter(f, linesSheet)
	lw.widths(map[string]float64{"B": 12, "C": 28})
	lw.add(true, "Sale ID", "Date", "Product", "Quantity", "Unit Price", "Cost Price", "Subtotal", "Profit")

	for _, s := range sales {
		hw.add(false, s.ID, s.SaleDate, s.CustomerName, s.CustomerPhone,
			s.TotalAmount.InexactFloat64(), s.Discount.InexactFloat64(), s.FinalAmount.InexactFloat64(),
			s.PaidAmount.InexactFloat64(), s.DueAmount.InexactFloat64(), s.PaymentStatus)
		for _, it := range s.Items {
			lw.add(false, s.ID, it.SaleDate, it.ProductName, it.Quantity,
				it.UnitPrice.InexactFloat64(), it.CostPrice.InexactFloat64(),
				it.Subtotal.InexactFloat64(), it.Profit.InexactFloat64())
		}
	}
	if hw.err != nil {
		return hw.err
	}
	if lw.err != nil {
		return lw.err
	}
	return f.Write(out)
}
