package ledger

import (
	"context"
	"errors"
	"io"
	"strings"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var saleImportColumns = []string{"customer_name", "product_name", "quantity", "unit_price", "sale_date"}

// ImportHistoricalSale back-fills one past sale line. The financial header, the
// line and the customer aggregate are written like a live sale, but stock is left alone.
func (s *Service) ImportHistoricalSale(ctx context.Context, h HistoricalSale) (uint, error) {
	name := strings.TrimSpace(h.CustomerName)
	if name == "" {
		return 0, apperr.Validation("customer_name", "is required")
	}
	productName := strings.TrimSpace(h.ProductName)
	if productName == "" {
		return 0, apperr.Validation("product_name", "is required")
	}
	if h.Quantity <= 0 {
		return 0, apperr.Validation("quantity", "must be positive, got %d", h.Quantity)
	}
	if h.UnitPrice.IsNegative() {
		return 0, apperr.Validation("unit_price", "cannot be negative")
	}
	date, err := s.saleDate(h.SaleDate)
	if err != nil {
		return 0, err
	}
	subtotal := h.UnitPrice.Mul(decimal.NewFromInt(int64(h.Quantity)))
	totals, err := computeTotals([]decimal.Decimal{subtotal}, h.Discount, h.PaidAmount)
	if err != nil {
		return 0, err
	}
	phone := strings.TrimSpace(h.CustomerPhone)

	var saleID uint
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("name_key = ?", models.NameKey(productName)).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("product", productName)
			}
			return apperr.Storage("load product", err)
		}

		sale := models.Sale{
			CustomerName:  name,
			CustomerPhone: phone,
			SaleDate:      date,
			TotalAmount:   totals.total,
			Discount:      totals.discount,
			FinalAmount:   totals.final,
			PaidAmount:    totals.paid,
			DueAmount:     totals.due,
			PaymentStatus: totals.status,
			Items: []models.SaleItem{{
				ProductID:   product.ID,
				ProductName: productName,
				Quantity:    h.Quantity,
				UnitPrice:   h.UnitPrice,
				CostPrice:   product.CostPrice,
				Profit:      lineProfit(h.UnitPrice, product.CostPrice, h.Quantity),
				Subtotal:    subtotal,
				SaleDate:    date,
			}},
		}
		if err := tx.Create(&sale).Error; err != nil {
			return apperr.Storage("insert historical sale", err)
		}
		if err := upsertCustomer(tx, name, phone, totals.final, date, true); err != nil {
			return err
		}
		saleID = sale.ID
		return nil
	})
	if err != nil {
		logWrite("import historical sale")(err)
		return 0, err
	}
	return saleID, nil
}

// ImportSales reads a CSV or XLSX of past sales, one line per row, and imports
// each row on its own. A bad row is counted and reported; it never stops the batch.
func (s *Service) ImportSales(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	t, err := readTable(filename, r)
	if err != nil {
		return nil, err
	}
	if err := t.require(saleImportColumns...); err != nil {
		return nil, err
	}

	res := &ImportResult{Errors: []RowError{}}
	for i, row := range t.rows {
		line := i + 2
		if blank(row) {
			continue
		}
		h, err := parseHistoricalRow(t, row)
		if err == nil {
			_, err = s.ImportHistoricalSale(ctx, h)
		}
		if err != nil {
			res.fail(line, err.Error())
			continue
		}
		res.Imported++
	}

	if res.Imported > 0 {
		s.invalidateStats(ctx)
	}
	log.Info().Int("imported", res.Imported).Int("failed", res.Failed).Msg("historical sales imported")
	return res, nil
}

func parseHistoricalRow(t *table, row []string) (HistoricalSale, error) {
	qty, err := parseCount(t.get(row, "quantity"), "quantity", 0)
	if err != nil {
		return HistoricalSale{}, err
	}
	unit, err := parseMoney(t.get(row, "unit_price"), "unit_price", false)
	if err != nil {
		return HistoricalSale{}, err
	}
	discount, err := parseMoney(t.get(row, "discount"), "discount", true)
	if err != nil {
		return HistoricalSale{}, err
	}
	paid, err := parseMoney(t.get(row, "paid_amount"), "paid_amount", true)
	if err != nil {
		return HistoricalSale{}, err
	}
	return HistoricalSale{
		CustomerName:  t.get(row, "customer_name"),
		CustomerPhone: t.get(row, "customer_phone"),
		ProductName:   t.get(row, "product_name"),
		Quantity:      qty,
		UnitPrice:     unit,
		Discount:      discount,
		PaidAmount:    paid,
		SaleDate:      t.get(row, "sale_date"),
	}, nil
}

// parseMoney reads a cell as a decimal amount. Empty cells are zero only when optional.
func parseMoney(raw, field string, optional bool) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		if optional {
			return decimal.Zero, nil
		}
		return decimal.Zero, apperr.Validation(field, "is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Validation(field, "not a number: %q", raw)
	}
	return d, nil
}
