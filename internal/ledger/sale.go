package ledger

import (
	"context"
	"errors"
	"strings"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// saleTotals is the financial header derived from a cart before anything is written.
type saleTotals struct {
	total, discount, final, paid, due decimal.Decimal
	status                            string
}

func computeTotals(subtotals []decimal.Decimal, discount, paid decimal.Decimal) (saleTotals, error) {
	total := decimal.Zero
	for _, st := range subtotals {
		total = total.Add(st)
	}
	if discount.IsNegative() || discount.GreaterThan(total) {
		return saleTotals{}, apperr.Validation("discount", "must be between 0 and %s, got %s", total.StringFixed(2), discount.StringFixed(2))
	}
	if paid.IsNegative() {
		return saleTotals{}, apperr.Validation("paid_amount", "cannot be negative, got %s", paid.StringFixed(2))
	}
	final := total.Sub(discount)
	due := models.Settle(final, paid)
	return saleTotals{
		total:    total,
		discount: discount,
		final:    final,
		paid:     paid,
		due:      due,
		status:   models.PaymentStatus(due),
	}, nil
}

// RecordSale posts a complete checkout: the sale header, one line per cart item,
// the stock decrements and the customer aggregate. Either all of it commits or none.
func (s *Service) RecordSale(ctx context.Context, req SaleRequest) (uint, error) {
	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.CustomerPhone)
	if name == "" {
		return 0, apperr.Validation("customer_name", "is required")
	}
	if len(req.Items) == 0 {
		return 0, apperr.Validation("items", "cart cannot be empty")
	}
	date, err := s.saleDate(req.SaleDate)
	if err != nil {
		return 0, err
	}

	subtotals := make([]decimal.Decimal, 0, len(req.Items))
	for i, it := range req.Items {
		if it.ProductID == 0 {
			return 0, apperr.Validation("items", "line %d: product_id is required", i+1)
		}
		if it.Quantity <= 0 {
			return 0, apperr.Validation("items", "line %d: quantity must be positive, got %d", i+1, it.Quantity)
		}
		if it.UnitPrice.IsNegative() || it.Subtotal.IsNegative() {
			return 0, apperr.Validation("items", "line %d: prices cannot be negative", i+1)
		}
		if want := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2); !it.Subtotal.Round(2).Equal(want) {
			return 0, apperr.Validation("items", "line %d: subtotal %s is not unit price x quantity (%s)", i+1, it.Subtotal.StringFixed(2), want.StringFixed(2))
		}
		subtotals = append(subtotals, it.Subtotal)
	}
	totals, err := computeTotals(subtotals, req.Discount, req.PaidAmount)
	if err != nil {
		return 0, err
	}

	var saleID uint
	err = s.runTx(ctx, func(tx *gorm.DB) error {
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
		}
		if err := tx.Create(&sale).Error; err != nil {
			return apperr.Storage("insert sale", err)
		}

		for _, it := range req.Items {
			product, err := findProduct(tx, it.ProductID)
			if err != nil {
				return err
			}
			if err := takeStock(tx, product, it.Quantity); err != nil {
				return err
			}
			line := models.SaleItem{
				SaleID:      sale.ID,
				ProductID:   product.ID,
				ProductName: it.ProductName,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				CostPrice:   product.CostPrice,
				Profit:      lineProfit(it.UnitPrice, product.CostPrice, it.Quantity),
				Subtotal:    it.Subtotal,
				SaleDate:    date,
			}
			if strings.TrimSpace(line.ProductName) == "" {
				line.ProductName = product.Name
			}
			if err := tx.Create(&line).Error; err != nil {
				return apperr.Storage("insert sale item", err)
			}
		}

		if err := upsertCustomer(tx, name, phone, totals.final, date, false); err != nil {
			return err
		}
		saleID = sale.ID
		return nil
	})
	if err != nil {
		logWrite("record sale")(err)
		return 0, err
	}

	s.invalidateStats(ctx)
	log.Info().
		Uint("sale_id", saleID).
		Str("customer", name).
		Int("lines", len(req.Items)).
		Str("final", totals.final.StringFixed(2)).
		Str("due", totals.due.StringFixed(2)).
		Msg("sale recorded")
	return saleID, nil
}

func lineProfit(unitPrice, cost decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Sub(cost).Mul(decimal.NewFromInt(int64(qty)))
}

func findProduct(tx *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	if err := tx.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product", id)
		}
		return nil, apperr.Storage("load product", err)
	}
	return &p, nil
}

// takeStock decrements on-hand stock only if enough remains. The check and the
// write are one statement, so two postings can never both take the last units.
func takeStock(tx *gorm.DB, p *models.Product, qty int) error {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND current_stock >= ?", p.ID, qty).
		UpdateColumn("current_stock", gorm.Expr("current_stock - ?", qty))
	if res.Error != nil {
		return apperr.Storage("decrement stock", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var available int
	if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Select("current_stock").Scan(&available).Error; err != nil {
		return apperr.Storage("reload stock", err)
	}
	return &apperr.InsufficientStockError{
		ProductID: p.ID,
		Product:   p.Name,
		Requested: qty,
		Available: available,
	}
}

// upsertCustomer folds one sale into the customer's running totals, creating the
// customer on first purchase. Names match case-insensitively after trimming.
// A live sale overwrites phone and last purchase date. A backfilled one keeps
// the stored phone when it has none and never moves the date backwards.
func upsertCustomer(tx *gorm.DB, name, phone string, amount decimal.Decimal, date string, backfill bool) error {
	c := models.Customer{
		Name:             name,
		NameKey:          models.NameKey(name),
		Phone:            phone,
		TotalPurchases:   amount,
		PurchaseCount:    1,
		LastPurchaseDate: date,
	}
	updates := map[string]any{
		"total_purchases": gorm.Expr("customers.total_purchases + ?", amount),
		"purchase_count":  gorm.Expr("customers.purchase_count + 1"),
		"updated_at":      gorm.Expr("CURRENT_TIMESTAMP"),
	}
	if backfill {
		updates["last_purchase_date"] = gorm.Expr(
			"CASE WHEN customers.last_purchase_date IS NULL OR customers.last_purchase_date < ? THEN ? ELSE customers.last_purchase_date END",
			date, date)
		if phone != "" {
			updates["phone"] = phone
		}
	} else {
		updates["phone"] = phone
		updates["last_purchase_date"] = date
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name_key"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&c).Error
	if err != nil {
		return apperr.Storage("upsert customer", err)
	}
	return nil
}
