package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var productImportColumns = []string{"name", "cost_price", "selling_price"}

func normalizeProduct(in ProductInput) (ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, apperr.Validation("name", "product name cannot be empty")
	}
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = "Uncategorized"
	}
	in.Unit = strings.TrimSpace(in.Unit)
	if in.Unit == "" {
		in.Unit = "unit"
	}
	if in.CostPrice.IsNegative() || in.SellingPrice.IsNegative() {
		return in, apperr.Validation("price", "prices cannot be negative")
	}
	if in.StockDelta < 0 || in.ReorderPoint < 0 {
		return in, apperr.Validation("stock", "stock values cannot be negative")
	}
	return in, nil
}

// UpsertProduct creates a product, or restocks the existing one with the same
// name (case-insensitive). A restock adds to on-hand stock and replaces the
// category, prices, reorder point and unit.
func (s *Service) UpsertProduct(ctx context.Context, in ProductInput) (UpsertResult, error) {
	in, err := normalizeProduct(in)
	if err != nil {
		return UpsertResult{}, err
	}

	var res UpsertResult
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		var existing models.Product
		err := tx.Where("name_key = ?", models.NameKey(in.Name)).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			p := models.Product{
				Name:         in.Name,
				Category:     in.Category,
				CostPrice:    in.CostPrice,
				SellingPrice: in.SellingPrice,
				CurrentStock: in.StockDelta,
				ReorderPoint: in.ReorderPoint,
				Unit:         in.Unit,
			}
			if err := tx.Create(&p).Error; err != nil {
				return apperr.Storage("insert product", err)
			}
			res = UpsertResult{ProductID: p.ID, Created: true, Message: "New product added: " + p.Name}
			return nil
		case err != nil:
			return apperr.Storage("load product", err)
		}

		err = tx.Model(&models.Product{}).Where("id = ?", existing.ID).UpdateColumns(map[string]any{
			"current_stock": gorm.Expr("current_stock + ?", in.StockDelta),
			"category":      in.Category,
			"cost_price":    in.CostPrice,
			"selling_price": in.SellingPrice,
			"reorder_point": in.ReorderPoint,
			"unit":          in.Unit,
			"updated_at":    s.now(),
		}).Error
		if err != nil {
			return apperr.Storage("restock product", err)
		}

		var stock int
		if err := tx.Model(&models.Product{}).Where("id = ?", existing.ID).Select("current_stock").Scan(&stock).Error; err != nil {
			return apperr.Storage("reload stock", err)
		}
		res = UpsertResult{
			ProductID: existing.ID,
			Message:   fmt.Sprintf("Restocked: %d + %d = %d %s", stock-in.StockDelta, in.StockDelta, stock, in.Unit),
		}
		return nil
	})
	if err != nil {
		logWrite("upsert product")(err)
		return UpsertResult{}, err
	}

	s.invalidateStats(ctx)
	log.Info().Uint("product_id", res.ProductID).Bool("created", res.Created).Msg(res.Message)
	return res, nil
}

// ImportProducts upserts every row of a product list upload. Repeated names
// inside one file keep the first row; later ones are skipped.
func (s *Service) ImportProducts(ctx context.Context, filename string, r io.Reader) (*ProductImportResult, error) {
	t, err := readTable(filename, r)
	if err != nil {
		return nil, err
	}
	if err := t.require(productImportColumns...); err != nil {
		return nil, err
	}

	res := &ProductImportResult{Errors: []RowError{}}
	seen := make(map[string]bool)
	for i, row := range t.rows {
		line := i + 2
		if blank(row) {
			continue
		}
		key := models.NameKey(t.get(row, "name"))
		if key != "" && seen[key] {
			res.Skipped++
			continue
		}
		seen[key] = true

		in, err := parseProductRow(t, row)
		if err != nil {
			res.fail(line, err.Error())
			continue
		}
		out, err := s.UpsertProduct(ctx, in)
		if err != nil {
			res.fail(line, err.Error())
			continue
		}
		if out.Created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

func parseProductRow(t *table, row []string) (ProductInput, error) {
	cost, err := parseMoney(t.get(row, "cost_price"), "cost_price", false)
	if err != nil {
		return ProductInput{}, err
	}
	sell, err := parseMoney(t.get(row, "selling_price"), "selling_price", false)
	if err != nil {
		return ProductInput{}, err
	}
	stock, err := parseCount(t.get(row, "current_stock"), "current_stock", 0)
	if err != nil {
		return ProductInput{}, err
	}
	reorder, err := parseCount(t.get(row, "reorder_point"), "reorder_point", 10)
	if err != nil {
		return ProductInput{}, err
	}
	return ProductInput{
		Name:         t.get(row, "name"),
		Category:     t.get(row, "category"),
		CostPrice:    cost,
		SellingPrice: sell,
		StockDelta:   stock,
		ReorderPoint: reorder,
		Unit:         t.get(row, "unit"),
	}, nil
}

func parseCount(raw, field string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// spreadsheets hand back whole numbers as "12.0"
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, apperr.Validation(field, "not a whole number: %q", raw)
		}
		n = int(f)
	}
	return n, nil
}

// DeleteProduct removes a product that has never been sold.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	if _, err := findProduct(db, id); err != nil {
		return err
	}
	var lines int64
	if err := db.Model(&models.SaleItem{}).Where("product_id = ?", id).Count(&lines).Error; err != nil {
		return apperr.Storage("count sale items", err)
	}
	if lines > 0 {
		return apperr.Validation("product_id", "product %d appears on %d sale lines and cannot be deleted", id, lines)
	}
	if err := db.Delete(&models.Product{}, id).Error; err != nil {
		return apperr.Storage("delete product", err)
	}
	s.invalidateStats(ctx)
	return nil
}
