package ledger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestUpsertProduct_CreateThenRestock(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	first, err := s.UpsertProduct(ctx, ProductInput{Name: " Rice ", CostPrice: dec("50"), SellingPrice: dec("60"), StockDelta: 0})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "New product added: Rice", first.Message)

	var p models.Product
	require.NoError(t, db.First(&p, first.ProductID).Error)
	assert.Equal(t, "Uncategorized", p.Category)
	assert.Equal(t, "unit", p.Unit)
	assert.Equal(t, 0, p.CurrentStock)

	second, err := s.UpsertProduct(ctx, ProductInput{Name: "rice", Category: "Grocery", CostPrice: dec("55"),
		SellingPrice: dec("65"), StockDelta: 10, ReorderPoint: 4, Unit: "kg"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ProductID, second.ProductID)
	assert.Equal(t, "Restocked: 0 + 10 = 10 kg", second.Message)

	third, err := s.UpsertProduct(ctx, ProductInput{Name: "RICE", Category: "Grocery", CostPrice: dec("55"),
		SellingPrice: dec("65"), StockDelta: 10, ReorderPoint: 4, Unit: "kg"})
	require.NoError(t, err)
	assert.Equal(t, "Restocked: 10 + 10 = 20 kg", third.Message)

	require.NoError(t, db.First(&p, first.ProductID).Error)
	assert.Equal(t, 20, p.CurrentStock)
	assert.Equal(t, "Rice", p.Name)
	assert.Equal(t, "Grocery", p.Category)
	assertMoney(t, "55", p.CostPrice)
	assertMoney(t, "65", p.SellingPrice)
	assert.Equal(t, 4, p.ReorderPoint)
	assert.EqualValues(t, 1, count(t, db, &models.Product{}))
}

func TestUpsertProduct_Validation(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	for name, in := range map[string]ProductInput{
		"blank name":     {Name: "  "},
		"negative cost":  {Name: "X", CostPrice: dec("-1")},
		"negative price": {Name: "X", SellingPrice: dec("-1")},
		"negative stock": {Name: "X", StockDelta: -3},
		"negative point": {Name: "X", ReorderPoint: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.UpsertProduct(ctx, in)
			assert.Equal(t, "validation", apperr.Kind(err))
		})
	}
	assert.Zero(t, count(t, db, &models.Product{}))
}

func TestImportProducts_CSV(t *testing.T) {
	s, db := newTestService(t)
	seedProduct(t, db, "Oil", "150", "180", 2)

	csv := strings.Join([]string{
		"Name,Category,Cost_Price,Selling_Price,Current_Stock,Reorder_Point,Unit",
		"Sugar,Grocery,90,110,20,5,kg",
		"oil,Grocery,155,185,10,3,ltr",
		"SUGAR,Grocery,1,1,99,1,kg",
		"Broken,Grocery,abc,10,1,1,pcs",
		"",
	}, "\n")

	res, err := s.ImportProducts(context.Background(), "products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 5, res.Errors[0].Line)

	var sugar models.Product
	require.NoError(t, db.Where("name_key = ?", "sugar").First(&sugar).Error)
	assert.Equal(t, 20, sugar.CurrentStock)

	var oil models.Product
	require.NoError(t, db.Where("name_key = ?", "oil").First(&oil).Error)
	assert.Equal(t, 12, oil.CurrentStock)
	assert.Equal(t, "ltr", oil.Unit)
}

func TestImportProducts_XLSX(t *testing.T) {
	s, db := newTestService(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"name", "category", "cost_price", "selling_price", "current_stock", "reorder_point", "unit"},
		{"Biscuit", "Snacks", 20, 25, 48, 12, "pack"},
		{"Chips", "Snacks", 15, 20, 30, "", "pack"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	res, err := s.ImportProducts(context.Background(), "stock.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Zero(t, res.Failed)

	var chips models.Product
	require.NoError(t, db.Where("name_key = ?", "chips").First(&chips).Error)
	assert.Equal(t, 30, chips.CurrentStock)
	assert.Equal(t, 10, chips.ReorderPoint)
}

func TestImportProducts_RejectsUnknownFormat(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.ImportProducts(context.Background(), "stock.pdf", strings.NewReader("x"))
	assert.Equal(t, "validation", apperr.Kind(err))

	_, err = s.ImportProducts(context.Background(), "stock.csv", strings.NewReader("title,price\nx,1\n"))
	assert.ErrorContains(t, err, "missing required columns")
}

func TestDeleteProduct(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	sold := seedProduct(t, db, "Sold", "1", "2", 5)
	unsold := seedProduct(t, db, "Unsold", "1", "2", 5)
	recordOK(t, s, SaleRequest{CustomerName: "Karim", Items: []CartItem{line(sold, 1)}})

	assert.Equal(t, "validation", apperr.Kind(s.DeleteProduct(ctx, sold.ID)))
	require.NoError(t, s.DeleteProduct(ctx, unsold.ID))
	assert.Equal(t, "not_found", apperr.Kind(s.DeleteProduct(ctx, unsold.ID)))
}
