package forecast

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// File names exchanged with the pipeline inside the data directory.
const (
	InputFile           = "predict_input.csv"
	ContextFile         = "external_context.txt"
	OutputFile          = "forecast_output.csv"
	RecommendationsFile = "ai_recommendations.json"
)

// Recommendations is the advisor step's output.
type Recommendations struct {
	Summary  string `json:"summary"`
	Products []struct {
		ProductID json.Number `json:"product_id"`
		Advice    string      `json:"advice"`
	} `json:"products"`
}

// IngestResult reports what a pipeline run stored.
type IngestResult struct {
	Saved     int                      `json:"saved"`
	Summary   string                   `json:"summary"`
	Forecasts []models.ProductForecast `json:"forecasts"`
}

// readWeeklyQty sums forecast_qty per product_id.
func readWeeklyQty(r io.Reader) (map[uint]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("forecast output: %w", err)
	}
	idCol, qtyCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "product_id":
			idCol = i
		case "forecast_qty":
			qtyCol = i
		}
	}
	if idCol < 0 || qtyCol < 0 {
		return nil, errors.New("forecast output: product_id and forecast_qty columns are required")
	}

	qty := map[uint]float64{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("forecast output: %w", err)
		}
		if idCol >= len(rec) || qtyCol >= len(rec) {
			continue
		}
		id, err := strconv.ParseFloat(strings.TrimSpace(rec[idCol]), 64)
		if err != nil || id <= 0 {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(rec[qtyCol]), 64)
		if err != nil {
			continue
		}
		qty[uint(id)] += q
	}
	return qty, nil
}

// Ingest reads the pipeline outputs from dir and stores one forecast per
// product: the weekly quantity, expected profit at current prices, and the
// shortfall against current stock. Ledger tables are only read.
func (s *Service) Ingest(ctx context.Context, dir string) (*IngestResult, error) {
	f, err := os.Open(filepath.Join(dir, OutputFile))
	if err != nil {
		return nil, fmt.Errorf("forecast output: %w", err)
	}
	weekly, err := readWeeklyQty(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	var recs Recommendations
	if b, err := os.ReadFile(filepath.Join(dir, RecommendationsFile)); err == nil {
		if err := json.Unmarshal(b, &recs); err != nil {
			return nil, fmt.Errorf("ai recommendations: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	advice := map[uint]string{}
	for _, p := range recs.Products {
		if id, err := p.ProductID.Int64(); err == nil && id > 0 {
			advice[uint(id)] = p.Advice
		}
	}

	ids := make([]uint, 0, len(weekly))
	for id := range weekly {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	res := &IngestResult{Summary: recs.Summary}
	if len(ids) == 0 {
		return res, nil
	}

	today := s.now().Format(models.DateLayout)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var products []models.Product
		if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return apperr.Storage("load forecast products", err)
		}
		byID := make(map[uint]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		for _, id := range ids {
			p, ok := byID[id]
			if !ok {
				log.Warn().Uint("product_id", id).Msg("forecast for unknown product skipped")
				continue
			}
			qty := int(math.Round(weekly[id]))
			if qty < 0 {
				qty = 0
			}
			fc := models.ProductForecast{
				ProductID:      p.ID,
				ProductName:    p.Name,
				ForecastDate:   today,
				ForecastQty:    qty,
				ExpectedProfit: p.SellingPrice.Sub(p.CostPrice).Mul(decimal.NewFromInt(int64(qty))).Round(2),
				ReorderNeeded:  max(0, qty-p.CurrentStock),
				AIAdvice:       advice[id],
			}
			if err := tx.Create(&fc).Error; err != nil {
				return apperr.Storage("insert forecast", err)
			}
			res.Forecasts = append(res.Forecasts, fc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Saved = len(res.Forecasts)
	return res, nil
}

// LatestForecasts returns the newest stored forecast of each product.
func (s *Service) LatestForecasts(ctx context.Context) ([]models.ProductForecast, error) {
	var all []models.ProductForecast
	if err := s.db.WithContext(ctx).Order("forecast_date DESC, id DESC").Find(&all).Error; err != nil {
		return nil, apperr.Storage("list forecasts", err)
	}
	seen := map[uint]bool{}
	latest := make([]models.ProductForecast, 0, len(all))
	for _, fc := range all {
		if seen[fc.ProductID] {
			continue
		}
		seen[fc.ProductID] = true
		latest = append(latest, fc)
	}
	sort.Slice(latest, func(i, j int) bool { return latest[i].ProductID < latest[j].ProductID })
	return latest, nil
}
