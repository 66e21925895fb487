package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/forecast"

	"github.com/gin-gonic/gin"
)

// --- GET: /api/forecast/training.csv?days=365 ---
// Sale lines with calendar features, for training the demand model.
func (h *Handler) ExportTrainingData(c *gin.Context) {
	var buf bytes.Buffer
	n, err := h.Forecast.ExportTrainingCSV(c.Request.Context(), &buf, intQuery(c, "days", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="training_data.csv"`)
	c.Header("X-Row-Count", fmt.Sprint(n))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

type ForecastRequest struct {
	ProductIDs []uint `json:"product_ids" binding:"required,min=1,dive,gt=0"`
	Context    string `json:"context" binding:"max=4000"`
}

// --- POST: /api/forecast/input.csv ---
// The prediction grid for the next week, without running the pipeline.
func (h *Handler) ForecastInput(c *gin.Context) {
	var req ForecastRequest
	if !bindAndValidate(c, &req) {
		return
	}
	var buf bytes.Buffer
	if _, err := h.Forecast.WriteForecastInput(c.Request.Context(), &buf, req.ProductIDs, h.now(), intQuery(c, "horizon", 7)); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+forecast.InputFile+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// --- POST: /api/forecast/run ---
// Runs the external pipeline and stores its forecasts. Slow; one run at a time.
func (h *Handler) RunForecast(c *gin.Context) {
	if h.Runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Forecast pipeline is not configured"})
		return
	}
	var req ForecastRequest
	if !bindAndValidate(c, &req) {
		return
	}

	res, err := h.Runner.Run(c.Request.Context(), req.ProductIDs, req.Context)
	if err != nil {
		var se *forecast.StepError
		if errors.As(err, &se) {
			c.JSON(http.StatusBadGateway, gin.H{"error": se.Error(), "step": se.Step})
			return
		}
		if apperr.Kind(err) == "" {
			// unreadable pipeline output or a data dir problem
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- GET: /api/forecast ---
func (h *Handler) GetForecasts(c *gin.Context) {
	list, err := h.Forecast.LatestForecasts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
