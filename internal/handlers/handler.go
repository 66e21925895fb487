// Package handlers exposes the ledger, cashflow, forecast and report services over HTTP.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/auth"
	"go-dokan-pos/internal/cache"
	"go-dokan-pos/internal/cashflow"
	"go-dokan-pos/internal/forecast"
	"go-dokan-pos/internal/ledger"
	"go-dokan-pos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// decimal.Decimal validates as its float value so gt/min tags work on money fields.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	}
}

// Asker answers free-form questions about the shop.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Deps are the services the handlers call into.
type Deps struct {
	DB        *gorm.DB
	Cache     cache.Cache
	Tokens    *auth.Manager
	Ledger    *ledger.Service
	Cashflow  *cashflow.Service
	Forecast  *forecast.Service
	Runner    *forecast.Runner
	Agent     Asker
	ShopName  string
	BackupDir string
	Clock     func() time.Time
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.ShopName == "" {
		d.ShopName = "Dokan"
	}
	if d.BackupDir == "" {
		d.BackupDir = "backups"
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &Handler{Deps: d}
}

func (h *Handler) now() time.Time { return h.Clock() }

// bindAndValidate binds the JSON body and runs the binding tags.
// On failure it has already written the 400 and the caller just returns.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
	return false
}

// respondError maps a service error onto its status. Storage failures are
// logged and reported without internals.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := gin.H{"error": err.Error(), "kind": apperr.Kind(err)}

	var ie *apperr.InsufficientStockError
	if errors.As(err, &ie) {
		body["product_id"] = ie.ProductID
		body["requested"] = ie.Requested
		body["available"] = ie.Available
		body["shortfall"] = ie.Shortfall()
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
		body = gin.H{"error": "internal server error", "kind": "storage"}
	}
	c.JSON(status, body)
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// intQuery reads an optional integer query parameter.
func intQuery(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil {
		return v
	}
	return def
}
