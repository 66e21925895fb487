package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"go-dokan-pos/internal/auth"
	"go-dokan-pos/internal/cache"
	"go-dokan-pos/internal/cashflow"
	"go-dokan-pos/internal/database"
	"go-dokan-pos/internal/forecast"
	"go-dokan-pos/internal/ledger"
	"go-dokan-pos/internal/middleware"
	"go-dokan-pos/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *auth.Manager
	admin  string
	staff  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dsn := "file:" + unsafeChars.ReplaceAllString(t.Name(), "_") + "?mode=memory&cache=shared"
	db, err := database.Connect(database.DriverSQLite, dsn, database.Options{Attempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clock := func() time.Time { return fixedNow }
	mem := cache.NewMemory()
	tokens := auth.NewManager("test-secret", time.Hour)
	h := New(Deps{
		DB:        db,
		Cache:     mem,
		Tokens:    tokens,
		Ledger:    ledger.NewService(db, ledger.WithCache(mem), ledger.WithClock(clock)),
		Cashflow:  cashflow.NewService(db, cashflow.WithClock(clock)),
		Forecast:  forecast.NewService(db, forecast.WithClock(clock)),
		ShopName:  "Test Dokan",
		BackupDir: t.TempDir(),
		Clock:     clock,
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery())
	h.Routes(r, true)

	admin, err := tokens.GenerateToken(1, "owner", auth.RoleAdmin)
	require.NoError(t, err)
	staff, err := tokens.GenerateToken(2, "rina", auth.RoleStaff)
	require.NoError(t, err)
	return &testServer{router: r, db: db, tokens: tokens, admin: admin, staff: staff}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) seedProduct(t *testing.T, name string, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:         name,
		Category:     "Grocery",
		CostPrice:    decimal.NewFromInt(50),
		SellingPrice: decimal.NewFromInt(60),
		CurrentStock: stock,
		ReorderPoint: 5,
		Unit:         "kg",
	}
	require.NoError(t, s.db.Create(&p).Error)
	return p
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	creds := gin.H{"username": "owner", "password": "secret123"}

	w := s.do(http.MethodPost, "/register", "", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, auth.RoleAdmin, decode[map[string]string](t, w)["role"])

	w = s.do(http.MethodPost, "/register", "", gin.H{"username": "rina", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, auth.RoleStaff, decode[map[string]string](t, w)["role"])

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/register", "", creds).Code)

	w = s.do(http.MethodPost, "/register", "", gin.H{"username": "x", "password": "123"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w).Fields
	assert.Equal(t, "min", fields["Password"])

	w = s.do(http.MethodPost, "/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[map[string]string](t, w)
	assert.Equal(t, auth.RoleAdmin, login["role"])
	claims, err := s.tokens.ValidateToken(login["token"])
	require.NoError(t, err)
	assert.Equal(t, "owner", claims.Username)

	w = s.do(http.MethodPost, "/login", "", gin.H{"username": "owner", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	p := s.seedProduct(t, "Rice", 10)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/products", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/products", s.staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/products/1", s.staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/system/reset", s.staff, nil).Code)

	w := s.do(http.MethodGet, "/api/products/abc", s.staff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/products/999", s.staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[map[string]any](t, w)["kind"])

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/products/1", s.admin, nil).Code)
	var n int64
	require.NoError(t, s.db.Model(&models.Product{}).Where("id = ?", p.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpsertProduct(t *testing.T) {
	s := newTestServer(t)
	body := gin.H{"name": "Sugar", "category": "Grocery", "cost_price": "80", "selling_price": "95", "current_stock": 10, "unit": "kg"}

	w := s.do(http.MethodPost, "/api/products", s.staff, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[ledger.UpsertResult](t, w)
	assert.True(t, created.Created)

	body["name"] = "  sugar "
	body["current_stock"] = 5
	w = s.do(http.MethodPost, "/api/products", s.staff, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	restocked := decode[ledger.UpsertResult](t, w)
	assert.False(t, restocked.Created)
	assert.Equal(t, created.ProductID, restocked.ProductID)

	var p models.Product
	require.NoError(t, s.db.First(&p, created.ProductID).Error)
	assert.Equal(t, 15, p.CurrentStock)

	w = s.do(http.MethodPost, "/api/products", s.staff, gin.H{"category": "Grocery"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaleLifecycle(t *testing.T) {
	s := newTestServer(t)
	rice := s.seedProduct(t, "Rice", 15)

	cart := func(qty int, paid string) gin.H {
		return gin.H{
			"customer_name":  "Karim",
			"customer_phone": "01711000000",
			"paid_amount":    paid,
			"items": []gin.H{{
				"product_id": rice.ID,
				"quantity":   qty,
				"unit_price": "60",
				"subtotal":   decimal.NewFromInt(int64(60 * qty)).String(),
			}},
		}
	}

	w := s.do(http.MethodPost, "/api/sales", s.staff, cart(3, "100"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saleID := uint(decode[map[string]any](t, w)["sale_id"].(float64))

	w = s.do(http.MethodPost, "/api/sales", s.staff, cart(20, "0"))
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	short := decode[map[string]any](t, w)
	assert.Equal(t, "insufficient_stock", short["kind"])
	assert.EqualValues(t, 12, short["available"])
	assert.EqualValues(t, 8, short["shortfall"])

	w = s.do(http.MethodGet, "/api/sales/"+itoa(saleID), s.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sale := decode[models.Sale](t, w)
	assert.Equal(t, models.StatusDue, sale.PaymentStatus)
	assert.True(t, decimal.NewFromInt(80).Equal(sale.DueAmount))
	require.Len(t, sale.Items, 1)

	w = s.do(http.MethodPost, "/api/sales/"+itoa(saleID)+"/pay", s.staff, gin.H{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/sales/"+itoa(saleID)+"/pay", s.staff, gin.H{"amount": "80"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode[struct {
		DueAmount decimal.Decimal `json:"due_amount"`
		Settled   bool            `json:"settled"`
	}](t, w)
	assert.True(t, paid.DueAmount.IsZero())
	assert.True(t, paid.Settled)

	w = s.do(http.MethodGet, "/api/sales/"+itoa(saleID)+"/receipt.pdf", s.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = s.do(http.MethodGet, "/api/customers/by-phone/0171", s.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Karim", decode[models.Customer](t, w).Name)

	w = s.do(http.MethodGet, "/api/customers/by-phone/01", s.staff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/reports/stats", s.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[ledger.Stats](t, w)
	assert.EqualValues(t, 1, stats.TotalSales)
	assert.True(t, stats.TotalDue.IsZero())
}

func TestReportsAndExports(t *testing.T) {
	s := newTestServer(t)
	s.seedProduct(t, "Rice", 10)

	w := s.do(http.MethodGet, "/api/reports/valuation", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[ledger.Valuation](t, w)
	assert.True(t, decimal.NewFromInt(500).Equal(v.GrandTotal))

	w = s.do(http.MethodGet, "/api/reports/valuation.xlsx", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxType, w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = s.do(http.MethodGet, "/api/reports/sales?from=2025-03-10&to=2025-03-01", s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/forecast/training.csv", s.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-Row-Count"))
}

func TestCashflowEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/cashflow/transactions", s.staff, gin.H{"type": "IN", "amount": "1000", "category": "Capital"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/cashflow/transactions", s.staff, gin.H{"type": "SIDEWAYS", "amount": "5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/cashflow/overview", s.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	o := decode[cashflow.Overview](t, w)
	assert.True(t, decimal.NewFromInt(1000).Equal(o.CashBalance))

	w = s.do(http.MethodGet, "/api/cashflow/transactions?type=BOGUS", s.staff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnconfiguredServices(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/ask", s.admin, gin.H{"message": "how is business?"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(http.MethodPost, "/api/cashflow/advice", s.admin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(http.MethodPost, "/api/forecast/run", s.admin, gin.H{"product_ids": []uint{1}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthResetAndBackup(t *testing.T) {
	s := newTestServer(t)
	s.seedProduct(t, "Rice", 10)

	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["database"])

	w = s.do(http.MethodPost, "/api/system/backup", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.FileExists(t, decode[map[string]string](t, w)["path"])

	w = s.do(http.MethodPost, "/api/system/reset", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var n int64
	require.NoError(t, s.db.Model(&models.Product{}).Count(&n).Error)
	assert.Zero(t, n)
}

func itoa(id uint) string {
	return decimal.NewFromInt(int64(id)).String()
}
