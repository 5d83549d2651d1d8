package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	appinvoice "github.com/invoicing/backend/internal/application/invoice"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

const (
	testUserKey  = "user-key"
	testAdminKey = "admin-key"
)

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type invoiceAPI struct {
	t      *testing.T
	engine *gin.Engine
}

func newInvoiceAPI(t *testing.T) *invoiceAPI {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, persistence.AutoMigrate(db))

	seq := 0
	svc := appinvoice.NewService(persistence.NewGormInvoiceRepository(db),
		appinvoice.WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }),
		appinvoice.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("inv-%d", seq)
		}),
	)
	h := NewInvoiceHandler(svc)
	auth := middleware.APIKeyAuth(config.AuthConfig{UserAPIKey: testUserKey, AdminAPIKey: testAdminKey})

	engine := gin.New()
	engine.Use(middleware.RequestID())
	me := engine.Group("/invoices/me", auth, middleware.RequireRole(middleware.RoleUser), middleware.RequireSubject())
	me.GET("", h.ListMine)
	me.GET("/:id", h.GetMine)
	me.POST("/:id/pay", h.PayMine)
	admin := engine.Group("/admin", auth, middleware.RequireRole(middleware.RoleAdmin))
	admin.GET("/invoices", h.ListAll)
	admin.POST("/invoices", h.Create)
	admin.GET("/invoices/:id", h.Get)
	admin.PUT("/invoices/:id", h.Update)
	admin.DELETE("/invoices/:id", h.HardDelete)
	admin.POST("/invoices/:id/soft-delete", h.SoftDelete)
	admin.POST("/invoices/:id/pay", h.Pay)
	admin.GET("/users/:userId/invoices", h.ListForUser)

	return &invoiceAPI{t: t, engine: engine}
}

func (a *invoiceAPI) do(method, path, key, subject string, body any) (int, testResponse) {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(middleware.APIKeyHeader, key)
	}
	if subject != "" {
		req.Header.Set(middleware.SubjectHeader, subject)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var resp testResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (a *invoiceAPI) admin(method, path string, body any) (int, testResponse) {
	return a.do(method, path, testAdminKey, "", body)
}

func decodeInvoice(t *testing.T, resp testResponse) appinvoice.InvoiceResponse {
	t.Helper()
	var inv appinvoice.InvoiceResponse
	require.NoError(t, json.Unmarshal(resp.Data, &inv))
	return inv
}

func createBody(userID, bookingID string) map[string]any {
	return map[string]any{
		"user_id":             userID,
		"booking_id":          bookingID,
		"event_id":            "event-1",
		"user_name":           "Ada Lovelace",
		"user_email":          "ada@example.com",
		"event_name":          "Concert",
		"event_owner_name":    "Venue",
		"event_owner_email":   "venue@example.com",
		"event_owner_address": "1 Main St",
		"event_owner_phone":   "555-0100",
		"items": []map[string]any{
			{"category": "VIP", "price": 200, "quantity": 2},
			{"category": "Standard", "price": "50.5", "quantity": 2},
		},
	}
}

func updateBody(userID, bookingID string) map[string]any {
	body := createBody(userID, bookingID)
	body["items"] = []map[string]any{{"category": "VIP", "price": 100, "quantity": 1}}
	body["adjusted_by"] = "finance-team"
	body["adjustment_reason"] = "Price correction"
	return body
}

func TestInvoiceHandler_CreateAndGet(t *testing.T) {
	api := newInvoiceAPI(t)

	code, resp := api.admin(http.MethodPost, "/admin/invoices", createBody("user-1", "booking-1"))
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Invoice created.", resp.Message)

	created := decodeInvoice(t, resp)
	assert.Equal(t, "inv-1", created.ID)
	assert.Equal(t, "501.00", created.Subtotal.String())
	assert.Equal(t, "125.25", created.Tax.String())
	assert.Equal(t, "5.00", created.Fee.String())
	assert.Equal(t, "631.25", created.Total.String())

	code, resp = api.admin(http.MethodGet, "/admin/invoices/inv-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "booking-1", decodeInvoice(t, resp).BookingID)
}

func TestInvoiceHandler_CreateWithOverrides(t *testing.T) {
	api := newInvoiceAPI(t)
	body := createBody("user-1", "booking-1")
	body["custom_fee"] = 0
	body["custom_tax_rate"] = "0.1"

	code, resp := api.admin(http.MethodPost, "/admin/invoices", body)
	require.Equal(t, http.StatusCreated, code)
	inv := decodeInvoice(t, resp)
	assert.Equal(t, "0.00", inv.Fee.String())
	assert.Equal(t, "50.10", inv.Tax.String())
	assert.Equal(t, "551.10", inv.Total.String())
}

func TestInvoiceHandler_CreateDuplicateBooking(t *testing.T) {
	api := newInvoiceAPI(t)
	code, _ := api.admin(http.MethodPost, "/admin/invoices", createBody("user-1", "booking-1"))
	require.Equal(t, http.StatusCreated, code)

	code, resp := api.admin(http.MethodPost, "/admin/invoices", createBody("user-2", "booking-1"))
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeConflict, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "booking-1")
	assert.NotEmpty(t, resp.Error.RequestID)
}

func TestInvoiceHandler_CreateValidation(t *testing.T) {
	api := newInvoiceAPI(t)

	t.Run("missing fields", func(t *testing.T) {
		body := createBody("user-1", "booking-1")
		delete(body, "user_email")
		body["items"] = []map[string]any{{"category": "VIP", "price": -1, "quantity": 0}}

		code, resp := api.admin(http.MethodPost, "/admin/invoices", body)
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

		for _, want := range []string{"user_email", "items[0].price", "items[0].quantity"} {
			assert.True(t, hasFieldSuffix(resp.Error.Details, want), "missing detail for %s", want)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		code, resp := api.admin(http.MethodPost, "/admin/invoices", "{not json")
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	})
}

func hasFieldSuffix(details []dto.ValidationDetail, suffix string) bool {
	for _, d := range details {
		if strings.HasSuffix(d.Field, "."+suffix) {
			return true
		}
	}
	return false
}

func TestInvoiceHandler_Update(t *testing.T) {
	api := newInvoiceAPI(t)
	code, _ := api.admin(http.MethodPost, "/admin/invoices", createBody("user-1", "booking-1"))
	require.Equal(t, http.StatusCreated, code)

	t.Run("identity mismatch leaves invoice unchanged", func(t *testing.T) {
		code, resp := api.admin(http.MethodPut, "/admin/invoices/inv-1", updateBody("user-1", "booking-other"))
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeIdentityMismatch, resp.Error.Code)

		_, got := api.admin(http.MethodGet, "/admin/invoices/inv-1", nil)
		assert.Equal(t, "631.25", decodeInvoice(t, got).Total.String())
	})

	t.Run("applies adjustment", func(t *testing.T) {
		code, resp := api.admin(http.MethodPut, "/admin/invoices/inv-1", updateBody("user-1", "booking-1"))
		require.Equal(t, http.StatusOK, code)
		inv := decodeInvoice(t, resp)
		assert.Equal(t, "130.00", inv.Total.String())
		assert.True(t, inv.ManuallyAdjusted)
		assert.Equal(t, "finance-team", inv.AdjustedBy)
	})

	t.Run("not found", func(t *testing.T) {
		code, resp := api.admin(http.MethodPut, "/admin/invoices/missing", updateBody("user-1", "booking-1"))
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("empty items rejected", func(t *testing.T) {
		body := updateBody("user-1", "booking-1")
		body["items"] = []map[string]any{}
		code, resp := api.admin(http.MethodPut, "/admin/invoices/inv-1", body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})
}

func TestInvoiceHandler_SelfService(t *testing.T) {
	api := newInvoiceAPI(t)
	code, _ := api.admin(http.MethodPost, "/admin/invoices", createBody("user-1", "booking-1"))
	require.Equal(t, http.StatusCreated, code)
	code, _ = api.admin(http.MethodPost, "/admin/invoices", createBody("user-2", "booking-2"))
	require.Equal(t, http.StatusCreated, code)

	code, resp := api.do(http.MethodGet, "/invoices/me", testUserKey, "user-1", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Total)

	code, resp = api.do(http.MethodGet, "/invoices/me/inv-2", testUserKey, "user-1", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, dto.ErrCodeForbidden, resp.Error.Code)

	code, _ = api.do(http.MethodPost, "/invoices/me/inv-2/pay", testUserKey, "user-1", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = api.do(http.MethodPost, "/invoices/me/inv-1/pay", testUserKey, "user-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decodeInvoice(t, resp).InvoicePaid)

	code, resp = api.do(http.MethodPost, "/invoices/me/inv-1/pay", testUserKey, "user-1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
}

func TestInvoiceHandler_AuthErrors(t *testing.T) {
	api := newInvoiceAPI(t)

	code, resp := api.do(http.MethodGet, "/invoices/me", "", "user-1", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)

	code, _ = api.do(http.MethodGet, "/invoices/me", testUserKey, "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp = api.do(http.MethodGet, "/admin/invoices", testUserKey, "", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, dto.ErrCodeForbidden, resp.Error.Code)

	// admin key satisfies self-service routes
	code, _ = api.do(http.MethodGet, "/invoices/me", testAdminKey, "user-1", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestInvoiceHandler_DeleteLifecycle(t *testing.T) {
	api := newInvoiceAPI(t)
	code, _ := api.admin(http.MethodPost, "/admin/invoices", createBody("user-1", "booking-1"))
	require.Equal(t, http.StatusCreated, code)

	softDelete := map[string]any{
		"user_id":         "user-1",
		"booking_id":      "booking-1",
		"event_id":        "event-1",
		"deletion_reason": "Booking cancelled",
		"deleted_by":      "admin-1",
	}

	mismatch := map[string]any{}
	for k, v := range softDelete {
		mismatch[k] = v
	}
	mismatch["event_id"] = "event-2"
	code, _ = api.admin(http.MethodPost, "/admin/invoices/inv-1/soft-delete", mismatch)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := api.admin(http.MethodPost, "/admin/invoices/inv-1/soft-delete", softDelete)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decodeInvoice(t, resp).IsDeleted)

	code, _ = api.admin(http.MethodGet, "/admin/invoices/inv-1", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = api.admin(http.MethodPost, "/admin/invoices/inv-1/pay", nil)
	assert.Equal(t, http.StatusNotFound, code)

	_, resp = api.admin(http.MethodGet, "/admin/users/user-1/invoices", nil)
	assert.Equal(t, 0, resp.Meta.Total)

	// the booking is free again once its invoice is soft-deleted
	code, _ = api.admin(http.MethodPost, "/admin/invoices", createBody("user-1", "booking-1"))
	assert.Equal(t, http.StatusCreated, code)

	code, _ = api.admin(http.MethodDelete, "/admin/invoices/inv-1", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.admin(http.MethodDelete, "/admin/invoices/inv-1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInvoiceHandler_AdminPayAndList(t *testing.T) {
	api := newInvoiceAPI(t)
	for i := 1; i <= 3; i++ {
		code, _ := api.admin(http.MethodPost, "/admin/invoices", createBody("user-1", fmt.Sprintf("booking-%d", i)))
		require.Equal(t, http.StatusCreated, code)
	}

	code, resp := api.admin(http.MethodPost, "/admin/invoices/inv-2/pay", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "PAID", decodeInvoice(t, resp).Status)

	code, resp = api.admin(http.MethodGet, "/admin/invoices", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, resp.Meta.Total)

	var list []appinvoice.InvoiceResponse
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 3)
}
