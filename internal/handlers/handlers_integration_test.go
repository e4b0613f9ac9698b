package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"inventory/internal/config"
	"inventory/internal/models"
	"inventory/internal/repositories"
	"inventory/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testAccounts = []config.Account{
	{Name: "Administrator", Email: "admin@example.com", Password: "admin123", Role: "admin"},
	{Name: "Manager", Email: "manager@example.com", Password: "manager123", Role: "manager"},
}

// setupApp builds the full application on a private in-memory SQLite
// database with the admin and manager accounts seeded.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repositories.AutoMigrate(db))

	store := repositories.NewGORMStore(db)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	cfg := &config.Config{
		JWTSecret:         "test_jwt_secret",
		TokenTTL:          time.Hour,
		AllowedOrigin:     "http://localhost:3000",
		LowStockThreshold: 50,
	}
	srv := server.New(cfg, server.Deps{Store: store})
	require.NoError(t, srv.Auth.SeedAccounts(context.Background(), testAccounts))
	return srv.App
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else if len(raw) > 0 && raw[0] == '[' {
		var items []any
		require.NoError(t, json.Unmarshal(raw, &items))
		out["items"] = items
	}
	return resp, out
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSignupConfirmAndLogin(t *testing.T) {
	app := setupApp(t)

	signup := map[string]string{"name": "Vera", "email": "vera@example.com", "password": "password123"}
	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", signup)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	confirmation, _ := body["confirmationToken"].(string)
	require.NotEmpty(t, confirmation)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/signup", "", signup)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Before confirmation the account has no privileges.
	token := login(t, app, "vera@example.com", "password123")
	resp, body = doJSON(t, app, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "anonymous", body["role"])
	resp, _ = doJSON(t, app, http.MethodGet, "/api/products", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/confirm", "", map[string]string{"token": confirmation})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token = login(t, app, "vera@example.com", "password123")
	resp, body = doJSON(t, app, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "viewer", body["role"])
	resp, _ = doJSON(t, app, http.MethodGet, "/api/products", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, "/api/products", token, map[string]any{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "vera@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProductEndpoints(t *testing.T) {
	app := setupApp(t)
	token := login(t, app, "admin@example.com", "admin123")

	for _, p := range []map[string]any{
		{"name": "Laptop", "category": "Electronics", "price": 1200.0, "stock": 10, "brand": "Acme"},
		{"name": "T-Shirt", "category": "Clothing", "price": 15.0, "stock": 100},
		{"name": "Phone", "category": "Electronics", "price": 800.0, "stock": 60, "description": "acme handset"},
	} {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/products", token, p)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := doJSON(t, app, http.MethodGet, "/api/products?category=Electronics&sort=price-asc", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "Phone", items[0].(map[string]any)["name"])
	assert.Equal(t, "Laptop", items[1].(map[string]any)["name"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/products?search=ACME", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"].([]any), 2)

	resp, body = doJSON(t, app, http.MethodGet, "/api/products/stats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3.0, body["total"])
	assert.Equal(t, 1.0, body["lowStock"])
	assert.Equal(t, 2.0, body["categories"])
	assert.Equal(t, 12000.0+1500.0+48000.0, body["inventoryValue"])

	// Defaults are applied on create.
	resp, created := doJSON(t, app, http.MethodPost, "/api/products", token, map[string]any{"name": "Mystery box", "sku": "BOX-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := created["id"].(string)
	assert.Equal(t, "Other", created["category"])
	assert.Equal(t, models.PlaceholderImageURL, created["imageUrl"])
	assert.Equal(t, 5.0, created["rating"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/products", token, map[string]any{"name": "Copy", "sku": "BOX-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/products", token, map[string]any{"price": -3})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], "name")
	assert.Contains(t, body["errors"], "price")

	// Partial update keeps the other fields.
	resp, updated := doJSON(t, app, http.MethodPut, "/api/products/"+id, token, map[string]any{"stock": 7})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 7.0, updated["stock"])
	assert.Equal(t, "Mystery box", updated["name"])

	resp, _ = doJSON(t, app, http.MethodPut, "/api/products/does-not-exist", token, map[string]any{"stock": 7})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodDelete, "/api/products/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["message"], "deleted successfully")

	resp, _ = doJSON(t, app, http.MethodGet, "/api/products/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPurchaseFlow(t *testing.T) {
	app := setupApp(t)
	admin := login(t, app, "admin@example.com", "admin123")
	manager := login(t, app, "manager@example.com", "manager123")

	resp, product := doJSON(t, app, http.MethodPost, "/api/products", manager, map[string]any{"name": "Widget", "stock": 10})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	productID := product["id"].(string)

	resp, customer := doJSON(t, app, http.MethodPost, "/api/customers", manager, map[string]any{"name": "Ann", "email": "ann@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	customerID := customer["id"].(string)

	resp, purchase := doJSON(t, app, http.MethodPost, "/api/purchases", manager, map[string]any{"customerId": customerID, "productId": productID, "quantity": 4})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	purchaseID := purchase["id"].(string)
	assert.Equal(t, 6.0, purchase["product"].(map[string]any)["stock"])
	assert.Equal(t, "Ann", purchase["customer"].(map[string]any)["name"])

	resp, body := doJSON(t, app, http.MethodPost, "/api/purchases", manager, map[string]any{"customerId": customerID, "productId": productID, "quantity": 7})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 6.0, body["available"])
	assert.Equal(t, 7.0, body["requested"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/purchases", manager, map[string]any{"customerId": customerID, "productId": "missing", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPut, "/api/purchases/"+purchaseID, manager, map[string]any{"quantity": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, product = doJSON(t, app, http.MethodGet, "/api/products/"+productID, manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 8.0, product["stock"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/purchases", manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"].([]any), 1)

	// Referenced records cannot be deleted.
	resp, _ = doJSON(t, app, http.MethodDelete, "/api/products/"+productID, admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodDelete, "/api/customers/"+customerID, admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Managers may not delete purchases.
	resp, _ = doJSON(t, app, http.MethodDelete, "/api/purchases/"+purchaseID, manager, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/purchases/"+purchaseID, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, product = doJSON(t, app, http.MethodGet, "/api/products/"+productID, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10.0, product["stock"])

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/customers/"+customerID, admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProductEndpointsWithoutAuth(t *testing.T) {
	app := setupApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/products", "", map[string]any{"name": "Unauthorized Product"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/purchases", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
