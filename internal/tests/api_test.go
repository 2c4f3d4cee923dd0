// internal/tests/api_test.go
package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sunnyshore/shop-backend/internal/config"
	"github.com/sunnyshore/shop-backend/internal/models"
	"github.com/sunnyshore/shop-backend/internal/router"
)

// StorefrontAPITestSuite drives the HTTP surface end to end: guest cart,
// checkout, public tracking and the admin guard.
type StorefrontAPITestSuite struct {
	suite.Suite
	db         *gorm.DB
	router     *gin.Engine
	product    *models.Product
	testSeq    int
	clientAddr string
}

func (suite *StorefrontAPITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		suite.T().Fatalf("failed to open test database: %v", err)
	}
	suite.db = db

	err = db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.AuditLog{},
	)
	if err != nil {
		suite.T().Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Pricing: config.PricingConfig{
			TaxRate:               0.08,
			FreeShippingThreshold: 100,
			FlatShippingFee:       10,
			Currency:              "USD",
		},
		Cart:     config.CartConfig{TTLDays: 7, SweepIntervalHours: 1},
		Frontend: config.FrontendConfig{BaseURL: "http://localhost:3000"},
	}
	suite.router = router.Initialize(db, cfg)

	suite.product = &models.Product{
		Name:           "Boardwalk Flip Flops",
		SKU:            "FLP-100",
		Type:           models.ProductTypePhysical,
		Category:       "footwear",
		BasePrice:      24.00,
		Currency:       "USD",
		Quantity:       40,
		TrackInventory: true,
		Status:         models.ProductStatusActive,
	}
	if err := db.Create(suite.product).Error; err != nil {
		suite.T().Fatalf("failed to seed product: %v", err)
	}
}

// SetupTest gives every test its own client address so the per-IP rate
// limits never couple one test's requests to another's.
func (suite *StorefrontAPITestSuite) SetupTest() {
	suite.testSeq++
	suite.clientAddr = fmt.Sprintf("10.1.%d.1:52000", suite.testSeq)
}

func (suite *StorefrontAPITestSuite) request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.RemoteAddr = suite.clientAddr
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return response
}

func (suite *StorefrontAPITestSuite) TestHealthCheck() {
	w := suite.request("GET", "/health", nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *StorefrontAPITestSuite) TestProductListing() {
	w := suite.request("GET", "/v1/products", nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	response := decodeEnvelope(suite.T(), w)
	assert.True(suite.T(), response["success"].(bool))
}

func (suite *StorefrontAPITestSuite) TestCartRequiresOwner() {
	w := suite.request("GET", "/v1/cart", nil, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	response := decodeEnvelope(suite.T(), w)
	errObj := response["error"].(map[string]interface{})
	assert.Equal(suite.T(), "MISSING_OWNER", errObj["code"])
}

func (suite *StorefrontAPITestSuite) TestGuestCheckoutFlow() {
	session := map[string]string{"X-Session-ID": "api-guest-1"}

	// Add an item as a guest.
	w := suite.request("POST", "/v1/cart/items", map[string]interface{}{
		"product_id": suite.product.ID,
		"quantity":   2,
	}, session)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	// Cart totals reflect the line items.
	w = suite.request("GET", "/v1/cart", nil, session)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	response := decodeEnvelope(suite.T(), w)
	data := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), 48.0, data["subtotal"])

	// Checkout.
	w = suite.request("POST", "/v1/checkout", map[string]interface{}{
		"shipping_address": map[string]string{
			"first_name": "Alex",
			"last_name":  "Rivera",
			"street":     "12 Shell Lane",
			"city":       "Santa Cruz",
			"state":      "CA",
			"zip_code":   "95060",
			"country":    "US",
		},
		"payment_method":  "credit-card",
		"shipping_method": "standard",
	}, session)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	response = decodeEnvelope(suite.T(), w)
	order := response["data"].(map[string]interface{})
	orderNumber := order["order_number"].(string)
	assert.True(suite.T(), strings.HasPrefix(orderNumber, "SN"))

	// Public tracking lookup, no auth.
	w = suite.request("GET", "/v1/orders/track/"+orderNumber, nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	response = decodeEnvelope(suite.T(), w)
	tracking := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), "pending", tracking["status"])
}

func (suite *StorefrontAPITestSuite) TestCheckoutOnEmptyCart() {
	w := suite.request("POST", "/v1/checkout", map[string]interface{}{
		"shipping_address": map[string]string{
			"street":  "1 Empty St",
			"city":    "Nowhere",
			"country": "US",
		},
		"payment_method": "credit-card",
	}, map[string]string{"X-Session-ID": "api-empty-cart"})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	response := decodeEnvelope(suite.T(), w)
	errObj := response["error"].(map[string]interface{})
	assert.Equal(suite.T(), "EMPTY_CART", errObj["code"])
}

func (suite *StorefrontAPITestSuite) TestMergeGuestCartIntoUserCart() {
	session := map[string]string{"X-Session-ID": "api-merge-guest"}

	w := suite.request("POST", "/v1/cart/items", map[string]interface{}{
		"product_id": suite.product.ID,
		"quantity":   3,
	}, session)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	// Merging requires a signed-in user.
	w = suite.request("POST", "/v1/cart/merge", nil, session)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.request("POST", "/v1/auth/register", map[string]string{
		"name":     "Morgan Dune",
		"email":    "morgan@example.com",
		"password": "Sunny$hore1",
	}, nil)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	response := decodeEnvelope(suite.T(), w)
	data := response["data"].(map[string]interface{})
	token := data["access_token"].(string)
	authed := map[string]string{"Authorization": "Bearer " + token}

	w = suite.request("POST", "/v1/cart/merge", map[string]string{
		"session_id": "api-merge-guest",
	}, authed)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	// The guest line item now lives in the user's cart.
	w = suite.request("GET", "/v1/cart", nil, authed)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	response = decodeEnvelope(suite.T(), w)
	data = response["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	assert.Len(suite.T(), items, 1)
	assert.Equal(suite.T(), 72.0, data["subtotal"])
}

func (suite *StorefrontAPITestSuite) TestProfileEndpoints() {
	w := suite.request("GET", "/v1/profile", nil, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.request("POST", "/v1/auth/register", map[string]string{
		"name":     "Riley Shore",
		"email":    "riley@example.com",
		"password": "Sunny$hore1",
	}, nil)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	response := decodeEnvelope(suite.T(), w)
	data := response["data"].(map[string]interface{})
	authed := map[string]string{"Authorization": "Bearer " + data["access_token"].(string)}

	w = suite.request("GET", "/v1/profile", nil, authed)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	response = decodeEnvelope(suite.T(), w)
	profile := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), "riley@example.com", profile["email"])

	w = suite.request("PUT", "/v1/profile", map[string]string{
		"bio": "Beachcomber since 2019",
	}, authed)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	response = decodeEnvelope(suite.T(), w)
	profile = response["data"].(map[string]interface{})
	profileData := profile["profile_data"].(map[string]interface{})
	assert.Equal(suite.T(), "Beachcomber since 2019", profileData["bio"])

	w = suite.request("PUT", "/v1/profile/preferences", map[string]interface{}{
		"preferences": map[string]interface{}{"newsletter": true},
	}, authed)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.request("GET", "/v1/profile/preferences", nil, authed)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	response = decodeEnvelope(suite.T(), w)
	data = response["data"].(map[string]interface{})
	prefs := data["preferences"].(map[string]interface{})
	assert.Equal(suite.T(), true, prefs["newsletter"])
}

func (suite *StorefrontAPITestSuite) TestRegisterLoginAndMe() {
	w := suite.request("POST", "/v1/auth/register", map[string]string{
		"name":     "Jordan Beach",
		"email":    "jordan@example.com",
		"password": "Sunny$hore1",
	}, nil)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	w = suite.request("POST", "/v1/auth/login", map[string]string{
		"email":    "jordan@example.com",
		"password": "Sunny$hore1",
	}, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	response := decodeEnvelope(suite.T(), w)
	data := response["data"].(map[string]interface{})
	token := data["access_token"].(string)

	w = suite.request("GET", "/v1/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *StorefrontAPITestSuite) TestAdminRoutesAreGuarded() {
	w := suite.request("GET", "/v1/admin/dashboard/stats", nil, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	// A customer token is not enough.
	w = suite.request("POST", "/v1/auth/register", map[string]string{
		"name":     "Casey Customer",
		"email":    "casey@example.com",
		"password": "Sunny$hore1",
	}, nil)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	response := decodeEnvelope(suite.T(), w)
	data := response["data"].(map[string]interface{})
	token := data["access_token"].(string)

	w = suite.request("GET", "/v1/admin/dashboard/stats", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func TestStorefrontAPISuite(t *testing.T) {
	suite.Run(t, new(StorefrontAPITestSuite))
}
