// internal/services/testutil_test.go
package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sunnyshore/shop-backend/internal/config"
	"github.com/sunnyshore/shop-backend/internal/models"
)

// newTestDB opens an isolated in-memory database per test and migrates the
// schema. cache=shared keeps every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

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
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func testConfig() *config.Config {
	return &config.Config{
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
		Cart: config.CartConfig{
			TTLDays:            7,
			SweepIntervalHours: 1,
		},
		Frontend: config.FrontendConfig{
			BaseURL: "http://localhost:3000",
		},
	}
}

func createTestProduct(t *testing.T, db *gorm.DB, sku string, price float64, quantity int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:           "Product " + sku,
		Description:    "Test catalog entry",
		SKU:            sku,
		Type:           models.ProductTypePhysical,
		Category:       "beach-accessories",
		BasePrice:      price,
		Currency:       "USD",
		Quantity:       quantity,
		LowStockLevel:  5,
		TrackInventory: true,
		Status:         models.ProductStatusActive,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to create test product: %v", err)
	}
	return product
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Name:   "Test User",
		Email:  email,
		Role:   role,
		Status: models.UserStatusActive,
	}
	if err := user.SetPassword("Sunny$hore1"); err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}
