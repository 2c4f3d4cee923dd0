// internal/services/cart_service_test.go
package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/sunnyshore/shop-backend/internal/models"
)

type CartServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *CartService
}

func (suite *CartServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.service = NewCartService(suite.db, testConfig())
}

func (suite *CartServiceTestSuite) TestGetOrCreateActiveCartReusesCart() {
	owner := models.GuestOwner("session-abc")

	first, err := suite.service.GetOrCreateActiveCart(owner)
	assert.NoError(suite.T(), err)
	second, err := suite.service.GetOrCreateActiveCart(owner)
	assert.NoError(suite.T(), err)

	assert.Equal(suite.T(), first.ID, second.ID)
	assert.NotNil(suite.T(), first.ExpiresAt)

	var count int64
	suite.db.Model(&models.Cart{}).Where("status = ?", models.CartStatusActive).Count(&count)
	assert.EqualValues(suite.T(), 1, count)
}

func (suite *CartServiceTestSuite) TestGetOrCreateActiveCartRequiresOwner() {
	_, err := suite.service.GetOrCreateActiveCart(models.Owner{})
	assert.ErrorIs(suite.T(), err, ErrMissingOwner)
}

func (suite *CartServiceTestSuite) TestAddItemCapturesPriceAndSumsQuantities() {
	owner := models.GuestOwner("session-add")
	product := createTestProduct(suite.T(), suite.db, "TWL-1", 25.00, 50)

	cart, err := suite.service.AddItem(owner, product.ID, 2, nil)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), cart.Items, 1)
	assert.Equal(suite.T(), 25.00, cart.Items[0].Price)

	// Raising the catalog price must not touch the captured line price.
	suite.db.Model(product).Update("base_price", 40.00)

	cart, err = suite.service.AddItem(owner, product.ID, 1, nil)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), cart.Items, 1)
	assert.Equal(suite.T(), 3, cart.Items[0].Quantity)
	assert.Equal(suite.T(), 25.00, cart.Items[0].Price)
}

func (suite *CartServiceTestSuite) TestCartTotalsInvariant() {
	owner := models.GuestOwner("session-totals")
	product := createTestProduct(suite.T(), suite.db, "TWL-2", 25.00, 50)

	cart, err := suite.service.AddItem(owner, product.ID, 3, nil)
	assert.NoError(suite.T(), err)

	assert.Equal(suite.T(), 75.00, cart.Subtotal)
	assert.Equal(suite.T(), 6.00, cart.Tax)
	assert.Equal(suite.T(), 10.00, cart.Shipping) // below free-shipping threshold
	assert.Equal(suite.T(), 91.00, cart.Total)
	assert.InDelta(suite.T(), cart.Subtotal+cart.Tax+cart.Shipping-cart.Discount, cart.Total, 0.001)
}

func (suite *CartServiceTestSuite) TestFreeShippingThreshold() {
	owner := models.GuestOwner("session-freeship")
	product := createTestProduct(suite.T(), suite.db, "GLS-1", 60.00, 50)

	cart, err := suite.service.AddItem(owner, product.ID, 2, nil)
	assert.NoError(suite.T(), err)

	assert.Equal(suite.T(), 120.00, cart.Subtotal)
	assert.Equal(suite.T(), 0.00, cart.Shipping)
}

func (suite *CartServiceTestSuite) TestAddItemInventoryCountsInCartQuantity() {
	owner := models.GuestOwner("session-stock")
	product := createTestProduct(suite.T(), suite.db, "SCR-1", 18.50, 3)

	_, err := suite.service.AddItem(owner, product.ID, 2, nil)
	assert.NoError(suite.T(), err)

	_, err = suite.service.AddItem(owner, product.ID, 2, nil)
	var invErr *InsufficientInventoryError
	assert.ErrorAs(suite.T(), err, &invErr)
	assert.Equal(suite.T(), 3, invErr.Available)
	assert.Equal(suite.T(), 4, invErr.Requested)
}

func (suite *CartServiceTestSuite) TestAddItemUnknownProduct() {
	owner := models.GuestOwner("session-missing")
	_, err := suite.service.AddItem(owner, uuid.New(), 1, nil)
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)
}

func (suite *CartServiceTestSuite) TestAddItemInactiveProduct() {
	owner := models.GuestOwner("session-inactive")
	product := createTestProduct(suite.T(), suite.db, "OLD-1", 10.00, 5)
	suite.db.Model(product).Update("status", models.ProductStatusDiscontinued)

	_, err := suite.service.AddItem(owner, product.ID, 1, nil)
	var unavailableErr *ProductUnavailableError
	assert.ErrorAs(suite.T(), err, &unavailableErr)
	assert.Equal(suite.T(), models.ProductStatusDiscontinued, unavailableErr.Status)
}

func (suite *CartServiceTestSuite) TestAddItemQuantityBounds() {
	owner := models.GuestOwner("session-bounds")
	product := createTestProduct(suite.T(), suite.db, "BND-1", 5.00, 500)

	_, err := suite.service.AddItem(owner, product.ID, 0, nil)
	assert.ErrorIs(suite.T(), err, ErrInvalidQuantity)

	_, err = suite.service.AddItem(owner, product.ID, 100, nil)
	assert.ErrorIs(suite.T(), err, ErrInvalidQuantity)
}

func (suite *CartServiceTestSuite) TestVariantsAreSeparateLines() {
	owner := models.GuestOwner("session-variant")
	product := createTestProduct(suite.T(), suite.db, "VAR-1", 20.00, 50)

	blue := models.JSONB{"color": "blue"}
	red := models.JSONB{"color": "red"}

	_, err := suite.service.AddItem(owner, product.ID, 1, blue)
	assert.NoError(suite.T(), err)
	cart, err := suite.service.AddItem(owner, product.ID, 2, red)
	assert.NoError(suite.T(), err)

	assert.Len(suite.T(), cart.Items, 2)
	assert.Equal(suite.T(), 1, cart.QuantityOf(product.ID, blue))
	assert.Equal(suite.T(), 2, cart.QuantityOf(product.ID, red))
}

func (suite *CartServiceTestSuite) TestUpdateItemQuantitySetsAbsolute() {
	owner := models.GuestOwner("session-update")
	product := createTestProduct(suite.T(), suite.db, "UPD-1", 12.00, 50)

	_, err := suite.service.AddItem(owner, product.ID, 5, nil)
	assert.NoError(suite.T(), err)

	cart, err := suite.service.UpdateItemQuantity(owner, product.ID, 2, nil)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, cart.Items[0].Quantity)
}

func (suite *CartServiceTestSuite) TestUpdateItemQuantityZeroRemoves() {
	owner := models.GuestOwner("session-zero")
	product := createTestProduct(suite.T(), suite.db, "ZRO-1", 12.00, 50)

	_, err := suite.service.AddItem(owner, product.ID, 2, nil)
	assert.NoError(suite.T(), err)

	cart, err := suite.service.UpdateItemQuantity(owner, product.ID, 0, nil)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), cart.IsEmpty())
	assert.Equal(suite.T(), 0.00, cart.Total)
}

func (suite *CartServiceTestSuite) TestRemoveItemIsIdempotent() {
	owner := models.GuestOwner("session-remove")
	product := createTestProduct(suite.T(), suite.db, "RMV-1", 12.00, 50)

	_, err := suite.service.AddItem(owner, product.ID, 1, nil)
	assert.NoError(suite.T(), err)

	cart, err := suite.service.RemoveItem(owner, product.ID, nil)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), cart.IsEmpty())

	// Removing again is a no-op, not an error.
	cart, err = suite.service.RemoveItem(owner, product.ID, nil)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), cart.IsEmpty())
}

func (suite *CartServiceTestSuite) TestClearCartZeroesTotalsAndDiscount() {
	owner := models.GuestOwner("session-clear")
	product := createTestProduct(suite.T(), suite.db, "CLR-1", 30.00, 50)

	cart, err := suite.service.AddItem(owner, product.ID, 2, nil)
	assert.NoError(suite.T(), err)
	suite.db.Model(cart).Update("discount", 5.00)

	cart, err = suite.service.ClearCart(owner)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), cart.IsEmpty())
	assert.Equal(suite.T(), 0.00, cart.Subtotal)
	assert.Equal(suite.T(), 0.00, cart.Discount)
	assert.Equal(suite.T(), 0.00, cart.Total)
}

func (suite *CartServiceTestSuite) TestMergeGuestCartSumsAndAppends() {
	productA := createTestProduct(suite.T(), suite.db, "MRG-A", 10.00, 50)
	productB := createTestProduct(suite.T(), suite.db, "MRG-B", 15.00, 50)
	user := createTestUser(suite.T(), suite.db, "merge@example.com", models.UserRoleCustomer)

	userOwner := models.MemberOwner(user.ID)
	guestOwner := models.GuestOwner("guest-merge")

	_, err := suite.service.AddItem(userOwner, productA.ID, 2, nil)
	assert.NoError(suite.T(), err)
	_, err = suite.service.AddItem(guestOwner, productA.ID, 1, nil)
	assert.NoError(suite.T(), err)
	_, err = suite.service.AddItem(guestOwner, productB.ID, 3, nil)
	assert.NoError(suite.T(), err)

	merged, err := suite.service.MergeGuestCart(user.ID, "guest-merge")
	assert.NoError(suite.T(), err)

	assert.Len(suite.T(), merged.Items, 2)
	assert.Equal(suite.T(), 3, merged.QuantityOf(productA.ID, nil))
	assert.Equal(suite.T(), 3, merged.QuantityOf(productB.ID, nil))

	var guestCart models.Cart
	suite.db.First(&guestCart, "session_id = ?", "guest-merge")
	assert.Equal(suite.T(), models.CartStatusConverted, guestCart.Status)
}

func (suite *CartServiceTestSuite) TestMergeGuestCartNoopWithoutGuestCart() {
	user := createTestUser(suite.T(), suite.db, "noop@example.com", models.UserRoleCustomer)
	product := createTestProduct(suite.T(), suite.db, "NOP-1", 10.00, 50)

	_, err := suite.service.AddItem(models.MemberOwner(user.ID), product.ID, 2, nil)
	assert.NoError(suite.T(), err)

	merged, err := suite.service.MergeGuestCart(user.ID, "no-such-session")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, merged.QuantityOf(product.ID, nil))
}

func (suite *CartServiceTestSuite) TestValidateCartCollectsAllIssues() {
	owner := models.GuestOwner("session-validate")
	gone := createTestProduct(suite.T(), suite.db, "VAL-GONE", 10.00, 50)
	short := createTestProduct(suite.T(), suite.db, "VAL-SHORT", 20.00, 50)
	drift := createTestProduct(suite.T(), suite.db, "VAL-DRIFT", 30.00, 50)

	_, err := suite.service.AddItem(owner, gone.ID, 1, nil)
	assert.NoError(suite.T(), err)
	_, err = suite.service.AddItem(owner, short.ID, 5, nil)
	assert.NoError(suite.T(), err)
	_, err = suite.service.AddItem(owner, drift.ID, 1, nil)
	assert.NoError(suite.T(), err)

	suite.db.Delete(gone)
	suite.db.Model(short).Update("quantity", 2)
	suite.db.Model(drift).Update("base_price", 35.00)

	_, issues, err := suite.service.ValidateCart(owner)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), issues, 3)

	reasons := map[uuid.UUID]string{}
	for _, issue := range issues {
		reasons[issue.ProductID] = issue.Reason
	}
	assert.Equal(suite.T(), "Product not found", reasons[gone.ID])
	assert.Equal(suite.T(), "Insufficient inventory", reasons[short.ID])
	assert.Equal(suite.T(), "Price has changed", reasons[drift.ID])
}

func (suite *CartServiceTestSuite) TestValidateCartEmpty() {
	owner := models.GuestOwner("session-validate-empty")
	_, err := suite.service.GetOrCreateActiveCart(owner)
	assert.NoError(suite.T(), err)

	_, _, err = suite.service.ValidateCart(owner)
	assert.True(suite.T(), errors.Is(err, ErrEmptyCart))
}

func (suite *CartServiceTestSuite) TestCleanupExpiredCarts() {
	owner := models.GuestOwner("session-expired")
	cart, err := suite.service.GetOrCreateActiveCart(owner)
	assert.NoError(suite.T(), err)

	past := time.Now().Add(-time.Hour)
	suite.db.Model(cart).Update("expires_at", past)

	count, err := suite.service.CleanupExpiredCarts()
	assert.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 1, count)

	var reloaded models.Cart
	suite.db.First(&reloaded, "id = ?", cart.ID)
	assert.Equal(suite.T(), models.CartStatusExpired, reloaded.Status)
}

func TestCartServiceSuite(t *testing.T) {
	suite.Run(t, new(CartServiceTestSuite))
}
