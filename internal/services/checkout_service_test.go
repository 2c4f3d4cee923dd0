// internal/services/checkout_service_test.go
package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/sunnyshore/shop-backend/internal/models"
)

type CheckoutServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	carts    *CartService
	checkout *CheckoutService
}

func (suite *CheckoutServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	cfg := testConfig()
	suite.carts = NewCartService(suite.db, cfg)
	suite.checkout = NewCheckoutService(suite.db, suite.carts, nil)
}

func shippingAddress() models.Address {
	return models.Address{
		FirstName: "Alex",
		LastName:  "Rivera",
		Street:    "12 Shell Lane",
		City:      "Santa Cruz",
		State:     "CA",
		ZipCode:   "95060",
		Country:   "US",
	}
}

func (suite *CheckoutServiceTestSuite) checkoutRequest() *CheckoutRequest {
	return &CheckoutRequest{
		ShippingAddress: shippingAddress(),
		PaymentMethod:   models.PaymentMethodCreditCard,
		ShippingMethod:  models.ShippingMethodStandard,
	}
}

func (suite *CheckoutServiceTestSuite) TestInitializeCheckoutEmptyCart() {
	owner := models.GuestOwner("chk-empty")

	_, err := suite.checkout.InitializeCheckout(owner)
	assert.ErrorIs(suite.T(), err, ErrEmptyCart)

	_, err = suite.carts.GetOrCreateActiveCart(owner)
	assert.NoError(suite.T(), err)
	_, err = suite.checkout.InitializeCheckout(owner)
	assert.ErrorIs(suite.T(), err, ErrEmptyCart)
}

func (suite *CheckoutServiceTestSuite) TestInitializeCheckoutReportsAllStaleItems() {
	owner := models.GuestOwner("chk-stale")
	gone := createTestProduct(suite.T(), suite.db, "CHK-GONE", 10.00, 50)
	short := createTestProduct(suite.T(), suite.db, "CHK-SHORT", 20.00, 50)

	_, err := suite.carts.AddItem(owner, gone.ID, 1, nil)
	assert.NoError(suite.T(), err)
	_, err = suite.carts.AddItem(owner, short.ID, 5, nil)
	assert.NoError(suite.T(), err)

	suite.db.Delete(gone)
	suite.db.Model(short).Update("quantity", 1)

	_, err = suite.checkout.InitializeCheckout(owner)
	var cartErr *CartValidationError
	assert.ErrorAs(suite.T(), err, &cartErr)
	assert.Len(suite.T(), cartErr.Items, 2)
}

func (suite *CheckoutServiceTestSuite) TestApplyDiscountCodes() {
	owner := models.GuestOwner("chk-discount")
	product := createTestProduct(suite.T(), suite.db, "DSC-1", 30.00, 50)

	_, err := suite.carts.AddItem(owner, product.ID, 2, nil) // subtotal 60
	assert.NoError(suite.T(), err)

	cart, err := suite.checkout.ApplyDiscountCode(owner, "welcome10")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 6.00, cart.Discount)
	assert.InDelta(suite.T(), cart.Subtotal+cart.Tax+cart.Shipping-cart.Discount, cart.Total, 0.001)

	// SAVE20 needs a 100 subtotal; unmet minimum silently zeroes the discount.
	cart, err = suite.checkout.ApplyDiscountCode(owner, "SAVE20")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0.00, cart.Discount)

	// Unknown codes behave identically to unmet minimums.
	cart, err = suite.checkout.ApplyDiscountCode(owner, "BOGUS")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0.00, cart.Discount)
}

func (suite *CheckoutServiceTestSuite) TestUpdateShippingMethodMultipliers() {
	owner := models.GuestOwner("chk-shipping")
	product := createTestProduct(suite.T(), suite.db, "SHP-1", 25.00, 50)

	_, err := suite.carts.AddItem(owner, product.ID, 2, nil) // subtotal 50
	assert.NoError(suite.T(), err)

	cart, err := suite.checkout.UpdateShippingMethod(owner, models.ShippingMethodExpress)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 20.00, cart.Shipping)

	cart, err = suite.checkout.UpdateShippingMethod(owner, models.ShippingMethodOvernight)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 30.00, cart.Shipping)

	cart, err = suite.checkout.UpdateShippingMethod(owner, models.ShippingMethodPickup)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0.00, cart.Shipping)
}

func (suite *CheckoutServiceTestSuite) TestProcessCheckoutMissingFields() {
	owner := models.GuestOwner("chk-missing")
	product := createTestProduct(suite.T(), suite.db, "MIS-1", 25.00, 50)
	_, err := suite.carts.AddItem(owner, product.ID, 1, nil)
	assert.NoError(suite.T(), err)

	var missingErr *MissingFieldError

	req := suite.checkoutRequest()
	req.ShippingAddress = models.Address{}
	_, err = suite.checkout.ProcessCheckout(owner, req)
	assert.ErrorAs(suite.T(), err, &missingErr)

	req = suite.checkoutRequest()
	req.PaymentMethod = ""
	_, err = suite.checkout.ProcessCheckout(owner, req)
	assert.ErrorAs(suite.T(), err, &missingErr)
}

func (suite *CheckoutServiceTestSuite) TestProcessCheckoutCreatesOrder() {
	owner := models.GuestOwner("chk-ok")
	product := createTestProduct(suite.T(), suite.db, "ORD-1", 50.00, 3)

	_, err := suite.carts.AddItem(owner, product.ID, 2, nil)
	assert.NoError(suite.T(), err)

	order, err := suite.checkout.ProcessCheckout(owner, suite.checkoutRequest())
	assert.NoError(suite.T(), err)

	// Order number: SN + yymmdd + daily sequence.
	prefix := "SN" + time.Now().Format("060102")
	assert.True(suite.T(), strings.HasPrefix(order.OrderNumber, prefix))
	assert.Len(suite.T(), order.OrderNumber, len(prefix)+4)

	assert.Equal(suite.T(), 100.00, order.Subtotal)
	assert.Equal(suite.T(), 8.00, order.Tax)
	assert.Equal(suite.T(), 0.00, order.Shipping) // free shipping at 100
	assert.Equal(suite.T(), 108.00, order.Total)
	assert.Equal(suite.T(), models.OrderStatusPending, order.Status)
	assert.Equal(suite.T(), models.PaymentStatusPending, order.PaymentStatus)
	assert.NotNil(suite.T(), order.EstimatedDelivery)

	// Line item snapshot copies name/sku/price.
	assert.Len(suite.T(), order.Items, 1)
	assert.Equal(suite.T(), product.Name, order.Items[0].Name)
	assert.Equal(suite.T(), product.SKU, order.Items[0].SKU)
	assert.Equal(suite.T(), 50.00, order.Items[0].Price)
	assert.Equal(suite.T(), 100.00, order.Items[0].Total)

	// Inventory decremented, sales counted.
	var reloaded models.Product
	suite.db.First(&reloaded, "id = ?", product.ID)
	assert.Equal(suite.T(), 1, reloaded.Quantity)
	assert.EqualValues(suite.T(), 2, reloaded.SalesCount)

	// Cart converted.
	var cart models.Cart
	suite.db.First(&cart, "session_id = ?", "chk-ok")
	assert.Equal(suite.T(), models.CartStatusConverted, cart.Status)

	// Initial history row written.
	var history []models.OrderStatusHistory
	suite.db.Where("order_id = ?", order.ID).Find(&history)
	assert.Len(suite.T(), history, 1)
	assert.Equal(suite.T(), models.OrderStatusPending, history[0].Status)
}

func (suite *CheckoutServiceTestSuite) TestProcessCheckoutSequenceIncrements() {
	ownerA := models.GuestOwner("chk-seq-a")
	ownerB := models.GuestOwner("chk-seq-b")
	product := createTestProduct(suite.T(), suite.db, "SEQ-1", 10.00, 50)

	_, err := suite.carts.AddItem(ownerA, product.ID, 1, nil)
	assert.NoError(suite.T(), err)
	_, err = suite.carts.AddItem(ownerB, product.ID, 1, nil)
	assert.NoError(suite.T(), err)

	first, err := suite.checkout.ProcessCheckout(ownerA, suite.checkoutRequest())
	assert.NoError(suite.T(), err)
	second, err := suite.checkout.ProcessCheckout(ownerB, suite.checkoutRequest())
	assert.NoError(suite.T(), err)

	assert.True(suite.T(), strings.HasSuffix(first.OrderNumber, "0001"))
	assert.True(suite.T(), strings.HasSuffix(second.OrderNumber, "0002"))
}

func (suite *CheckoutServiceTestSuite) TestProcessCheckoutInsufficientInventoryLeavesNothingBehind() {
	ownerA := models.GuestOwner("chk-race-a")
	ownerB := models.GuestOwner("chk-race-b")
	product := createTestProduct(suite.T(), suite.db, "RACE-1", 50.00, 3)

	_, err := suite.carts.AddItem(ownerA, product.ID, 2, nil)
	assert.NoError(suite.T(), err)
	_, err = suite.carts.AddItem(ownerB, product.ID, 2, nil)
	assert.NoError(suite.T(), err)

	_, err = suite.checkout.ProcessCheckout(ownerA, suite.checkoutRequest())
	assert.NoError(suite.T(), err)

	// Only one unit left; the second checkout must fail without creating an
	// order or touching inventory.
	_, err = suite.checkout.ProcessCheckout(ownerB, suite.checkoutRequest())
	assert.Error(suite.T(), err)

	var orderCount int64
	suite.db.Model(&models.Order{}).Count(&orderCount)
	assert.EqualValues(suite.T(), 1, orderCount)

	var reloaded models.Product
	suite.db.First(&reloaded, "id = ?", product.ID)
	assert.Equal(suite.T(), 1, reloaded.Quantity)

	// The failed buyer's cart stays active for repair.
	var cart models.Cart
	suite.db.First(&cart, "session_id = ?", "chk-race-b")
	assert.Equal(suite.T(), models.CartStatusActive, cart.Status)
}

func (suite *CheckoutServiceTestSuite) TestProcessCheckoutBillingDefaultsToShipping() {
	owner := models.GuestOwner("chk-billing")
	product := createTestProduct(suite.T(), suite.db, "BIL-1", 25.00, 50)
	_, err := suite.carts.AddItem(owner, product.ID, 1, nil)
	assert.NoError(suite.T(), err)

	order, err := suite.checkout.ProcessCheckout(owner, suite.checkoutRequest())
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), order.SameAsShipping)
	assert.Equal(suite.T(), order.ShippingAddress, order.BillingAddress)
}

func (suite *CheckoutServiceTestSuite) TestOrderSnapshotSurvivesCatalogChanges() {
	owner := models.GuestOwner("chk-snapshot")
	product := createTestProduct(suite.T(), suite.db, "SNP-1", 40.00, 50)
	_, err := suite.carts.AddItem(owner, product.ID, 1, nil)
	assert.NoError(suite.T(), err)

	order, err := suite.checkout.ProcessCheckout(owner, suite.checkoutRequest())
	assert.NoError(suite.T(), err)

	suite.db.Model(product).Updates(map[string]interface{}{
		"base_price": 99.00,
		"name":       "Renamed Product",
	})

	var items []models.OrderItem
	suite.db.Where("order_id = ?", order.ID).Find(&items)
	assert.Equal(suite.T(), 40.00, items[0].Price)
	assert.Equal(suite.T(), product.Name, items[0].Name)
}

func TestCheckoutServiceSuite(t *testing.T) {
	suite.Run(t, new(CheckoutServiceTestSuite))
}
