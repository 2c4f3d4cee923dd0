// internal/services/checkout_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sunnyshore/shop-backend/internal/database"
	"github.com/sunnyshore/shop-backend/internal/models"
)

// CheckoutService turns a validated cart into an order. Order creation,
// inventory decrements and the cart conversion happen inside a single
// database transaction so a failed stock check leaves nothing behind.
type CheckoutService struct {
	db            *gorm.DB
	cartService   *CartService
	notifications *NotificationService
}

func NewCheckoutService(db *gorm.DB, cartService *CartService, notifications *NotificationService) *CheckoutService {
	return &CheckoutService{
		db:            db,
		cartService:   cartService,
		notifications: notifications,
	}
}

type CheckoutRequest struct {
	ShippingAddress models.Address        `json:"shipping_address"`
	BillingAddress  *models.Address       `json:"billing_address,omitempty"`
	PaymentMethod   models.PaymentMethod  `json:"payment_method"`
	ShippingMethod  models.ShippingMethod `json:"shipping_method"`
	Email           string                `json:"email,omitempty" binding:"omitempty,email"`
	Notes           string                `json:"notes,omitempty"`
}

// ShippingOption is one selectable shipping method with its cost for the
// current cart.
type ShippingOption struct {
	Method        models.ShippingMethod `json:"method"`
	Cost          float64               `json:"cost"`
	EstimatedDays int                   `json:"estimated_days"`
}

// CheckoutSession is the current checkout state returned to the client.
type CheckoutSession struct {
	Cart            *models.Cart     `json:"cart"`
	ShippingOptions []ShippingOption `json:"shipping_options"`
}

// discountRule is one entry of the fixed promotion table. Codes are matched
// case-insensitively; an unknown code or an unmet minimum yields a zero
// discount without revealing which condition failed.
type discountRule struct {
	Kind        string // "percentage", "fixed" or "shipping"
	Value       float64
	MinSubtotal float64
}

var discountCodes = map[string]discountRule{
	"WELCOME10": {Kind: "percentage", Value: 10, MinSubtotal: 50},
	"SAVE20":    {Kind: "fixed", Value: 20, MinSubtotal: 100},
	"FREESHIP":  {Kind: "shipping"},
}

func shippingMultiplier(method models.ShippingMethod) float64 {
	switch method {
	case models.ShippingMethodExpress:
		return 2
	case models.ShippingMethodOvernight:
		return 3
	case models.ShippingMethodPickup, models.ShippingMethodDigital:
		return 0
	default:
		return 1
	}
}

func deliveryDays(method models.ShippingMethod) int {
	switch method {
	case models.ShippingMethodExpress, models.ShippingMethodOvernight:
		return 1
	case models.ShippingMethodStandard:
		return 3
	case models.ShippingMethodEconomy:
		return 7
	default:
		return 5
	}
}

// InitializeCheckout re-validates the cart against current product state and
// refreshes its totals. All offending items are reported together.
func (s *CheckoutService) InitializeCheckout(owner models.Owner) (*CheckoutSession, error) {
	cart, err := s.cartService.requireActiveCart(owner)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	if issues := s.cartService.validateItems(s.db, cart, false); len(issues) > 0 {
		return nil, &CartValidationError{Items: issues}
	}

	if err := s.cartService.persistTotals(cart); err != nil {
		return nil, err
	}

	return &CheckoutSession{
		Cart:            cart,
		ShippingOptions: s.shippingOptions(cart),
	}, nil
}

// GetSession returns the current checkout state without re-validating items.
func (s *CheckoutService) GetSession(owner models.Owner) (*CheckoutSession, error) {
	cart, err := s.cartService.requireActiveCart(owner)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{
		Cart:            cart,
		ShippingOptions: s.shippingOptions(cart),
	}, nil
}

func (s *CheckoutService) shippingOptions(cart *models.Cart) []ShippingOption {
	policy := s.cartService.Pricing()
	methods := []models.ShippingMethod{
		models.ShippingMethodStandard,
		models.ShippingMethodExpress,
		models.ShippingMethodOvernight,
		models.ShippingMethodEconomy,
		models.ShippingMethodPickup,
	}

	options := make([]ShippingOption, 0, len(methods))
	for _, method := range methods {
		options = append(options, ShippingOption{
			Method:        method,
			Cost:          shippingCost(cart.Subtotal, policy, method),
			EstimatedDays: deliveryDays(method),
		})
	}
	return options
}

// shippingCost applies the flat-rate formula and the method multiplier.
// Free-shipping threshold is checked on the subtotal before the multiplier.
func shippingCost(subtotal float64, policy models.PricingPolicy, method models.ShippingMethod) float64 {
	if subtotal <= 0 || subtotal >= policy.FreeShippingThreshold {
		return 0
	}
	return round2(policy.FlatShippingFee * shippingMultiplier(method))
}

// ApplyDiscountCode applies a code from the fixed promotion table. Unknown
// codes and unmet minimums set the discount to zero and still succeed; the
// client learns only whether a discount amount resulted.
func (s *CheckoutService) ApplyDiscountCode(owner models.Owner, code string) (*models.Cart, error) {
	cart, err := s.cartService.requireActiveCart(owner)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	discount := 0.0
	if rule, ok := discountCodes[strings.ToUpper(strings.TrimSpace(code))]; ok && cart.Subtotal >= rule.MinSubtotal {
		switch rule.Kind {
		case "percentage":
			discount = round2(cart.Subtotal * rule.Value / 100)
		case "fixed":
			discount = rule.Value
		case "shipping":
			discount = cart.Shipping
		}
	}
	if discount > cart.Subtotal {
		discount = cart.Subtotal
	}

	cart.Discount = discount
	if err := s.cartService.persistTotals(cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateShippingMethod reprices the cart for the chosen method and persists
// the new shipping cost and total.
func (s *CheckoutService) UpdateShippingMethod(owner models.Owner, method models.ShippingMethod) (*models.Cart, error) {
	cart, err := s.cartService.requireActiveCart(owner)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	policy := s.cartService.Pricing()
	cart.Shipping = shippingCost(cart.Subtotal, policy, method)
	cart.Total = round2(cart.Subtotal + cart.Tax + cart.Shipping - cart.Discount)

	err = s.db.Model(cart).Updates(map[string]interface{}{
		"shipping": cart.Shipping,
		"total":    cart.Total,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update shipping: %w", err)
	}
	return cart, nil
}

// ProcessCheckout converts the active cart into an order. The order insert,
// the initial status-history row, every inventory decrement and the cart
// conversion commit together or not at all; a failed conditional decrement
// rolls the whole checkout back.
func (s *CheckoutService) ProcessCheckout(owner models.Owner, req *CheckoutRequest) (*models.Order, error) {
	if req.ShippingAddress.IsZero() {
		return nil, &MissingFieldError{Field: "shipping address"}
	}
	if req.PaymentMethod == "" {
		return nil, &MissingFieldError{Field: "payment method"}
	}
	if req.ShippingMethod == "" {
		req.ShippingMethod = models.ShippingMethodStandard
	}

	cart, err := s.cartService.requireActiveCart(owner)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	if issues := s.cartService.validateItems(s.db, cart, false); len(issues) > 0 {
		return nil, &CartValidationError{Items: issues}
	}

	policy := s.cartService.Pricing()
	subtotal := 0.0
	for _, item := range cart.Items {
		subtotal += item.Price * float64(item.Quantity)
	}
	subtotal = round2(subtotal)
	tax := round2(subtotal * policy.TaxRate)
	shipping := shippingCost(subtotal, policy, req.ShippingMethod)
	discount := cart.Discount
	total := round2(subtotal + tax + shipping - discount)

	billing := req.ShippingAddress
	sameAsShipping := true
	if req.BillingAddress != nil && !req.BillingAddress.IsZero() {
		billing = *req.BillingAddress
		sameAsShipping = false
	}

	estimatedDelivery := time.Now().AddDate(0, 0, deliveryDays(req.ShippingMethod))

	order := &models.Order{
		UserID:            owner.UserID(),
		SessionID:         owner.SessionID(),
		Subtotal:          subtotal,
		Tax:               tax,
		Shipping:          shipping,
		Discount:          discount,
		Total:             total,
		Currency:          cart.Currency,
		ShippingMethod:    req.ShippingMethod,
		ShippingAddress:   req.ShippingAddress,
		EstimatedDelivery: &estimatedDelivery,
		BillingAddress:    billing,
		SameAsShipping:    sameAsShipping,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     models.PaymentStatusPending,
		Status:            models.OrderStatusPending,
		Notes:             req.Notes,
	}

	for _, item := range cart.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			SKU:       item.Product.SKU,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Total:     round2(item.Price * float64(item.Quantity)),
			Variant:   item.Variant,
		})
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		number, err := nextOrderNumber(tx)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		history := models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  models.OrderStatusPending,
			Note:    "Order created",
			ActorID: owner.UserID(),
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to record order status: %w", err)
		}

		for _, item := range cart.Items {
			if err := decrementInventory(tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		return tx.Model(cart).Update("status", models.CartStatusConverted).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"total":        order.Total,
		"items":        len(order.Items),
	}).Info("Order created")

	if s.notifications != nil {
		email := s.customerEmail(owner, req.Email)
		if email != "" {
			go s.notifications.SendOrderConfirmation(order, email)
		}
	}

	return order, nil
}

// decrementInventory applies a conditional decrement for tracked products.
// The WHERE clause carries the stock check so two concurrent checkouts cannot
// both take the last unit; zero rows affected means insufficient stock.
func decrementInventory(tx *gorm.DB, productID uuid.UUID, quantity int) error {
	var product models.Product
	if err := tx.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}

	if !product.TrackInventory {
		return bumpSalesCount(tx, &product, quantity)
	}

	result := tx.Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", product.ID, quantity).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement inventory: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		if !product.AllowBackorder {
			return &InsufficientInventoryError{
				ProductID: product.ID,
				Available: product.Quantity,
				Requested: quantity,
			}
		}
		// Backorder: consume what is left, never go negative.
		if err := tx.Model(&models.Product{}).
			Where("id = ?", product.ID).
			Update("quantity", 0).Error; err != nil {
			return fmt.Errorf("failed to decrement inventory: %w", err)
		}
	}

	return bumpSalesCount(tx, &product, quantity)
}

func bumpSalesCount(tx *gorm.DB, product *models.Product, quantity int) error {
	return tx.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("sales_count", gorm.Expr("sales_count + ?", quantity)).Error
}

// nextOrderNumber builds "SN" + yymmdd + a zero-padded daily sequence.
// Counting runs inside the checkout transaction.
func nextOrderNumber(tx *gorm.DB) (string, error) {
	prefix := "SN" + time.Now().Format("060102")

	var count int64
	if err := tx.Model(&models.Order{}).
		Where("order_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}

	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (s *CheckoutService) customerEmail(owner models.Owner, provided string) string {
	if provided != "" {
		return provided
	}
	if userID := owner.UserID(); userID != nil {
		var user models.User
		if err := s.db.Select("email").First(&user, "id = ?", *userID).Error; err == nil {
			return user.Email
		}
	}
	return ""
}
