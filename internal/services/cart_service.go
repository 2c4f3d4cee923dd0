// internal/services/cart_service.go
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sunnyshore/shop-backend/internal/config"
	"github.com/sunnyshore/shop-backend/internal/database"
	"github.com/sunnyshore/shop-backend/internal/models"
)

// CartService maintains the single active cart per owner and keeps the
// computed totals consistent with the line items. Totals are recomputed by an
// explicit call after every mutation, never by a storage hook.
type CartService struct {
	db      *gorm.DB
	pricing models.PricingPolicy
	ttl     time.Duration
}

var ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")

type CartSummary struct {
	ItemCount          int     `json:"item_count"`
	UniqueProductCount int     `json:"unique_product_count"`
	Subtotal           float64 `json:"subtotal"`
	Tax                float64 `json:"tax"`
	Shipping           float64 `json:"shipping"`
	Discount           float64 `json:"discount"`
	Total              float64 `json:"total"`
	Currency           string  `json:"currency"`
}

func NewCartService(db *gorm.DB, cfg *config.Config) *CartService {
	return &CartService{
		db: db,
		pricing: models.PricingPolicy{
			TaxRate:               cfg.Pricing.TaxRate,
			FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
			FlatShippingFee:       cfg.Pricing.FlatShippingFee,
		},
		ttl: time.Duration(cfg.Cart.TTLDays) * 24 * time.Hour,
	}
}

// Pricing exposes the cart pricing policy to the checkout orchestrator so
// both sides compute totals from the same rules.
func (s *CartService) Pricing() models.PricingPolicy {
	return s.pricing
}

func (s *CartService) findActiveCart(db *gorm.DB, owner models.Owner) (*models.Cart, error) {
	query := db.Preload("Items").Preload("Items.Product").
		Where("status = ?", models.CartStatusActive)

	if userID := owner.UserID(); userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else if sessionID := owner.SessionID(); sessionID != nil {
		query = query.Where("session_id = ? AND user_id IS NULL", *sessionID)
	} else {
		return nil, ErrMissingOwner
	}

	var cart models.Cart
	if err := query.First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &cart, nil
}

// GetOrCreateActiveCart returns the owner's active cart, creating an empty
// one with the configured expiry when none exists. Always succeeds for a
// well-formed owner.
func (s *CartService) GetOrCreateActiveCart(owner models.Owner) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, ErrMissingOwner
	}

	cart, err := s.findActiveCart(s.db, owner)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	expiresAt := time.Now().Add(s.ttl)
	cart = &models.Cart{
		UserID:         owner.UserID(),
		SessionID:      owner.SessionID(),
		Status:         models.CartStatusActive,
		Currency:       "USD",
		ExpiresAt:      &expiresAt,
		LastAccessedAt: time.Now(),
	}

	if err := s.db.Create(cart).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

// AddItem appends a line item, capturing the product's current price. If the
// same product+variant is already in the cart the quantities are summed, and
// the inventory check covers the combined quantity.
func (s *CartService) AddItem(owner models.Owner, productID uuid.UUID, quantity int, variant models.JSONB) (*models.Cart, error) {
	if quantity < models.MinItemQuantity || quantity > models.MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.GetOrCreateActiveCart(owner)
	if err != nil {
		return nil, err
	}

	product, err := s.getProduct(productID)
	if err != nil {
		return nil, err
	}
	if !product.Purchasable() {
		return nil, &ProductUnavailableError{ProductID: productID, Status: product.Status}
	}

	newQuantity := cart.QuantityOf(productID, variant) + quantity
	if newQuantity > models.MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}
	if !product.HasStock(newQuantity) {
		return nil, &InsufficientInventoryError{
			ProductID: productID,
			Available: product.Quantity,
			Requested: newQuantity,
		}
	}

	if existing := cart.FindItem(productID, variant); existing != nil {
		if err := s.db.Model(existing).Update("quantity", newQuantity).Error; err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
	} else {
		item := models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			Price:     product.CurrentPrice(),
			Variant:   variant,
			AddedAt:   time.Now(),
		}
		if err := s.db.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to add cart item: %w", err)
		}
	}

	return s.reloadAndRecalculate(owner)
}

// UpdateItemQuantity sets the line item quantity directly (not additive).
// A quantity of zero or less removes the item.
func (s *CartService) UpdateItemQuantity(owner models.Owner, productID uuid.UUID, quantity int, variant models.JSONB) (*models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(owner, productID, variant)
	}
	if quantity > models.MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.requireActiveCart(owner)
	if err != nil {
		return nil, err
	}

	product, err := s.getProduct(productID)
	if err != nil {
		return nil, err
	}
	if !product.HasStock(quantity) {
		return nil, &InsufficientInventoryError{
			ProductID: productID,
			Available: product.Quantity,
			Requested: quantity,
		}
	}

	item := cart.FindItem(productID, variant)
	if item == nil {
		return cart, nil
	}

	if err := s.db.Model(item).Update("quantity", quantity).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return s.reloadAndRecalculate(owner)
}

// RemoveItem removes the matching line item. Removing an absent item is a
// no-op, not an error.
func (s *CartService) RemoveItem(owner models.Owner, productID uuid.UUID, variant models.JSONB) (*models.Cart, error) {
	cart, err := s.requireActiveCart(owner)
	if err != nil {
		return nil, err
	}

	item := cart.FindItem(productID, variant)
	if item == nil {
		return cart, nil
	}

	if err := s.db.Unscoped().Delete(item).Error; err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}

	return s.reloadAndRecalculate(owner)
}

// ClearCart empties all line items and zeroes the totals, discount included.
func (s *CartService) ClearCart(owner models.Owner) (*models.Cart, error) {
	cart, err := s.requireActiveCart(owner)
	if err != nil {
		return nil, err
	}

	if err := s.db.Unscoped().Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	cart.Items = nil
	cart.Discount = 0
	return cart, s.persistTotals(cart)
}

// MergeGuestCart folds a guest cart's items into the user's cart on login:
// matching product+variant lines are summed, everything else is appended with
// its captured price, and the guest cart is marked converted. Absent or empty
// guest carts make this a no-op.
func (s *CartService) MergeGuestCart(userID uuid.UUID, sessionID string) (*models.Cart, error) {
	if sessionID == "" {
		return nil, ErrMissingOwner
	}

	userOwner := models.MemberOwner(userID)
	userCart, err := s.GetOrCreateActiveCart(userOwner)
	if err != nil {
		return nil, err
	}

	guestCart, err := s.findActiveCart(s.db, models.GuestOwner(sessionID))
	if err != nil {
		return nil, err
	}
	if guestCart == nil || guestCart.IsEmpty() {
		return userCart, nil
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		for _, guestItem := range guestCart.Items {
			if existing := userCart.FindItem(guestItem.ProductID, guestItem.Variant); existing != nil {
				merged := existing.Quantity + guestItem.Quantity
				if merged > models.MaxItemQuantity {
					merged = models.MaxItemQuantity
				}
				if err := tx.Model(existing).Update("quantity", merged).Error; err != nil {
					return fmt.Errorf("failed to merge cart item: %w", err)
				}
			} else {
				item := models.CartItem{
					CartID:    userCart.ID,
					ProductID: guestItem.ProductID,
					Quantity:  guestItem.Quantity,
					Price:     guestItem.Price,
					Variant:   guestItem.Variant,
					AddedAt:   guestItem.AddedAt,
				}
				if err := tx.Create(&item).Error; err != nil {
					return fmt.Errorf("failed to merge cart item: %w", err)
				}
			}
		}

		return tx.Model(guestCart).Update("status", models.CartStatusConverted).Error
	})
	if err != nil {
		return nil, err
	}

	return s.reloadAndRecalculate(userOwner)
}

// GetSummary returns the lightweight totals view used by the cart badge.
// A missing cart yields an all-zero summary rather than an error.
func (s *CartService) GetSummary(owner models.Owner) (*CartSummary, error) {
	if owner.IsZero() {
		return nil, ErrMissingOwner
	}

	cart, err := s.findActiveCart(s.db, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &CartSummary{Currency: "USD"}, nil
	}

	return &CartSummary{
		ItemCount:          cart.ItemCount(),
		UniqueProductCount: len(cart.Items),
		Subtotal:           cart.Subtotal,
		Tax:                cart.Tax,
		Shipping:           cart.Shipping,
		Discount:           cart.Discount,
		Total:              cart.Total,
		Currency:           cart.Currency,
	}, nil
}

// ValidateCart checks every line item against current product state and
// collects all problems, including price drift since the item was added.
func (s *CartService) ValidateCart(owner models.Owner) (*models.Cart, []ItemValidationError, error) {
	cart, err := s.requireActiveCart(owner)
	if err != nil {
		return nil, nil, err
	}
	if cart.IsEmpty() {
		return nil, nil, ErrEmptyCart
	}

	issues := s.validateItems(s.db, cart, true)
	return cart, issues, nil
}

// CleanupExpiredCarts flips active carts past their expiry to expired.
// Called by the periodic sweep in main.
func (s *CartService) CleanupExpiredCarts() (int64, error) {
	result := s.db.Model(&models.Cart{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.CartStatusActive, time.Now()).
		Update("status", models.CartStatusExpired)

	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire carts: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		logrus.WithField("count", result.RowsAffected).Info("Expired stale carts")
	}
	return result.RowsAffected, nil
}

// Helper methods

func (s *CartService) getProduct(productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

func (s *CartService) requireActiveCart(owner models.Owner) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, ErrMissingOwner
	}
	cart, err := s.findActiveCart(s.db, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

func (s *CartService) reloadAndRecalculate(owner models.Owner) (*models.Cart, error) {
	cart, err := s.findActiveCart(s.db, owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, s.persistTotals(cart)
}

func (s *CartService) persistTotals(cart *models.Cart) error {
	cart.Recalculate(s.pricing)
	cart.LastAccessedAt = time.Now()

	err := s.db.Model(cart).Updates(map[string]interface{}{
		"subtotal":         cart.Subtotal,
		"tax":              cart.Tax,
		"shipping":         cart.Shipping,
		"discount":         cart.Discount,
		"total":            cart.Total,
		"last_accessed_at": cart.LastAccessedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to persist cart totals: %w", err)
	}
	return nil
}

// validateItems checks existence, availability and stock for every line item
// without short-circuiting. Price drift is reported only when checkPrice is
// set; checkout treats drift as a repricing concern, not a failure.
func (s *CartService) validateItems(db *gorm.DB, cart *models.Cart, checkPrice bool) []ItemValidationError {
	productIDs := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	var products []models.Product
	db.Where("id IN ?", productIDs).Find(&products)

	productMap := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	var issues []ItemValidationError
	for _, item := range cart.Items {
		product, ok := productMap[item.ProductID]
		if !ok {
			issues = append(issues, ItemValidationError{
				ProductID: item.ProductID,
				Reason:    reasonProductNotFound,
			})
			continue
		}

		if !product.Purchasable() {
			issues = append(issues, ItemValidationError{
				ProductID: item.ProductID,
				Reason:    reasonProductUnavailable,
			})
			continue
		}

		if !product.HasStock(item.Quantity) {
			available := product.Quantity
			requested := item.Quantity
			issues = append(issues, ItemValidationError{
				ProductID: item.ProductID,
				Reason:    reasonInsufficientInventory,
				Available: &available,
				Requested: &requested,
			})
			continue
		}

		if checkPrice && product.CurrentPrice() != item.Price {
			oldPrice := item.Price
			newPrice := product.CurrentPrice()
			issues = append(issues, ItemValidationError{
				ProductID: item.ProductID,
				Reason:    reasonPriceChanged,
				OldPrice:  &oldPrice,
				NewPrice:  &newPrice,
			})
		}
	}

	return issues
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
