// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sunnyshore/shop-backend/internal/models"
)

// Sentinel errors shared by the cart/checkout/order services. Handlers map
// them onto HTTP status codes with errors.Is / errors.As instead of matching
// on message text.
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCartNotFound       = errors.New("cart not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingOwner       = errors.New("user ID or session ID is required")
	ErrForbidden          = errors.New("access denied")
	ErrDuplicateSKU       = errors.New("a product with this SKU already exists")
	ErrOrderNotCancelable = errors.New("order can no longer be cancelled")
)

// ProductUnavailableError is returned when a product exists but is not
// purchasable (inactive, discontinued, out of stock).
type ProductUnavailableError struct {
	ProductID uuid.UUID
	Status    models.ProductStatus
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available (status %s)", e.ProductID, e.Status)
}

// InsufficientInventoryError carries available vs requested for client display.
type InsufficientInventoryError struct {
	ProductID uuid.UUID
	Available int
	Requested int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// MissingFieldError is returned by checkout when a required input is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return e.Field + " is required"
}

// ItemValidationError describes one offending cart line. Validation never
// short-circuits: the caller receives every problem at once so the UI can
// highlight all of them.
type ItemValidationError struct {
	ProductID uuid.UUID `json:"product_id"`
	Reason    string    `json:"error"`
	Available *int      `json:"available,omitempty"`
	Requested *int      `json:"requested,omitempty"`
	OldPrice  *float64  `json:"old_price,omitempty"`
	NewPrice  *float64  `json:"new_price,omitempty"`
}

// CartValidationError aggregates all offending line items.
type CartValidationError struct {
	Items []ItemValidationError
}

func (e *CartValidationError) Error() string {
	return fmt.Sprintf("cart validation failed for %d item(s)", len(e.Items))
}

const (
	reasonProductNotFound       = "Product not found"
	reasonProductUnavailable    = "Product is not available"
	reasonInsufficientInventory = "Insufficient inventory"
	reasonPriceChanged          = "Price has changed"
)
