// internal/models/cart.go
package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CartItem is one product (plus optional variant) inside a cart. The unit
// price is captured when the item is added and may drift from the product's
// current price; the drift is reconciled only at validation/checkout time.
type CartItem struct {
	BaseModel
	CartID    uuid.UUID `json:"cart_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	Price     float64   `json:"price" gorm:"type:decimal(10,2);not null"`
	Variant   JSONB     `json:"variant,omitempty" gorm:"type:jsonb"`
	AddedAt   time.Time `json:"added_at"`

	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// Matches reports whether the item is the same product+variant line.
func (i *CartItem) Matches(productID uuid.UUID, variant JSONB) bool {
	return i.ProductID == productID && VariantKey(i.Variant) == VariantKey(variant)
}

// VariantKey canonicalizes a variant map ("size=L|color=blue") so that two
// equal variants compare equal regardless of map ordering.
func VariantKey(variant JSONB) string {
	if len(variant) == 0 {
		return ""
	}
	keys := make([]string, 0, len(variant))
	for k := range variant {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, variant[k]))
	}
	return strings.Join(parts, "|")
}

// PricingPolicy holds the flat-rate tax and shipping rules applied to carts.
type PricingPolicy struct {
	TaxRate               float64
	FreeShippingThreshold float64
	FlatShippingFee       float64
}

const (
	MinItemQuantity = 1
	MaxItemQuantity = 99
)

type Cart struct {
	BaseModel
	UserID         *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`
	SessionID      *string    `json:"session_id,omitempty" gorm:"size:255;index"`
	Items          []CartItem `json:"items" gorm:"foreignKey:CartID"`
	Status         CartStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	Subtotal       float64    `json:"subtotal" gorm:"type:decimal(10,2);default:0"`
	Tax            float64    `json:"tax" gorm:"type:decimal(10,2);default:0"`
	Shipping       float64    `json:"shipping" gorm:"type:decimal(10,2);default:0"`
	Discount       float64    `json:"discount" gorm:"type:decimal(10,2);default:0"`
	Total          float64    `json:"total" gorm:"type:decimal(10,2);default:0"`
	Currency       string     `json:"currency" gorm:"size:3;default:'USD'"`
	ExpiresAt      *time.Time `json:"expires_at"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
}

// Owner reconstructs the owner key from the persisted columns.
func (c *Cart) Owner() Owner {
	if c.UserID != nil {
		return MemberOwner(*c.UserID)
	}
	if c.SessionID != nil {
		return GuestOwner(*c.SessionID)
	}
	return Owner{}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount is the total quantity across all line items.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItem returns the line item matching product+variant, or nil.
func (c *Cart) FindItem(productID uuid.UUID, variant JSONB) *CartItem {
	for i := range c.Items {
		if c.Items[i].Matches(productID, variant) {
			return &c.Items[i]
		}
	}
	return nil
}

// QuantityOf returns the quantity already in the cart for product+variant.
func (c *Cart) QuantityOf(productID uuid.UUID, variant JSONB) int {
	if item := c.FindItem(productID, variant); item != nil {
		return item.Quantity
	}
	return 0
}

// Recalculate recomputes subtotal/tax/shipping/total from the line items.
// The services call it explicitly after every cart mutation; nothing happens
// implicitly at the storage layer.
func (c *Cart) Recalculate(policy PricingPolicy) {
	subtotal := 0.0
	for _, item := range c.Items {
		subtotal += item.Price * float64(item.Quantity)
	}

	c.Subtotal = round2(subtotal)
	c.Tax = round2(c.Subtotal * policy.TaxRate)

	if c.IsEmpty() || c.Subtotal >= policy.FreeShippingThreshold {
		c.Shipping = 0
	} else {
		c.Shipping = round2(policy.FlatShippingFee)
	}

	c.Total = round2(c.Subtotal + c.Tax + c.Shipping - c.Discount)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
