// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Address is embedded into orders for both shipping and billing. Orders keep
// their own copy; later profile edits never touch a placed order.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.Country == ""
}

// OrderItem is an immutable snapshot of a cart line at checkout time. Name,
// sku and price are copied from the product so later catalog changes do not
// rewrite purchase history.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	SKU       string    `json:"sku" gorm:"size:100;not null"`
	Price     float64   `json:"price" gorm:"type:decimal(10,2);not null"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	Total     float64   `json:"total" gorm:"type:decimal(10,2);not null"`
	Variant   JSONB     `json:"variant,omitempty" gorm:"type:jsonb"`
}

type Order struct {
	BaseModel
	OrderNumber string     `json:"order_number" gorm:"uniqueIndex;size:20;not null"`
	UserID      *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`
	SessionID   *string    `json:"session_id,omitempty" gorm:"size:255;index"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID"`

	// Pricing breakdown, frozen at checkout
	Subtotal float64 `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	Tax      float64 `json:"tax" gorm:"type:decimal(10,2);default:0"`
	Shipping float64 `json:"shipping" gorm:"type:decimal(10,2);default:0"`
	Discount float64 `json:"discount" gorm:"type:decimal(10,2);default:0"`
	Total    float64 `json:"total" gorm:"type:decimal(10,2);not null"`
	Currency string  `json:"currency" gorm:"size:3;default:'USD'"`

	// Shipping
	ShippingMethod    ShippingMethod `json:"shipping_method" gorm:"type:varchar(20);not null"`
	ShippingAddress   Address        `json:"shipping_address" gorm:"embedded;embeddedPrefix:ship_"`
	TrackingNumber    string         `json:"tracking_number,omitempty" gorm:"size:100"`
	EstimatedDelivery *time.Time     `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time     `json:"delivered_at,omitempty"`

	// Billing
	BillingAddress Address `json:"billing_address" gorm:"embedded;embeddedPrefix:bill_"`
	SameAsShipping bool    `json:"same_as_shipping" gorm:"default:true"`

	// Payment
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'pending';index"`
	TransactionID string        `json:"transaction_id,omitempty" gorm:"size:255"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	RefundedAt    *time.Time    `json:"refunded_at,omitempty"`
	RefundAmount  *float64      `json:"refund_amount,omitempty" gorm:"type:decimal(10,2)"`
	RefundReason  string        `json:"refund_reason,omitempty" gorm:"size:255"`

	Status        OrderStatus    `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Notes         string         `json:"notes,omitempty" gorm:"type:text"`
	InternalNotes string         `json:"-" gorm:"type:text"`
	Tags          pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`

	StatusHistory []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
}

// Owner reconstructs the owner key from the persisted columns.
func (o *Order) Owner() Owner {
	if o.UserID != nil {
		return MemberOwner(*o.UserID)
	}
	if o.SessionID != nil {
		return GuestOwner(*o.SessionID)
	}
	return Owner{}
}

// TotalItems is the total quantity across all line items.
func (o *Order) TotalItems() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// OrderStatusHistory records every status transition, including the initial
// "order created" entry written at checkout.
type OrderStatusHistory struct {
	BaseModel
	OrderID uuid.UUID   `json:"order_id" gorm:"type:uuid;not null;index"`
	Status  OrderStatus `json:"status" gorm:"type:varchar(20);not null"`
	Note    string      `json:"note,omitempty" gorm:"size:255"`
	ActorID *uuid.UUID  `json:"actor_id,omitempty" gorm:"type:uuid"`
}
