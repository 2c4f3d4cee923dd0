// internal/models/product.go
package models

import (
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	Name             string         `json:"name" gorm:"size:100;not null"`
	Description      string         `json:"description" gorm:"type:text"`
	ShortDescription string         `json:"short_description" gorm:"size:200"`
	SKU              string         `json:"sku" gorm:"uniqueIndex;size:100;not null"`
	Type             ProductType    `json:"type" gorm:"type:varchar(20);default:'physical'"`
	Category         string         `json:"category" gorm:"size:100;index"`
	BasePrice        float64        `json:"base_price" gorm:"type:decimal(10,2);not null"`
	SalePrice        *float64       `json:"sale_price,omitempty" gorm:"type:decimal(10,2)"`
	Currency         string         `json:"currency" gorm:"size:3;default:'USD'"`
	Quantity         int            `json:"quantity" gorm:"default:0"`
	LowStockLevel    int            `json:"low_stock_level" gorm:"default:5"`
	TrackInventory   bool           `json:"track_inventory" gorm:"default:true"`
	AllowBackorder   bool           `json:"allow_backorder" gorm:"default:false"`
	Images           pq.StringArray `json:"images" gorm:"type:text[]"`
	Tags             pq.StringArray `json:"tags" gorm:"type:text[]"`
	Specifications   JSONB          `json:"specifications" gorm:"type:jsonb"`
	Status           ProductStatus  `json:"status" gorm:"type:varchar(20);default:'active';index"`
	Featured         bool           `json:"featured" gorm:"default:false"`
	SalesCount       int64          `json:"sales_count" gorm:"default:0"`
	ViewCount        int64          `json:"view_count" gorm:"default:0"`
}

// CurrentPrice is the price captured into a cart line item at add time: the
// sale price when one is set, the base price otherwise.
func (p *Product) CurrentPrice() float64 {
	if p.SalePrice != nil && *p.SalePrice > 0 && *p.SalePrice < p.BasePrice {
		return *p.SalePrice
	}
	return p.BasePrice
}

// Purchasable reports whether the product can be added to a cart at all.
// Stock levels are checked separately.
func (p *Product) Purchasable() bool {
	return p.Status == ProductStatusActive
}

// HasStock reports whether the requested quantity is available. Untracked
// inventory and backorder-enabled products always have stock.
func (p *Product) HasStock(quantity int) bool {
	if !p.TrackInventory || p.AllowBackorder {
		return true
	}
	return p.Quantity >= quantity
}
