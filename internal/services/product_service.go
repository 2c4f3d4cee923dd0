// internal/services/product_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/sunnyshore/shop-backend/internal/models"
	"github.com/sunnyshore/shop-backend/internal/utils"
)

type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

type CreateProductRequest struct {
	Name             string                 `json:"name" binding:"required" validate:"required,min=2,max=100"`
	Description      string                 `json:"description"`
	ShortDescription string                 `json:"short_description" validate:"max=200"`
	SKU              string                 `json:"sku" binding:"required" validate:"required,min=2,max=100"`
	Type             models.ProductType     `json:"type"`
	Category         string                 `json:"category" validate:"max=100"`
	BasePrice        float64                `json:"base_price" binding:"required" validate:"required,gt=0"`
	SalePrice        *float64               `json:"sale_price,omitempty" validate:"omitempty,gt=0"`
	Quantity         int                    `json:"quantity" validate:"gte=0"`
	LowStockLevel    int                    `json:"low_stock_level" validate:"gte=0"`
	TrackInventory   *bool                  `json:"track_inventory,omitempty"`
	AllowBackorder   bool                   `json:"allow_backorder"`
	Images           []string               `json:"images"`
	Tags             []string               `json:"tags"`
	Specifications   map[string]interface{} `json:"specifications"`
	Featured         bool                   `json:"featured"`
}

type UpdateProductRequest struct {
	Name             *string                `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description      *string                `json:"description,omitempty"`
	ShortDescription *string                `json:"short_description,omitempty" validate:"omitempty,max=200"`
	Category         *string                `json:"category,omitempty" validate:"omitempty,max=100"`
	BasePrice        *float64               `json:"base_price,omitempty" validate:"omitempty,gt=0"`
	SalePrice        *float64               `json:"sale_price,omitempty"`
	Quantity         *int                   `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	LowStockLevel    *int                   `json:"low_stock_level,omitempty" validate:"omitempty,gte=0"`
	TrackInventory   *bool                  `json:"track_inventory,omitempty"`
	AllowBackorder   *bool                  `json:"allow_backorder,omitempty"`
	Images           []string               `json:"images,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	Specifications   map[string]interface{} `json:"specifications,omitempty"`
	Status           *models.ProductStatus  `json:"status,omitempty"`
	Featured         *bool                  `json:"featured,omitempty"`
}

// CreateProduct inserts a new catalog entry. A taken SKU is a conflict, not a
// validation error.
func (s *ProductService) CreateProduct(req *CreateProductRequest) (*models.Product, error) {
	var count int64
	if err := s.db.Model(&models.Product{}).Where("sku = ?", req.SKU).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateSKU
	}

	productType := req.Type
	if productType == "" {
		productType = models.ProductTypePhysical
	}
	trackInventory := true
	if req.TrackInventory != nil {
		trackInventory = *req.TrackInventory
	}
	lowStockLevel := req.LowStockLevel
	if lowStockLevel == 0 {
		lowStockLevel = 5
	}

	product := &models.Product{
		Name:             req.Name,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		SKU:              req.SKU,
		Type:             productType,
		Category:         req.Category,
		BasePrice:        req.BasePrice,
		SalePrice:        req.SalePrice,
		Currency:         "USD",
		Quantity:         req.Quantity,
		LowStockLevel:    lowStockLevel,
		TrackInventory:   trackInventory,
		AllowBackorder:   req.AllowBackorder,
		Images:           pq.StringArray(req.Images),
		Tags:             pq.StringArray(req.Tags),
		Specifications:   models.JSONB(req.Specifications),
		Status:           models.ProductStatusActive,
		Featured:         req.Featured,
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// GetProduct loads a product and bumps its view counter.
func (s *ProductService) GetProduct(productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	s.db.Model(&product).UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	product.ViewCount++

	return &product, nil
}

func (s *ProductService) GetProductBySKU(sku string) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

// ListProducts is the storefront listing: active products only, with search,
// category/tag filters, sorting and pagination.
func (s *ProductService) ListProducts(params utils.ListParams, tag string, featured *bool, includeInactive bool) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{})

	if !includeInactive {
		query = query.Where("status = ?", models.ProductStatusActive)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if tag != "" {
		query = query.Where("? = ANY(tags)", tag)
	}
	if featured != nil {
		query = query.Where("featured = ?", *featured)
	}
	if params.Search != "" {
		term := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(sku) LIKE ?", term, term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	var products []models.Product
	err := query.
		Scopes(params.Scope("created_at", "name", "base_price", "sales_count", "view_count", "quantity")).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}
	return products, total, nil
}

// GetPopularProducts returns the best sellers among active products.
func (s *ProductService) GetPopularProducts(limit int) ([]models.Product, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	var products []models.Product
	err := s.db.Where("status = ?", models.ProductStatusActive).
		Order("sales_count DESC, view_count DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return products, nil
}

// GetFeaturedProducts returns the curated featured set.
func (s *ProductService) GetFeaturedProducts(limit int) ([]models.Product, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	var products []models.Product
	err := s.db.Where("status = ? AND featured = ?", models.ProductStatusActive, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return products, nil
}

// UpdateProduct applies a partial update. Only fields present in the request
// change; line items on past orders are never touched.
func (s *ProductService) UpdateProduct(productID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ShortDescription != nil {
		updates["short_description"] = *req.ShortDescription
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.BasePrice != nil {
		updates["base_price"] = *req.BasePrice
	}
	if req.SalePrice != nil {
		updates["sale_price"] = *req.SalePrice
	}
	if req.Quantity != nil {
		updates["quantity"] = *req.Quantity
	}
	if req.LowStockLevel != nil {
		updates["low_stock_level"] = *req.LowStockLevel
	}
	if req.TrackInventory != nil {
		updates["track_inventory"] = *req.TrackInventory
	}
	if req.AllowBackorder != nil {
		updates["allow_backorder"] = *req.AllowBackorder
	}
	if req.Images != nil {
		updates["images"] = pq.StringArray(req.Images)
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(req.Tags)
	}
	if req.Specifications != nil {
		updates["specifications"] = models.JSONB(req.Specifications)
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Featured != nil {
		updates["featured"] = *req.Featured
	}

	if len(updates) > 0 {
		if err := s.db.Model(&product).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}

	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

// DeleteProduct soft-deletes the catalog entry. Order snapshots keep their
// copied name/sku/price, so history stays intact.
func (s *ProductService) DeleteProduct(productID uuid.UUID) error {
	result := s.db.Delete(&models.Product{}, "id = ?", productID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AddProductImage appends an uploaded image URL to the product.
func (s *ProductService) AddProductImage(productID uuid.UUID, imageURL string) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	product.Images = append(product.Images, imageURL)
	if err := s.db.Model(&product).Update("images", product.Images).Error; err != nil {
		return nil, fmt.Errorf("failed to update product images: %w", err)
	}
	return &product, nil
}

// GetLowStockProducts lists tracked products at or below their low-stock
// level, for the admin dashboard.
func (s *ProductService) GetLowStockProducts() ([]models.Product, error) {
	var products []models.Product
	err := s.db.Where("track_inventory = ? AND quantity <= low_stock_level AND status = ?",
		true, models.ProductStatusActive).
		Order("quantity ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return products, nil
}

// ListCategories returns the distinct non-empty categories of active products.
func (s *ProductService) ListCategories() ([]string, error) {
	var categories []string
	err := s.db.Model(&models.Product{}).
		Where("status = ? AND category <> ''", models.ProductStatusActive).
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return categories, nil
}
