// internal/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sunnyshore/shop-backend/internal/models"
	"github.com/sunnyshore/shop-backend/internal/services"
	"github.com/sunnyshore/shop-backend/internal/utils"
)

// CartHandler serves both guests (X-Session-ID header) and authenticated
// users; OptionalAuth resolves the token when present.
type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

type addItemRequest struct {
	ProductID uuid.UUID    `json:"product_id" binding:"required"`
	Quantity  int          `json:"quantity" binding:"required"`
	Variant   models.JSONB `json:"variant,omitempty"`
}

type updateItemRequest struct {
	ProductID uuid.UUID    `json:"product_id" binding:"required"`
	Quantity  int          `json:"quantity"`
	Variant   models.JSONB `json:"variant,omitempty"`
}

type removeItemRequest struct {
	ProductID uuid.UUID    `json:"product_id" binding:"required"`
	Variant   models.JSONB `json:"variant,omitempty"`
}

type mergeCartRequest struct {
	SessionID string `json:"session_id"`
}

// GetCart returns the owner's active cart, creating one when absent.
func (h *CartHandler) GetCart(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	cart, err := h.cartService.GetOrCreateActiveCart(owner)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "product_id and quantity are required", nil)
		return
	}

	cart, err := h.cartService.AddItem(owner, req.ProductID, req.Quantity, req.Variant)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "product_id is required", nil)
		return
	}

	cart, err := h.cartService.UpdateItemQuantity(owner, req.ProductID, req.Quantity, req.Variant)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	var req removeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "product_id is required", nil)
		return
	}

	cart, err := h.cartService.RemoveItem(owner, req.ProductID, req.Variant)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	cart, err := h.cartService.ClearCart(owner)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

// MergeCart folds a guest cart into the authenticated user's cart. Login
// merges automatically; this endpoint covers clients that already hold a
// token (restored session, refresh flow) and never pass through login.
func (h *CartHandler) MergeCart(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	var req mergeCartRequest
	c.ShouldBindJSON(&req)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.GetHeader("X-Session-ID")
	}
	if sessionID == "" {
		utils.BadRequestResponse(c, "session_id is required", nil)
		return
	}

	cart, err := h.cartService.MergeGuestCart(userID, sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

// GetSummary is the lightweight totals endpoint for the cart badge.
func (h *CartHandler) GetSummary(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	summary, err := h.cartService.GetSummary(owner)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, summary)
}

// ValidateCart reports every stale line item at once: removed products,
// inactive products, stock shortfalls and price drift.
func (h *CartHandler) ValidateCart(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	cart, issues, err := h.cartService.ValidateCart(owner)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"cart":   cart,
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}
