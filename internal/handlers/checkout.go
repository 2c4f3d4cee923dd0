// internal/handlers/checkout.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sunnyshore/shop-backend/internal/models"
	"github.com/sunnyshore/shop-backend/internal/services"
	"github.com/sunnyshore/shop-backend/internal/utils"
)

type CheckoutHandler struct {
	checkoutService *services.CheckoutService
}

func NewCheckoutHandler(checkoutService *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// InitializeCheckout re-validates the cart and returns it with the available
// shipping options. All stale items are reported together.
func (h *CheckoutHandler) InitializeCheckout(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	session, err := h.checkoutService.InitializeCheckout(owner)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, session)
}

func (h *CheckoutHandler) GetSession(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	session, err := h.checkoutService.GetSession(owner)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, session)
}

// ApplyDiscountCode always succeeds for a well-formed request; the discount
// amount tells the client whether the code did anything.
func (h *CheckoutHandler) ApplyDiscountCode(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "code is required", nil)
		return
	}

	cart, err := h.checkoutService.ApplyDiscountCode(owner, req.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"cart":     cart,
		"discount": cart.Discount,
		"applied":  cart.Discount > 0,
	})
}

func (h *CheckoutHandler) UpdateShippingMethod(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	var req struct {
		ShippingMethod models.ShippingMethod `json:"shipping_method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "shipping_method is required", nil)
		return
	}

	cart, err := h.checkoutService.UpdateShippingMethod(owner, req.ShippingMethod)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

// ProcessCheckout converts the cart into an order.
func (h *CheckoutHandler) ProcessCheckout(c *gin.Context) {
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	order, err := h.checkoutService.ProcessCheckout(owner, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, order)
}
