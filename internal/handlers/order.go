// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sunnyshore/shop-backend/internal/services"
	"github.com/sunnyshore/shop-backend/internal/utils"
)

type OrderHandler struct {
	orderService   *services.OrderService
	paymentService *services.PaymentService
}

func NewOrderHandler(orderService *services.OrderService, paymentService *services.PaymentService) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		paymentService: paymentService,
	}
}

// GetOrder returns the full order for its owner (or an admin).
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(orderID, owner, requesterIsAdmin(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// GetOrderConfirmation returns the flat confirmation projection.
func (h *OrderHandler) GetOrderConfirmation(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	confirmation, err := h.orderService.GenerateOrderConfirmation(orderID, owner, requesterIsAdmin(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, confirmation)
}

// TrackOrder is the public tracking lookup by order number. No auth, no
// owner check; it only exposes shipment progress.
func (h *OrderHandler) TrackOrder(c *gin.Context) {
	orderNumber := c.Param("orderNumber")
	if orderNumber == "" {
		utils.BadRequestResponse(c, "order number is required", nil)
		return
	}

	tracking, err := h.orderService.GetOrderTracking(orderNumber)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, tracking)
}

// GetOrderHistory lists the authenticated user's orders, newest first.
func (h *OrderHandler) GetOrderHistory(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	params := utils.ListParamsFromQuery(c)
	orders, total, err := h.orderService.GetUserOrderHistory(userID, params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.NewPage(orders, total, params))
}

// CancelOrder cancels a not-yet-shipped order and restocks inventory.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "Cancelled by customer"
	}

	order, err := h.orderService.CancelOrder(orderID, req.Reason, owner, requesterIsAdmin(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// Payment endpoints

func (h *OrderHandler) CreatePaymentIntent(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	resp, err := h.paymentService.CreatePaymentIntent(orderID, owner, requesterIsAdmin(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, resp)
}

func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	owner, ok := resolveOwner(c)
	if !ok {
		return
	}

	var req services.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "payment_intent_id is required", nil)
		return
	}

	order, err := h.paymentService.ConfirmPayment(orderID, &req, owner, requesterIsAdmin(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}
