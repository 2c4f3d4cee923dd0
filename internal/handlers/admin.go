// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sunnyshore/shop-backend/internal/services"
	"github.com/sunnyshore/shop-backend/internal/utils"
)

// AdminHandler covers the dashboard surface: order management, refunds and
// stats. Routes are guarded by AuthRequired + AdminRequired.
type AdminHandler struct {
	orderService   *services.OrderService
	paymentService *services.PaymentService
}

func NewAdminHandler(orderService *services.OrderService, paymentService *services.PaymentService) *AdminHandler {
	return &AdminHandler{
		orderService:   orderService,
		paymentService: paymentService,
	}
}

// ListOrders lists all orders with status/payment filters.
func (h *AdminHandler) ListOrders(c *gin.Context) {
	params := utils.ListParamsFromQuery(c)

	orders, total, err := h.orderService.ListOrders(params, c.Query("status"), c.Query("payment_status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.NewPage(orders, total, params))
}

// UpdateOrderStatus overwrites the order status and appends a history row.
func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "status is required", nil)
		return
	}

	order, err := h.orderService.UpdateOrderStatus(orderID, &req, adminActorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// RefundOrder issues a Stripe refund (full by default) and marks the order.
func (h *AdminHandler) RefundOrder(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RefundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "reason is required", nil)
		return
	}

	order, err := h.paymentService.RefundOrder(orderID, &req, adminActorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// GetDashboardStats aggregates order counts and revenue.
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.orderService.GetDashboardStats()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

func adminActorID(c *gin.Context) *uuid.UUID {
	if userIDStr, ok := utils.GetUserIDFromContext(c); ok {
		if userID, err := uuid.Parse(userIDStr); err == nil {
			return &userID
		}
	}
	return nil
}
