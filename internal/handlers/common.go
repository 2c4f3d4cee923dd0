// internal/handlers/common.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sunnyshore/shop-backend/internal/models"
	"github.com/sunnyshore/shop-backend/internal/services"
	"github.com/sunnyshore/shop-backend/internal/utils"
)

// resolveOwner identifies the cart/order owner: the authenticated user when a
// token was presented, otherwise the X-Session-ID header for guests. Responds
// 400 and returns false when neither is present.
func resolveOwner(c *gin.Context) (models.Owner, bool) {
	if userIDStr, ok := utils.GetUserIDFromContext(c); ok {
		if userID, err := uuid.Parse(userIDStr); err == nil {
			return models.MemberOwner(userID), true
		}
	}

	if sessionID := c.GetHeader("X-Session-ID"); sessionID != "" {
		return models.GuestOwner(sessionID), true
	}

	utils.ErrorResponse(c, http.StatusBadRequest, "MISSING_OWNER",
		"User authentication or X-Session-ID header is required", nil)
	return models.Owner{}, false
}

// authenticatedUserID returns the user id set by AuthRequired, responding
// 401 when the context carries none.
func authenticatedUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	return userID, true
}

func requesterIsAdmin(c *gin.Context) bool {
	role, _ := utils.GetUserRoleFromContext(c)
	return role == string(models.UserRoleAdmin)
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service-layer errors onto the response envelope.
// Every handler funnels unexpected errors through here so the mapping stays
// in one place.
func respondServiceError(c *gin.Context, err error) {
	var (
		unavailableErr *services.ProductUnavailableError
		inventoryErr   *services.InsufficientInventoryError
		missingErr     *services.MissingFieldError
		cartErr        *services.CartValidationError
		upstreamErr    *services.UpstreamPaymentError
	)

	switch {
	case errors.Is(err, services.ErrProductNotFound):
		utils.NotFoundResponse(c, "Product")
	case errors.Is(err, services.ErrCartNotFound):
		utils.NotFoundResponse(c, "Cart")
	case errors.Is(err, services.ErrOrderNotFound):
		utils.NotFoundResponse(c, "Order")
	case errors.Is(err, services.ErrUserNotFound):
		utils.NotFoundResponse(c, "User")
	case errors.Is(err, services.ErrEmptyCart):
		utils.ErrorResponse(c, http.StatusBadRequest, "EMPTY_CART", "Cart is empty", nil)
	case errors.Is(err, services.ErrMissingOwner):
		utils.ErrorResponse(c, http.StatusBadRequest, "MISSING_OWNER",
			"User authentication or X-Session-ID header is required", nil)
	case errors.Is(err, services.ErrInvalidQuantity):
		utils.BadRequestResponse(c, "Quantity must be between 1 and 99", nil)
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")
	case errors.Is(err, services.ErrDuplicateSKU):
		utils.ConflictResponse(c, "A product with this SKU already exists")
	case errors.Is(err, services.ErrEmailTaken):
		utils.ConflictResponse(c, "An account with this email already exists")
	case errors.Is(err, services.ErrOrderNotCancelable):
		utils.ConflictResponse(c, "Order can no longer be cancelled")
	case errors.Is(err, services.ErrOrderNotRefundable):
		utils.ConflictResponse(c, "Only paid orders can be refunded")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, "Invalid email or password")
	case errors.Is(err, services.ErrAccountSuspended):
		utils.ForbiddenResponse(c, "Account is suspended")

	case errors.As(err, &unavailableErr):
		utils.ErrorResponse(c, http.StatusConflict, "PRODUCT_UNAVAILABLE",
			"Product is not available", gin.H{
				"product_id": unavailableErr.ProductID,
				"status":     unavailableErr.Status,
			})
	case errors.As(err, &inventoryErr):
		utils.ErrorResponse(c, http.StatusConflict, "INSUFFICIENT_INVENTORY",
			"Insufficient inventory", gin.H{
				"product_id": inventoryErr.ProductID,
				"available":  inventoryErr.Available,
				"requested":  inventoryErr.Requested,
			})
	case errors.As(err, &missingErr):
		utils.BadRequestResponse(c, missingErr.Error(), nil)
	case errors.As(err, &cartErr):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "VALIDATION_FAILED",
			"Some cart items are no longer valid", gin.H{"items": cartErr.Items})
	case errors.As(err, &upstreamErr):
		utils.ErrorResponse(c, http.StatusBadGateway, "PAYMENT_GATEWAY_ERROR",
			"Payment could not be processed", nil)

	default:
		utils.InternalErrorResponse(c, "")
	}
}
