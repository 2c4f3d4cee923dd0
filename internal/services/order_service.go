// internal/services/order_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sunnyshore/shop-backend/internal/database"
	"github.com/sunnyshore/shop-backend/internal/models"
	"github.com/sunnyshore/shop-backend/internal/utils"
)

// OrderService owns the order lifecycle after checkout: confirmations,
// tracking, status transitions and cancellation. Orders are never deleted;
// every transition appends a status-history row.
type OrderService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewOrderService(db *gorm.DB, notifications *NotificationService) *OrderService {
	return &OrderService{db: db, notifications: notifications}
}

type UpdateOrderStatusRequest struct {
	Status         models.OrderStatus    `json:"status" binding:"required"`
	PaymentStatus  *models.PaymentStatus `json:"payment_status,omitempty"`
	TrackingNumber *string               `json:"tracking_number,omitempty"`
	Notes          *string               `json:"notes,omitempty"`
}

// OrderConfirmation is the flat projection rendered after checkout and in
// confirmation emails.
type OrderConfirmation struct {
	OrderNumber       string             `json:"order_number"`
	Status            models.OrderStatus `json:"status"`
	PlacedAt          time.Time          `json:"placed_at"`
	Items             []models.OrderItem `json:"items"`
	TotalItems        int                `json:"total_items"`
	Subtotal          float64            `json:"subtotal"`
	Tax               float64            `json:"tax"`
	Shipping          float64            `json:"shipping"`
	Discount          float64            `json:"discount"`
	Total             float64            `json:"total"`
	Currency          string             `json:"currency"`
	PaymentMethod     models.PaymentMethod `json:"payment_method"`
	ShippingMethod    models.ShippingMethod `json:"shipping_method"`
	ShippingAddress   models.Address     `json:"shipping_address"`
	BillingAddress    models.Address     `json:"billing_address"`
	EstimatedDelivery *time.Time         `json:"estimated_delivery,omitempty"`
	CustomerName      string             `json:"customer_name,omitempty"`
	CustomerEmail     string             `json:"customer_email,omitempty"`
	Guest             bool               `json:"guest"`
}

// OrderTracking is the public tracking view looked up by order number.
type OrderTracking struct {
	OrderNumber       string                      `json:"order_number"`
	Status            models.OrderStatus          `json:"status"`
	TrackingNumber    string                      `json:"tracking_number,omitempty"`
	ShippingMethod    models.ShippingMethod       `json:"shipping_method"`
	EstimatedDelivery *time.Time                  `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time                  `json:"delivered_at,omitempty"`
	History           []models.OrderStatusHistory `json:"history"`
}

type DashboardStats struct {
	TotalOrders    int64                        `json:"total_orders"`
	OrdersByStatus map[models.OrderStatus]int64 `json:"orders_by_status"`
	TotalRevenue   float64                      `json:"total_revenue"`
	OrdersToday    int64                        `json:"orders_today"`
	RevenueToday   float64                      `json:"revenue_today"`
}

// notifiableStatuses are the transitions that trigger a customer email.
var notifiableStatuses = map[models.OrderStatus]bool{
	models.OrderStatusConfirmed: true,
	models.OrderStatusShipped:   true,
	models.OrderStatusDelivered: true,
	models.OrderStatusCancelled: true,
}

func (s *OrderService) getOrder(db *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := db.Preload("Items").First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}

// GetOrder loads an order and enforces ownership: admins see everything,
// everyone else only their own orders.
func (s *OrderService) GetOrder(orderID uuid.UUID, requester models.Owner, isAdmin bool) (*models.Order, error) {
	order, err := s.getOrder(s.db, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !ownsOrder(order, requester) {
		return nil, ErrForbidden
	}
	return order, nil
}

func ownsOrder(order *models.Order, requester models.Owner) bool {
	if userID := requester.UserID(); userID != nil {
		return order.UserID != nil && *order.UserID == *userID
	}
	if sessionID := requester.SessionID(); sessionID != nil {
		return order.SessionID != nil && *order.SessionID == *sessionID
	}
	return false
}

// GenerateOrderConfirmation builds the flat confirmation projection.
func (s *OrderService) GenerateOrderConfirmation(orderID uuid.UUID, requester models.Owner, isAdmin bool) (*OrderConfirmation, error) {
	order, err := s.GetOrder(orderID, requester, isAdmin)
	if err != nil {
		return nil, err
	}

	confirmation := &OrderConfirmation{
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		PlacedAt:          order.CreatedAt,
		Items:             order.Items,
		TotalItems:        order.TotalItems(),
		Subtotal:          order.Subtotal,
		Tax:               order.Tax,
		Shipping:          order.Shipping,
		Discount:          order.Discount,
		Total:             order.Total,
		Currency:          order.Currency,
		PaymentMethod:     order.PaymentMethod,
		ShippingMethod:    order.ShippingMethod,
		ShippingAddress:   order.ShippingAddress,
		BillingAddress:    order.BillingAddress,
		EstimatedDelivery: order.EstimatedDelivery,
		Guest:             order.UserID == nil,
	}

	if order.UserID != nil {
		var user models.User
		if err := s.db.Select("name", "email").First(&user, "id = ?", *order.UserID).Error; err == nil {
			confirmation.CustomerName = user.Name
			confirmation.CustomerEmail = user.Email
		}
	}

	return confirmation, nil
}

// GetOrderTracking is the public lookup by order number. It exposes only
// shipment progress, never addresses or payment details.
func (s *OrderService) GetOrderTracking(orderNumber string) (*OrderTracking, error) {
	var order models.Order
	err := s.db.Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&order, "order_number = ?", orderNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &OrderTracking{
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		TrackingNumber:    order.TrackingNumber,
		ShippingMethod:    order.ShippingMethod,
		EstimatedDelivery: order.EstimatedDelivery,
		DeliveredAt:       order.DeliveredAt,
		History:           order.StatusHistory,
	}, nil
}

// GetUserOrderHistory lists a user's orders newest first, paginated.
func (s *OrderService) GetUserOrderHistory(userID uuid.UUID, params utils.ListParams) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	var orders []models.Order
	err := query.Preload("Items").
		Order("created_at DESC").
		Scopes(params.PageScope()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}
	return orders, total, nil
}

// UpdateOrderStatus overwrites the order status (no transition table), appends
// a history row and notifies the customer for the visible transitions.
func (s *OrderService) UpdateOrderStatus(orderID uuid.UUID, req *UpdateOrderStatusRequest, actorID *uuid.UUID) (*models.Order, error) {
	order, err := s.getOrder(s.db, orderID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": req.Status}
	note := ""

	if req.PaymentStatus != nil {
		updates["payment_status"] = *req.PaymentStatus
		if *req.PaymentStatus == models.PaymentStatusPaid && order.PaidAt == nil {
			updates["paid_at"] = time.Now()
		}
	}
	if req.TrackingNumber != nil {
		updates["tracking_number"] = *req.TrackingNumber
	}
	if req.Notes != nil {
		note = *req.Notes
	}
	if req.Status == models.OrderStatusDelivered && order.DeliveredAt == nil {
		updates["delivered_at"] = time.Now()
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		history := models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  req.Status,
			Note:    note,
			ActorID: actorID,
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, err
	}

	order, err = s.getOrder(s.db, orderID)
	if err != nil {
		return nil, err
	}

	s.notifyStatusChange(order)
	return order, nil
}

// CancelOrder cancels a pending/confirmed/processing order and restocks the
// tracked inventory in the same transaction.
func (s *OrderService) CancelOrder(orderID uuid.UUID, reason string, requester models.Owner, isAdmin bool) (*models.Order, error) {
	order, err := s.GetOrder(orderID, requester, isAdmin)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusProcessing:
	default:
		return nil, ErrOrderNotCancelable
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(order).Update("status", models.OrderStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		history := models.OrderStatusHistory{
			OrderID: order.ID,
			Status:  models.OrderStatusCancelled,
			Note:    reason,
			ActorID: requester.UserID(),
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		for _, item := range order.Items {
			err := tx.Model(&models.Product{}).
				Where("id = ? AND track_inventory = ?", item.ProductID, true).
				Update("quantity", gorm.Expr("quantity + ?", item.Quantity)).Error
			if err != nil {
				return fmt.Errorf("failed to restock inventory: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusCancelled
	logrus.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"reason":       reason,
	}).Info("Order cancelled")

	s.notifyStatusChange(order)
	return order, nil
}

// ListOrders is the admin listing with status/payment filters.
func (s *OrderService) ListOrders(params utils.ListParams, status, paymentStatus string) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{})

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if params.Search != "" {
		query = query.Where("order_number ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	var orders []models.Order
	err := query.Preload("Items").
		Scopes(params.Scope("created_at", "total", "status", "order_number")).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}
	return orders, total, nil
}

// GetDashboardStats aggregates order counts and revenue for the admin
// dashboard. Revenue counts paid orders only.
func (s *OrderService) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{OrdersByStatus: make(map[models.OrderStatus]int64)}

	if err := s.db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	err := s.db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	for _, row := range rows {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	err = s.db.Model(&models.Order{}).
		Where("payment_status = ?", models.PaymentStatusPaid).
		Select("COALESCE(SUM(total), 0)").
		Scan(&stats.TotalRevenue).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	startOfDay := time.Now().Truncate(24 * time.Hour)
	if err := s.db.Model(&models.Order{}).
		Where("created_at >= ?", startOfDay).
		Count(&stats.OrdersToday).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	err = s.db.Model(&models.Order{}).
		Where("created_at >= ? AND payment_status = ?", startOfDay, models.PaymentStatusPaid).
		Select("COALESCE(SUM(total), 0)").
		Scan(&stats.RevenueToday).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return stats, nil
}

func (s *OrderService) notifyStatusChange(order *models.Order) {
	if s.notifications == nil || !notifiableStatuses[order.Status] {
		return
	}

	email := ""
	if order.UserID != nil {
		var user models.User
		if err := s.db.Select("email").First(&user, "id = ?", *order.UserID).Error; err == nil {
			email = user.Email
		}
	}
	if email == "" {
		return
	}

	go s.notifications.SendOrderStatusUpdate(order, email)
}
