// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"gorm.io/gorm"

	"github.com/sunnyshore/shop-backend/internal/config"
	"github.com/sunnyshore/shop-backend/internal/database"
	"github.com/sunnyshore/shop-backend/internal/models"
)

// PaymentService is a thin wrapper around Stripe payment intents, mapped onto
// orders. Gateway failures are wrapped as UpstreamPaymentError so handlers can
// return a gateway-style status without leaking Stripe internals.
type PaymentService struct {
	db           *gorm.DB
	orderService *OrderService
}

var ErrOrderNotRefundable = errors.New("only paid orders can be refunded")

// UpstreamPaymentError wraps a failure reported by the payment gateway.
type UpstreamPaymentError struct {
	Op  string
	Err error
}

func (e *UpstreamPaymentError) Error() string {
	return fmt.Sprintf("payment gateway error during %s: %v", e.Op, e.Err)
}

func (e *UpstreamPaymentError) Unwrap() error {
	return e.Err
}

func NewPaymentService(db *gorm.DB, cfg *config.Config, orderService *OrderService) *PaymentService {
	stripe.Key = cfg.Payment.StripeSecretKey

	return &PaymentService{
		db:           db,
		orderService: orderService,
	}
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

type RefundOrderRequest struct {
	Amount float64 `json:"amount,omitempty"`
	Reason string  `json:"reason" binding:"required"`
}

// CreatePaymentIntent opens a Stripe payment intent for the order total.
func (s *PaymentService) CreatePaymentIntent(orderID uuid.UUID, requester models.Owner, isAdmin bool) (*PaymentIntentResponse, error) {
	order, err := s.orderService.GetOrder(orderID, requester, isAdmin)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(order.Total)),
		Currency: stripe.String("usd"),
	}
	params.AddMetadata("order_number", order.OrderNumber)
	params.AddMetadata("order_id", order.ID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, &UpstreamPaymentError{Op: "create payment intent", Err: err}
	}

	s.db.Model(order).Update("transaction_id", pi.ID)

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// ConfirmPayment reads the payment intent back from Stripe and moves the
// order to paid/confirmed when it succeeded. Anything else leaves the order
// payable and records the failure.
func (s *PaymentService) ConfirmPayment(orderID uuid.UUID, req *ConfirmPaymentRequest, requester models.Owner, isAdmin bool) (*models.Order, error) {
	order, err := s.orderService.GetOrder(orderID, requester, isAdmin)
	if err != nil {
		return nil, err
	}

	pi, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		return nil, &UpstreamPaymentError{Op: "confirm payment", Err: err}
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		update := &UpdateOrderStatusRequest{
			Status:        models.OrderStatusConfirmed,
			PaymentStatus: paymentStatusPtr(models.PaymentStatusPaid),
			Notes:         stringPtr("Payment received"),
		}
		order, err = s.orderService.UpdateOrderStatus(order.ID, update, nil)
		if err != nil {
			return nil, err
		}
		s.db.Model(order).Update("transaction_id", pi.ID)
		order.TransactionID = pi.ID

		logrus.WithFields(logrus.Fields{
			"order_number": order.OrderNumber,
			"payment_id":   pi.ID,
		}).Info("Payment confirmed")

	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusProcessing:
		// Still in flight; leave the order pending.

	default:
		s.db.Model(order).Update("payment_status", models.PaymentStatusFailed)
		order.PaymentStatus = models.PaymentStatusFailed
	}

	return order, nil
}

// RefundOrder issues a Stripe refund (full when no amount given) and marks
// the order refunded. Admin only; enforced at the route.
func (s *PaymentService) RefundOrder(orderID uuid.UUID, req *RefundOrderRequest, adminID *uuid.UUID) (*models.Order, error) {
	order, err := s.orderService.getOrder(s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentStatusPaid {
		return nil, ErrOrderNotRefundable
	}

	amount := req.Amount
	if amount <= 0 || amount > order.Total {
		amount = order.Total
	}
	partial := amount < order.Total

	if order.TransactionID != "" {
		params := &stripe.RefundParams{
			PaymentIntent: stripe.String(order.TransactionID),
			Amount:        stripe.Int64(toCents(amount)),
			Reason:        stripe.String("requested_by_customer"),
		}
		if _, err := refund.New(params); err != nil {
			return nil, &UpstreamPaymentError{Op: "refund", Err: err}
		}
	}

	now := time.Now()
	paymentStatus := models.PaymentStatusRefunded
	if partial {
		paymentStatus = models.PaymentStatusPartiallyRefunded
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"payment_status": paymentStatus,
			"refunded_at":    now,
			"refund_amount":  amount,
			"refund_reason":  req.Reason,
		}
		if !partial {
			updates["status"] = models.OrderStatusRefunded
		}
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		if !partial {
			history := models.OrderStatusHistory{
				OrderID: order.ID,
				Status:  models.OrderStatusRefunded,
				Note:    req.Reason,
				ActorID: adminID,
			}
			return tx.Create(&history).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.orderService.getOrder(s.db, orderID)
}

// toCents converts a dollar amount to Stripe's integer cents. Rounding, not
// truncation: float math on totals like 19.99*3 can land a hair under the
// exact cent value.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func paymentStatusPtr(s models.PaymentStatus) *models.PaymentStatus { return &s }
func stringPtr(s string) *string                                    { return &s }
