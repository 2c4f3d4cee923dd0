// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/sunnyshore/shop-backend/internal/config"
	"github.com/sunnyshore/shop-backend/internal/models"
)

// NotificationService sends transactional email for the order lifecycle.
// Without SMTP configured (development, tests) it logs the message instead.
type NotificationService struct {
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	return &NotificationService{config: cfg}
}

// SendOrderConfirmation emails the order summary after a successful checkout.
func (s *NotificationService) SendOrderConfirmation(order *models.Order, email string) error {
	data := map[string]interface{}{
		"OrderNumber":       order.OrderNumber,
		"CustomerName":      order.ShippingAddress.FirstName,
		"Items":             order.Items,
		"Subtotal":          fmt.Sprintf("%.2f", order.Subtotal),
		"Tax":               fmt.Sprintf("%.2f", order.Tax),
		"Shipping":          fmt.Sprintf("%.2f", order.Shipping),
		"Discount":          fmt.Sprintf("%.2f", order.Discount),
		"Total":             fmt.Sprintf("%.2f", order.Total),
		"Currency":          order.Currency,
		"EstimatedDelivery": order.EstimatedDelivery,
		"TrackingURL":       fmt.Sprintf("%s/orders/track/%s", s.config.Frontend.BaseURL, order.OrderNumber),
	}

	subject := "Order Confirmation - " + order.OrderNumber
	body, err := s.renderTemplate(s.getEmailTemplate("order_confirmation").Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(email, subject, body)
}

// SendOrderStatusUpdate emails the customer when an order reaches a
// customer-visible status.
func (s *NotificationService) SendOrderStatusUpdate(order *models.Order, email string) error {
	data := map[string]interface{}{
		"OrderNumber":    order.OrderNumber,
		"CustomerName":   order.ShippingAddress.FirstName,
		"Status":         statusLabel(order.Status),
		"TrackingNumber": order.TrackingNumber,
		"TrackingURL":    fmt.Sprintf("%s/orders/track/%s", s.config.Frontend.BaseURL, order.OrderNumber),
	}

	subject := fmt.Sprintf("Order %s - %s", order.OrderNumber, statusLabel(order.Status))
	body, err := s.renderTemplate(s.getEmailTemplate("order_status").Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(email, subject, body)
}

func statusLabel(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusConfirmed:
		return "Confirmed"
	case models.OrderStatusShipped:
		return "Shipped"
	case models.OrderStatusDelivered:
		return "Delivered"
	case models.OrderStatusCancelled:
		return "Cancelled"
	case models.OrderStatusRefunded:
		return "Refunded"
	default:
		return string(status)
	}
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPUsername == "" {
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("Email sending skipped (SMTP not configured)")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.config.Email.FromName, s.config.Email.FromEmail, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg); err != nil {
		logrus.WithError(err).WithField("to", to).Error("Failed to send email")
		return err
	}
	return nil
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"order_confirmation": {
			Subject: "Order Confirmation",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Thanks for your order, {{.CustomerName}}!</h2>
	<p>Your order <strong>{{.OrderNumber}}</strong> has been received.</p>
	<table>
		{{range .Items}}
		<tr><td>{{.Name}}</td><td>x{{.Quantity}}</td><td>{{.Total}}</td></tr>
		{{end}}
	</table>
	<p>Subtotal: {{.Subtotal}} {{.Currency}}<br>
	Tax: {{.Tax}} {{.Currency}}<br>
	Shipping: {{.Shipping}} {{.Currency}}<br>
	Discount: -{{.Discount}} {{.Currency}}<br>
	<strong>Total: {{.Total}} {{.Currency}}</strong></p>
	<a href="{{.TrackingURL}}">Track your order</a>
	<p>Sunny Shore</p>
</body>
</html>`,
		},
		"order_status": {
			Subject: "Order Status Update",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Order Update</h2>
	<p>Hello {{.CustomerName}},</p>
	<p>Your order <strong>{{.OrderNumber}}</strong> is now: <strong>{{.Status}}</strong>.</p>
	{{if .TrackingNumber}}<p>Tracking number: {{.TrackingNumber}}</p>{{end}}
	<a href="{{.TrackingURL}}">Track your order</a>
	<p>Sunny Shore</p>
</body>
</html>`,
		},
	}

	if tmpl, exists := templates[templateType]; exists {
		return tmpl
	}

	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
