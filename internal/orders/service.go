package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/goldenfragrance/shop/internal/cart"
	"github.com/goldenfragrance/shop/internal/logging"
	"github.com/goldenfragrance/shop/internal/models"
	"github.com/goldenfragrance/shop/internal/notify"
	"github.com/goldenfragrance/shop/internal/payment"
)

const (
	// Flat shipping in whole CZK; tax is folded into prices.
	DefaultShippingCost = 250
	DefaultTaxAmount    = 0
	Currency            = "czk"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

// Gateway is the slice of the payment client the lifecycle needs.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, create payment.CreateSession) (*payment.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*payment.CheckoutSession, error)
}

// Service owns every order state transition. Both confirmation entry points
// (success redirect and webhook) funnel into the same ConfirmPaid so the
// two paths can only race idempotently.
type Service struct {
	DB       *gorm.DB
	Gateway  Gateway
	Notifier notify.Notifier
	BaseURL  string
}

type ShippingDetails struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Checkout turns the session cart into a pending order plus price-snapshot
// line items and opens a gateway checkout session. If the gateway call
// fails the just-created order is deleted again: no pending order survives
// an initiation failure. Returns the order and the gateway redirect URL.
func (s *Service) Checkout(ctx context.Context, user *models.User, ship ShippingDetails, ct cart.Cart) (*models.Order, string, error) {
	l := logging.FromContext(ctx).With("component", "orders")

	lines, total, _, err := ct.Materialize(s.DB)
	if err != nil {
		return nil, "", fmt.Errorf("materialize cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, "", ErrEmptyCart
	}

	order := models.Order{
		UserID:       user.ID,
		FullName:     ship.FullName,
		Email:        ship.Email,
		Address:      ship.Address,
		City:         ship.City,
		PostalCode:   ship.PostalCode,
		Country:      ship.Country,
		Status:       models.OrderStatusPending,
		TotalAmount:  total,
		ShippingCost: DefaultShippingCost,
		TaxAmount:    DefaultTaxAmount,
	}
	if err := s.DB.Create(&order).Error; err != nil {
		return nil, "", fmt.Errorf("create order: %w", err)
	}

	for _, line := range lines {
		item := models.OrderItem{
			OrderID:   order.ID,
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
		}
		if err := s.DB.Create(&item).Error; err != nil {
			return nil, "", fmt.Errorf("create order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := s.Notifier.NewOrderAlert(ctx, &order); err != nil {
		l.Warn("admin_alert_failed", "order_number", order.OrderNumber, "error", err)
	}

	session, err := s.Gateway.CreateCheckoutSession(ctx, payment.CreateSession{
		LineItem: payment.LineItem{
			Currency:    Currency,
			Description: fmt.Sprintf("Order #%s - Golden Fragrance", order.OrderNumber),
			UnitAmount:  order.FinalTotal(),
			Quantity:    1,
		},
		Mode:          "payment",
		SuccessURL:    fmt.Sprintf("%s/api/v1/orders/payment-success/%d?session_id={CHECKOUT_SESSION_ID}", s.BaseURL, order.ID),
		CancelURL:     fmt.Sprintf("%s/api/v1/orders/payment-cancel/%d", s.BaseURL, order.ID),
		CustomerEmail: user.Email,
		Metadata: map[string]string{
			"order_id": strconv.FormatUint(uint64(order.ID), 10),
			"user_id":  strconv.FormatUint(uint64(user.ID), 10),
		},
	})
	if err != nil {
		// Compensating rollback, line items go with the order.
		if delErr := s.DB.Select("Items").Delete(&order).Error; delErr != nil {
			l.Error("checkout_rollback_failed", "order_id", order.ID, "error", delErr)
		}
		return nil, "", fmt.Errorf("create checkout session: %w", err)
	}

	order.GatewaySessionID = session.ID
	if err := s.DB.Save(&order).Error; err != nil {
		return nil, "", fmt.Errorf("store gateway session: %w", err)
	}

	l.Info("checkout_started", "order_number", order.OrderNumber, "session_id", session.ID)
	return &order, session.URL, nil
}

// ConfirmPaid applies pending -> confirmed. Confirming an order that is
// already confirmed is a successful no-op, which is what makes the webhook
// and the redirect path safe to race. Any other status is left untouched.
func (s *Service) ConfirmPaid(ctx context.Context, orderID uint, paymentRef string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Status != models.OrderStatusPending {
		return &order, nil
	}

	old := order.Status
	order.Status = models.OrderStatusConfirmed
	order.GatewayPaymentID = paymentRef
	if err := s.saveAndNotify(ctx, &order, old); err != nil {
		return nil, err
	}
	return &order, nil
}

// Cancel applies pending -> cancelled for the customer's own order, used by
// the gateway cancel redirect.
func (s *Service) Cancel(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Status != models.OrderStatusPending {
		return &order, nil
	}

	old := order.Status
	order.Status = models.OrderStatusCancelled
	if err := s.saveAndNotify(ctx, &order, old); err != nil {
		return nil, err
	}
	return &order, nil
}

type Tracking struct {
	Company string `json:"tracking_company"`
	Number  string `json:"tracking_number"`
	URL     string `json:"tracking_url"`
}

// SetStatus is the staff transition: any status, unconditionally, with
// optional tracking details.
func (s *Service) SetStatus(ctx context.Context, orderID uint, status string, tracking *Tracking) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	var order models.Order
	if err := s.DB.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	old := order.Status
	order.Status = status
	if tracking != nil {
		order.TrackingCompany = tracking.Company
		order.TrackingNumber = tracking.Number
		order.TrackingURL = tracking.URL
	}
	if err := s.saveAndNotify(ctx, &order, old); err != nil {
		return nil, err
	}
	return &order, nil
}

// HistoryFor lists a customer's orders, newest first.
func (s *Service) HistoryFor(userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// GetForUser loads one order with its items, scoped to the owner.
func (s *Service) GetForUser(orderID, userID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.Preload("Items").Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// saveAndNotify is the single save path for status mutations: persist
// first, then notify the customer best-effort. The save succeeds regardless
// of the notification outcome.
func (s *Service) saveAndNotify(ctx context.Context, order *models.Order, oldStatus string) error {
	if err := s.DB.Save(order).Error; err != nil {
		return err
	}

	if err := s.Notifier.OrderStatusChanged(ctx, order, oldStatus); err != nil {
		logging.FromContext(ctx).Warn("status_email_failed",
			"order_number", order.OrderNumber, "status", order.Status, "error", err)
	}
	return nil
}
