package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/goldenfragrance/shop/internal/cartsession"
	"github.com/goldenfragrance/shop/internal/handlers"
	"github.com/goldenfragrance/shop/internal/logging"
	"github.com/goldenfragrance/shop/internal/models"
	"github.com/goldenfragrance/shop/internal/mykafka"
	orderssvc "github.com/goldenfragrance/shop/internal/orders"
	"github.com/goldenfragrance/shop/internal/payment"
)

type OrderHandler struct {
	DB            *gorm.DB
	Svc           *orderssvc.Service
	Producer      *mykafka.Producer
	WebhookSecret []byte
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// Checkout turns the session cart into a pending order and answers with
// the gateway redirect URL. Empty shipping fields fall back to the user's
// profile.
func (h *OrderHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.checkout")

	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
	}

	var ship orderssvc.ShippingDetails
	if err := c.Bind(&ship); err != nil {
		l.Warn("checkout_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	h.prefillFromProfile(userID, &user, &ship)

	if ship.FullName == "" || ship.Email == "" || ship.Address == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "shipping details are incomplete")
	}

	ct := cartsession.Load(c)

	order, redirectURL, err := h.Svc.Checkout(ctx, &user, ship, ct)
	if err != nil {
		if errors.Is(err, orderssvc.ErrEmptyCart) {
			l.Warn("checkout_failed", "status", 400, "reason", "empty_cart")
			return c.JSON(http.StatusBadRequest, echo.Map{
				"success":  false,
				"message":  "Your cart is empty",
				"redirect": "/cart",
			})
		}
		l.Error("checkout_failed", "status", 502, "reason", "gateway_error", "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{
			"success":  false,
			"message":  fmt.Sprintf("Payment error: %v", err),
			"redirect": "/checkout",
		})
	}

	h.publish(c, map[string]any{
		"type":         "order_created",
		"orderID":      order.ID,
		"order_number": order.OrderNumber,
		"userID":       userID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"checkout_url": redirectURL,
	})
}

func (h *OrderHandler) prefillFromProfile(userID uint, user *models.User, ship *orderssvc.ShippingDetails) {
	var profile models.UserProfile
	if err := h.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		profile = models.UserProfile{}
	}

	if ship.FullName == "" {
		ship.FullName = profile.FullName
	}
	if ship.Email == "" {
		ship.Email = user.Email
	}
	if ship.Address == "" {
		ship.Address = profile.Address
	}
	if ship.City == "" {
		ship.City = profile.City
	}
	if ship.PostalCode == "" {
		ship.PostalCode = profile.PostalCode
	}
	if ship.Country == "" {
		ship.Country = profile.Country
	}
}

// PaymentSuccess handles the customer's return from the gateway. The
// redirect alone proves nothing: the session is re-fetched server-to-server
// and only a verified paid status confirms the order. Confirmation goes
// through the same idempotent transition the webhook uses.
func (h *OrderHandler) PaymentSuccess(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.payment_success")

	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success":  false,
			"message":  "Invalid payment session",
			"redirect": "/orders",
		})
	}

	order, err := h.Svc.GetForUser(uint(orderID), userID)
	if err != nil {
		if errors.Is(err, orderssvc.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"success":  false,
				"message":  "Order not found",
				"redirect": "/orders",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	session, err := h.Svc.Gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		l.Error("payment_success_failed", "status", 502, "reason", "gateway_error", "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{
			"success":  false,
			"message":  fmt.Sprintf("Error verifying payment: %v", err),
			"redirect": "/orders",
		})
	}

	if !session.Paid() {
		l.Warn("payment_success_unpaid", "order_number", order.OrderNumber)
		return c.JSON(http.StatusOK, echo.Map{
			"success":  false,
			"message":  "Payment was not successful. Please try again.",
			"redirect": "/checkout",
		})
	}

	order, err = h.Svc.ConfirmPaid(ctx, order.ID, session.PaymentIntent)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	ct := cartsession.Load(c)
	ct.Clear()
	if err := cartsession.Save(c, ct); err != nil {
		l.Warn("cart_clear_failed", "error", err)
	}

	h.publish(c, map[string]any{
		"type":         "order_confirmed",
		"orderID":      order.ID,
		"order_number": order.OrderNumber,
		"source":       "redirect",
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"message":  fmt.Sprintf("Payment successful! Order #%s has been confirmed.", order.OrderNumber),
		"order":    order,
		"redirect": fmt.Sprintf("/orders/%d", order.ID),
	})
}

func (h *OrderHandler) PaymentCancel(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	order, err := h.Svc.Cancel(ctx, uint(orderID), userID)
	if err != nil {
		if errors.Is(err, orderssvc.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"success":  false,
				"message":  "Order not found",
				"redirect": "/checkout",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":         "order_cancelled",
		"orderID":      order.ID,
		"order_number": order.OrderNumber,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"message":  "Payment was cancelled. You can try again anytime.",
		"redirect": "/checkout",
	})
}

// Webhook is the authoritative confirmation path. The signature over the
// raw payload is checked before the body is even parsed; the order is
// looked up by the metadata embedded at session creation, independent of
// any browser session.
func (h *OrderHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.webhook")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	event, err := payment.ConstructEvent(body, c.Request().Header.Get(payment.SignatureHeader), h.WebhookSecret)
	if err != nil {
		l.Warn("webhook_rejected", "status", 400, "error", err)
		return c.NoContent(http.StatusBadRequest)
	}

	if event.Type != payment.EventCheckoutCompleted {
		l.Info("webhook_ignored", "event_type", event.Type)
		return c.NoContent(http.StatusOK)
	}

	session := event.Data.Object
	orderID, err := strconv.Atoi(session.Metadata["order_id"])
	if err != nil {
		l.Warn("webhook_rejected", "status", 400, "reason", "bad_order_id")
		return c.NoContent(http.StatusBadRequest)
	}

	order, err := h.Svc.ConfirmPaid(ctx, uint(orderID), session.PaymentIntent)
	if err != nil {
		if errors.Is(err, orderssvc.ErrOrderNotFound) {
			// The gateway may replay events for orders rolled back on
			// checkout failure; nothing to fulfill.
			l.Warn("webhook_order_missing", "order_id", orderID)
			return c.NoContent(http.StatusOK)
		}
		l.Error("webhook_failed", "status", 500, "error", err)
		return c.NoContent(http.StatusInternalServerError)
	}

	h.publish(c, map[string]any{
		"type":         "order_confirmed",
		"orderID":      order.ID,
		"order_number": order.OrderNumber,
		"source":       "webhook",
	})

	return c.NoContent(http.StatusOK)
}

type orderView struct {
	models.Order
	FinalTotal int64 `json:"final_total"`
}

func (h *OrderHandler) OrderHistory(c echo.Context) error {
	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		return err
	}

	orders, err := h.Svc.HistoryFor(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView{Order: o, FinalTotal: o.FinalTotal()})
	}
	return c.JSON(http.StatusOK, views)
}

func (h *OrderHandler) OrderDetail(c echo.Context) error {
	userID, err := handlers.CurrentUserID(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	order, err := h.Svc.GetForUser(uint(orderID), userID)
	if err != nil {
		if errors.Is(err, orderssvc.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, orderView{Order: *order, FinalTotal: order.FinalTotal()})
}

// SetStatus is the staff-only transition endpoint; it also accepts
// tracking details alongside the new status.
func (h *OrderHandler) SetStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.set_status")

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		Status   string              `json:"status"`
		Tracking *orderssvc.Tracking `json:"tracking"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.SetStatus(ctx, uint(orderID), req.Status, req.Tracking)
	if err != nil {
		switch {
		case errors.Is(err, orderssvc.ErrInvalidStatus):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		case errors.Is(err, orderssvc.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		default:
			l.Error("set_status_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	h.publish(c, map[string]any{
		"type":         "order_status_changed",
		"orderID":      order.ID,
		"order_number": order.OrderNumber,
		"new_status":   order.Status,
	})

	return c.JSON(http.StatusOK, orderView{Order: *order, FinalTotal: order.FinalTotal()})
}
