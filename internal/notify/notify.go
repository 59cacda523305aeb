package notify

import (
	"context"

	"github.com/goldenfragrance/shop/internal/models"
)

// Notifier is the fire-and-forget email sink. Callers invoke it after the
// authoritative state transition has committed and only ever log a failure;
// a notification error can never roll back an order.
type Notifier interface {
	// OrderStatusChanged mails the customer about a status mutation.
	// Called on every save of an order through the lifecycle service.
	OrderStatusChanged(ctx context.Context, order *models.Order, oldStatus string) error

	// NewOrderAlert mails the administrative address about a freshly
	// created pending order.
	NewOrderAlert(ctx context.Context, order *models.Order) error
}

// Noop satisfies Notifier for wiring paths that do not need email.
type Noop struct{}

func (Noop) OrderStatusChanged(context.Context, *models.Order, string) error { return nil }
func (Noop) NewOrderAlert(context.Context, *models.Order) error              { return nil }
