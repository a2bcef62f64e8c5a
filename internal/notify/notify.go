// Package notify tells customers and store owners about order activity.
//
// Notifications are best effort: callers log a failed delivery and carry on,
// the order change that triggered it is already committed.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodville/marketplace-api/internal/metrics"
	"github.com/foodville/marketplace-api/internal/model"
)

// OrderEvent is the snapshot of an order a notifier needs.
type OrderEvent struct {
	OrderID           uuid.UUID
	Status            model.OrderStatus
	Type              model.OrderType
	TotalPrice        decimal.Decimal
	StoreName         string
	StoreOwnerID      uuid.UUID
	CustomerID        uuid.UUID
	CustomerEmail     string
	CustomerFirstName string
	At                time.Time
}

// EventFor builds the event for order as it is now.
func EventFor(order *model.Order, at time.Time) OrderEvent {
	return OrderEvent{
		OrderID:           order.ID,
		Status:            order.Status,
		Type:              order.Type,
		TotalPrice:        order.TotalPrice,
		StoreName:         order.Store.Name,
		StoreOwnerID:      order.Store.OwnerID,
		CustomerID:        order.CustomerID,
		CustomerEmail:     order.Customer.Email,
		CustomerFirstName: order.Customer.FirstName,
		At:                at,
	}
}

type Notifier interface {
	OrderPlaced(ctx context.Context, event OrderEvent) error
	OrderStatusChanged(ctx context.Context, event OrderEvent) error
}

// Fanout delivers every event to all registered notifiers.
type Fanout struct {
	targets []target
	log     *slog.Logger
}

type target struct {
	name     string
	notifier Notifier
}

func NewFanout(log *slog.Logger) *Fanout {
	return &Fanout{log: log}
}

func (f *Fanout) Add(name string, n Notifier) *Fanout {
	f.targets = append(f.targets, target{name: name, notifier: n})
	return f
}

func (f *Fanout) OrderPlaced(ctx context.Context, event OrderEvent) error {
	return f.each(ctx, event, "order placed", Notifier.OrderPlaced)
}

func (f *Fanout) OrderStatusChanged(ctx context.Context, event OrderEvent) error {
	return f.each(ctx, event, "order status changed", Notifier.OrderStatusChanged)
}

func (f *Fanout) each(ctx context.Context, event OrderEvent, what string, call func(Notifier, context.Context, OrderEvent) error) error {
	var errs []error
	for _, t := range f.targets {
		if err := call(t.notifier, ctx, event); err != nil {
			metrics.RecordNotificationFailure(t.name)
			f.log.Warn("notify "+what, "channel", t.name, "order_id", event.OrderID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) OrderPlaced(context.Context, OrderEvent) error        { return nil }
func (Nop) OrderStatusChanged(context.Context, OrderEvent) error { return nil }
