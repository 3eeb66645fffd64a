// Package notify fans order events out to the affected chef and customer
// over a topic-based pub/sub transport. Delivery is best-effort: at most
// once, no retry, no persistence, and never blocking the caller.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"food-marketplace-api/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
)

// OrderEvent is the payload published to a subscriber topic.
type OrderEvent struct {
	Type         EventType          `json:"type"`
	OrderID      uuid.UUID          `json:"order_id"`
	TargetUserID uuid.UUID          `json:"target_user_id"`
	FromStatus   models.OrderStatus `json:"from_status,omitempty"`
	ToStatus     models.OrderStatus `json:"to_status"`
	Message      string             `json:"message"`
	TotalPrice   string             `json:"total_price"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

// Publisher is the transport contract: fire a payload at a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// statusMessages maps a target status to its customer-facing text.
var statusMessages = map[models.OrderStatus]string{
	models.StatusPending:   "Your order has been placed and is waiting for the chef",
	models.StatusConfirmed: "The chef has confirmed your order",
	models.StatusPreparing: "Your order is being prepared",
	models.StatusReady:     "Your order is ready",
	models.StatusCompleted: "Your order has been delivered — bon appétit!",
	models.StatusCancelled: "Your order has been cancelled",
	models.StatusRejected:  "The chef could not take your order",
}

// MessageFor returns the customer-facing text for a status, falling back to
// a generic message for unmapped statuses.
func MessageFor(status models.OrderStatus) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Order status changed to %s", status)
}

// ChefTopic and UserTopic name the per-subscriber channels.
func ChefTopic(chefID uuid.UUID) string { return fmt.Sprintf("chef/%s/orders", chefID) }
func UserTopic(userID uuid.UUID) string { return fmt.Sprintf("user/%s/orders", userID) }

type Dispatcher struct {
	pub     Publisher
	log     *zap.Logger
	timeout time.Duration
}

// NewDispatcher wraps a publisher. A nil publisher yields a dispatcher that
// drops everything, so the order path works without a broker configured.
func NewDispatcher(pub Publisher, log *zap.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, log: log, timeout: 5 * time.Second}
}

// OrderCreated announces a new order to its chef and customer.
func (d *Dispatcher) OrderCreated(order *models.Order) {
	d.dispatch(EventOrderCreated, order, "", models.StatusPending)
}

// StatusChanged announces a completed transition to the chef and customer.
// Exactly one dispatch per successful transition; failures are logged and
// swallowed, never propagated into the transition path.
func (d *Dispatcher) StatusChanged(order *models.Order, from, to models.OrderStatus) {
	d.dispatch(EventOrderStatusChanged, order, from, to)
}

func (d *Dispatcher) dispatch(typ EventType, order *models.Order, from, to models.OrderStatus) {
	if d == nil || d.pub == nil {
		return
	}
	events := []struct {
		topic  string
		target uuid.UUID
	}{
		{ChefTopic(order.ChefID), order.ChefID},
		{UserTopic(order.CustomerID), order.CustomerID},
	}
	for _, e := range events {
		event := OrderEvent{
			Type:         typ,
			OrderID:      order.ID,
			TargetUserID: e.target,
			FromStatus:   from,
			ToStatus:     to,
			Message:      MessageFor(to),
			TotalPrice:   order.TotalPrice.StringFixed(2),
			OccurredAt:   time.Now(),
		}
		go d.publish(e.topic, event)
	}
}

func (d *Dispatcher) publish(topic string, event OrderEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Error("failed to encode order event", zap.Error(err), zap.String("topic", topic))
		return
	}
	if err := d.pub.Publish(ctx, topic, payload); err != nil {
		d.log.Warn("failed to publish order event",
			zap.Error(err),
			zap.String("topic", topic),
			zap.String("type", string(event.Type)),
			zap.String("order_id", event.OrderID.String()))
	}
}
