// Package events publishes storefront domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultTopic = "storefront-events"

	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderDeleted       = "order.deleted"
)

type OrderPlaced struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number,omitempty"`
	UserID        string          `json:"user_id"`
	PaymentMethod string          `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	Items         int             `json:"items"`
}

type OrderStatusChanged struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type OrderDeleted struct {
	OrderID string `json:"order_id"`
}

// Event is one domain fact. AggregateID keys the Kafka message so events of
// the same order or cart stay ordered.
type Event struct {
	ID          string    `json:"event_id"`
	Type        string    `json:"event_type"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload"`
}

func New(eventType, aggregateID string, payload any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

func (e Event) encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", e.Type, err)
	}
	return b, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error { return nil }

// Emit publishes ev and logs a failure instead of returning it; user flows
// never fail because an event could not be delivered.
func Emit(ctx context.Context, p Publisher, log *zap.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("failed to publish event",
			zap.String("event_type", ev.Type),
			zap.String("aggregate_id", ev.AggregateID),
			zap.Error(err))
	}
}
