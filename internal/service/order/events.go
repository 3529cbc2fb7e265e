package order

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/badrx15/ibericosgourmet/internal/entity"
)

// Order event types published on the shop event stream.
const (
	eventOrderCreated   = "order.created"
	eventOrderCompleted = "order.completed"
)

// OrderEvent is emitted on the event stream when an order is created or its
// payment is confirmed. Best-effort: publish failures never fail the request.
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	ProductName   string    `json:"product_name"`
	Quantity      int       `json:"quantity"`
	Amount        string    `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (s *Service) publishOrderEvent(ctx context.Context, eventType string, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := OrderEvent{
		Type:          eventType,
		OrderID:       order.OrderID,
		ProductName:   order.ProductName,
		Quantity:      order.Quantity,
		Amount:        order.Amount.StringFixed(2),
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		OccurredAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte("order-"+order.OrderID), payload); err != nil {
		s.logger.Error("publish order event",
			zap.String("type", eventType),
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
	}
}
