package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/badrx15/ibericosgourmet/internal/cache"
	"github.com/badrx15/ibericosgourmet/internal/config"
	"github.com/badrx15/ibericosgourmet/internal/dto"
	"github.com/badrx15/ibericosgourmet/internal/entity"
	"github.com/badrx15/ibericosgourmet/internal/messaging"
	"github.com/badrx15/ibericosgourmet/internal/notifier"
	"github.com/badrx15/ibericosgourmet/internal/payments"
	"github.com/badrx15/ibericosgourmet/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/badrx15/ibericosgourmet/service/order")

// orderTypeTag marks provider sessions created by this storefront; webhook
// events whose metadata carries a different tag are ignored.
const orderTypeTag = "jamon_order"

// codSurcharge is the fixed cash-on-delivery surcharge in euros.
var codSurcharge = decimal.NewFromInt(3)

// Confirmation triggers. Two independent paths may observe a successful
// payment for the same order; whichever lands first sends the notification.
const (
	TriggerWebhook  = "webhook"
	TriggerRedirect = "redirect"
)

// OrderStore is the persistence contract the service depends on.
type OrderStore interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByOrderID(ctx context.Context, orderID string) (*entity.Order, error)
	// MarkCompleted performs the pending->completed transition as a single
	// conditional update and returns the affected row count.
	MarkCompleted(ctx context.Context, orderID string) (int64, error)
}

// CheckoutInput is a validated checkout submission.
type CheckoutInput struct {
	ProductName   string
	Price         decimal.Decimal
	Name          string
	Email         string
	Address       string
	City          string
	PostalCode    string
	Quantity      int
	PaymentMethod string
}

// CheckoutResult tells the transport where to send the customer next.
type CheckoutResult struct {
	OrderID     string
	RedirectURL string
}

// Service orchestrates checkout, payment reconciliation, and operator
// notifications.
type Service struct {
	store     OrderStore
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	notifier  notifier.Notifier
	payments  payments.Client
	publisher messaging.Client
	messaging messagingConfig
	baseURL   string
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     OrderStore
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Notifier  notifier.Notifier
	Payments  payments.Client
	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:     p.Store,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		notifier:  p.Notifier,
		payments:  p.Payments,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		baseURL: p.Config.HTTP.PublicBaseURL,
	}
}

// Checkout processes a storefront submission. COD orders are persisted and
// notified immediately; card orders get a hosted checkout session from the
// provider first and are only persisted once a usable session exists.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Checkout", trace.WithAttributes(
		attribute.String("order.payment_method", in.PaymentMethod),
		attribute.String("order.product", in.ProductName),
	))
	defer span.End()

	orderID := newOrderID()
	span.SetAttributes(attribute.String("order.id", orderID))

	total := in.Price
	isCOD := in.PaymentMethod == entity.PaymentMethodCOD
	if isCOD {
		total = total.Add(codSurcharge)
	}

	order := &entity.Order{
		OrderID:       orderID,
		CustomerName:  in.Name,
		CustomerEmail: in.Email,
		Address:       in.Address,
		City:          in.City,
		PostalCode:    in.PostalCode,
		ProductName:   in.ProductName,
		Quantity:      in.Quantity,
		Amount:        total,
		PaymentStatus: entity.PaymentStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if isCOD {
		return s.checkoutCOD(ctx, span, order)
	}
	return s.checkoutCard(ctx, span, order)
}

func (s *Service) checkoutCOD(ctx context.Context, span trace.Span, order *entity.Order) (*CheckoutResult, error) {
	order.PaymentMethod = entity.PaymentMethodCOD

	if err := s.store.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, errorbank.Internal("failed to persist order", errorbank.WithCause(err))
	}

	s.sendNotification(ctx, formatCODOrderMessage(order))
	s.publishOrderEvent(ctx, eventOrderCreated, order)
	s.storeInCache(ctx, order)

	s.logger.Info("cod order registered",
		zap.String("order_id", order.OrderID),
		zap.String("amount", order.Amount.StringFixed(2)),
	)

	return &CheckoutResult{
		OrderID:     order.OrderID,
		RedirectURL: fmt.Sprintf("/success?order_id=%s&method=cod", order.OrderID),
	}, nil
}

func (s *Service) checkoutCard(ctx context.Context, span trace.Span, order *entity.Order) (*CheckoutResult, error) {
	order.PaymentMethod = entity.PaymentMethodCard

	session, err := s.payments.CreateCheckoutSession(ctx, payments.SessionRequest{
		ProductCart: []payments.LineItem{{
			ProductID: s.payments.ProductID(),
			// One line item standing for the whole order, priced in
			// minor units.
			Quantity: 1,
			Amount:   minorUnits(order.Amount),
		}},
		Customer: payments.Customer{
			Name:  order.CustomerName,
			Email: order.CustomerEmail,
		},
		Billing: payments.Billing{
			City:    order.City,
			Zip:     order.PostalCode,
			Street:  order.Address,
			Country: "ES",
		},
		Metadata: map[string]string{
			"order_id":     order.OrderID,
			"type":         orderTypeTag,
			"product_name": order.ProductName,
			"amount":       order.Amount.StringFixed(2),
		},
		ReturnURL: fmt.Sprintf("%s/success?order_id=%s", s.baseURL, order.OrderID),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session creation failed")
		return nil, errorbank.Internal("failed to create checkout session", errorbank.WithCause(err))
	}

	order.CheckoutSessionID = session.SessionID

	if err := s.store.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, errorbank.Internal("failed to persist order", errorbank.WithCause(err))
	}

	s.publishOrderEvent(ctx, eventOrderCreated, order)
	s.storeInCache(ctx, order)

	s.logger.Info("card order pending payment",
		zap.String("order_id", order.OrderID),
		zap.String("session_id", session.SessionID),
	)

	return &CheckoutResult{
		OrderID:     order.OrderID,
		RedirectURL: session.CheckoutURL,
	}, nil
}

// ConfirmPayment reconciles an order after a successful payment observation.
// The webhook and the success redirect both call it and may race; the
// conditional store update guarantees exactly one of them performs the
// transition and sends the confirmation message. Unknown or already-completed
// orders are benign no-ops.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, via string) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ConfirmPayment", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.trigger", via),
	))
	defer span.End()

	order, err := s.store.GetByOrderID(ctx, orderID)
	if errors.Is(err, entity.ErrOrderNotFound) {
		s.logger.Info("payment confirmation for unknown order",
			zap.String("order_id", orderID),
			zap.String("via", via),
		)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if order.Completed() {
		s.logger.Debug("order already completed", zap.String("order_id", orderID))
		return nil
	}

	affected, err := s.store.MarkCompleted(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		return errorbank.Internal("failed to complete order", errorbank.WithCause(err))
	}
	if affected == 0 {
		// The other trigger won the race between our read and this
		// update; it owns the notification.
		s.logger.Debug("order completed concurrently", zap.String("order_id", orderID))
		return nil
	}

	order.PaymentStatus = entity.PaymentStatusCompleted

	s.sendNotification(ctx, formatConfirmedOrderMessage(order, via))
	s.publishOrderEvent(ctx, eventOrderCompleted, order)
	s.storeInCache(ctx, order)

	s.logger.Info("order payment confirmed",
		zap.String("order_id", orderID),
		zap.String("via", via),
	)
	return nil
}

// HandleProviderEvent processes a payment provider webhook event. The caller
// acknowledges receipt regardless of the outcome, so all failures end here as
// log entries.
func (s *Service) HandleProviderEvent(ctx context.Context, event dto.ProviderEvent) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.HandleProviderEvent", trace.WithAttributes(
		attribute.String("provider.event_type", event.Type),
	))
	defer span.End()

	if event.Type != "payment.succeeded" && event.Type != "payment_succeeded" {
		return
	}

	metadata := event.Data.Metadata
	if metadata["type"] != orderTypeTag {
		s.logger.Debug("ignoring webhook for foreign order type",
			zap.String("type", metadata["type"]),
		)
		return
	}

	orderID := metadata["order_id"]
	if orderID == "" {
		s.logger.Warn("webhook event missing order_id metadata")
		return
	}

	if err := s.ConfirmPayment(ctx, orderID, TriggerWebhook); err != nil {
		span.RecordError(err)
		s.logger.Error("webhook reconciliation failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

// WholesaleInquiry forwards a wholesale-pricing request to the operator. This
// is the one path where message delivery is the primary operation, so the
// error propagates.
func (s *Service) WholesaleInquiry(ctx context.Context, req dto.WholesaleRequest) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.WholesaleInquiry")
	defer span.End()

	if strings.TrimSpace(req.Company) == "" || strings.TrimSpace(req.Email) == "" {
		return errorbank.BadRequest("empresa and email are required")
	}

	if err := s.notifier.Notify(ctx, formatWholesaleMessage(req)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "notify failed")
		return errorbank.Internal("failed to send wholesale inquiry", errorbank.WithCause(err))
	}

	s.logger.Info("wholesale inquiry forwarded", zap.String("company", req.Company))
	return nil
}

// Get retrieves an order by its public id, consulting cache when available.
func (s *Service) Get(ctx context.Context, orderID string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	if order, err := s.getFromCache(ctx, orderID); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("order_id", orderID), zap.Error(err))
	}

	order, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, entity.ErrOrderNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, order)
	return order, nil
}

// sendNotification makes a single best-effort delivery attempt. Failures are
// logged and swallowed: the order row is authoritative, the message is not.
func (s *Service) sendNotification(ctx context.Context, text string) {
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.Error("operator notification failed", zap.Error(err))
	}
}

func (s *Service) cacheKey(orderID string) string {
	return "orders:" + orderID
}

func (s *Service) getFromCache(ctx context.Context, orderID string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(orderID))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) {
	if s.cache == nil || order == nil {
		return
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		s.logger.Warn("orders cache marshal failed", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(order.OrderID), bytes, s.cacheTTL); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("order_id", order.OrderID), zap.Error(err))
	}
}

// newOrderID derives a short human-quotable identifier from a random UUID:
// its first 8 hex characters, uppercased. Collisions are treated as
// negligible and surface as a duplicate-order insert error if they ever
// happen.
func newOrderID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
