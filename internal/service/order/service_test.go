package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/badrx15/ibericosgourmet/internal/config"
	"github.com/badrx15/ibericosgourmet/internal/dto"
	"github.com/badrx15/ibericosgourmet/internal/entity"
	"github.com/badrx15/ibericosgourmet/internal/messaging"
	"github.com/badrx15/ibericosgourmet/internal/payments"
)

type fakeStore struct {
	mu        sync.Mutex
	orders    map[string]*entity.Order
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[string]*entity.Order)}
}

func (f *fakeStore) Create(_ context.Context, order *entity.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.orders[order.OrderID]; ok {
		return entity.ErrDuplicateOrder
	}
	clone := *order
	f.orders[order.OrderID] = &clone
	return nil
}

func (f *fakeStore) GetByOrderID(_ context.Context, orderID string) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, orderID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.PaymentStatus != entity.PaymentStatusPending {
		return 0, nil
	}
	order.PaymentStatus = entity.PaymentStatusCompleted
	return 1, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeNotifier) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type fakePayments struct {
	session *payments.Session
	err     error
	gotReq  payments.SessionRequest
	calls   int
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, req payments.SessionRequest) (*payments.Session, error) {
	f.calls++
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakePayments) ProductID() string { return "prod_jamon" }

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, _ []byte, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, value)
	return nil
}

func (f *fakePublisher) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakePublisher) Topic() string { return "shop.orders" }

type fixture struct {
	svc       *Service
	store     *fakeStore
	notifier  *fakeNotifier
	payments  *fakePayments
	publisher *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newFakeStore(),
		notifier:  &fakeNotifier{},
		payments:  &fakePayments{},
		publisher: &fakePublisher{},
	}
	cfg := config.Config{}
	cfg.HTTP.PublicBaseURL = "http://shop.test"
	cfg.Cache.DefaultTTL = time.Minute
	cfg.Messaging.Enabled = true
	cfg.Messaging.Kafka.Topic = "shop.orders"

	f.svc = NewService(Params{
		Store:     f.store,
		Cache:     nil,
		Config:    cfg,
		Logger:    zap.NewNop(),
		Notifier:  f.notifier,
		Payments:  f.payments,
		Publisher: f.publisher,
	})
	return f
}

func codInput() CheckoutInput {
	return CheckoutInput{
		ProductName:   "Pack 6",
		Price:         decimal.NewFromInt(30),
		Name:          "Ana",
		Email:         "a@x.com",
		Address:       "Calle 1",
		City:          "Madrid",
		PostalCode:    "28001",
		Quantity:      6,
		PaymentMethod: entity.PaymentMethodCOD,
	}
}

func TestCheckoutCODAddsSurchargeAndNotifies(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Checkout(context.Background(), codInput())
	require.NoError(t, err)
	require.NotEmpty(t, result.OrderID)
	assert.Len(t, result.OrderID, 8)
	assert.Equal(t, strings.ToUpper(result.OrderID), result.OrderID)
	assert.Equal(t, "/success?order_id="+result.OrderID+"&method=cod", result.RedirectURL)

	stored, err := f.store.GetByOrderID(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentMethodCOD, stored.PaymentMethod)
	assert.Equal(t, entity.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, "33.00", stored.Amount.StringFixed(2))
	assert.Empty(t, stored.CheckoutSessionID)

	messages := f.notifier.sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "CONTRAREEMBOLSO")
	assert.Contains(t, messages[0], "33.00€")
	assert.Contains(t, messages[0], "#"+result.OrderID)
	assert.Contains(t, messages[0], "Calle 1")

	assert.Len(t, f.publisher.payloads, 1)
	assert.Zero(t, f.payments.calls)
}

func TestCheckoutCardRedirectsToProviderURL(t *testing.T) {
	f := newFixture(t)
	f.payments.session = &payments.Session{
		SessionID:   "cks_123",
		CheckoutURL: "https://checkout.test/s/123",
	}

	in := codInput()
	in.PaymentMethod = entity.PaymentMethodCard

	result, err := f.svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/s/123", result.RedirectURL)

	stored, err := f.store.GetByOrderID(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentMethodCard, stored.PaymentMethod)
	assert.Equal(t, entity.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, "cks_123", stored.CheckoutSessionID)
	// Card totals carry no surcharge.
	assert.Equal(t, "30.00", stored.Amount.StringFixed(2))

	req := f.payments.gotReq
	require.Len(t, req.ProductCart, 1)
	assert.Equal(t, "prod_jamon", req.ProductCart[0].ProductID)
	assert.Equal(t, 1, req.ProductCart[0].Quantity)
	assert.Equal(t, int64(3000), req.ProductCart[0].Amount)
	assert.Equal(t, "Ana", req.Customer.Name)
	assert.Equal(t, "ES", req.Billing.Country)
	assert.Equal(t, result.OrderID, req.Metadata["order_id"])
	assert.Equal(t, "jamon_order", req.Metadata["type"])
	assert.Equal(t, "Pack 6", req.Metadata["product_name"])
	assert.Equal(t, "30.00", req.Metadata["amount"])
	assert.Equal(t, "http://shop.test/success?order_id="+result.OrderID, req.ReturnURL)

	// No confirmation is sent until the payment is observed.
	assert.Empty(t, f.notifier.sent())
}

func TestCheckoutCardWithoutSessionPersistsNothing(t *testing.T) {
	f := newFixture(t)
	f.payments.err = payments.ErrNoCheckoutURL

	in := codInput()
	in.PaymentMethod = entity.PaymentMethodCard

	_, err := f.svc.Checkout(context.Background(), in)
	require.Error(t, err)
	assert.Empty(t, f.store.orders)
	assert.Empty(t, f.notifier.sent())
	assert.Empty(t, f.publisher.payloads)
}

func TestCheckoutCODPersistFailure(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = errors.New("disk full")

	_, err := f.svc.Checkout(context.Background(), codInput())
	require.Error(t, err)
	assert.Empty(t, f.notifier.sent())
}

func TestCheckoutNotificationFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("telegram down")

	result, err := f.svc.Checkout(context.Background(), codInput())
	require.NoError(t, err)

	_, err = f.store.GetByOrderID(context.Background(), result.OrderID)
	assert.NoError(t, err)
}

func seedPendingOrder(f *fixture, orderID string) {
	f.store.orders[orderID] = &entity.Order{
		OrderID:       orderID,
		CustomerName:  "Ana",
		CustomerEmail: "a@x.com",
		Address:       "Calle 1",
		City:          "Madrid",
		PostalCode:    "28001",
		ProductName:   "Pack 6",
		Quantity:      6,
		Amount:        decimal.RequireFromString("33.00"),
		PaymentMethod: entity.PaymentMethodCard,
		PaymentStatus: entity.PaymentStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestConfirmPaymentTransitionsAndNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	seedPendingOrder(f, "ABCD1234")

	require.NoError(t, f.svc.ConfirmPayment(context.Background(), "ABCD1234", TriggerWebhook))

	stored, err := f.store.GetByOrderID(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, stored.PaymentStatus)

	messages := f.notifier.sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "PEDIDO CONFIRMADO")
	assert.Contains(t, messages[0], "33.00€")

	// Second trigger observes the completed state and stays silent.
	require.NoError(t, f.svc.ConfirmPayment(context.Background(), "ABCD1234", TriggerRedirect))
	assert.Len(t, f.notifier.sent(), 1)
}

func TestConfirmPaymentConcurrentTriggers(t *testing.T) {
	f := newFixture(t)
	seedPendingOrder(f, "RACE0001")

	var wg sync.WaitGroup
	for _, via := range []string{TriggerWebhook, TriggerRedirect} {
		wg.Add(1)
		go func(via string) {
			defer wg.Done()
			_ = f.svc.ConfirmPayment(context.Background(), "RACE0001", via)
		}(via)
	}
	wg.Wait()

	stored, err := f.store.GetByOrderID(context.Background(), "RACE0001")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, stored.PaymentStatus)

	// Exactly one trigger wins the conditional update: never zero
	// notifications, never two.
	assert.Len(t, f.notifier.sent(), 1)
}

func TestConfirmPaymentUnknownOrderIsNoop(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.ConfirmPayment(context.Background(), "NOPE0000", TriggerWebhook))
	assert.Empty(t, f.notifier.sent())
	assert.Empty(t, f.publisher.payloads)
}

func TestConfirmPaymentRedirectMessageMentionsRedirect(t *testing.T) {
	f := newFixture(t)
	seedPendingOrder(f, "REDI0001")

	require.NoError(t, f.svc.ConfirmPayment(context.Background(), "REDI0001", TriggerRedirect))

	messages := f.notifier.sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Confirmado vía Redirección")
}

func TestHandleProviderEvent(t *testing.T) {
	tests := []struct {
		name          string
		eventType     string
		metadata      map[string]string
		wantCompleted bool
	}{
		{
			name:          "succeeded with matching tag",
			eventType:     "payment.succeeded",
			metadata:      map[string]string{"type": "jamon_order", "order_id": "EVNT0001"},
			wantCompleted: true,
		},
		{
			name:          "underscore event type variant",
			eventType:     "payment_succeeded",
			metadata:      map[string]string{"type": "jamon_order", "order_id": "EVNT0001"},
			wantCompleted: true,
		},
		{
			name:          "foreign order type is ignored",
			eventType:     "payment.succeeded",
			metadata:      map[string]string{"type": "subscription", "order_id": "EVNT0001"},
			wantCompleted: false,
		},
		{
			name:          "non payment event is ignored",
			eventType:     "payment.failed",
			metadata:      map[string]string{"type": "jamon_order", "order_id": "EVNT0001"},
			wantCompleted: false,
		},
		{
			name:          "missing order id",
			eventType:     "payment.succeeded",
			metadata:      map[string]string{"type": "jamon_order"},
			wantCompleted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seedPendingOrder(f, "EVNT0001")

			f.svc.HandleProviderEvent(context.Background(), dto.ProviderEvent{
				Type: tt.eventType,
				Data: dto.ProviderEventData{Metadata: tt.metadata},
			})

			stored, err := f.store.GetByOrderID(context.Background(), "EVNT0001")
			require.NoError(t, err)
			if tt.wantCompleted {
				assert.Equal(t, entity.PaymentStatusCompleted, stored.PaymentStatus)
				assert.Len(t, f.notifier.sent(), 1)
			} else {
				assert.Equal(t, entity.PaymentStatusPending, stored.PaymentStatus)
				assert.Empty(t, f.notifier.sent())
			}
		})
	}
}

func TestWholesaleInquiry(t *testing.T) {
	f := newFixture(t)

	req := dto.WholesaleRequest{
		Company: "Jamones SL",
		Email:   "compras@jamones.example",
		Phone:   "600123456",
		Volume:  "50 packs/mes",
	}
	require.NoError(t, f.svc.WholesaleInquiry(context.Background(), req))

	messages := f.notifier.sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "SOLICITUD MAYORISTA")
	assert.Contains(t, messages[0], "Jamones SL")
}

func TestWholesaleInquiryDeliveryFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("telegram down")

	err := f.svc.WholesaleInquiry(context.Background(), dto.WholesaleRequest{
		Company: "Jamones SL",
		Email:   "compras@jamones.example",
	})
	assert.Error(t, err)
}

func TestWholesaleInquiryRequiresCompanyAndEmail(t *testing.T) {
	f := newFixture(t)

	err := f.svc.WholesaleInquiry(context.Background(), dto.WholesaleRequest{Phone: "600123456"})
	assert.Error(t, err)
	assert.Empty(t, f.notifier.sent())
}

func TestGetFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	seedPendingOrder(f, "GETX0001")

	order, err := f.svc.Get(context.Background(), "GETX0001")
	require.NoError(t, err)
	assert.Equal(t, "GETX0001", order.OrderID)

	_, err = f.svc.Get(context.Background(), "MISSING1")
	assert.Error(t, err)
}

func TestNewOrderIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newOrderID()
		assert.Len(t, id, 8)
		assert.Equal(t, strings.ToUpper(id), id)
		seen[id] = true
	}
	// 100 draws from a 32-bit space should not collide.
	assert.Greater(t, len(seen), 99)
}
