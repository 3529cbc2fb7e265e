package shop

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/badrx15/ibericosgourmet/internal/config"
	"github.com/badrx15/ibericosgourmet/internal/entity"
	"github.com/badrx15/ibericosgourmet/internal/messaging"
	"github.com/badrx15/ibericosgourmet/internal/payments"
	service "github.com/badrx15/ibericosgourmet/internal/service/order"
	"github.com/badrx15/ibericosgourmet/internal/transport/http/web"
)

type memStore struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
}

func (m *memStore) Create(_ context.Context, order *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.OrderID]; ok {
		return entity.ErrDuplicateOrder
	}
	clone := *order
	m.orders[order.OrderID] = &clone
	return nil
}

func (m *memStore) GetByOrderID(_ context.Context, orderID string) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	clone := *order
	return &clone, nil
}

func (m *memStore) MarkCompleted(_ context.Context, orderID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok || order.PaymentStatus != entity.PaymentStatusPending {
		return 0, nil
	}
	order.PaymentStatus = entity.PaymentStatusCompleted
	return 1, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (r *recordingNotifier) Notify(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, text)
	return nil
}

type staticPayments struct {
	session *payments.Session
	err     error
}

func (s *staticPayments) CreateCheckoutSession(context.Context, payments.SessionRequest) (*payments.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func (s *staticPayments) ProductID() string { return "prod_jamon" }

type dropPublisher struct{}

func (dropPublisher) Publish(context.Context, []byte, []byte) error { return nil }
func (dropPublisher) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}
func (dropPublisher) Topic() string { return "" }

type testServer struct {
	echo     *echo.Echo
	store    *memStore
	notifier *recordingNotifier
	payments *staticPayments
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		store:    &memStore{orders: make(map[string]*entity.Order)},
		notifier: &recordingNotifier{},
		payments: &staticPayments{},
	}

	cfg := config.Config{}
	cfg.HTTP.PublicBaseURL = "http://shop.test"
	cfg.Cache.DefaultTTL = time.Minute

	svc := service.NewService(service.Params{
		Store:     ts.store,
		Cache:     nil,
		Config:    cfg,
		Logger:    zap.NewNop(),
		Notifier:  ts.notifier,
		Payments:  ts.payments,
		Publisher: dropPublisher{},
	})

	e := echo.New()
	renderer, err := web.NewRenderer()
	require.NoError(t, err)
	e.Renderer = renderer
	Register(e, NewHandler(svc, zap.NewNop()))

	ts.echo = e
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func checkoutForm() url.Values {
	return url.Values{
		"productName":   {"Pack 6"},
		"price":         {"30"},
		"name":          {"Ana"},
		"email":         {"a@x.com"},
		"address":       {"Calle 1"},
		"city":          {"Madrid"},
		"postalCode":    {"28001"},
		"quantity":      {"6"},
		"paymentMethod": {"cod"},
	}
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func seedPending(ts *testServer, orderID string) {
	ts.store.orders[orderID] = &entity.Order{
		OrderID:       orderID,
		CustomerName:  "Ana",
		CustomerEmail: "a@x.com",
		Address:       "Calle 1",
		City:          "Madrid",
		PostalCode:    "28001",
		ProductName:   "Pack 6",
		Quantity:      6,
		Amount:        decimal.RequireFromString("55.00"),
		PaymentMethod: entity.PaymentMethodCard,
		PaymentStatus: entity.PaymentStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestCheckoutCODRedirectsToSuccess(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(postForm("/checkout-jamon", checkoutForm()))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get(echo.HeaderLocation)
	assert.True(t, strings.HasPrefix(location, "/success?order_id="), "location %q", location)
	assert.True(t, strings.HasSuffix(location, "&method=cod"), "location %q", location)
	assert.Len(t, ts.notifier.messages, 1)
}

func TestCheckoutCardRedirectsToProvider(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.session = &payments.Session{
		SessionID:   "cks_123",
		CheckoutURL: "https://checkout.test/s/123",
	}

	form := checkoutForm()
	form.Set("paymentMethod", "card")
	rec := ts.do(postForm("/checkout-jamon", form))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://checkout.test/s/123", rec.Header().Get(echo.HeaderLocation))
}

func TestCheckoutValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(url.Values)
	}{
		{"missing name", func(f url.Values) { f.Del("name") }},
		{"missing address", func(f url.Values) { f.Del("address") }},
		{"zero price", func(f url.Values) { f.Set("price", "0") }},
		{"zero quantity", func(f url.Values) { f.Set("quantity", "0") }},
		{"unknown payment method", func(f url.Values) { f.Set("paymentMethod", "cheque") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			form := checkoutForm()
			tt.mutate(form)

			rec := ts.do(postForm("/checkout-jamon", form))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, ts.notifier.messages)
		})
	}
}

func TestCheckoutProviderFailureReturns500(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.err = payments.ErrNoCheckoutURL

	form := checkoutForm()
	form.Set("paymentMethod", "card")
	rec := ts.do(postForm("/checkout-jamon", form))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error al procesar el pedido")
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := ts.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())
}

func TestWebhookCompletesOrder(t *testing.T) {
	ts := newTestServer(t)
	seedPending(ts, "HOOK0001")

	payload := `{"type":"payment.succeeded","data":{"metadata":{"type":"jamon_order","order_id":"HOOK0001"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := ts.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())

	order, err := ts.store.GetByOrderID(context.Background(), "HOOK0001")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, order.PaymentStatus)
	assert.Len(t, ts.notifier.messages, 1)
}

func TestSuccessPageTriggersFallbackConfirmation(t *testing.T) {
	ts := newTestServer(t)
	seedPending(ts, "REDI0001")

	req := httptest.NewRequest(http.MethodGet, "/success?order_id=REDI0001&status=succeeded", nil)
	rec := ts.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)

	order, err := ts.store.GetByOrderID(context.Background(), "REDI0001")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, order.PaymentStatus)

	require.Len(t, ts.notifier.messages, 1)
	assert.Contains(t, ts.notifier.messages[0], "Confirmado vía Redirección")
}

func TestSuccessPageWithoutStatusLeavesOrderPending(t *testing.T) {
	ts := newTestServer(t)
	seedPending(ts, "REDI0002")

	req := httptest.NewRequest(http.MethodGet, "/success?order_id=REDI0002&method=cod", nil)
	rec := ts.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)

	order, err := ts.store.GetByOrderID(context.Background(), "REDI0002")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, order.PaymentStatus)
	assert.Empty(t, ts.notifier.messages)
}

func TestWholesaleForm(t *testing.T) {
	ts := newTestServer(t)

	form := url.Values{
		"empresa":  {"Jamones SL"},
		"email":    {"compras@jamones.example"},
		"telefono": {"600123456"},
		"volumen":  {"50 packs/mes"},
	}
	rec := ts.do(postForm("/contacto-mayorista", form))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "window.location.href = '/#mayorista'")
	require.Len(t, ts.notifier.messages, 1)
	assert.Contains(t, ts.notifier.messages[0], "Jamones SL")
}

func TestWholesaleFormValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(postForm("/contacto-mayorista", url.Values{"telefono": {"600123456"}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWholesaleDeliveryFailureReturns500(t *testing.T) {
	ts := newTestServer(t)
	ts.notifier.err = assert.AnError

	form := url.Values{
		"empresa": {"Jamones SL"},
		"email":   {"compras@jamones.example"},
	}
	rec := ts.do(postForm("/contacto-mayorista", form))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error al enviar la solicitud")
}

func TestGetOrderAPI(t *testing.T) {
	ts := newTestServer(t)
	seedPending(ts, "APIX0001")

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/orders/APIX0001", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"success":true`)
	assert.Contains(t, body, `"order_id":"APIX0001"`)
	assert.Contains(t, body, `"amount":"55.00"`)
}

func TestGetOrderAPINotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/orders/MISSING1", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestIndexAndCancelPagesRender(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/", "/cancel"} {
		rec := ts.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
		assert.NotEmpty(t, rec.Body.String(), "path %s", path)
	}
}
