package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/badrx15/ibericosgourmet/internal/config"
)

// Dodo Payments REST endpoints by environment flag.
const (
	liveBaseURL = "https://live.dodopayments.com"
	testBaseURL = "https://test.dodopayments.com"
)

// ErrNoCheckoutURL is returned when the provider responds without a usable
// hosted-checkout URL; no local order may be persisted in that case.
var ErrNoCheckoutURL = errors.New("provider returned no checkout url")

// LineItem describes one product_cart entry.
type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	// Amount is the charge in minor currency units (cents).
	Amount int64 `json:"amount"`
}

// Customer identifies the paying customer.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Billing carries the billing address sent to the provider.
type Billing struct {
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Street  string `json:"street"`
	Country string `json:"country"`
}

// SessionRequest is the hosted checkout session creation payload. Metadata is
// the sole channel correlating the session back to the local order on
// callback.
type SessionRequest struct {
	ProductCart []LineItem        `json:"product_cart"`
	Customer    Customer          `json:"customer"`
	Billing     Billing           `json:"billing"`
	Metadata    map[string]string `json:"metadata"`
	ReturnURL   string            `json:"return_url"`
}

// Session is the provider's response to a session creation request.
type Session struct {
	SessionID   string `json:"checkout_session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// Client creates hosted checkout sessions with the external payment provider.
type Client interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	ProductID() string
}

// Module wires the payment client.
var Module = fx.Provide(NewClient)

// NewClient builds the configured payment client (dodo or noop).
func NewClient(cfg config.Config, logger *zap.Logger) (Client, error) {
	switch cfg.Payment.Driver {
	case "noop":
		logger.Info("payments disabled; using noop client")
		return noopClient{productID: cfg.Payment.ProductID}, nil
	case "dodo":
		return newDodoClient(cfg.Payment, logger), nil
	default:
		return nil, fmt.Errorf("unsupported payment driver: %s", cfg.Payment.Driver)
	}
}

// noopClient refuses session creation; card checkout is unavailable without
// provider credentials while COD keeps working.
type noopClient struct {
	productID string
}

func (n noopClient) CreateCheckoutSession(context.Context, SessionRequest) (*Session, error) {
	return nil, ErrNoCheckoutURL
}

func (n noopClient) ProductID() string { return n.productID }

type dodoClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	productID  string
	logger     *zap.Logger
}

func newDodoClient(cfg config.Payment, logger *zap.Logger) *dodoClient {
	baseURL := testBaseURL
	if cfg.Environment == "live" {
		baseURL = liveBaseURL
	}
	return &dodoClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		productID:  cfg.ProductID,
		logger:     logger,
	}
}

func (c *dodoClient) ProductID() string { return c.productID }

func (c *dodoClient) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read session response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("provider rejected session request",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", payload),
		)
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	if session.CheckoutURL == "" {
		return nil, ErrNoCheckoutURL
	}
	return &session, nil
}
