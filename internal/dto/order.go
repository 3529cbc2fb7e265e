package dto

import "time"

// CheckoutRequest is the storefront checkout submission.
type CheckoutRequest struct {
	ProductName   string  `json:"productName" form:"productName"`
	Price         float64 `json:"price" form:"price"`
	Name          string  `json:"name" form:"name"`
	Email         string  `json:"email" form:"email"`
	Address       string  `json:"address" form:"address"`
	City          string  `json:"city" form:"city"`
	PostalCode    string  `json:"postalCode" form:"postalCode"`
	Quantity      int     `json:"quantity" form:"quantity"`
	PaymentMethod string  `json:"paymentMethod" form:"paymentMethod"`
}

// WholesaleRequest is a wholesale-pricing inquiry from the storefront form.
type WholesaleRequest struct {
	Company string `json:"empresa" form:"empresa"`
	Email   string `json:"email" form:"email"`
	Phone   string `json:"telefono" form:"telefono"`
	Volume  string `json:"volumen" form:"volumen"`
}

// ProviderEvent is the payment provider's webhook payload. Metadata is the
// only channel correlating the provider session back to a local order.
type ProviderEvent struct {
	Type string            `json:"type"`
	Data ProviderEventData `json:"data"`
}

// ProviderEventData carries the event payload fields we consume.
type ProviderEventData struct {
	Metadata map[string]string `json:"metadata"`
}

// OrderResponse represents an order as exposed via the admin API.
type OrderResponse struct {
	OrderID           string    `json:"order_id"`
	CustomerName      string    `json:"customer_name"`
	CustomerEmail     string    `json:"customer_email"`
	Address           string    `json:"address"`
	City              string    `json:"city"`
	PostalCode        string    `json:"postal_code"`
	ProductName       string    `json:"product_name"`
	Quantity          int       `json:"quantity"`
	Amount            string    `json:"amount"`
	PaymentMethod     string    `json:"payment_method"`
	PaymentStatus     string    `json:"payment_status"`
	CheckoutSessionID string    `json:"checkout_session_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
