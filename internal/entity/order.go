package entity

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodCard = "card"
	PaymentMethodCOD  = "cod"
)

// Payment lifecycle states. An order is created pending and moves to
// completed exactly once; the transition never reverses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// ErrOrderNotFound is returned when an order lookup misses.
var ErrOrderNotFound = errors.New("order not found")

// ErrDuplicateOrder is returned when an order id collides on insert.
var ErrDuplicateOrder = errors.New("duplicate order id")

// Order is a customer purchase tracked from submission through payment
// confirmation.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID                int64           `bun:",pk,autoincrement"`
	OrderID           string          `bun:"order_id"`
	CustomerName      string          `bun:"customer_name"`
	CustomerEmail     string          `bun:"customer_email"`
	Address           string          `bun:"address"`
	City              string          `bun:"city"`
	PostalCode        string          `bun:"postal_code"`
	ProductName       string          `bun:"product_name"`
	Quantity          int             `bun:"quantity"`
	Amount            decimal.Decimal `bun:"amount"`
	PaymentMethod     string          `bun:"payment_method"`
	PaymentStatus     string          `bun:"payment_status"`
	CheckoutSessionID string          `bun:"checkout_session_id,nullzero"`
	CreatedAt         time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// Completed reports whether payment has been confirmed.
func (o *Order) Completed() bool {
	return o.PaymentStatus == PaymentStatusCompleted
}
