package order

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/badrx15/ibericosgourmet/internal/database"
	"github.com/badrx15/ibericosgourmet/internal/entity"
)

var repoTracer = otel.Tracer("github.com/badrx15/ibericosgourmet/repository/order")

// Repository encapsulates read/write access for orders.
type Repository struct {
	conns *database.Connections
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{conns: conns}
}

// Create persists a new order using the write connection.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.id", order.OrderID)))
	defer span.End()

	_, err := r.conns.Writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if isUniqueViolation(err) {
			return entity.ErrDuplicateOrder
		}
		return err
	}
	return nil
}

// GetByOrderID fetches an order by its public identifier. Reads go to the
// replica when one is configured.
func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByOrderID", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	order := new(entity.Order)
	err := r.conns.Reader.NewSelect().Model(order).Where("order_id = ?", orderID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, entity.ErrOrderNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// MarkCompleted flips payment_status from pending to completed as a single
// conditional update and reports the affected row count. Zero rows means the
// order is unknown or was already completed; callers treat both as a no-op,
// which makes the pending->completed transition race-safe across the webhook
// and redirect paths.
func (r *Repository) MarkCompleted(ctx context.Context, orderID string) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.MarkCompleted", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	res, err := r.conns.Writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("payment_status = ?", entity.PaymentStatusCompleted).
		Where("order_id = ?", orderID).
		Where("payment_status = ?", entity.PaymentStatusPending).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("order.rows_affected", affected))
	return affected, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
