package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/badrx15/ibericosgourmet/internal/database"
	"github.com/badrx15/ibericosgourmet/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds example orders if they are missing.
func (s *Seeder) Orders(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Order{
		{
			OrderID:       "DEMO0001",
			CustomerName:  "Ana García",
			CustomerEmail: "ana@example.com",
			Address:       "Calle Mayor 1",
			City:          "Madrid",
			PostalCode:    "28001",
			ProductName:   "Pack 6",
			Quantity:      6,
			Amount:        decimal.RequireFromString("33.00"),
			PaymentMethod: entity.PaymentMethodCOD,
			PaymentStatus: entity.PaymentStatusPending,
			CreatedAt:     now,
		},
		{
			OrderID:           "DEMO0002",
			CustomerName:      "Luis Pérez",
			CustomerEmail:     "luis@example.com",
			Address:           "Avenida del Puerto 12",
			City:              "Valencia",
			PostalCode:        "46021",
			ProductName:       "Pack 12",
			Quantity:          12,
			Amount:            decimal.RequireFromString("55.00"),
			PaymentMethod:     entity.PaymentMethodCard,
			PaymentStatus:     entity.PaymentStatusCompleted,
			CheckoutSessionID: "cks_demo_0002",
			CreatedAt:         now,
		},
	}

	for _, sample := range samples {
		order := sample
		_, err := s.db.NewInsert().Model(&order).
			On("CONFLICT (order_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}
