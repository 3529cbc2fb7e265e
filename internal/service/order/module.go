package order

import (
	"go.uber.org/fx"

	repo "github.com/badrx15/ibericosgourmet/internal/repository/order"
)

// Module provides the order service to Fx. The repository is bound to the
// OrderStore interface so tests can substitute doubles.
var Module = fx.Options(
	fx.Provide(func(r *repo.Repository) OrderStore { return r }),
	fx.Provide(NewService),
)
