package http

import (
	"go.uber.org/fx"

	"github.com/badrx15/ibericosgourmet/internal/transport/http/shop"
	"github.com/badrx15/ibericosgourmet/internal/transport/http/web"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	web.Module,
	shop.Module,
)
