package app

import (
	"go.uber.org/fx"

	"github.com/badrx15/ibericosgourmet/internal/cache"
	"github.com/badrx15/ibericosgourmet/internal/config"
	"github.com/badrx15/ibericosgourmet/internal/database"
	"github.com/badrx15/ibericosgourmet/internal/logger"
	"github.com/badrx15/ibericosgourmet/internal/messaging"
	"github.com/badrx15/ibericosgourmet/internal/notifier"
	"github.com/badrx15/ibericosgourmet/internal/observability"
	"github.com/badrx15/ibericosgourmet/internal/payments"
	repositoryorder "github.com/badrx15/ibericosgourmet/internal/repository/order"
	httpserver "github.com/badrx15/ibericosgourmet/internal/server/http"
	serviceorder "github.com/badrx15/ibericosgourmet/internal/service/order"
	transporthttp "github.com/badrx15/ibericosgourmet/internal/transport/http"
	"github.com/badrx15/ibericosgourmet/internal/worker"
	workerorder "github.com/badrx15/ibericosgourmet/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	notifier.Module,
	payments.Module,
	observability.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the storefront HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background order-event processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
