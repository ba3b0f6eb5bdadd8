package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/byteristo/internal/cache"
	"github.com/Additional-Code/byteristo/internal/catalog"
	"github.com/Additional-Code/byteristo/internal/config"
	"github.com/Additional-Code/byteristo/internal/database"
	"github.com/Additional-Code/byteristo/internal/gateway"
	"github.com/Additional-Code/byteristo/internal/logger"
	"github.com/Additional-Code/byteristo/internal/messaging"
	"github.com/Additional-Code/byteristo/internal/migration"
	"github.com/Additional-Code/byteristo/internal/notifier"
	"github.com/Additional-Code/byteristo/internal/observability"
	repositorymenu "github.com/Additional-Code/byteristo/internal/repository/menu"
	repositoryorder "github.com/Additional-Code/byteristo/internal/repository/order"
	"github.com/Additional-Code/byteristo/internal/seeder"
	grpcserver "github.com/Additional-Code/byteristo/internal/server/grpc"
	httpserver "github.com/Additional-Code/byteristo/internal/server/http"
	servicemenu "github.com/Additional-Code/byteristo/internal/service/menu"
	serviceorder "github.com/Additional-Code/byteristo/internal/service/order"
	transporthttp "github.com/Additional-Code/byteristo/internal/transport/http"
	"github.com/Additional-Code/byteristo/internal/worker"
	workerorder "github.com/Additional-Code/byteristo/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
)

// Storage adds the database connections.
var Storage = fx.Options(
	Core,
	database.Module,
)

// Orders runs the order management service: the lifecycle engine over HTTP
// plus the gRPC health endpoint.
var Orders = fx.Options(
	named(string(httpserver.Orders)),
	Storage,
	migration.AutoMigrate,
	cache.Module,
	messaging.Module,
	notifier.Module,
	catalog.Module,
	repositoryorder.Module,
	serviceorder.Module,
	grpcserver.Module,
	httpserver.Module(httpserver.Orders),
	transporthttp.OrdersModule,
)

// Menu runs the menu inventory service.
var Menu = fx.Options(
	named(string(httpserver.Menu)),
	Storage,
	migration.AutoMigrate,
	cache.Module,
	repositorymenu.Module,
	servicemenu.Module,
	httpserver.Module(httpserver.Menu),
	transporthttp.MenuModule,
)

// Gateway runs the API gateway in front of both services.
var Gateway = fx.Options(
	named(string(httpserver.Gateway)),
	Core,
	httpserver.Module(httpserver.Gateway),
	gateway.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	named("worker"),
	Core,
	messaging.Module,
	worker.Module,
	workerorder.Module,
)

// Seed wires what the seeder needs to write through the menu service.
var Seed = fx.Options(
	Storage,
	cache.Module,
	repositorymenu.Module,
	servicemenu.Module,
	seeder.Module,
)

// Module is the default application wiring.
var Module = Orders

func named(service string) fx.Option {
	return fx.Decorate(func(cfg config.Config) config.Config {
		return cfg.ForService(service)
	})
}
