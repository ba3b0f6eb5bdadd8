package http

import (
	"go.uber.org/fx"

	menutransport "github.com/Additional-Code/byteristo/internal/transport/http/menu"
	ordertransport "github.com/Additional-Code/byteristo/internal/transport/http/order"
)

// OrdersModule wires the order management endpoints.
var OrdersModule = fx.Options(
	ordertransport.Module,
)

// MenuModule wires the menu inventory endpoints.
var MenuModule = fx.Options(
	menutransport.Module,
)
