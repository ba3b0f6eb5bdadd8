package catalog

import "go.uber.org/fx"

// Module provides the HTTP catalog client and the advisory checker.
var Module = fx.Provide(
	fx.Annotate(NewHTTPClient, fx.As(new(Client))),
	NewAdvisor,
)
