package tenant

import (
	"go.uber.org/fx"

	"github.com/facturacr/facturacr/internal/cache"
	"github.com/facturacr/facturacr/internal/tenant/service"
)

var Module = fx.Module("tenant",
	fx.Provide(cache.NewAuthCache),
	fx.Provide(service.NewService),
)
