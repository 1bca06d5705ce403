package series

import (
	"go.uber.org/fx"

	"github.com/facturacr/facturacr/internal/series/repository"
	"github.com/facturacr/facturacr/internal/series/service"
)

var Module = fx.Module("series.allocator",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
