package document

import (
	"go.uber.org/fx"

	"github.com/facturacr/facturacr/internal/document/repository"
	"github.com/facturacr/facturacr/internal/document/service"
)

var Module = fx.Module("document",
	fx.Provide(repository.NewClaveReserver),
	fx.Provide(service.NewService),
)
