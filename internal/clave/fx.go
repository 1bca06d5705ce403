package clave

import "go.uber.org/fx"

var Module = fx.Module("clave.generator",
	fx.Provide(NewCryptoSource),
	fx.Provide(NewGenerator),
)
