package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/facturacr/facturacr/internal/clock"
	"github.com/facturacr/facturacr/internal/config"
	"github.com/facturacr/facturacr/internal/migration"
	"github.com/facturacr/facturacr/internal/observability"
	"github.com/facturacr/facturacr/internal/server"
	"github.com/facturacr/facturacr/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		server.Module,
		migration.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
