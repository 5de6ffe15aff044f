package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/clock"
	"github.com/smallbiznis/covena/internal/config"
	"github.com/smallbiznis/covena/internal/migration"
	"github.com/smallbiznis/covena/internal/observability"
	"github.com/smallbiznis/covena/internal/server"
	"github.com/smallbiznis/covena/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
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
