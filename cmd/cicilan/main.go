package main

import (
	"github.com/smallbiznis/cicilan/internal/core"
	"github.com/smallbiznis/cicilan/internal/migration"
	orderevents "github.com/smallbiznis/cicilan/internal/order/events"
	"github.com/smallbiznis/cicilan/internal/scheduler"
	"github.com/smallbiznis/cicilan/internal/server"
	"go.uber.org/fx"
)

// Single process deployment: API, scheduler and order consumer.
func main() {
	app := fx.New(
		core.Module,
		migration.Module,

		scheduler.Module,
		scheduler.Background,
		orderevents.Module,

		server.Module,
	)
	app.Run()
}
