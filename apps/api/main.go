package main

import (
	"github.com/smallbiznis/cicilan/internal/core"
	"github.com/smallbiznis/cicilan/internal/migration"
	"github.com/smallbiznis/cicilan/internal/scheduler"
	"github.com/smallbiznis/cicilan/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		core.Module,
		migration.Module,

		// Provided for the admin job trigger only; the loop runs in apps/scheduler.
		scheduler.Module,

		server.Module,
	)
	app.Run()
}
