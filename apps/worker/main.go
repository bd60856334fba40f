package main

import (
	"github.com/smallbiznis/cicilan/internal/core"
	orderevents "github.com/smallbiznis/cicilan/internal/order/events"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		core.Module,
		orderevents.Module,
	)
	app.Run()
}
