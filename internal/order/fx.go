package order

import (
	"github.com/smallbiznis/cicilan/internal/order/repository"
	"github.com/smallbiznis/cicilan/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewProvider),
)
