package paymentplan

import (
	"github.com/smallbiznis/cicilan/internal/cache"
	"github.com/smallbiznis/cicilan/internal/paymentplan/repository"
	"github.com/smallbiznis/cicilan/internal/paymentplan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentplan.service",
	fx.Provide(cache.NewPlanCache),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
