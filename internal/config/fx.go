package config

import "go.uber.org/fx"

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewCreditRulesHolder),
	fx.Provide(func(h *CreditRulesHolder) CreditRulesProvider { return h }),
)
