package whatsapp

import (
	"github.com/smallbiznis/cicilan/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.whatsapp",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	return NewClient(Config{
		Endpoint: cfg.WhatsApp.Endpoint,
		Secret:   cfg.WhatsApp.Secret,
		Account:  cfg.WhatsApp.Account,
		Timeout:  cfg.WhatsApp.Timeout,
	})
}
