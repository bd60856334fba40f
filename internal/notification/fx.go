package notification

import (
	"github.com/smallbiznis/cicilan/internal/notification/channel"
	"github.com/smallbiznis/cicilan/internal/notification/repository"
	"github.com/smallbiznis/cicilan/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	channel.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
