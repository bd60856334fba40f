package events

import (
	"context"

	"github.com/smallbiznis/cicilan/internal/config"
	creditdomain "github.com/smallbiznis/cicilan/internal/credit/domain"
	orderdomain "github.com/smallbiznis/cicilan/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("order.events",
	fx.Invoke(Register),
)

type RegisterParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Orders    orderdomain.Service
	Credits   creditdomain.Service
}

// Register starts the consumer with the application when the queue is configured.
func Register(p RegisterParams) error {
	cfg := p.Config.OrderSQS
	if !cfg.Enabled || cfg.QueueURL == "" {
		p.Log.Info("order event consumer disabled")
		return nil
	}

	client, err := NewSQSClient(context.Background(), cfg)
	if err != nil {
		return err
	}
	consumer := NewConsumer(client, cfg.QueueURL, p.Orders, p.Credits, p.Log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				_ = consumer.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stop.Done():
			}
			return nil
		},
	})
	return nil
}
