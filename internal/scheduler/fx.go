package scheduler

import (
	"context"

	"github.com/smallbiznis/cicilan/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
)

// Background runs the scheduler loop for the life of the application.
var Background = fx.Invoke(Register)

func Register(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if cfg.Scheduler.RunOnce {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				sched.RunForever(ctx)
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
}
