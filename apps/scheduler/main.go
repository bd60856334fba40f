package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/smallbiznis/cicilan/internal/config"
	"github.com/smallbiznis/cicilan/internal/core"
	"github.com/smallbiznis/cicilan/internal/metricspush"
	obsmetrics "github.com/smallbiznis/cicilan/internal/observability/metrics"
	"github.com/smallbiznis/cicilan/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const runOnceTimeout = 30 * time.Minute

func main() {
	var (
		cfg   config.Config
		log   *zap.Logger
		sched *scheduler.Scheduler
	)

	app := fx.New(
		core.Module,
		scheduler.Module,
		scheduler.Background,
		fx.Populate(&cfg, &log, &sched),
	)
	if err := app.Err(); err != nil {
		os.Exit(1)
	}

	if !cfg.Scheduler.RunOnce {
		app.Run()
		return
	}

	os.Exit(runOnce(app, cfg, log, sched))
}

// runOnce executes every job a single time, pushes the job metrics for the
// short lived process and exits non zero when a job failed.
func runOnce(app *fx.App, cfg config.Config, log *zap.Logger, sched *scheduler.Scheduler) int {
	ctx, cancel := context.WithTimeout(context.Background(), runOnceTimeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Error("scheduler start failed", zap.Error(err))
		return 1
	}

	code := 0
	if err := sched.RunOnce(ctx); err != nil {
		log.Error("scheduler run failed", zap.Error(err))
		code = 1
	}

	if pusher := metricspush.NewPusher(cfg, log); pusher != nil {
		if err := pusher.Push(context.WithoutCancel(ctx), obsmetrics.Scheduler().Gatherer()); err != nil {
			log.Warn("scheduler metrics push failed", zap.Error(err))
		}
		if closer, ok := pusher.(io.Closer); ok {
			_ = closer.Close()
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Warn("scheduler stop failed", zap.Error(err))
	}
	return code
}
