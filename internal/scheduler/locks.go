package scheduler

import (
	"context"
	"fmt"

	obsmetrics "github.com/smallbiznis/cicilan/internal/observability/metrics"
	"go.uber.org/zap"
)

const jobLockKey = "cicilan:scheduler:lock:%s"

// withJobLock runs fn only when this replica holds the job's Redis lock. Without
// Redis every replica runs the job; the sweeps are idempotent either way.
func (s *Scheduler) withJobLock(ctx context.Context, job string, fn func(context.Context) error) (bool, error) {
	if !s.locker.Enabled() {
		return true, fn(ctx)
	}

	key := fmt.Sprintf(jobLockKey, job)
	token, acquired, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		obsmetrics.Scheduler().IncBatchDeferred(job, obsmetrics.SchedulerBatchDeferredReasonLockHeld)
		s.logger(ctx).Info("scheduler.job.skipped", zap.String("job", job), zap.String("reason", "lock_held"))
		return false, nil
	}
	defer func() {
		// Released on a fresh context so a timed out job still frees the lock.
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger(ctx).Warn("release scheduler lock failed", zap.String("job", job), zap.Error(err))
		}
	}()
	return true, fn(ctx)
}
