package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/cicilan/internal/auditcontext"
	"github.com/smallbiznis/cicilan/internal/clock"
	creditdomain "github.com/smallbiznis/cicilan/internal/credit/domain"
	notificationdomain "github.com/smallbiznis/cicilan/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/cicilan/internal/observability/metrics"
	"github.com/smallbiznis/cicilan/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobOverdueSweep         = "overdue_sweep"
	JobReminderSweep        = "reminder_sweep"
	JobNotificationDispatch = "notification_dispatch"
)

var (
	ErrInvalidConfig = errors.New("invalid_scheduler_config")
	ErrUnknownJob    = errors.New("unknown_job")
)

type Params struct {
	fx.In

	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Credits       creditdomain.Service
	Notifications notificationdomain.Service
	Locker        *ratelimit.Locker `optional:"true"`
	Config        Config            `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	credits       creditdomain.Service
	notifications notificationdomain.Service
	locker        *ratelimit.Locker
}

// JobResult summarises one job run for the admin trigger.
type JobResult struct {
	Job       string `json:"job"`
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Skipped   bool   `json:"skipped"`
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Credits == nil || p.Notifications == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	if _, err := cron.ParseStandard(cfg.DailySpec); err != nil {
		return nil, fmt.Errorf("%w: daily spec %q: %v", ErrInvalidConfig, cfg.DailySpec, err)
	}
	return &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           cfg,
		genID:         p.GenID,
		clock:         p.Clock,
		credits:       p.Credits,
		notifications: p.Notifications,
		locker:        p.Locker,
	}, nil
}

// Jobs lists the job names the scheduler knows, in daily run order.
func Jobs() []string {
	return []string{JobOverdueSweep, JobReminderSweep, JobNotificationDispatch}
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) (JobResult, error) {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, auditcontext.ActorSystem, "scheduler")
	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	ran, err := s.withJobLock(ctx, name, fn)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	result := JobResult{Job: name, RunID: run.runID, Processed: run.processedCount, Skipped: !ran}
	if err == nil {
		return result, nil
	}

	// A deadline is a soft stop: the next run resumes where this one left off.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return result, nil
	}

	return result, fmt.Errorf("%s: %w", name, err)
}

// RunJob executes a single job by name.
func (s *Scheduler) RunJob(ctx context.Context, name string) (JobResult, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case JobOverdueSweep:
		return s.runJob(ctx, JobOverdueSweep, s.cfg.BatchSize, s.cfg.JobTimeout, s.OverdueSweepJob)
	case JobReminderSweep:
		return s.runJob(ctx, JobReminderSweep, s.cfg.BatchSize, s.cfg.JobTimeout, s.ReminderSweepJob)
	case JobNotificationDispatch:
		return s.runJob(ctx, JobNotificationDispatch, s.cfg.BatchSize, s.cfg.JobTimeout, s.DispatchJob)
	default:
		return JobResult{Job: name}, ErrUnknownJob
	}
}

// RunDaily runs the overdue sweep before reminders so newly overdue
// installments get their reminder on the same day.
func (s *Scheduler) RunDaily(ctx context.Context) error {
	var err error
	for _, job := range []string{JobOverdueSweep, JobReminderSweep} {
		if !s.isJobEnabled(job) {
			continue
		}
		_, jobErr := s.RunJob(ctx, job)
		err = errors.Join(err, jobErr)
	}
	return err
}

// RunOnce runs every enabled job once, daily sweeps first.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	err := s.RunDaily(ctx)
	if s.isJobEnabled(JobNotificationDispatch) {
		_, dispatchErr := s.RunJob(ctx, JobNotificationDispatch)
		err = errors.Join(err, dispatchErr)
	}
	return err
}

// RunForever drives the daily sweeps from the cron spec and the dispatcher from
// a ticker until ctx is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{log: s.log.Sugar()}),
		cron.WithChain(cron.Recover(cronLogger{log: s.log.Sugar()}), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.cfg.DailySpec, func() {
		if err := s.RunDaily(ctx); err != nil {
			s.log.Warn("daily sweep failed", zap.Error(err))
		}
	}); err != nil {
		s.log.Error("schedule daily sweep failed", zap.String("spec", s.cfg.DailySpec), zap.Error(err))
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	ticker := time.NewTicker(s.cfg.DispatchInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.DispatchInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			schedMetrics.ObserveRunLoopLag(lag)
		}
		if s.isJobEnabled(JobNotificationDispatch) {
			if _, err := s.RunJob(ctx, JobNotificationDispatch); err != nil {
				s.log.Warn("notification dispatch failed", zap.Error(err))
			}
		}
		nextRun = s.clock.Now().Add(s.cfg.DispatchInterval)
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) OverdueSweepJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobOverdueSweep, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	result, err := s.credits.CheckOverduePayments(ctx)
	run.AddProcessed(result.Installments)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.AddBatchProcessed(JobOverdueSweep, "installments", result.Installments)
	schedMetrics.AddBatchProcessed(JobOverdueSweep, "credits", result.Credits)
	if err != nil {
		s.logSchedulerError(ctx, run, "overdue sweep incomplete", err,
			zap.Int("installments", result.Installments),
			zap.Int("credits", result.Credits),
		)
		return err
	}
	return nil
}

func (s *Scheduler) ReminderSweepJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobReminderSweep, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	schedMetrics := obsmetrics.Scheduler()

	upcoming, upcomingErr := s.credits.SendPaymentReminders(ctx)
	run.AddProcessed(upcoming.Notifications)
	schedMetrics.AddBatchProcessed(JobReminderSweep, "payment_reminders", upcoming.Notifications)
	if upcomingErr != nil {
		s.logSchedulerError(ctx, run, "payment reminders incomplete", upcomingErr)
	}

	overdue, overdueErr := s.credits.SendOverdueReminders(ctx)
	run.AddProcessed(overdue.Notifications)
	schedMetrics.AddBatchProcessed(JobReminderSweep, "overdue_reminders", overdue.Notifications)
	if overdueErr != nil {
		s.logSchedulerError(ctx, run, "overdue reminders incomplete", overdueErr)
	}
	return errors.Join(upcomingErr, overdueErr)
}

// DispatchJob drains due notifications batch by batch until a short batch.
func (s *Scheduler) DispatchJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobNotificationDispatch, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	schedMetrics := obsmetrics.Scheduler()

	for i := 0; i < s.cfg.MaxDispatchLoops; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := s.notifications.Dispatch(ctx, s.cfg.BatchSize)
		run.AddProcessed(result.Claimed)
		schedMetrics.AddBatchProcessed(JobNotificationDispatch, "notifications", result.Claimed)
		if err != nil {
			s.logSchedulerError(ctx, run, "notification dispatch failed", err, zap.Int("claimed", result.Claimed))
			return err
		}
		if result.Claimed == 0 && i == 0 {
			schedMetrics.IncBatchDeferred(JobNotificationDispatch, obsmetrics.SchedulerBatchDeferredReasonSkipLockedEmpty)
		}
		if result.Claimed < s.cfg.BatchSize {
			return nil
		}
	}
	return nil
}
