package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/cicilan/internal/auditcontext"
	"github.com/smallbiznis/cicilan/internal/clock"
	creditdomain "github.com/smallbiznis/cicilan/internal/credit/domain"
	notificationdomain "github.com/smallbiznis/cicilan/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/cicilan/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCredits struct {
	creditdomain.Service
	calls       []string
	actors      []string
	overdue     creditdomain.OverdueResult
	overdueErr  error
	reminders   creditdomain.ReminderResult
	reminderErr error
}

func (f *fakeCredits) record(ctx context.Context, call string) {
	actor, _ := auditcontext.ActorFromContext(ctx)
	f.actors = append(f.actors, actor)
	f.calls = append(f.calls, call)
}

func (f *fakeCredits) CheckOverduePayments(ctx context.Context) (creditdomain.OverdueResult, error) {
	f.record(ctx, "overdue")
	return f.overdue, f.overdueErr
}

func (f *fakeCredits) SendPaymentReminders(ctx context.Context) (creditdomain.ReminderResult, error) {
	f.record(ctx, "payment_reminders")
	return f.reminders, f.reminderErr
}

func (f *fakeCredits) SendOverdueReminders(ctx context.Context) (creditdomain.ReminderResult, error) {
	f.record(ctx, "overdue_reminders")
	return f.reminders, nil
}

type fakeNotifications struct {
	notificationdomain.Service
	batches []int
	err     error
}

func (f *fakeNotifications) Dispatch(ctx context.Context, batchSize int) (notificationdomain.DispatchResult, error) {
	if len(f.batches) == 0 {
		return notificationdomain.DispatchResult{}, f.err
	}
	claimed := f.batches[0]
	f.batches = f.batches[1:]
	return notificationdomain.DispatchResult{Claimed: claimed, Sent: claimed}, nil
}

func newTestScheduler(t *testing.T, credits *fakeCredits, notifications *fakeNotifications, cfg Config) *Scheduler {
	t.Helper()
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)
	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "cicilan", Environment: "test"})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s, err := New(Params{
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clock.NewFakeClock(time.Date(2024, 1, 20, 6, 0, 0, 0, time.UTC)),
		Credits:       credits,
		Notifications: notifications,
		Config:        cfg,
	})
	require.NoError(t, err)
	return s
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "cicilan",
		Environment: "test",
	})

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	s := &Scheduler{log: zap.NewNop(), genID: node, clock: clock.NewFakeClock(time.Time{})}
	_, err = s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "cicilan",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, registry, "cicilan_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "cicilan",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "cicilan_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunDailyRunsOverdueBeforeReminders(t *testing.T) {
	credits := &fakeCredits{
		overdue:   creditdomain.OverdueResult{Installments: 2, Credits: 1},
		reminders: creditdomain.ReminderResult{Installments: 3, Notifications: 6},
	}
	s := newTestScheduler(t, credits, &fakeNotifications{}, Config{})

	require.NoError(t, s.RunDaily(context.Background()))
	assert.Equal(t, []string{"overdue", "payment_reminders", "overdue_reminders"}, credits.calls)
	for _, actor := range credits.actors {
		assert.Equal(t, auditcontext.ActorSystem, actor)
	}
}

func TestRunJobReportsProcessedAndWrapsErrors(t *testing.T) {
	credits := &fakeCredits{
		overdue:    creditdomain.OverdueResult{Installments: 4, Credits: 2},
		overdueErr: errors.New("credit 7: boom"),
	}
	s := newTestScheduler(t, credits, &fakeNotifications{}, Config{})

	result, err := s.RunJob(context.Background(), JobOverdueSweep)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overdue_sweep: credit 7: boom")
	assert.Equal(t, 4, result.Processed)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.Skipped)
}

func TestReminderSweepJoinsFailures(t *testing.T) {
	credits := &fakeCredits{reminderErr: errors.New("db gone")}
	s := newTestScheduler(t, credits, &fakeNotifications{}, Config{})

	_, err := s.RunJob(context.Background(), JobReminderSweep)
	require.Error(t, err)
	assert.Equal(t, []string{"payment_reminders", "overdue_reminders"}, credits.calls)
}

func TestDispatchJobDrainsUntilShortBatch(t *testing.T) {
	notifications := &fakeNotifications{batches: []int{2, 2, 1, 2}}
	s := newTestScheduler(t, &fakeCredits{}, notifications, Config{BatchSize: 2})

	result, err := s.RunJob(context.Background(), JobNotificationDispatch)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, []int{2}, notifications.batches)
}

func TestDispatchJobStopsAtLoopCap(t *testing.T) {
	notifications := &fakeNotifications{batches: []int{1, 1, 1, 1}}
	s := newTestScheduler(t, &fakeCredits{}, notifications, Config{BatchSize: 1, MaxDispatchLoops: 2})

	result, err := s.RunJob(context.Background(), JobNotificationDispatch)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	credits := &fakeCredits{}
	notifications := &fakeNotifications{err: errors.New("smtp down")}
	s := newTestScheduler(t, credits, notifications, Config{EnabledJobs: []string{"OVERDUE_SWEEP"}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{"overdue"}, credits.calls)
}

func TestRunJobRejectsUnknownJob(t *testing.T) {
	s := newTestScheduler(t, &fakeCredits{}, &fakeNotifications{}, Config{})
	_, err := s.RunJob(context.Background(), "invoice")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestNewRejectsBadCronSpec(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	_, err = New(Params{
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clock.NewFakeClock(time.Time{}),
		Credits:       &fakeCredits{},
		Notifications: &fakeNotifications{},
		Config:        Config{DailySpec: "every day"},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
