package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/config"
	"github.com/smallbiznis/cicilan/internal/domainerr"
	"github.com/smallbiznis/cicilan/internal/notification/domain"
	"github.com/smallbiznis/cicilan/internal/notification/repository"
	"github.com/smallbiznis/cicilan/pkg/db/dbtest"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSender struct {
	channel domain.Channel
	mu      sync.Mutex
	sent    []string
	err     error
	ref     string
}

func (f *fakeSender) Channel() domain.Channel { return f.channel }

func (f *fakeSender) Send(ctx context.Context, n *domain.Notification) (domain.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.SendResult{}, f.err
	}
	f.sent = append(f.sent, n.Recipient)
	return domain.SendResult{ExternalID: f.ref, Response: map[string]any{"ok": true}}, nil
}

type fakeSlack struct {
	messages []string
}

func (f *fakeSlack) PostMessage(ctx context.Context, channelID, message string) error {
	f.messages = append(f.messages, message)
	return nil
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	email    *fakeSender
	whatsapp *fakeSender
	slack    *fakeSlack
}

func newFixture(t *testing.T, channels config.ChannelSwitches) fixture {
	t.Helper()
	conn := dbtest.Open(t, &domain.Notification{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	rules := config.DefaultCreditRules()
	rules.Channels = channels

	f := fixture{
		db:       conn,
		clock:    clk,
		email:    &fakeSender{channel: domain.ChannelEmail},
		whatsapp: &fakeSender{channel: domain.ChannelWhatsApp, ref: "wa-123"},
		slack:    &fakeSlack{},
	}
	f.svc = New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clk,
		Repo:    repository.Provide(),
		Rules:   config.NewStaticCreditRules(rules),
		Senders: []domain.Sender{f.email, f.whatsapp},
		Slack:   f.slack,
	})
	return f
}

func approvedEvent() domain.Event {
	return domain.Event{
		Type:     domain.TypeCreditApproved,
		CreditID: 42,
		Recipient: domain.Recipient{
			Name:  "Ana Gomez",
			Email: "ana@example.com",
			Phone: "3001234567",
		},
		Data: map[string]string{
			"order_number":            "#1001",
			"total_amount":            "1,200,000.00",
			"installments_count":      "6",
			"next_installment_amount": "200,000.00",
			"next_due_date":           "2024-04-01",
		},
	}
}

func TestNotifyRendersEveryEnabledChannel(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{Email: true, WhatsApp: true})
	ctx := context.Background()

	records, err := f.svc.Notify(ctx, f.db, approvedEvent())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, domain.ChannelEmail, records[0].Channel)
	assert.Equal(t, "Credit Approved - #1001", records[0].Subject)
	assert.Contains(t, records[0].Body, "Dear Ana Gomez,")
	assert.Equal(t, domain.StatusPending, records[0].Status)
	assert.Equal(t, domain.ChannelWhatsApp, records[1].Channel)
	assert.Equal(t, "3001234567", records[1].Recipient)
}

func TestNotifySkipsDisabledChannelsAndMissingRecipients(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{Email: true, WhatsApp: true, SMS: false})
	event := approvedEvent()
	event.Recipient.Email = ""

	records, err := f.svc.Notify(context.Background(), f.db, event)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ChannelWhatsApp, records[0].Channel)
}

func TestNotifyInsideRolledBackTransactionLeavesNothing(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{Email: true})
	ctx := context.Background()

	boom := errors.New("boom")
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if _, err := f.svc.Notify(ctx, tx, approvedEvent()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, f.db.Model(&domain.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDispatchSendsDueRecords(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{Email: true, WhatsApp: true})
	ctx := context.Background()
	_, err := f.svc.Notify(ctx, f.db, approvedEvent())
	require.NoError(t, err)

	later := &domain.Notification{
		CreditID:    42,
		Type:        domain.TypePaymentReminder,
		Channel:     domain.ChannelEmail,
		Recipient:   "later@example.com",
		Body:        "later",
		ScheduledAt: f.clock.Now().Add(time.Hour),
	}
	require.NoError(t, f.svc.Enqueue(ctx, nil, later))

	res, err := f.svc.Dispatch(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.DispatchResult{Claimed: 2, Sent: 2}, res)
	assert.Equal(t, []string{"ana@example.com"}, f.email.sent)

	var wa domain.Notification
	require.NoError(t, f.db.Where("channel = ?", domain.ChannelWhatsApp).First(&wa).Error)
	assert.Equal(t, domain.StatusSent, wa.Status)
	require.NotNil(t, wa.ExternalID)
	assert.Equal(t, "wa-123", *wa.ExternalID)
	require.NotNil(t, wa.SentAt)

	var pending domain.Notification
	require.NoError(t, f.db.First(&pending, "id = ?", later.ID).Error)
	assert.Equal(t, domain.StatusPending, pending.Status)
}

func TestDispatchRetriesThenFails(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{Email: true})
	ctx := context.Background()
	f.email.err = errors.New("smtp unavailable")

	records, err := f.svc.Notify(ctx, f.db, approvedEvent())
	require.NoError(t, err)
	require.Len(t, records, 1)
	id := records[0].ID

	res, err := f.svc.Dispatch(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retried)

	var n domain.Notification
	require.NoError(t, f.db.First(&n, "id = ?", id).Error)
	assert.Equal(t, 1, n.RetryCount)
	assert.Equal(t, domain.StatusPending, n.Status)
	assert.True(t, n.ScheduledAt.Equal(f.clock.Now().Add(5*time.Minute)))

	res, err = f.svc.Dispatch(ctx, 50)
	require.NoError(t, err)
	assert.Zero(t, res.Claimed, "record is not due until the backoff elapses")

	f.clock.Advance(5 * time.Minute)
	res, err = f.svc.Dispatch(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retried)

	f.clock.Advance(10 * time.Minute)
	res, err = f.svc.Dispatch(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	require.NoError(t, f.db.First(&n, "id = ?", id).Error)
	assert.Equal(t, domain.StatusFailed, n.Status)
	assert.Equal(t, domain.MaxRetries, n.RetryCount)
	assert.Equal(t, "smtp unavailable", n.ErrorMessage)
	require.Len(t, f.slack.messages, 1)
	assert.Contains(t, f.slack.messages[0], "failed after 3 attempts")

	_, err = f.svc.Resend(ctx, id.String())
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
}

func TestPermanentFailureCanBeResent(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{Email: true})
	ctx := context.Background()
	f.email.err = domain.Permanent(errors.New("mailbox rejected"))

	records, err := f.svc.Notify(ctx, f.db, approvedEvent())
	require.NoError(t, err)
	id := records[0].ID

	res, err := f.svc.Dispatch(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	f.email.err = nil
	n, err := f.svc.Resend(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, n.Status)
	assert.Equal(t, 1, n.RetryCount)

	res, err = f.svc.Dispatch(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
}

func TestResendRejectsNonFailedRecords(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{Email: true})
	records, err := f.svc.Notify(context.Background(), f.db, approvedEvent())
	require.NoError(t, err)

	_, err = f.svc.Resend(context.Background(), records[0].ID.String())
	assert.ErrorIs(t, err, domain.ErrNotResendable)
	assert.Equal(t, domainerr.KindInvalidState, kindOf(err))

	_, err = f.svc.Resend(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestDispatchFailsRecordsWithoutSender(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{SMS: true})
	records, err := f.svc.Notify(context.Background(), f.db, approvedEvent())
	require.NoError(t, err)
	require.Len(t, records, 1)

	res, err := f.svc.Dispatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
}

func TestUpdateDeliveryStatus(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{WhatsApp: true})
	ctx := context.Background()
	_, err := f.svc.Notify(ctx, f.db, approvedEvent())
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, 50)
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateDeliveryStatus(ctx, "wa-123", "read"))
	require.NoError(t, f.svc.UpdateDeliveryStatus(ctx, "wa-123", "delivered"))

	var n domain.Notification
	require.NoError(t, f.db.First(&n, "external_id = ?", "wa-123").Error)
	assert.Equal(t, domain.StatusRead, n.Status)

	assert.ErrorIs(t, f.svc.UpdateDeliveryStatus(ctx, "wa-123", "bounced"), domain.ErrInvalidStatus)
	assert.ErrorIs(t, f.svc.UpdateDeliveryStatus(ctx, "missing", "read"), domain.ErrNotFound)
}

func TestHasNotification(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{Email: true})
	ctx := context.Background()
	installmentID := snowflake.ID(77)
	event := approvedEvent()
	event.Type = domain.TypePaymentReminder
	event.InstallmentID = &installmentID

	startOfDay := clock.Today(f.clock)
	has, err := f.svc.HasNotification(ctx, nil, installmentID, domain.TypePaymentReminder, startOfDay)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = f.svc.Notify(ctx, f.db, event)
	require.NoError(t, err)

	has, err = f.svc.HasNotification(ctx, nil, installmentID, domain.TypePaymentReminder, startOfDay)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = f.svc.HasNotification(ctx, nil, installmentID, domain.TypePaymentReminder, startOfDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestListFailedPaginates(t *testing.T) {
	f := newFixture(t, config.ChannelSwitches{Email: true})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		n := &domain.Notification{CreditID: 1, Type: domain.TypePaymentReminder, Channel: domain.ChannelEmail, Recipient: "x@example.com", Body: "b"}
		require.NoError(t, f.svc.Enqueue(ctx, nil, n))
		require.NoError(t, f.db.Model(n).Update("status", domain.StatusFailed).Error)
	}

	page, err := f.svc.List(ctx, domain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		Status:     string(domain.StatusFailed),
	})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.True(t, page.HasMore)

	next, err := f.svc.List(ctx, domain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken},
		Status:     string(domain.StatusFailed),
	})
	require.NoError(t, err)
	assert.Len(t, next.Notifications, 1)
	assert.False(t, next.HasMore)
}

func kindOf(err error) domainerr.Kind {
	kind, _ := domainerr.KindOf(err)
	return kind
}
