package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/config"
	"github.com/smallbiznis/cicilan/internal/notification/domain"
	"github.com/smallbiznis/cicilan/internal/notification/template"
	"github.com/smallbiznis/cicilan/internal/observability/metrics"
	"github.com/smallbiznis/cicilan/internal/providers/slack"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultBatchSize = 50

	// retryBackoff is multiplied by the attempt number.
	retryBackoff = 5 * time.Minute
	// claimLease hides claimed rows from other dispatchers while they are sent.
	claimLease = 2 * time.Minute

	maxErrorLength = 1000
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Rules   config.CreditRulesProvider
	Senders []domain.Sender `group:"notification_senders"`
	Slack   slack.Provider
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	rules   config.CreditRulesProvider
	senders map[domain.Channel]domain.Sender
	slack   slack.Provider
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	senders := make(map[domain.Channel]domain.Sender, len(p.Senders))
	for _, sender := range p.Senders {
		if sender != nil {
			senders[sender.Channel()] = sender
		}
	}
	alerts := p.Slack
	if alerts == nil {
		alerts = &slack.NoOpProvider{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("notification.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		rules:   p.Rules,
		senders: senders,
		slack:   alerts,
		metrics: p.Metrics,
	}
}

func (s *Service) Enqueue(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	if db == nil {
		db = s.db
	}
	now := s.clock.Now()
	if n.ID == 0 {
		n.ID = s.genID.Generate()
	}
	n.Status = domain.StatusPending
	n.RetryCount = 0
	if n.ScheduledAt.IsZero() {
		n.ScheduledAt = now
	}
	n.CreatedAt = now
	n.UpdatedAt = now
	return s.repo.Insert(ctx, db, n)
}

func (s *Service) Notify(ctx context.Context, db *gorm.DB, event domain.Event) ([]domain.Notification, error) {
	data := make(map[string]string, len(event.Data)+1)
	for k, v := range event.Data {
		data[k] = v
	}
	if _, ok := data["customer_name"]; !ok {
		data["customer_name"] = strings.TrimSpace(event.Recipient.Name)
	}

	switches := s.rules.Get().Channels
	targets := []struct {
		enabled   bool
		channel   domain.Channel
		recipient string
	}{
		{switches.Email, domain.ChannelEmail, event.Recipient.Email},
		{switches.WhatsApp, domain.ChannelWhatsApp, event.Recipient.Phone},
		{switches.SMS, domain.ChannelSMS, event.Recipient.Phone},
	}

	var out []domain.Notification
	for _, target := range targets {
		recipient := strings.TrimSpace(target.recipient)
		if !target.enabled || recipient == "" {
			continue
		}
		subject, body, ok := template.Render(event.Type, target.channel, data)
		if !ok {
			s.log.Warn("no template for notification",
				zap.String("type", string(event.Type)),
				zap.String("channel", string(target.channel)),
			)
			continue
		}
		n := &domain.Notification{
			CreditID:      event.CreditID,
			InstallmentID: event.InstallmentID,
			Type:          event.Type,
			Channel:       target.channel,
			Recipient:     recipient,
			Subject:       subject,
			Body:          body,
		}
		if err := s.Enqueue(ctx, db, n); err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

func (s *Service) MarkSent(ctx context.Context, id snowflake.ID, result domain.SendResult) error {
	n, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if n == nil {
		return domain.ErrNotFound
	}

	now := s.clock.Now()
	n.Status = domain.StatusSent
	n.SentAt = &now
	n.ErrorMessage = ""
	n.UpdatedAt = now
	if ref := strings.TrimSpace(result.ExternalID); ref != "" {
		n.ExternalID = &ref
	}
	if len(result.Response) > 0 {
		n.Response = datatypes.JSONMap(result.Response)
	}
	if err := s.repo.Save(ctx, s.db, n); err != nil {
		return err
	}

	s.metrics.RecordNotification(ctx, string(n.Channel), string(domain.StatusSent))
	metrics.Scheduler().IncDelivery(string(n.Channel), metrics.DeliveryOutcomeSent)
	return nil
}

func (s *Service) MarkFailed(ctx context.Context, id snowflake.ID, cause error) (bool, error) {
	n, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return false, err
	}
	if n == nil {
		return false, domain.ErrNotFound
	}

	now := s.clock.Now()
	n.RetryCount++
	n.UpdatedAt = now
	if cause != nil {
		n.ErrorMessage = truncate(cause.Error(), maxErrorLength)
	}

	exhausted := n.RetryCount >= domain.MaxRetries || domain.IsPermanent(cause)
	if exhausted {
		n.Status = domain.StatusFailed
	} else {
		n.Status = domain.StatusPending
		n.ScheduledAt = now.Add(time.Duration(n.RetryCount) * retryBackoff)
	}
	if err := s.repo.Save(ctx, s.db, n); err != nil {
		return false, err
	}

	if !exhausted {
		metrics.Scheduler().IncDelivery(string(n.Channel), metrics.DeliveryOutcomeRetry)
		s.log.Warn("notification send failed, retry scheduled",
			zap.String("notification_id", n.ID.String()),
			zap.String("channel", string(n.Channel)),
			zap.Int("retry_count", n.RetryCount),
			zap.Time("scheduled_at", n.ScheduledAt),
			zap.Error(cause),
		)
		return false, nil
	}

	s.metrics.RecordNotification(ctx, string(n.Channel), string(domain.StatusFailed))
	metrics.Scheduler().IncDelivery(string(n.Channel), metrics.DeliveryOutcomeExhausted)
	s.log.Error("notification failed",
		zap.String("notification_id", n.ID.String()),
		zap.String("channel", string(n.Channel)),
		zap.Int("retry_count", n.RetryCount),
		zap.Error(cause),
	)
	s.alert(ctx, n)
	return true, nil
}

func (s *Service) alert(ctx context.Context, n *domain.Notification) {
	message := fmt.Sprintf(":warning: %s notification %s for credit %s failed after %d attempts: %s",
		n.Channel, n.ID, n.CreditID, n.RetryCount, n.ErrorMessage)
	if err := s.slack.PostMessage(ctx, "", message); err != nil {
		s.log.Warn("slack alert failed", zap.String("notification_id", n.ID.String()), zap.Error(err))
	}
}

func (s *Service) Dispatch(ctx context.Context, batchSize int) (domain.DispatchResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	now := s.clock.Now()
	var claimed []domain.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := s.repo.ClaimDue(ctx, tx, now, batchSize)
		if err != nil {
			return err
		}
		ids := make([]snowflake.ID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		if err := s.repo.Reschedule(ctx, tx, ids, now.Add(claimLease)); err != nil {
			return err
		}
		claimed = items
		return nil
	})
	if err != nil {
		return domain.DispatchResult{}, err
	}

	result := domain.DispatchResult{Claimed: len(claimed)}
	for i := range claimed {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		n := &claimed[i]
		sendErr := s.send(ctx, n)
		if sendErr == nil {
			continue
		}
		if errors.Is(sendErr, errMarkSent) {
			return result, sendErr
		}
		exhausted, err := s.MarkFailed(ctx, n.ID, sendErr)
		if err != nil {
			return result, err
		}
		if exhausted {
			result.Failed++
		} else {
			result.Retried++
		}
	}
	result.Sent = result.Claimed - result.Failed - result.Retried
	return result, nil
}

var errMarkSent = errors.New("mark_sent")

func (s *Service) send(ctx context.Context, n *domain.Notification) error {
	sender, ok := s.senders[n.Channel]
	if !ok {
		return domain.Permanent(domain.ErrNoSender)
	}
	res, err := sender.Send(ctx, n)
	if err != nil {
		return err
	}
	if err := s.MarkSent(ctx, n.ID, res); err != nil {
		return fmt.Errorf("%w: %v", errMarkSent, err)
	}
	return nil
}

func (s *Service) Resend(ctx context.Context, id string) (*domain.Notification, error) {
	notificationID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || notificationID == 0 {
		return nil, domain.ErrInvalidID
	}

	n, err := s.repo.FindByID(ctx, s.db, notificationID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, domain.ErrNotFound
	}
	if n.Status != domain.StatusFailed {
		return nil, domain.ErrNotResendable.WithField("status", string(n.Status))
	}
	if n.RetryCount >= domain.MaxRetries {
		return nil, domain.ErrRetriesExhausted
	}

	now := s.clock.Now()
	n.Status = domain.StatusPending
	n.ScheduledAt = now
	n.ErrorMessage = ""
	n.UpdatedAt = now
	if err := s.repo.Save(ctx, s.db, n); err != nil {
		return nil, err
	}
	s.log.Info("notification queued for resend", zap.String("notification_id", n.ID.String()))
	return n, nil
}

func (s *Service) UpdateDeliveryStatus(ctx context.Context, externalID string, status string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return domain.ErrInvalidID
	}
	next := domain.Status(strings.ToLower(strings.TrimSpace(status)))
	if next != domain.StatusDelivered && next != domain.StatusRead {
		return domain.ErrInvalidStatus
	}

	n, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return err
	}
	if n == nil {
		return domain.ErrNotFound
	}
	if n.Status == next || (n.Status == domain.StatusRead && next == domain.StatusDelivered) {
		return nil
	}

	n.Status = next
	n.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, n); err != nil {
		return err
	}
	s.metrics.RecordNotification(ctx, string(n.Channel), string(next))
	return nil
}

func (s *Service) HasNotification(ctx context.Context, db *gorm.DB, installmentID snowflake.ID, typ domain.Type, since time.Time) (bool, error) {
	if db == nil {
		db = s.db
	}
	return s.repo.Exists(ctx, db, installmentID, typ, since)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{Status: domain.Status(strings.TrimSpace(req.Status))}
	if raw := strings.TrimSpace(req.CreditID); raw != "" {
		creditID, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidID
		}
		filter.CreditID = creditID
	}

	rawAfter, err := req.AfterID()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	if rawAfter != "" {
		filter.AfterID, err = snowflake.ParseString(rawAfter)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
	}

	pageSize := req.Limit()
	filter.Limit = pageSize
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.Notification) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	resp := domain.ListResponse{Notifications: make([]domain.Notification, 0, len(items))}
	for _, item := range items {
		resp.Notifications = append(resp.Notifications, *item)
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
