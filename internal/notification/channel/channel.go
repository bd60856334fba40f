// Package channel adapts the provider clients to notification senders.
package channel

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/cicilan/internal/notification/domain"
	"github.com/smallbiznis/cicilan/internal/providers/email"
	"github.com/smallbiznis/cicilan/internal/providers/sms"
	"github.com/smallbiznis/cicilan/internal/providers/whatsapp"
	"go.uber.org/fx"
)

const emailFooter = "This message was sent automatically. Please do not reply."

type EmailSender struct {
	provider email.Provider
}

func NewEmailSender(provider email.Provider) *EmailSender {
	return &EmailSender{provider: provider}
}

func (s *EmailSender) Channel() domain.Channel { return domain.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, n *domain.Notification) (domain.SendResult, error) {
	html, err := email.Wrap(n.Subject, n.Body, emailFooter)
	if err != nil {
		return domain.SendResult{}, domain.Permanent(err)
	}
	if err := s.provider.Send(ctx, []string{n.Recipient}, n.Subject, html); err != nil {
		if errors.Is(err, email.ErrNoRecipients) {
			return domain.SendResult{}, domain.Permanent(err)
		}
		return domain.SendResult{}, err
	}
	return domain.SendResult{ExternalID: ulid.Make().String()}, nil
}

type WhatsAppSender struct {
	provider whatsapp.Provider
}

func NewWhatsAppSender(provider whatsapp.Provider) *WhatsAppSender {
	return &WhatsAppSender{provider: provider}
}

func (s *WhatsAppSender) Channel() domain.Channel { return domain.ChannelWhatsApp }

func (s *WhatsAppSender) Send(ctx context.Context, n *domain.Notification) (domain.SendResult, error) {
	priority := whatsapp.PriorityNormal
	if n.Type == domain.TypePaymentOverdue {
		priority = whatsapp.PriorityHigh
	}
	res, err := s.provider.SendText(ctx, n.Recipient, n.Body, priority)
	if err != nil {
		if errors.Is(err, whatsapp.ErrInvalidPhone) || errors.Is(err, whatsapp.ErrNotConfigured) {
			return domain.SendResult{}, domain.Permanent(err)
		}
		return domain.SendResult{Response: res.Response}, err
	}
	id := res.MessageID
	if id == "" {
		id = ulid.Make().String()
	}
	return domain.SendResult{ExternalID: id, Response: res.Response}, nil
}

type SMSSender struct {
	provider sms.Provider
}

func NewSMSSender(provider sms.Provider) *SMSSender {
	return &SMSSender{provider: provider}
}

func (s *SMSSender) Channel() domain.Channel { return domain.ChannelSMS }

func (s *SMSSender) Send(ctx context.Context, n *domain.Notification) (domain.SendResult, error) {
	ref, err := s.provider.Send(ctx, n.Recipient, n.Body)
	if err != nil {
		return domain.SendResult{}, err
	}
	return domain.SendResult{ExternalID: ref}, nil
}

// Senders are collected by the dispatcher through the "notification_senders" group.
var Module = fx.Module("notification.channel",
	fx.Provide(
		fx.Annotate(NewEmailSender, fx.As(new(domain.Sender)), fx.ResultTags(`group:"notification_senders"`)),
		fx.Annotate(NewWhatsAppSender, fx.As(new(domain.Sender)), fx.ResultTags(`group:"notification_senders"`)),
		fx.Annotate(NewSMSSender, fx.As(new(domain.Sender)), fx.ResultTags(`group:"notification_senders"`)),
	),
)
