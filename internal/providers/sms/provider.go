// Package sms is the SMS channel. No gateway is bundled; the log provider records
// what would have been sent.
package sms

import (
	"context"

	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.sms",
	fx.Provide(NewLogProvider),
)

type Provider interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) Provider {
	return &LogProvider{log: log.Named("providers.sms")}
}

func (p *LogProvider) Send(ctx context.Context, phone, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := ulid.Make().String()
	p.log.Info("sms accepted",
		zap.String("message_ref", id),
		zap.Int("length", len(message)),
	)
	return id, nil
}
