package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smallbiznis/cicilan/internal/config"
	"github.com/valyala/fasthttp"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.slack",
	fx.Provide(NewFromConfig),
)

const webhookTimeout = 10 * time.Second

// WebhookProvider posts to a Slack incoming webhook.
type WebhookProvider struct {
	url            string
	defaultChannel string
	client         *fasthttp.Client
}

func NewWebhook(url, defaultChannel string) *WebhookProvider {
	return &WebhookProvider{
		url:            url,
		defaultChannel: defaultChannel,
		client:         &fasthttp.Client{Name: "cicilan-alerts"},
	}
}

func NewFromConfig(cfg config.Config) Provider {
	if cfg.Slack.WebhookURL == "" {
		return &NoOpProvider{}
	}
	return NewWebhook(cfg.Slack.WebhookURL, cfg.Slack.Channel)
}

func (p *WebhookProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if channelID == "" {
		channelID = p.defaultChannel
	}

	payload := map[string]string{"text": message}
	if channelID != "" {
		payload["channel"] = channelID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := p.client.DoTimeout(req, resp, webhookTimeout); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("slack webhook status %d: %s", resp.StatusCode(), resp.Body())
	}
	return nil
}
