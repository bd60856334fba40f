// Package whatsapp talks to the HTTP WhatsApp gateway used for customer messages.
package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cast"
	"github.com/valyala/fasthttp"
)

const (
	maxMessageLength = 4000
	truncatedLength  = 3997

	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

var (
	ErrNotConfigured = errors.New("whatsapp_not_configured")
	ErrInvalidPhone  = errors.New("invalid_phone")
)

type Config struct {
	Endpoint string
	Secret   string
	Account  string
	Timeout  time.Duration
}

type Result struct {
	MessageID string
	Response  map[string]any
}

type Provider interface {
	SendText(ctx context.Context, phone, message, priority string) (Result, error)
}

type sendRequest struct {
	Secret    string `json:"secret"`
	Account   string `json:"account"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Priority  string `json:"priority"`
}

type Client struct {
	cfg    Config
	client *fasthttp.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		client: &fasthttp.Client{
			Name:         "cicilan-whatsapp",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
	}
}

func (c *Client) configured() bool {
	return c.cfg.Endpoint != "" && c.cfg.Secret != "" && c.cfg.Account != ""
}

func (c *Client) SendText(ctx context.Context, phone, message, priority string) (Result, error) {
	if !c.configured() {
		return Result{}, ErrNotConfigured
	}
	recipient, err := NormalizePhone(phone)
	if err != nil {
		return Result{}, err
	}
	if priority == "" {
		priority = PriorityNormal
	}

	body, err := json.Marshal(sendRequest{
		Secret:    c.cfg.Secret,
		Account:   c.cfg.Account,
		Recipient: recipient,
		Message:   Truncate(message),
		Type:      "text",
		Priority:  priority,
	})
	if err != nil {
		return Result{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.Endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return Result{}, fmt.Errorf("whatsapp request: %w", err)
	}

	var parsed map[string]any
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &parsed); err != nil && resp.StatusCode() == fasthttp.StatusOK {
			return Result{}, fmt.Errorf("whatsapp response: %w", err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return Result{Response: parsed}, fmt.Errorf("whatsapp status %d: %s", resp.StatusCode(), errorMessage(parsed))
	}

	return Result{MessageID: messageID(parsed), Response: parsed}, nil
}

// NormalizePhone keeps digits only and prefixes Colombian mobiles with 57.
func NormalizePhone(phone string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	switch {
	case len(digits) == 10 && digits[0] == '3':
		return "57" + digits, nil
	case len(digits) < 10:
		return "", ErrInvalidPhone
	default:
		return digits, nil
	}
}

// Truncate caps a message at the gateway limit.
func Truncate(message string) string {
	runes := []rune(message)
	if len(runes) <= maxMessageLength {
		return message
	}
	return string(runes[:truncatedLength]) + "..."
}

func messageID(parsed map[string]any) string {
	for _, key := range []string{"message_id", "messageId", "id"} {
		if v, ok := parsed[key]; ok {
			return cast.ToString(v)
		}
	}
	if data, ok := parsed["data"].(map[string]any); ok {
		return messageID(data)
	}
	return ""
}

func errorMessage(parsed map[string]any) string {
	if v, ok := parsed["error"]; ok {
		return cast.ToString(v)
	}
	if v, ok := parsed["message"]; ok {
		return cast.ToString(v)
	}
	return "unknown gateway error"
}
