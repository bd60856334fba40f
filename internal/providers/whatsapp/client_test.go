package whatsapp

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"300 123 4567":     "573001234567",
		"+57 300-123-4567": "573001234567",
		"5215512345678":    "5215512345678",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := NormalizePhone("12345")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hola", Truncate("hola"))
	long := strings.Repeat("á", 4001)
	out := []rune(Truncate(long))
	assert.Len(t, out, 4000)
	assert.Equal(t, "...", string(out[3997:]))
}

func serve(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: handler}
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	c := NewClient(Config{Endpoint: "http://gateway.local/api/send/whatsapp", Secret: "s3cret", Account: "acc-1", Timeout: time.Second})
	c.client.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }
	return c
}

func TestSendTextPostsPayload(t *testing.T) {
	var got sendRequest
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		_ = json.Unmarshal(ctx.PostBody(), &got)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":200,"data":{"messageId":9911}}`)
	})

	res, err := c.SendText(context.Background(), "3001234567", "Hola Ana", "")
	require.NoError(t, err)
	assert.Equal(t, "9911", res.MessageID)
	assert.Equal(t, sendRequest{
		Secret:    "s3cret",
		Account:   "acc-1",
		Recipient: "573001234567",
		Message:   "Hola Ana",
		Type:      "text",
		Priority:  PriorityNormal,
	}, got)
}

func TestSendTextSurfacesGatewayError(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString(`{"error":"invalid secret"}`)
	})

	_, err := c.SendText(context.Background(), "3001234567", "Hola", PriorityHigh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid secret")
}

func TestSendTextRequiresConfig(t *testing.T) {
	_, err := NewClient(Config{}).SendText(context.Background(), "3001234567", "Hola", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
