package slack

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func TestPostMessageUsesDefaultChannel(t *testing.T) {
	var got map[string]string
	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		_ = json.Unmarshal(ctx.PostBody(), &got)
		ctx.SetBodyString("ok")
	}}
	go func() { _ = server.Serve(ln) }()
	defer ln.Close()

	p := NewWebhook("http://hooks.local/services/T/B/X", "#credit-alerts")
	p.client.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }

	require.NoError(t, p.PostMessage(context.Background(), "", "notification 7 failed"))
	assert.Equal(t, "#credit-alerts", got["channel"])
	assert.Equal(t, "notification 7 failed", got["text"])
}
