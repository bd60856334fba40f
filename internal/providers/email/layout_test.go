package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapEscapesAndSplitsParagraphs(t *testing.T) {
	html, err := Wrap("Payment Confirmed", "Dear Ana,\n\nWe received <b>56,250.00</b>.\n\n", "cicilan")
	require.NoError(t, err)
	assert.Contains(t, html, "<title>Payment Confirmed</title>")
	assert.Contains(t, html, "Dear Ana,</p>")
	assert.Contains(t, html, "&lt;b&gt;56,250.00&lt;/b&gt;")
	assert.Contains(t, html, "cicilan</td>")
}

func TestSMTPRequiresRecipients(t *testing.T) {
	err := NewSMTP(Config{Host: "localhost", Port: 25}).Send(context.Background(), nil, "s", "b")
	assert.ErrorIs(t, err, ErrNoRecipients)
}
