package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/cicilan/internal/notification/domain"
	"github.com/smallbiznis/cicilan/internal/providers/whatsapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmail struct {
	to      []string
	subject string
	html    string
}

func (f *fakeEmail) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	f.to, f.subject, f.html = to, subject, htmlBody
	return nil
}

type fakeWhatsApp struct {
	priority string
	result   whatsapp.Result
	err      error
}

func (f *fakeWhatsApp) SendText(ctx context.Context, phone, message, priority string) (whatsapp.Result, error) {
	f.priority = priority
	return f.result, f.err
}

func TestEmailSenderWrapsBody(t *testing.T) {
	provider := &fakeEmail{}
	res, err := NewEmailSender(provider).Send(context.Background(), &domain.Notification{
		Recipient: "ana@example.com",
		Subject:   "Credit Approved - #1001",
		Body:      "Dear Ana,\n\nApproved.",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com"}, provider.to)
	assert.Contains(t, provider.html, "Dear Ana,")
	assert.NotEmpty(t, res.ExternalID)
}

func TestWhatsAppSenderUsesHighPriorityForOverdue(t *testing.T) {
	provider := &fakeWhatsApp{result: whatsapp.Result{MessageID: "wa-1"}}
	res, err := NewWhatsAppSender(provider).Send(context.Background(), &domain.Notification{
		Type:      domain.TypePaymentOverdue,
		Recipient: "3001234567",
		Body:      "late",
	})
	require.NoError(t, err)
	assert.Equal(t, whatsapp.PriorityHigh, provider.priority)
	assert.Equal(t, "wa-1", res.ExternalID)
}

func TestWhatsAppSenderInvalidPhoneIsPermanent(t *testing.T) {
	provider := &fakeWhatsApp{err: whatsapp.ErrInvalidPhone}
	_, err := NewWhatsAppSender(provider).Send(context.Background(), &domain.Notification{Recipient: "12"})
	require.Error(t, err)
	assert.True(t, domain.IsPermanent(err))
	assert.True(t, errors.Is(err, whatsapp.ErrInvalidPhone))
}
