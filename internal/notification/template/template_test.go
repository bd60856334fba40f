package template

import (
	"testing"

	"github.com/smallbiznis/cicilan/internal/notification/domain"
	"github.com/stretchr/testify/assert"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	subject, body, ok := Render(domain.TypePaymentReminder, domain.ChannelEmail, map[string]string{
		"customer_name":      "Ana",
		"installment_number": "2",
		"installment_amount": "100,000.00",
		"due_date":           "2024-03-10",
		"reminder_message":   ReminderMessage(3),
	})
	assert.True(t, ok)
	assert.Equal(t, "Payment Reminder - Installment #2", subject)
	assert.Contains(t, body, "Dear Ana,")
	assert.Contains(t, body, "due in 3 days.")
	assert.NotContains(t, body, "{{installment_amount}}")
}

func TestRenderEveryTypeHasEmailAndWhatsApp(t *testing.T) {
	types := []domain.Type{
		domain.TypeCreditApproved, domain.TypeCreditRejected, domain.TypePaymentReminder,
		domain.TypePaymentOverdue, domain.TypePaymentConfirmed, domain.TypeCreditCompleted,
	}
	for _, typ := range types {
		for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelWhatsApp, domain.ChannelSMS} {
			_, _, ok := Render(typ, ch, nil)
			assert.True(t, ok, "%s/%s", typ, ch)
		}
	}
	_, _, ok := Render("unknown", domain.ChannelEmail, nil)
	assert.False(t, ok)
}

func TestReminderMessage(t *testing.T) {
	assert.Equal(t, "in a week", ReminderMessage(7))
	assert.Equal(t, "in 3 days", ReminderMessage(5))
	assert.Equal(t, "tomorrow", ReminderMessage(1))
	assert.Equal(t, "today", ReminderMessage(0))
}
