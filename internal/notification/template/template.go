// Package template holds the default message templates and renders
// {{placeholder}} substitutions.
package template

import (
	"sort"
	"strings"

	"github.com/smallbiznis/cicilan/internal/notification/domain"
)

type key struct {
	typ     domain.Type
	channel domain.Channel
}

var subjects = map[domain.Type]string{
	domain.TypeCreditApproved:   "Credit Approved - {{order_number}}",
	domain.TypeCreditRejected:   "Credit Request Declined - {{order_number}}",
	domain.TypePaymentReminder:  "Payment Reminder - Installment #{{installment_number}}",
	domain.TypePaymentOverdue:   "Payment Overdue - Action Required",
	domain.TypePaymentConfirmed: "Payment Confirmed - Installment #{{installment_number}}",
	domain.TypeCreditCompleted:  "Credit Completed - {{order_number}}",
}

const defaultSubject = "Credit Notification"

var bodies = map[key]string{
	{domain.TypeCreditApproved, domain.ChannelEmail}: "Dear {{customer_name}},\n\n" +
		"We are pleased to let you know that your credit request for {{total_amount}} has been approved.\n\n" +
		"Credit details:\n- Total amount: {{total_amount}}\n- Installments: {{installments_count}}\n" +
		"- Next payment: {{next_installment_amount}} on {{next_due_date}}\n\n" +
		"You can review the full schedule in your account.\n\nRegards,\nCredit Team",
	{domain.TypeCreditApproved, domain.ChannelWhatsApp}: "Hi {{customer_name}}! Your credit for {{total_amount}} has been approved. " +
		"Your next payment of {{next_installment_amount}} is due on {{next_due_date}}. Thank you for trusting us!",
	{domain.TypeCreditApproved, domain.ChannelSMS}: "Your credit for {{total_amount}} was approved. Next payment {{next_installment_amount}} on {{next_due_date}}.",

	{domain.TypeCreditRejected, domain.ChannelEmail}: "Dear {{customer_name}},\n\n" +
		"We are sorry to let you know that your credit request for order {{order_number}} was not approved.\n\n" +
		"Reason: {{reason}}\n\nIf you have questions, please contact us.\n\nRegards,\nCredit Team",
	{domain.TypeCreditRejected, domain.ChannelWhatsApp}: "Hi {{customer_name}}, your credit request for order {{order_number}} was not approved. Reason: {{reason}}.",
	{domain.TypeCreditRejected, domain.ChannelSMS}:      "Your credit request for order {{order_number}} was not approved.",

	{domain.TypePaymentReminder, domain.ChannelEmail}: "Dear {{customer_name}},\n\n" +
		"This is a reminder of your upcoming payment:\n\n" +
		"- Installment #{{installment_number}}\n- Amount: {{installment_amount}}\n- Due date: {{due_date}}\n\n" +
		"Your payment is due {{reminder_message}}.\n\nYou can pay through any of our available channels.\n\nRegards,\nCredit Team",
	{domain.TypePaymentReminder, domain.ChannelWhatsApp}: "Hi {{customer_name}}, this is a reminder that your payment of {{installment_amount}} is due {{reminder_message}}. " +
		"You can pay through any of our available channels.",
	{domain.TypePaymentReminder, domain.ChannelSMS}: "Reminder: installment #{{installment_number}} of {{installment_amount}} is due {{reminder_message}}.",

	{domain.TypePaymentOverdue, domain.ChannelEmail}: "Dear {{customer_name}},\n\n" +
		"Your payment is overdue:\n\n" +
		"- Installment #{{installment_number}}: {{installment_amount}}\n- Days overdue: {{days_overdue}}\n" +
		"- Late fee: {{late_fee}}\n- Total due: {{total_due}}\n\n" +
		"Please contact us to bring your credit up to date.\n\nRegards,\nCredit Team",
	{domain.TypePaymentOverdue, domain.ChannelWhatsApp}: "{{customer_name}}, your payment of {{installment_amount}} is {{days_overdue}} days overdue. " +
		"Total due including late fee: {{total_due}}. Please contact us to bring your credit up to date.",
	{domain.TypePaymentOverdue, domain.ChannelSMS}: "Installment #{{installment_number}} is {{days_overdue}} days overdue. Total due: {{total_due}}.",

	{domain.TypePaymentConfirmed, domain.ChannelEmail}: "Dear {{customer_name}},\n\n" +
		"We have received your payment:\n\n" +
		"- Amount paid: {{payment_amount}}\n- Payment date: {{payment_date}}\n- Installment #{{installment_number}}\n\n" +
		"Thank you for keeping your credit up to date.\n\nRegards,\nCredit Team",
	{domain.TypePaymentConfirmed, domain.ChannelWhatsApp}: "Thanks {{customer_name}}! We confirm your payment of {{payment_amount}} received on {{payment_date}}. " +
		"Thank you for keeping your credit up to date.",
	{domain.TypePaymentConfirmed, domain.ChannelSMS}: "Payment of {{payment_amount}} for installment #{{installment_number}} received.",

	{domain.TypeCreditCompleted, domain.ChannelEmail}: "Dear {{customer_name}},\n\n" +
		"Congratulations! Your credit for order {{order_number}} is fully paid.\n\n" +
		"- Total financed: {{total_amount}}\n- Completed on: {{completion_date}}\n\n" +
		"Thank you for your trust.\n\nRegards,\nCredit Team",
	{domain.TypeCreditCompleted, domain.ChannelWhatsApp}: "Congratulations {{customer_name}}! Your credit for order {{order_number}} is fully paid. Thank you for your trust!",
	{domain.TypeCreditCompleted, domain.ChannelSMS}:      "Your credit for order {{order_number}} is fully paid.",
}

// Render returns the subject and body for typ on channel with data substituted.
// ok is false when no template exists for the pair.
func Render(typ domain.Type, channel domain.Channel, data map[string]string) (subject, body string, ok bool) {
	raw, ok := bodies[key{typ, channel}]
	if !ok {
		return "", "", false
	}
	rawSubject, found := subjects[typ]
	if !found {
		rawSubject = defaultSubject
	}
	r := replacer(data)
	return r.Replace(rawSubject), r.Replace(raw), true
}

func replacer(data map[string]string) *strings.Replacer {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", data[k])
	}
	return strings.NewReplacer(pairs...)
}

// ReminderMessage phrases how far away a due date is.
func ReminderMessage(daysUntilDue int) string {
	switch {
	case daysUntilDue >= 7:
		return "in a week"
	case daysUntilDue >= 3:
		return "in 3 days"
	case daysUntilDue >= 1:
		return "tomorrow"
	default:
		return "today"
	}
}
