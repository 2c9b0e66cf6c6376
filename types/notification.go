package types

// NotificationKind is the event type sent to the notification collaborator.
type NotificationKind string

const (
	NotifyPaymentReminder3Day NotificationKind = "payment_reminder_3day"
	NotifyPaymentReminder1Day NotificationKind = "payment_reminder_1day"
	NotifyPaymentOverdue      NotificationKind = "payment_overdue"
	NotifyBudgetWarning       NotificationKind = "budget_warning"
	NotifyBudgetLimitReached  NotificationKind = "budget_limit_reached"
)

// ReminderNotification maps a reminder flag to its notification kind.
func ReminderNotification(kind ReminderKind) NotificationKind {
	if kind == ReminderThreeDays {
		return NotifyPaymentReminder3Day
	}
	return NotifyPaymentReminder1Day
}
