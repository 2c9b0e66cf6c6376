package notification

import "github.com/KidRide/kidride-backend/types"

// Priority represents the notification priority level
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Request represents a notification request to the facade API
type Request struct {
	UserID         string                 `json:"userId"`
	EventType      types.NotificationKind `json:"eventType"`
	Priority       Priority               `json:"priority,omitempty"`
	NotificationID string                 `json:"notificationId,omitempty"`
	Data           map[string]interface{} `json:"data"`
}

// Response represents the response from the notification facade API
type Response struct {
	NotificationID string   `json:"notificationId"`
	MessageID      string   `json:"messageId"`
	Status         string   `json:"status"`
	ChannelsUsed   []string `json:"channelsUsed"`
	Error          string   `json:"error,omitempty"`
}

// PriorityFor maps a notification kind to its delivery priority.
func PriorityFor(kind types.NotificationKind) Priority {
	switch kind {
	case types.NotifyPaymentOverdue, types.NotifyBudgetLimitReached:
		return PriorityCritical
	case types.NotifyPaymentReminder1Day:
		return PriorityHigh
	case types.NotifyPaymentReminder3Day, types.NotifyBudgetWarning:
		return PriorityMedium
	}
	return PriorityLow
}

var validKinds = map[types.NotificationKind]bool{
	types.NotifyPaymentReminder3Day: true,
	types.NotifyPaymentReminder1Day: true,
	types.NotifyPaymentOverdue:      true,
	types.NotifyBudgetWarning:       true,
	types.NotifyBudgetLimitReached:  true,
}
