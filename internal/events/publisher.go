package events

import (
	"context"

	"github.com/KidRide/kidride-backend/types"
)

// Publisher broadcasts payment lifecycle events after the ledger commits.
// Delivery is best effort. The ledger is the source of truth.
type Publisher interface {
	Publish(ctx context.Context, event types.PaymentEvent) error
}

// NoopPublisher drops every event. Used when redis is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, types.PaymentEvent) error { return nil }

// ChannelFor returns the pub/sub channel an event is published on.
func ChannelFor(event types.PaymentEvent) string {
	if event.BookingID != "" {
		return "payments:booking:" + event.BookingID
	}
	return "payments:payouts"
}
