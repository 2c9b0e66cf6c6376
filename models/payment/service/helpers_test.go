package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KidRide/kidride-backend/internal/gateway"
	"github.com/KidRide/kidride-backend/internal/lock"
	"github.com/KidRide/kidride-backend/internal/store/memory"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/types"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

type sentNotification struct {
	RecipientID string
	Kind        types.NotificationKind
	Payload     map[string]interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail bool
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID string, kind types.NotificationKind, payload map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("facade unavailable")
	}
	n.sent = append(n.sent, sentNotification{RecipientID: recipientID, Kind: kind, Payload: payload})
	return nil
}

func (n *recordingNotifier) setFail(fail bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = fail
}

func (n *recordingNotifier) kinds() []types.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.NotificationKind, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.PaymentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event types.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) eventTypes() []types.PaymentEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.PaymentEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// 2026-11-20 15:00 UTC booking end, so the balance is due 2026-11-18 15:00.
var bookingEnd = time.Date(2026, 11, 20, 15, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	gateway   *gateway.SimulatedGateway
	notifier  *recordingNotifier
	publisher *recordingPublisher
	payments  *PaymentService
	enforcer  *SuspensionEnforcer
	sweeper   *ReminderSweeper
	locker    *lock.MemoryLocker
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	resetMetricsForTesting()

	f := &fixture{
		store:     memory.NewStore(),
		gateway:   gateway.NewSimulatedGateway(),
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		locker:    lock.NewMemoryLocker(),
		now:       time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.payments = NewPaymentService(f.store, DefaultSplitPolicy, "INR", f.gateway, f.publisher)
	f.payments.nowFn = clock
	f.enforcer = NewSuspensionEnforcer(f.store, f.notifier, f.publisher)
	f.enforcer.nowFn = clock
	f.sweeper = NewReminderSweeper(f.store, DefaultSplitPolicy, f.enforcer, f.notifier, f.locker, time.Minute, time.UTC)
	f.sweeper.nowFn = clock
	return f
}

// newTransaction creates a 10000 transaction for a booking ending at bookingEnd.
func (f *fixture) newTransaction(t *testing.T, bookingID string) *types.PaymentTransaction {
	t.Helper()
	f.store.AddBooking(bookingID, bookingEnd)
	tx, err := f.payments.CreateTransaction(context.Background(), CreateTransactionInput{
		BookingID:   bookingID,
		ParentID:    "parent-1",
		DriverID:    "driver-1",
		TotalAmount: 10000,
	})
	require.NoError(t, err)
	return tx
}

// upfrontPaid creates a transaction and pays the minimum upfront.
func (f *fixture) upfrontPaid(t *testing.T, bookingID string) *types.PaymentTransaction {
	t.Helper()
	tx := f.newTransaction(t, bookingID)
	paid, err := f.payments.ApplyUpfrontPayment(context.Background(), tx.ID, tx.RequiredUpfront, "ref-up")
	require.NoError(t, err)
	return paid
}
