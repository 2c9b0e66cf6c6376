package types

import "time"

// PaymentStatus is the lifecycle state of a booking's payment transaction.
type PaymentStatus string

const (
	PaymentStatusPendingUpfront PaymentStatus = "pending_upfront"
	PaymentStatusUpfrontPaid    PaymentStatus = "upfront_paid"
	PaymentStatusFullyPaid      PaymentStatus = "fully_paid"
	// PaymentStatusOverdue is never stored. The reminder sweep derives it and
	// immediately suspends.
	PaymentStatusOverdue   PaymentStatus = "overdue"
	PaymentStatusSuspended PaymentStatus = "suspended"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPendingUpfront, PaymentStatusUpfrontPaid, PaymentStatusFullyPaid,
		PaymentStatusOverdue, PaymentStatusSuspended:
		return true
	}
	return false
}

// IsTerminal reports whether no payment may be applied in this state.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFullyPaid || s == PaymentStatusSuspended
}

// Booking status written to the booking collaborator on suspension.
const (
	BookingStatusSuspendedPayment = "suspended_payment"
	SuspensionReasonNonPayment    = "balance not paid by due date"
)

// ReminderKind identifies one of the two pre-due-date reminders.
type ReminderKind string

const (
	ReminderThreeDays ReminderKind = "three_days"
	ReminderOneDay    ReminderKind = "one_day"
)

type RemindersSent struct {
	ThreeDays bool `json:"threeDays"`
	OneDay    bool `json:"oneDay"`
}

// Sent reports whether the flag for kind is set.
func (r RemindersSent) Sent(kind ReminderKind) bool {
	if kind == ReminderThreeDays {
		return r.ThreeDays
	}
	return r.OneDay
}

// PaymentTransaction is the single payment ledger record of a booking.
// All amounts are in minor currency units.
type PaymentTransaction struct {
	ID        string `json:"id"`
	BookingID string `json:"bookingId"`
	ParentID  string `json:"parentId"`
	DriverID  string `json:"driverId"`
	Currency  string `json:"currency"`

	TotalAmount     int64 `json:"totalAmount"`
	RequiredUpfront int64 `json:"requiredUpfront"`
	UpfrontPaid     int64 `json:"upfrontPaid"`
	BalancePaid     int64 `json:"balancePaid"`
	// Cumulative over applied payments.
	SystemCommission int64 `json:"systemCommission"`
	GatewayFee       int64 `json:"gatewayFee"`
	DriverEarning    int64 `json:"driverEarning"`

	BalanceDueDate time.Time     `json:"balanceDueDate"`
	RemindersSent  RemindersSent `json:"remindersSent"`
	Status         PaymentStatus `json:"status"`

	UpfrontGatewayRef string `json:"upfrontGatewayRef,omitempty"`
	BalanceGatewayRef string `json:"balanceGatewayRef,omitempty"`
	SuspensionReason  string `json:"suspensionReason,omitempty"`

	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	UpfrontPaymentDate *time.Time `json:"upfrontPaymentDate,omitempty"`
	BalancePaymentDate *time.Time `json:"balancePaymentDate,omitempty"`
	SuspendedAt        *time.Time `json:"suspendedAt,omitempty"`
}

// PaidAmount is upfrontPaid + balancePaid.
func (t *PaymentTransaction) PaidAmount() int64 {
	return t.UpfrontPaid + t.BalancePaid
}

// Remaining is what is still owed on the booking.
func (t *PaymentTransaction) Remaining() int64 {
	return t.TotalAmount - t.PaidAmount()
}

// Clone returns a deep copy.
func (t *PaymentTransaction) Clone() *PaymentTransaction {
	if t == nil {
		return nil
	}
	c := *t
	c.UpfrontPaymentDate = cloneTime(t.UpfrontPaymentDate)
	c.BalancePaymentDate = cloneTime(t.BalancePaymentDate)
	c.SuspendedAt = cloneTime(t.SuspendedAt)
	return &c
}

// PaymentSplit is the schedule and fee breakdown for a total booking amount.
type PaymentSplit struct {
	TotalAmount      int64     `json:"totalAmount"`
	UpfrontAmount    int64     `json:"upfrontAmount"`
	BalanceAmount    int64     `json:"balanceAmount"`
	GatewayFee       int64     `json:"gatewayFee"`
	SystemCommission int64     `json:"systemCommission"`
	DriverEarning    int64     `json:"driverEarning"`
	BalanceDueDate   time.Time `json:"balanceDueDate"`
}

// SplitAttribution is the fee/commission/earning share of one applied payment.
type SplitAttribution struct {
	Amount           int64 `json:"amount"`
	GatewayFee       int64 `json:"gatewayFee"`
	SystemCommission int64 `json:"systemCommission"`
	DriverEarning    int64 `json:"driverEarning"`
}

// CustomerInfo is forwarded opaquely to the payment gateway.
type CustomerInfo struct {
	UserID        string `json:"userId"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
