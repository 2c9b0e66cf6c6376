package service

import (
	"time"

	"github.com/KidRide/kidride-backend/config"
	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/pkg/valueobjects"
	"github.com/KidRide/kidride-backend/types"
)

// SplitPolicy holds the platform rates and the balance schedule.
type SplitPolicy struct {
	UpfrontRate          valueobjects.Percent
	GatewayFeeRate       valueobjects.Percent
	CommissionRate       valueobjects.Percent
	BalanceDueOffsetDays int
	FirstReminderDays    int
	FinalReminderDays    int
}

// DefaultSplitPolicy: 25% upfront, 3.30% gateway fee, 15% commission,
// balance due two days before the booking ends, reminders at 3 and 1 days.
var DefaultSplitPolicy = SplitPolicy{
	UpfrontRate:          valueobjects.MustPercent("25"),
	GatewayFeeRate:       valueobjects.MustPercent("3.30"),
	CommissionRate:       valueobjects.MustPercent("15"),
	BalanceDueOffsetDays: 2,
	FirstReminderDays:    3,
	FinalReminderDays:    1,
}

// NewSplitPolicy builds a policy from configuration.
func NewSplitPolicy(cfg config.PaymentConfig) (SplitPolicy, error) {
	upfront, err := valueobjects.ParsePercent(cfg.UpfrontPercent)
	if err != nil {
		return SplitPolicy{}, err
	}
	fee, err := valueobjects.ParsePercent(cfg.GatewayFeePercent)
	if err != nil {
		return SplitPolicy{}, err
	}
	commission, err := valueobjects.ParsePercent(cfg.CommissionPercent)
	if err != nil {
		return SplitPolicy{}, err
	}
	return SplitPolicy{
		UpfrontRate:          upfront,
		GatewayFeeRate:       fee,
		CommissionRate:       commission,
		BalanceDueOffsetDays: cfg.BalanceDueOffsetDays,
		FirstReminderDays:    cfg.FirstReminderDays,
		FinalReminderDays:    cfg.FinalReminderDays,
	}, nil
}

// ComputeSplit applies DefaultSplitPolicy.
func ComputeSplit(totalAmount int64, bookingEndDate time.Time) (types.PaymentSplit, error) {
	return DefaultSplitPolicy.Compute(totalAmount, bookingEndDate)
}

// Compute returns the upfront/balance schedule and the fee breakdown of totalAmount.
func (p SplitPolicy) Compute(totalAmount int64, bookingEndDate time.Time) (types.PaymentSplit, error) {
	if totalAmount <= 0 {
		return types.PaymentSplit{}, apperrors.ValidationFailed("invalid total amount", "total amount must be positive")
	}
	if bookingEndDate.IsZero() {
		return types.PaymentSplit{}, apperrors.ValidationFailed("invalid booking end date", "booking end date is required")
	}

	upfront := p.UpfrontRate.CeilOf(totalAmount)
	if upfront > totalAmount {
		upfront = totalAmount
	}
	attr := p.Attribute(totalAmount)

	return types.PaymentSplit{
		TotalAmount:      totalAmount,
		UpfrontAmount:    upfront,
		BalanceAmount:    totalAmount - upfront,
		GatewayFee:       attr.GatewayFee,
		SystemCommission: attr.SystemCommission,
		DriverEarning:    attr.DriverEarning,
		BalanceDueDate:   p.BalanceDueDate(bookingEndDate),
	}, nil
}

// Attribute splits one applied payment into fee, commission and driver
// earning. Fees round up; the driver gets the remainder, never below zero.
func (p SplitPolicy) Attribute(amount int64) types.SplitAttribution {
	if amount <= 0 {
		return types.SplitAttribution{}
	}
	fee := p.GatewayFeeRate.CeilOf(amount)
	if fee > amount {
		fee = amount
	}
	commission := p.CommissionRate.CeilOf(amount)
	if fee+commission > amount {
		commission = amount - fee
	}
	return types.SplitAttribution{
		Amount:           amount,
		GatewayFee:       fee,
		SystemCommission: commission,
		DriverEarning:    amount - fee - commission,
	}
}

// BalanceDueDate is bookingEndDate minus the configured offset in calendar days.
func (p SplitPolicy) BalanceDueDate(bookingEndDate time.Time) time.Time {
	return bookingEndDate.AddDate(0, 0, -p.BalanceDueOffsetDays)
}

// ReminderDate returns the day a reminder of kind is due for balanceDueDate.
func (p SplitPolicy) ReminderDate(balanceDueDate time.Time, kind types.ReminderKind) time.Time {
	days := p.FinalReminderDays
	if kind == types.ReminderThreeDays {
		days = p.FirstReminderDays
	}
	return balanceDueDate.AddDate(0, 0, -days)
}
