package types

import "time"

// MonthLayout formats the month key used by budget records ("2026-10").
const MonthLayout = "2006-01"

// BudgetLimit is a parent's monthly spend cap for one child.
type BudgetLimit struct {
	ID               string `json:"id"`
	ChildID          string `json:"childId"`
	ParentID         string `json:"parentId"`
	MonthlyLimit     int64  `json:"monthlyLimit"`
	CurrentSpent     int64  `json:"currentSpent"`
	WarningThreshold int    `json:"warningThreshold"`
	NotifyOnWarning  bool   `json:"notifyOnWarning"`
	NotifyOnLimit    bool   `json:"notifyOnLimit"`
	IsActive         bool   `json:"isActive"`
	// SpendMonth is the month CurrentSpent accumulates for.
	SpendMonth           string    `json:"spendMonth"`
	WarningNotifiedMonth string    `json:"warningNotifiedMonth,omitempty"`
	LimitNotifiedMonth   string    `json:"limitNotifiedMonth,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (b *BudgetLimit) Clone() *BudgetLimit {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// ExpenseEntry is one ride's cost charged against a child's month.
type ExpenseEntry struct {
	ID          string    `json:"id"`
	ChildID     string    `json:"childId"`
	Month       string    `json:"month"`
	BookingID   string    `json:"bookingId,omitempty"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
}

// MonthlyExpense aggregates a child's ride costs for one calendar month.
type MonthlyExpense struct {
	ID                 string         `json:"id"`
	ChildID            string         `json:"childId"`
	ParentID           string         `json:"parentId"`
	Month              string         `json:"month"`
	TotalAmount        int64          `json:"totalAmount"`
	RideCount          int            `json:"rideCount"`
	AverageCostPerRide int64          `json:"averageCostPerRide"`
	Expenses           []ExpenseEntry `json:"expenses"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

func (m *MonthlyExpense) Clone() *MonthlyExpense {
	if m == nil {
		return nil
	}
	c := *m
	c.Expenses = append([]ExpenseEntry(nil), m.Expenses...)
	return &c
}
