// Package service tracks each child's monthly ride spend against the limit a
// parent configured and notifies the parent once per month per threshold.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/KidRide/kidride-backend/errors"
	"github.com/KidRide/kidride-backend/internal/notification"
	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/pkg/valueobjects"
	"github.com/KidRide/kidride-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultWarningThreshold = 80

// BudgetConfigInput sets or updates a child's monthly limit. Nil toggles
// default to true.
type BudgetConfigInput struct {
	ChildID          string `json:"-"`
	ParentID         string `json:"-"`
	MonthlyLimit     int64  `json:"monthlyLimit" binding:"required"`
	WarningThreshold int    `json:"warningThreshold"`
	NotifyOnWarning  *bool  `json:"notifyOnWarning"`
	NotifyOnLimit    *bool  `json:"notifyOnLimit"`
	IsActive         *bool  `json:"isActive"`
}

// RecordExpenseInput is one ride charged to a child. A zero Date means now.
type RecordExpenseInput struct {
	ChildID string `json:"-"`
	// ParentID must own the child. Admins may leave it empty when the child
	// already has a budget or expenses on record.
	ParentID    string    `json:"parentId"`
	AsAdmin     bool      `json:"-"`
	BookingID   string    `json:"bookingId"`
	Amount      int64     `json:"amount" binding:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// ExpenseResult is what RecordExpense changed. Budget is nil when the child
// has no active limit.
type ExpenseResult struct {
	Expense       *types.MonthlyExpense    `json:"expense"`
	Budget        *types.BudgetLimit       `json:"budget,omitempty"`
	Notifications []types.NotificationKind `json:"notifications"`
}

type BudgetService struct {
	store    store.Store
	notifier notification.Notifier
	loc      *time.Location
	log      *zap.SugaredLogger
	metrics  *budgetMetrics
	nowFn    func() time.Time
}

// NewBudgetService builds the service. Months are calendar months in loc.
func NewBudgetService(st store.Store, notifier notification.Notifier, loc *time.Location) *BudgetService {
	if loc == nil {
		loc = time.UTC
	}
	return &BudgetService{
		store:    st,
		notifier: notifier,
		loc:      loc,
		log:      logger.GetLogger().Named("budgets"),
		metrics:  newBudgetMetrics(),
		nowFn:    time.Now,
	}
}

func (s *BudgetService) monthOf(t time.Time) string {
	return t.In(s.loc).Format(types.MonthLayout)
}

// ConfigureBudget creates or updates a child's limit. Spend already recorded
// this month is kept.
func (s *BudgetService) ConfigureBudget(ctx context.Context, in BudgetConfigInput) (*types.BudgetLimit, error) {
	if in.ChildID == "" || in.ParentID == "" {
		return nil, apperrors.ValidationFailed("invalid budget", "child and parent are required")
	}
	if in.MonthlyLimit <= 0 {
		return nil, apperrors.ValidationFailed("invalid monthly limit", "monthly limit must be positive")
	}
	threshold := in.WarningThreshold
	if threshold == 0 {
		threshold = defaultWarningThreshold
	}
	if threshold < 1 || threshold > 100 {
		return nil, apperrors.ValidationFailed("invalid warning threshold", "warning threshold must be between 1 and 100")
	}

	existing, err := s.store.GetBudgetLimit(ctx, in.ChildID)
	switch {
	case err == nil:
		if existing.ParentID != in.ParentID {
			return nil, apperrors.Forbidden("not your child", "budget belongs to another parent")
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperrors.NewDatabaseError(err)
	}

	now := s.nowFn()
	limit := &types.BudgetLimit{
		ID:               uuid.NewString(),
		ChildID:          in.ChildID,
		ParentID:         in.ParentID,
		MonthlyLimit:     in.MonthlyLimit,
		WarningThreshold: threshold,
		NotifyOnWarning:  boolOr(in.NotifyOnWarning, true),
		NotifyOnLimit:    boolOr(in.NotifyOnLimit, true),
		IsActive:         boolOr(in.IsActive, true),
		SpendMonth:       s.monthOf(now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.UpsertBudgetLimit(ctx, limit); err != nil {
		s.log.Errorw("Failed to save budget limit", "childId", in.ChildID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}
	s.log.Infow("Budget configured",
		"childId", limit.ChildID,
		"monthlyLimit", limit.MonthlyLimit,
		"warningThreshold", limit.WarningThreshold,
		"isActive", limit.IsActive)
	return limit, nil
}

// GetBudget returns the child's limit as of now. A limit whose spend month
// has passed reads as zero spent until the reset job or the next ride moves it.
func (s *BudgetService) GetBudget(ctx context.Context, childID string) (*types.BudgetLimit, error) {
	limit, err := s.store.GetBudgetLimit(ctx, childID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Budget", childID)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	if month := s.monthOf(s.nowFn()); limit.SpendMonth != month {
		limit.CurrentSpent = 0
		limit.SpendMonth = month
	}
	return limit, nil
}

func (s *BudgetService) GetMonthlyExpense(ctx context.Context, childID, month string) (*types.MonthlyExpense, error) {
	if _, err := time.Parse(types.MonthLayout, month); err != nil {
		return nil, apperrors.ValidationFailed("invalid month", "month must be formatted as YYYY-MM")
	}
	m, err := s.store.GetMonthlyExpense(ctx, childID, month)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Monthly expense", fmt.Sprintf("%s/%s", childID, month))
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return m, nil
}

type pendingNotification struct {
	kind    types.NotificationKind
	payload map[string]interface{}
}

// RecordExpense appends a ride to the child's month and, for rides in the
// current month, adds it to the budget and checks the thresholds.
// Notifications go out after the write commits.
func (s *BudgetService) RecordExpense(ctx context.Context, in RecordExpenseInput) (*ExpenseResult, error) {
	if in.ChildID == "" || (in.ParentID == "" && !in.AsAdmin) {
		return nil, apperrors.ValidationFailed("invalid expense", "child and parent are required")
	}
	if in.Amount <= 0 {
		return nil, apperrors.ValidationFailed("invalid amount", "expense amount must be positive")
	}

	now := s.nowFn()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	month := s.monthOf(date)
	currentMonth := s.monthOf(now)

	result := &ExpenseResult{Notifications: []types.NotificationKind{}}
	var pending []pendingNotification
	var recipient string

	err := s.store.WithTx(ctx, func(q store.Queries) error {
		limit, err := q.GetBudgetLimitForUpdate(ctx, in.ChildID)
		if errors.Is(err, store.ErrNotFound) {
			limit = nil
		} else if err != nil {
			return err
		}

		parentID, err := s.expenseOwner(ctx, q, in, limit, month)
		if err != nil {
			return err
		}
		recipient = parentID

		entry := &types.ExpenseEntry{
			ID:          uuid.NewString(),
			ChildID:     in.ChildID,
			Month:       month,
			BookingID:   in.BookingID,
			Amount:      in.Amount,
			Description: in.Description,
			Date:        date,
		}
		expense, err := q.AppendExpense(ctx, parentID, entry, now)
		if err != nil {
			return err
		}
		result.Expense = expense

		if limit == nil || !limit.IsActive {
			return nil
		}

		changed := false
		if limit.SpendMonth != currentMonth {
			limit.CurrentSpent = 0
			limit.SpendMonth = currentMonth
			changed = true
		}
		if month == currentMonth {
			limit.CurrentSpent += in.Amount
			pending = s.checkThresholds(limit, currentMonth)
			changed = true
		}
		if changed {
			limit.UpdatedAt = now
			if err := q.UpdateBudgetLimit(ctx, limit); err != nil {
				return err
			}
		}
		result.Budget = limit
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.log.Errorw("Failed to record expense", "childId", in.ChildID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}
	s.metrics.expenses.Inc()

	for _, n := range pending {
		if err := s.notifier.Notify(ctx, recipient, n.kind, n.payload); err != nil {
			s.metrics.notificationFailures.Inc()
			s.log.Warnw("Failed to queue budget notification", "childId", in.ChildID, "kind", n.kind, "error", err)
			continue
		}
		s.metrics.notifications.WithLabelValues(string(n.kind)).Inc()
		result.Notifications = append(result.Notifications, n.kind)
	}

	s.log.Infow("Expense recorded",
		"childId", in.ChildID,
		"month", month,
		"amount", in.Amount,
		"monthTotal", result.Expense.TotalAmount,
		"notifications", len(result.Notifications))
	return result, nil
}

// expenseOwner returns the parent the expense is charged to. The budget owner
// wins, then the parent already on the month's record. A parent naming
// someone else's child is refused.
func (s *BudgetService) expenseOwner(ctx context.Context, q store.Queries, in RecordExpenseInput, limit *types.BudgetLimit, month string) (string, error) {
	owner := ""
	if limit != nil {
		owner = limit.ParentID
	} else {
		m, err := q.GetMonthlyExpense(ctx, in.ChildID, month)
		switch {
		case err == nil:
			owner = m.ParentID
		case !errors.Is(err, store.ErrNotFound):
			return "", err
		}
	}

	switch {
	case owner == "" && in.ParentID == "":
		return "", apperrors.ValidationFailed("invalid expense", "parentId is required for a child with no budget or expenses")
	case owner == "":
		return in.ParentID, nil
	case in.ParentID == "" || in.ParentID == owner:
		return owner, nil
	case in.AsAdmin:
		return "", apperrors.ValidationFailed("invalid expense", "parentId does not own this child")
	default:
		s.log.Warnw("Expense refused for another parent's child", "childId", in.ChildID, "parentId", in.ParentID)
		return "", apperrors.Forbidden("not your child", "budget belongs to another parent")
	}
}

// checkThresholds marks and returns the notifications limit has earned this
// month. Reaching the limit also consumes the warning.
func (s *BudgetService) checkThresholds(limit *types.BudgetLimit, month string) []pendingNotification {
	if limit.MonthlyLimit <= 0 {
		return nil
	}
	payload := func() map[string]interface{} {
		return map[string]interface{}{
			"childId":          limit.ChildID,
			"month":            month,
			"currentSpent":     limit.CurrentSpent,
			"monthlyLimit":     limit.MonthlyLimit,
			"warningThreshold": limit.WarningThreshold,
		}
	}

	if limit.CurrentSpent >= limit.MonthlyLimit {
		if limit.LimitNotifiedMonth == month || !limit.NotifyOnLimit {
			return nil
		}
		limit.LimitNotifiedMonth = month
		limit.WarningNotifiedMonth = month
		return []pendingNotification{{kind: types.NotifyBudgetLimitReached, payload: payload()}}
	}

	if valueobjects.WholePercent(limit.WarningThreshold).RatioReached(limit.CurrentSpent, limit.MonthlyLimit) {
		if limit.WarningNotifiedMonth == month || !limit.NotifyOnWarning {
			return nil
		}
		limit.WarningNotifiedMonth = month
		return []pendingNotification{{kind: types.NotifyBudgetWarning, payload: payload()}}
	}
	return nil
}

// ResetMonthlySpend zeroes the spend of every active limit still counting a
// previous month. Running it again in the same month changes nothing.
func (s *BudgetService) ResetMonthlySpend(ctx context.Context) (int64, error) {
	now := s.nowFn()
	month := s.monthOf(now)
	n, err := s.store.ResetBudgetSpend(ctx, month, now)
	if err != nil {
		s.log.Errorw("Failed to reset budget spend", "month", month, "error", err)
		return 0, apperrors.NewDatabaseError(err)
	}
	s.metrics.resets.Add(float64(n))
	s.log.Infow("Budget spend reset", "month", month, "limits", n)
	return n, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
