package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const budgetColumns = `id, child_id, parent_id, monthly_limit, current_spent, warning_threshold,
	notify_on_warning, notify_on_limit, is_active, spend_month, warning_notified_month,
	limit_notified_month, created_at, updated_at`

const monthlyExpenseColumns = `id, child_id, parent_id, month, total_amount, ride_count,
	average_cost_per_ride, created_at, updated_at`

func scanBudget(row pgx.Row) (*types.BudgetLimit, error) {
	var b types.BudgetLimit
	err := row.Scan(&b.ID, &b.ChildID, &b.ParentID, &b.MonthlyLimit, &b.CurrentSpent, &b.WarningThreshold,
		&b.NotifyOnWarning, &b.NotifyOnLimit, &b.IsActive, &b.SpendMonth, &b.WarningNotifiedMonth,
		&b.LimitNotifiedMonth, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanMonthlyExpense(row pgx.Row) (*types.MonthlyExpense, error) {
	var m types.MonthlyExpense
	err := row.Scan(&m.ID, &m.ChildID, &m.ParentID, &m.Month, &m.TotalAmount, &m.RideCount,
		&m.AverageCostPerRide, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Expenses = []types.ExpenseEntry{}
	return &m, nil
}

// UpsertBudgetLimit creates or replaces the child's limit settings. Spend
// tracking columns survive a settings change.
func (q *queries) UpsertBudgetLimit(ctx context.Context, b *types.BudgetLimit) error {
	row := q.db.QueryRow(ctx, `
		INSERT INTO budget_limits (`+budgetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (child_id) DO UPDATE SET
			parent_id = EXCLUDED.parent_id,
			monthly_limit = EXCLUDED.monthly_limit,
			warning_threshold = EXCLUDED.warning_threshold,
			notify_on_warning = EXCLUDED.notify_on_warning,
			notify_on_limit = EXCLUDED.notify_on_limit,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING `+budgetColumns,
		b.ID, b.ChildID, b.ParentID, b.MonthlyLimit, b.CurrentSpent, b.WarningThreshold,
		b.NotifyOnWarning, b.NotifyOnLimit, b.IsActive, b.SpendMonth, b.WarningNotifiedMonth,
		b.LimitNotifiedMonth, b.CreatedAt, b.UpdatedAt)
	saved, err := scanBudget(row)
	if err != nil {
		return mapError(err, "upsert budget limit")
	}
	*b = *saved
	return nil
}

func (q *queries) GetBudgetLimit(ctx context.Context, childID string) (*types.BudgetLimit, error) {
	b, err := scanBudget(q.db.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budget_limits WHERE child_id = $1`, childID))
	if err != nil {
		return nil, mapError(err, "get budget limit")
	}
	return b, nil
}

func (q *queries) GetBudgetLimitForUpdate(ctx context.Context, childID string) (*types.BudgetLimit, error) {
	b, err := scanBudget(q.db.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budget_limits WHERE child_id = $1 FOR UPDATE`, childID))
	if err != nil {
		return nil, mapError(err, "lock budget limit")
	}
	return b, nil
}

func (q *queries) UpdateBudgetLimit(ctx context.Context, b *types.BudgetLimit) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE budget_limits SET
			current_spent = $2, spend_month = $3, warning_notified_month = $4,
			limit_notified_month = $5, updated_at = $6
		WHERE child_id = $1`,
		b.ChildID, b.CurrentSpent, b.SpendMonth, b.WarningNotifiedMonth, b.LimitNotifiedMonth, b.UpdatedAt)
	if err != nil {
		return mapError(err, "update budget limit")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update budget limit for %s: %w", b.ChildID, store.ErrNotFound)
	}
	return nil
}

func (q *queries) GetMonthlyExpense(ctx context.Context, childID, month string) (*types.MonthlyExpense, error) {
	m, err := scanMonthlyExpense(q.db.QueryRow(ctx, `SELECT `+monthlyExpenseColumns+`
		FROM monthly_expenses WHERE child_id = $1 AND month = $2`, childID, month))
	if err != nil {
		return nil, mapError(err, "get monthly expense")
	}

	rows, err := q.db.Query(ctx, `SELECT id, child_id, month, booking_id, amount, description, date
		FROM expense_entries WHERE monthly_expense_id = $1 ORDER BY date, id`, m.ID)
	if err != nil {
		return nil, mapError(err, "list expense entries")
	}
	defer rows.Close()

	for rows.Next() {
		var e types.ExpenseEntry
		if err := rows.Scan(&e.ID, &e.ChildID, &e.Month, &e.BookingID, &e.Amount, &e.Description, &e.Date); err != nil {
			return nil, mapError(err, "scan expense entry")
		}
		m.Expenses = append(m.Expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterate expense entries")
	}
	return m, nil
}

// AppendExpense folds the entry into the month aggregate with a single
// additive upsert, so concurrent rides for the same child cannot lose updates.
func (q *queries) AppendExpense(ctx context.Context, parentID string, e *types.ExpenseEntry, at time.Time) (*types.MonthlyExpense, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO monthly_expenses (id, child_id, parent_id, month, total_amount, ride_count,
			average_cost_per_ride, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $5, $6, $6)
		ON CONFLICT (child_id, month) DO UPDATE SET
			total_amount = monthly_expenses.total_amount + EXCLUDED.total_amount,
			ride_count = monthly_expenses.ride_count + 1,
			average_cost_per_ride = ROUND((monthly_expenses.total_amount + EXCLUDED.total_amount)::numeric
				/ (monthly_expenses.ride_count + 1))::BIGINT,
			updated_at = EXCLUDED.updated_at
		RETURNING `+monthlyExpenseColumns,
		uuid.NewString(), e.ChildID, parentID, e.Month, e.Amount, at)
	m, err := scanMonthlyExpense(row)
	if err != nil {
		return nil, mapError(err, "append monthly expense")
	}

	_, err = q.db.Exec(ctx, `
		INSERT INTO expense_entries (id, monthly_expense_id, child_id, month, booking_id, amount, description, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, m.ID, e.ChildID, e.Month, e.BookingID, e.Amount, e.Description, e.Date)
	if err != nil {
		return nil, mapError(err, "insert expense entry")
	}
	return m, nil
}

func (q *queries) ResetBudgetSpend(ctx context.Context, month string, at time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE budget_limits SET current_spent = 0, spend_month = $1, updated_at = $2
		WHERE is_active AND spend_month <> $1`, month, at)
	if err != nil {
		return 0, mapError(err, "reset budget spend")
	}
	return tag.RowsAffected(), nil
}
