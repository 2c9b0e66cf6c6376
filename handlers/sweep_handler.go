package handlers

import (
	"context"
	"net/http"

	paymentSvc "github.com/KidRide/kidride-backend/models/payment/service"
	payoutSvc "github.com/KidRide/kidride-backend/models/payout/service"
	"github.com/gin-gonic/gin"
)

type ReminderSweeper interface {
	Sweep(ctx context.Context) (paymentSvc.SweepResult, error)
}

type ScheduledPayoutRunner interface {
	RunScheduledPayouts(ctx context.Context) (payoutSvc.RunResult, error)
}

type BudgetResetter interface {
	ResetMonthlySpend(ctx context.Context) (int64, error)
}

// SweepHandler lets an admin run the periodic sweeps on demand. Each sweep
// is idempotent and lock-guarded, so this is safe alongside the scheduler.
type SweepHandler struct {
	reminders ReminderSweeper
	payouts   ScheduledPayoutRunner
	budgets   BudgetResetter
}

func NewSweepHandler(reminders ReminderSweeper, payouts ScheduledPayoutRunner, budgets BudgetResetter) *SweepHandler {
	return &SweepHandler{reminders: reminders, payouts: payouts, budgets: budgets}
}

// RunRemindersHandler sends due-date reminders and marks late balances overdue.
// @Summary Run the reminder sweep
// @Tags sweeps
// @Produce json
// @Success 200 {object} paymentSvc.SweepResult "Reminders sent and transactions marked overdue"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 409 {object} middleware.ErrorResponse "Conflict - State does not allow this operation"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /admin/sweeps/reminders [post]
// @Security BearerAuth
func (h *SweepHandler) RunRemindersHandler(c *gin.Context) {
	result, err := h.reminders.Sweep(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RunPayoutsHandler pays every driver with a pending balance.
// @Summary Run the scheduled payout sweep
// @Tags sweeps
// @Produce json
// @Success 200 {object} payoutSvc.RunResult "Batch result"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 409 {object} middleware.ErrorResponse "Conflict - State does not allow this operation"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /admin/sweeps/payouts [post]
// @Security BearerAuth
func (h *SweepHandler) RunPayoutsHandler(c *gin.Context) {
	result, err := h.payouts.RunScheduledPayouts(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RunBudgetResetHandler zeroes monthly spend on limits from earlier months.
// @Summary Run the monthly budget reset
// @Tags sweeps
// @Produce json
// @Success 200 {object} map[string]int64 "Number of limits reset"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 409 {object} middleware.ErrorResponse "Conflict - State does not allow this operation"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /admin/sweeps/budget-reset [post]
// @Security BearerAuth
func (h *SweepHandler) RunBudgetResetHandler(c *gin.Context) {
	n, err := h.budgets.ResetMonthlySpend(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": n})
}
