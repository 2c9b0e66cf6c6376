package handlers

import (
	"context"
	"net/http"

	"github.com/KidRide/kidride-backend/middleware"
	budgetSvc "github.com/KidRide/kidride-backend/models/budget/service"
	"github.com/KidRide/kidride-backend/types"
	"github.com/gin-gonic/gin"
)

// BudgetServiceInterface defines the methods used by BudgetHandler.
type BudgetServiceInterface interface {
	ConfigureBudget(ctx context.Context, in budgetSvc.BudgetConfigInput) (*types.BudgetLimit, error)
	GetBudget(ctx context.Context, childID string) (*types.BudgetLimit, error)
	RecordExpense(ctx context.Context, in budgetSvc.RecordExpenseInput) (*budgetSvc.ExpenseResult, error)
	GetMonthlyExpense(ctx context.Context, childID, month string) (*types.MonthlyExpense, error)
}

var _ BudgetServiceInterface = (*budgetSvc.BudgetService)(nil)

type BudgetHandler struct {
	budgetService BudgetServiceInterface
}

func NewBudgetHandler(budgetService BudgetServiceInterface) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// ConfigureBudgetHandler sets the calling parent's limit for a child.
// @Summary Configure a child budget
// @Tags budgets
// @Accept json
// @Produce json
// @Param childId path string true "Child ID"
// @Param request body budgetSvc.BudgetConfigInput true "Limit and warning threshold"
// @Success 200 {object} types.BudgetLimit "Configured limit"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /children/{childId}/budget [put]
// @Security BearerAuth
func (h *BudgetHandler) ConfigureBudgetHandler(c *gin.Context) {
	parentID, ok := requireUser(c)
	if !ok {
		return
	}
	var in budgetSvc.BudgetConfigInput
	if !bindJSONOrError(c, &in) {
		return
	}
	in.ChildID = c.Param("childId")
	in.ParentID = parentID

	limit, err := h.budgetService.ConfigureBudget(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, limit)
}

// GetBudgetHandler returns a child's limit and this month's spend.
// @Summary Get a child budget
// @Tags budgets
// @Produce json
// @Param childId path string true "Child ID"
// @Success 200 {object} types.BudgetLimit "Limit with current spend"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 404 {object} middleware.ErrorResponse "Not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /children/{childId}/budget [get]
// @Security BearerAuth
func (h *BudgetHandler) GetBudgetHandler(c *gin.Context) {
	limit, err := h.budgetService.GetBudget(c.Request.Context(), c.Param("childId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !allowOwnerOrAdmin(c, limit.ParentID) {
		return
	}
	c.JSON(http.StatusOK, limit)
}

// RecordExpenseHandler charges a ride to a child. Parents record against
// themselves; admins may name the parent in the body.
// @Summary Record a ride expense
// @Tags budgets
// @Accept json
// @Produce json
// @Param childId path string true "Child ID"
// @Param request body budgetSvc.RecordExpenseInput true "Ride expense"
// @Success 201 {object} budgetSvc.ExpenseResult "Recorded expense and budget state"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /children/{childId}/expenses [post]
// @Security BearerAuth
func (h *BudgetHandler) RecordExpenseHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var in budgetSvc.RecordExpenseInput
	if !bindJSONOrError(c, &in) {
		return
	}
	in.ChildID = c.Param("childId")
	in.AsAdmin = middleware.IsAdmin(c)
	if !in.AsAdmin {
		in.ParentID = userID
	}

	result, err := h.budgetService.RecordExpense(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetMonthlyExpenseHandler returns a child's rides for one month.
// @Summary Get monthly expenses
// @Tags budgets
// @Produce json
// @Param childId path string true "Child ID"
// @Param month path string true "Month as YYYY-MM"
// @Success 200 {object} types.MonthlyExpense "Rides charged that month"
// @Failure 400 {object} middleware.ErrorResponse "Bad request - Invalid input data"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized - User not logged in"
// @Failure 403 {object} middleware.ErrorResponse "Forbidden - Caller may not access this resource"
// @Failure 404 {object} middleware.ErrorResponse "Not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /children/{childId}/expenses/{month} [get]
// @Security BearerAuth
func (h *BudgetHandler) GetMonthlyExpenseHandler(c *gin.Context) {
	expense, err := h.budgetService.GetMonthlyExpense(c.Request.Context(), c.Param("childId"), c.Param("month"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !allowOwnerOrAdmin(c, expense.ParentID) {
		return
	}
	c.JSON(http.StatusOK, expense)
}
