package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
	"budgetwatch/internal/services"
)

// BudgetHandler handles budget-related requests, including the per-budget
// progress, manual check-now, and adjustment triggers.
type BudgetHandler struct {
	budgetService     services.BudgetServicer
	adjustmentService services.AdjustmentServicer
	sweepService      services.SweepServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(
	budgetService services.BudgetServicer,
	adjustmentService services.AdjustmentServicer,
	sweepService services.SweepServicer,
) *BudgetHandler {
	return &BudgetHandler{
		budgetService:     budgetService,
		adjustmentService: adjustmentService,
		sweepService:      sweepService,
	}
}

// CreateBudgetRequest represents the request payload for creating a budget.
type CreateBudgetRequest struct {
	CategoryID           uint                `json:"category_id" binding:"required"`
	Name                 string              `json:"name" binding:"required,min=1,max=100"`
	Amount               int64               `json:"amount" binding:"required,gt=0"`
	Period               models.BudgetPeriod `json:"period" binding:"required,budget_period"`
	StartDate            time.Time           `json:"start_date" binding:"required"`
	EndDate              *time.Time          `json:"end_date"`
	AutoAdjust           bool                `json:"auto_adjust"`
	AdjustmentPercentage int                 `json:"adjustment_percentage" binding:"omitempty,min=1,max=100"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
type UpdateBudgetRequest struct {
	Name                 string     `json:"name" binding:"omitempty,min=1,max=100"`
	Amount               *int64     `json:"amount" binding:"omitempty,gt=0"`
	EndDate              *time.Time `json:"end_date"`
	IsActive             *bool      `json:"is_active"`
	AutoAdjust           *bool      `json:"auto_adjust"`
	AdjustmentPercentage *int       `json:"adjustment_percentage" binding:"omitempty,min=1,max=100"`
	Reason               string     `json:"reason" binding:"max=500"`
}

// AdjustBudgetRequest represents the request payload for an adjustment.
type AdjustBudgetRequest struct {
	Reason string `json:"reason" binding:"required,adjustment_reason"`
	Force  bool   `json:"force"`
}

// BudgetListQuery holds pagination and filter query parameters.
type BudgetListQuery struct {
	pagination.PageRequest
	IsActive *bool   `form:"is_active"`
	Period   *string `form:"period"`
}

// CreateBudget handles the creation of a new budget.
// @Summary     Create a budget
// @Description Create a new budget for a category
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Budget limit reached or duplicate"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.CreateBudget(
		userID, req.CategoryID, req.Name, req.Amount, req.Period,
		req.StartDate, req.EndDate, req.AutoAdjust, req.AdjustmentPercentage,
		models.BudgetOriginUser,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetBudgets handles listing budgets for the authenticated user.
// @Summary     Get budgets
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       is_active query bool   false "Filter by active status"
// @Param       period    query string false "Filter by period"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Paginated budgets"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /budgets [get]
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query BudgetListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var period *models.BudgetPeriod
	if query.Period != nil {
		p := models.BudgetPeriod(*query.Period)
		period = &p
	}

	result, err := h.budgetService.GetUserBudgets(userID, query.PageRequest, query.IsActive, period)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBudgetByID handles fetching a single budget.
// @Summary     Get a budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Budget ID"
// @Success     200 {object} models.Budget "Budget"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudgetByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// UpdateBudget handles updating a budget.
// @Summary     Update a budget
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                 true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to update"
// @Success     200 {object} models.Budget "Budget updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.UpdateBudget(userID, budgetID, services.BudgetUpdate{
		Name:                 req.Name,
		Amount:               req.Amount,
		EndDate:              req.EndDate,
		IsActive:             req.IsActive,
		AutoAdjust:           req.AutoAdjust,
		AdjustmentPercentage: req.AdjustmentPercentage,
		Reason:               req.Reason,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget handles deleting a budget.
// @Summary     Delete a budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Budget ID"
// @Success     204 "Budget deleted"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetBudgetProgress handles fetching spend-vs-budget progress.
// @Summary     Get budget progress
// @Description Get current-period spending, percentage, and status for a budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Budget ID"
// @Success     200 {object} services.BudgetProgress "Budget progress"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/progress [get]
func (h *BudgetHandler) GetBudgetProgress(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.budgetService.GetBudgetProgress(userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// GetBudgetHistory handles fetching a budget's amount-change history.
// @Summary     Get budget history
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  int true "Budget ID"
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.BudgetHistory] "Paginated history"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/history [get]
func (h *BudgetHandler) GetBudgetHistory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.budgetService.GetBudgetHistory(userID, budgetID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CheckBudgets runs a monitoring sweep over the user's active budgets.
// @Summary     Check budgets now
// @Description Run the monitoring sweep for the authenticated user's active budgets
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.SweepSummary "Sweep summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /budgets/check [post]
func (h *BudgetHandler) CheckBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.sweepService.SweepUser(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// AdjustBudget runs the auto-adjustment engine for a budget.
// @Summary     Adjust a budget
// @Description Propose or apply a history-based adjustment of the budget amount
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                 true "Budget ID"
// @Param       request body AdjustBudgetRequest true "Adjustment reason and force flag"
// @Success     200 {object} services.AdjustmentDecision "Adjustment decision"
// @Failure     400 {object} ErrorResponse "Invalid input or auto-adjust disabled"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     409 {object} ErrorResponse "Already adjusted this period"
// @Failure     422 {object} ErrorResponse "Insufficient history"
// @Router      /budgets/{id}/adjust [post]
func (h *BudgetHandler) AdjustBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AdjustBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	decision, err := h.adjustmentService.AdjustBudget(userID, budgetID, req.Reason, req.Force)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"decision": decision})
}
