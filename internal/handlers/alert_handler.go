package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/pagination"
	"budgetwatch/internal/services"
)

// AlertHandler handles budget alert requests.
type AlertHandler struct {
	alertService services.AlertServicer
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alertService services.AlertServicer) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// AlertListQuery holds pagination and filter query parameters for alerts.
type AlertListQuery struct {
	pagination.PageRequest
	UnacknowledgedOnly bool `form:"unacknowledged_only"`
}

// GetAlerts handles listing alerts for the authenticated user.
// @Summary     Get alerts
// @Description List budget alerts, newest first
// @Tags        alerts
// @Produce     json
// @Security    BearerAuth
// @Param       unacknowledged_only query bool false "Only alerts not yet acknowledged or dismissed"
// @Param       page                query int  false "Page number (default 1)"
// @Param       page_size           query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.BudgetAlert] "Paginated alerts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /alerts [get]
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query AlertListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.alertService.ListAlerts(userID, query.PageRequest, query.UnacknowledgedOnly)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AcknowledgeAlert handles marking an alert as acknowledged.
// @Summary     Acknowledge an alert
// @Tags        alerts
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Alert ID"
// @Success     200 {object} models.BudgetAlert "Alert acknowledged"
// @Failure     404 {object} ErrorResponse "Alert not found"
// @Router      /alerts/{id}/acknowledge [post]
func (h *AlertHandler) AcknowledgeAlert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	alertID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	alert, err := h.alertService.Acknowledge(userID, alertID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alert": alert})
}

// DismissAlert handles marking an alert as dismissed.
// @Summary     Dismiss an alert
// @Tags        alerts
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Alert ID"
// @Success     200 {object} models.BudgetAlert "Alert dismissed"
// @Failure     404 {object} ErrorResponse "Alert not found"
// @Router      /alerts/{id}/dismiss [post]
func (h *AlertHandler) DismissAlert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	alertID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	alert, err := h.alertService.Dismiss(userID, alertID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alert": alert})
}
