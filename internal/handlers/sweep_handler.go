package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"budgetwatch/internal/services"
)

// SweepHandler exposes the pipeline trigger for the cross-user sweep.
type SweepHandler struct {
	sweepService services.SweepServicer
}

// NewSweepHandler creates a new SweepHandler.
func NewSweepHandler(sweepService services.SweepServicer) *SweepHandler {
	return &SweepHandler{sweepService: sweepService}
}

// RunSweep runs the monitoring sweep over all users' active budgets.
// Guarded by PipelineAuthMiddleware; the user-facing API never reaches it.
// @Summary     Run the global sweep
// @Description Check every active budget across all users and record alerts
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Success     200 {object} services.SweepSummary "Sweep summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /pipeline/sweep [post]
func (h *SweepHandler) RunSweep(c *gin.Context) {
	summary, err := h.sweepService.SweepAll(c.Request.Context(), services.SystemScope{})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
