package api

import (
	"net/http"

	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/service"

	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	progressService service.ProgressService
	log             *logger.Logger
}

func NewProgressHandler(progressService service.ProgressService, log *logger.Logger) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, log: log}
}

// ToggleCompletion godoc
// @Summary Mark or unmark a workout day as done
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param weekId path string true "Week ID"
// @Param dayId path string true "Day ID"
// @Success 200 {object} service.CompletionState
// @Failure 403 {object} gin.H "Plan not owned"
// @Failure 404 {object} gin.H "Plan not found, or not a workout day of the plan"
// @Router /plans/{planId}/weeks/{weekId}/days/{dayId}/completion [patch]
func (h *ProgressHandler) ToggleCompletion(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	state, err := h.progressService.ToggleCompletion(c.Request.Context(), userID, planID, c.Param("weekId"), c.Param("dayId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetProgress godoc
// @Summary Progress through a plan
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} service.Progress
// @Failure 403 {object} gin.H "Plan not owned"
// @Router /plans/{planId}/progress [get]
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	progress, err := h.progressService.GetProgress(c.Request.Context(), userID, planID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// ListCompletions godoc
// @Summary Completed days of a plan
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {array} domain.Completion
// @Router /plans/{planId}/completions [get]
func (h *ProgressHandler) ListCompletions(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	completions, err := h.progressService.ListCompletions(c.Request.Context(), userID, planID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if completions == nil {
		completions = []domain.Completion{}
	}
	c.JSON(http.StatusOK, completions)
}
