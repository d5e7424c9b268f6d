package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PlanHandler struct {
	planService service.PlanService
	log         *logger.Logger
}

func NewPlanHandler(planService service.PlanService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{planService: planService, log: log}
}

// PlanRequest is the full editable state of a plan.
type PlanRequest struct {
	Slug          string           `json:"slug" binding:"required,slug"`
	Title         string           `json:"title" binding:"required"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Currency      string           `json:"currency" binding:"required"`
	PaddlePriceID string           `json:"paddlePriceId"`
	Content       json.RawMessage  `json:"content" binding:"required"`
}

func (r PlanRequest) toInput() service.PlanInput {
	return service.PlanInput{
		Slug:          r.Slug,
		Title:         r.Title,
		Description:   r.Description,
		Price:         r.Price,
		OriginalPrice: r.OriginalPrice,
		Currency:      r.Currency,
		PaddlePriceID: r.PaddlePriceID,
		Content:       r.Content,
	}
}

type PublishRequest struct {
	Published *bool `json:"published" binding:"required"`
}

// CreatePlan godoc
// @Summary Create a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param plan body PlanRequest true "Plan"
// @Success 201 {object} domain.Plan
// @Failure 400 {object} gin.H "Invalid plan or content"
// @Failure 403 {object} gin.H "Not a creator"
// @Failure 409 {object} gin.H "Slug already used"
// @Router /plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), userID, req.toInput())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// UpdatePlan godoc
// @Summary Replace a plan's metadata and content
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param plan body PlanRequest true "Plan"
// @Success 200 {object} domain.Plan
// @Failure 400 {object} gin.H "Invalid plan or content"
// @Failure 403 {object} gin.H "Not the plan's creator"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId} [put]
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	plan, err := h.planService.UpdatePlan(c.Request.Context(), userID, planID, req.toInput())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// SetPublished godoc
// @Summary Publish or unpublish a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param publish body PublishRequest true "Publish flag"
// @Success 200 {object} domain.Plan
// @Router /plans/{planId}/published [patch]
func (h *PlanHandler) SetPublished(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	plan, err := h.planService.SetPublished(c.Request.Context(), userID, planID, *req.Published)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetPlan godoc
// @Summary Get a plan with its content
// @Description Owners and the creator get the full content; everyone else gets a preview.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} service.PlanView
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := h.planService.GetPlanView(c.Request.Context(), userID, planID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListOwnedPlans godoc
// @Summary List the caller's purchased plans
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.OwnedPlan
// @Router /me/plans [get]
func (h *PlanHandler) ListOwnedPlans(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	owned, err := h.planService.ListOwnedPlans(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if owned == nil {
		owned = []service.OwnedPlan{}
	}
	c.JSON(http.StatusOK, owned)
}

// GetContentVersion godoc
// @Summary Download link for an archived content version
// @Description Creator only. Returns a short-lived presigned URL.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param version path int true "Content version"
// @Success 200 {object} service.ContentVersionLink
// @Failure 403 {object} gin.H "Not the plan's creator"
// @Failure 404 {object} gin.H "Version not archived"
// @Router /plans/{planId}/content/versions/{version} [get]
func (h *PlanHandler) GetContentVersion(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		abortWithError(c, http.StatusBadRequest, "Invalid version.")
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	link, err := h.planService.ContentVersionURL(c.Request.Context(), userID, planID, version)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, link)
}
