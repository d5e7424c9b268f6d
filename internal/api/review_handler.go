package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReviewHandler struct {
	reviewService service.ReviewService
	log           *logger.Logger
}

func NewReviewHandler(reviewService service.ReviewService, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, log: log}
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

type reviewWriteFunc func(ctx context.Context, userID, planID primitive.ObjectID, rating int, comment string) (*domain.Review, error)

// SubmitReview godoc
// @Summary Review a purchased plan
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param review body ReviewRequest true "Review"
// @Success 201 {object} domain.Review
// @Failure 401 {object} gin.H "Plan not owned"
// @Failure 409 {object} gin.H "Review already exists"
// @Router /plans/{planId}/review [post]
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	h.write(c, http.StatusCreated, h.reviewService.SubmitReview)
}

// UpdateReview godoc
// @Summary Edit the caller's review
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param review body ReviewRequest true "Review"
// @Success 200 {object} domain.Review
// @Failure 404 {object} gin.H "Review not found"
// @Router /plans/{planId}/review [put]
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	h.write(c, http.StatusOK, h.reviewService.UpdateReview)
}

func (h *ReviewHandler) write(c *gin.Context, status int, fn reviewWriteFunc) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	review, err := fn(c.Request.Context(), userID, planID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(status, review)
}

// DeleteReview godoc
// @Summary Delete the caller's review
// @Tags Reviews
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 204
// @Failure 404 {object} gin.H "Review not found"
// @Router /plans/{planId}/review [delete]
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), userID, planID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMyReview godoc
// @Summary The caller's review of a plan
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} domain.Review
// @Failure 404 {object} gin.H "Review not found"
// @Router /plans/{planId}/review [get]
func (h *ReviewHandler) GetMyReview(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	review, err := h.reviewService.GetReview(c.Request.Context(), userID, planID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// ListPlanReviews godoc
// @Summary Newest reviews of a plan
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {array} domain.Review
// @Router /plans/{planId}/reviews [get]
func (h *ReviewHandler) ListPlanReviews(c *gin.Context) {
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			abortWithError(c, http.StatusBadRequest, "Invalid limit.")
			return
		}
		limit = n
	}

	reviews, err := h.reviewService.ListPlanReviews(c.Request.Context(), planID, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	c.JSON(http.StatusOK, reviews)
}
