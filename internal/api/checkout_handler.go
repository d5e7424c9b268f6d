package api

import (
	"io"
	"net/http"

	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/payment"
	"github.com/alcyxob/planmarket/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 1 << 20

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	eventService    service.PaymentEventService
	log             *logger.Logger
}

func NewCheckoutHandler(
	checkoutService service.CheckoutService,
	eventService service.PaymentEventService,
	log *logger.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, eventService: eventService, log: log}
}

type CheckoutRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

// StartCheckout godoc
// @Summary Start checkout for a plan
// @Description Creates a pending transaction with the payment processor and returns its token.
// @Tags Checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param checkoutRequest body CheckoutRequest true "Plan to buy"
// @Success 200 {object} service.CheckoutSession
// @Failure 400 {object} gin.H "Invalid input or plan already owned"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Plan not found"
// @Failure 502 {object} gin.H "Payment processor unavailable"
// @Router /checkout [post]
func (h *CheckoutHandler) StartCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	planID, err := primitive.ObjectIDFromHex(req.PlanID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid planId format.")
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	session, err := h.checkoutService.StartCheckout(c.Request.Context(), userID, planID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Webhook godoc
// @Summary Payment processor webhook
// @Description Verifies the signature and applies the payment event. Replays are acknowledged.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param Paddle-Signature header string true "Webhook signature"
// @Success 200 {object} gin.H "{success: true}"
// @Failure 400 {object} gin.H "Invalid signature or malformed event"
// @Failure 413 {object} gin.H "Body larger than 1 MiB"
// @Failure 503 {object} gin.H "Store unavailable, processor should retry"
// @Router /checkout/webhook [post]
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Unable to read body.")
		return
	}
	if len(body) > maxWebhookBody {
		h.log.Warn("rejected oversized webhook", "limit", maxWebhookBody)
		abortWithError(c, http.StatusRequestEntityTooLarge, "Webhook body too large.")
		return
	}
	signature := c.GetHeader(payment.SignatureHeader)

	if err := h.eventService.HandlePaymentEvent(c.Request.Context(), body, signature); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
