package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Checkout service.CheckoutService
	Events   service.PaymentEventService
	Plans    service.PlanService
	Progress service.ProgressService
	Reviews  service.ReviewService
	// Readiness lists the dependencies /readyz pings, by name.
	Readiness map[string]Pinger
}

// Pinger is a dependency /readyz checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AuthConfig configures token verification.
type AuthConfig struct {
	JWTSecret string
	MaxAge    time.Duration
}

func SetupRoutes(router *gin.Engine, auth AuthConfig, services Services, log *logger.Logger) error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := service.RegisterValidators(v); err != nil {
			return err
		}
	}

	checkoutHandler := NewCheckoutHandler(services.Checkout, services.Events, log)
	planHandler := NewPlanHandler(services.Plans, log)
	progressHandler := NewProgressHandler(services.Progress, log)
	reviewHandler := NewReviewHandler(services.Reviews, log)

	authMiddleware := AuthMiddleware(auth.JWTSecret, auth.MaxAge)
	router.Use(RequestIDMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/readyz", readinessHandler(services.Readiness, log))

	apiV1 := router.Group("/api/v1")

	// Called by the payment processor; authenticated by signature, not token.
	apiV1.POST("/checkout/webhook", checkoutHandler.Webhook)

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.POST("/checkout", checkoutHandler.StartCheckout)
		protected.GET("/me/plans", planHandler.ListOwnedPlans)

		plans := protected.Group("/plans")
		{
			plans.POST("", RoleMiddleware(domain.RoleCreator), planHandler.CreatePlan)
			plans.GET("/:planId", planHandler.GetPlan)
			plans.PUT("/:planId", RoleMiddleware(domain.RoleCreator), planHandler.UpdatePlan)
			plans.PATCH("/:planId/published", RoleMiddleware(domain.RoleCreator), planHandler.SetPublished)
			plans.GET("/:planId/content/versions/:version", RoleMiddleware(domain.RoleCreator), planHandler.GetContentVersion)

			plans.GET("/:planId/progress", progressHandler.GetProgress)
			plans.GET("/:planId/completions", progressHandler.ListCompletions)
			plans.PATCH("/:planId/weeks/:weekId/days/:dayId/completion", progressHandler.ToggleCompletion)

			plans.GET("/:planId/reviews", reviewHandler.ListPlanReviews)
			plans.GET("/:planId/review", reviewHandler.GetMyReview)
			plans.POST("/:planId/review", reviewHandler.SubmitReview)
			plans.PUT("/:planId/review", reviewHandler.UpdateReview)
			plans.DELETE("/:planId/review", reviewHandler.DeleteReview)
		}
	}
	return nil
}

const readinessTimeout = 2 * time.Second

// readinessHandler reports 503 while any dependency fails to answer a ping.
func readinessHandler(checks map[string]Pinger, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				log.Warn("readiness check failed", "dependency", name, "error", err)
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"ready": status == http.StatusOK, "checks": results})
	}
}
