package service

import (
	"context"
	"errors"

	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/payment"
	"github.com/alcyxob/planmarket/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckoutSession is what the client needs to open the hosted checkout.
type CheckoutSession struct {
	Token string `json:"token"`
	URL   string `json:"url,omitempty"`
}

type CheckoutService interface {
	// StartCheckout opens a processor transaction for planID carrying
	// (userID, planID) as metadata. Nothing is stored locally.
	StartCheckout(ctx context.Context, userID, planID primitive.ObjectID) (*CheckoutSession, error)
}

type checkoutService struct {
	planRepo     repository.PlanRepository
	entitlements EntitlementService
	processor    payment.Processor
	log          *logger.Logger
}

func NewCheckoutService(
	planRepo repository.PlanRepository,
	entitlements EntitlementService,
	processor payment.Processor,
	log *logger.Logger,
) CheckoutService {
	return &checkoutService{
		planRepo:     planRepo,
		entitlements: entitlements,
		processor:    processor,
		log:          log,
	}
}

func (s *checkoutService) StartCheckout(ctx context.Context, userID, planID primitive.ObjectID) (*CheckoutSession, error) {
	// 1. Plan must exist and be on sale
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsPublished {
		return nil, ErrPlanNotFound
	}

	// 2. Reject before anything reaches the processor
	owned, err := s.entitlements.HasEntitlement(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, ErrAlreadyOwned
	}

	// 3. Processor holds the pending state from here on
	checkout, err := s.processor.CreateCheckout(ctx, payment.CheckoutRequest{
		PriceID: plan.PaddlePriceID,
		UserID:  userID.Hex(),
		PlanID:  planID.Hex(),
	})
	if err != nil {
		s.log.Error("checkout creation failed", "userId", userID.Hex(), "planId", planID.Hex(), "error", err)
		return nil, upstream(err)
	}

	s.log.Info("checkout started", "userId", userID.Hex(), "planId", planID.Hex(), "transactionId", checkout.TransactionID)
	return &CheckoutSession{Token: checkout.TransactionID, URL: checkout.URL}, nil
}
