package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GrantRequest carries a verified payment.
type GrantRequest struct {
	UserID       primitive.ObjectID
	PlanID       primitive.ObjectID
	Amount       decimal.Decimal
	Currency     string
	ExternalTxID string
	EventID      string
}

// EntitlementService is the only way purchases are read or created.
type EntitlementService interface {
	HasEntitlement(ctx context.Context, userID, planID primitive.ObjectID) (bool, error)
	// Grant creates the purchase for (UserID, PlanID) unless one exists. A
	// second grant for the same pair returns the stored purchase and
	// repository.AlreadyExists; it is not an error.
	Grant(ctx context.Context, req GrantRequest) (*domain.Purchase, repository.InsertResult, error)
	GetPurchase(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, userID primitive.ObjectID) ([]domain.Purchase, error)
}

type entitlementService struct {
	purchaseRepo repository.PurchaseRepository
	log          *logger.Logger
}

func NewEntitlementService(purchaseRepo repository.PurchaseRepository, log *logger.Logger) EntitlementService {
	return &entitlementService{purchaseRepo: purchaseRepo, log: log}
}

func (s *entitlementService) HasEntitlement(ctx context.Context, userID, planID primitive.ObjectID) (bool, error) {
	if userID == primitive.NilObjectID || planID == primitive.NilObjectID {
		return false, nil
	}
	return s.purchaseRepo.Exists(ctx, userID, planID)
}

func (s *entitlementService) Grant(ctx context.Context, req GrantRequest) (*domain.Purchase, repository.InsertResult, error) {
	if req.UserID == primitive.NilObjectID || req.PlanID == primitive.NilObjectID {
		return nil, 0, invalidInput("user and plan are required")
	}
	if req.ExternalTxID == "" {
		return nil, 0, invalidInput("external transaction id is required")
	}
	if req.Amount.IsNegative() {
		return nil, 0, invalidInput("amount must not be negative")
	}

	purchase := &domain.Purchase{
		UserID:       req.UserID,
		PlanID:       req.PlanID,
		Amount:       domain.NewDecimal(req.Amount),
		Currency:     req.Currency,
		ExternalTxID: req.ExternalTxID,
		EventID:      req.EventID,
	}
	result, err := s.purchaseRepo.InsertIfAbsent(ctx, purchase)
	if err != nil {
		return nil, 0, fmt.Errorf("grant entitlement: %w", err)
	}
	if result == repository.Created {
		s.log.Info("entitlement granted",
			"userId", req.UserID.Hex(), "planId", req.PlanID.Hex(), "externalTxId", req.ExternalTxID)
		return purchase, result, nil
	}

	existing, err := s.purchaseRepo.Get(ctx, req.UserID, req.PlanID)
	if err != nil {
		return nil, 0, fmt.Errorf("load existing entitlement: %w", err)
	}
	if existing.ExternalTxID != req.ExternalTxID {
		// A second, different payment for a plan the user already owns.
		s.log.Warn("duplicate payment for owned plan",
			"userId", req.UserID.Hex(), "planId", req.PlanID.Hex(),
			"existingTxId", existing.ExternalTxID, "externalTxId", req.ExternalTxID)
	}
	return existing, result, nil
}

func (s *entitlementService) GetPurchase(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.Get(ctx, userID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return purchase, nil
}

func (s *entitlementService) ListPurchases(ctx context.Context, userID primitive.ObjectID) ([]domain.Purchase, error) {
	return s.purchaseRepo.ListByUser(ctx, userID)
}
