package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxCommentLength      = 2000
	DefaultReviewPageSize = 20
	MaxReviewPageSize     = 100

	planRatingPlaces    = 2
	creatorRatingPlaces = 1
)

type ReviewService interface {
	SubmitReview(ctx context.Context, userID, planID primitive.ObjectID, rating int, comment string) (*domain.Review, error)
	UpdateReview(ctx context.Context, userID, planID primitive.ObjectID, rating int, comment string) (*domain.Review, error)
	DeleteReview(ctx context.Context, userID, planID primitive.ObjectID) error
	GetReview(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Review, error)
	ListPlanReviews(ctx context.Context, planID primitive.ObjectID, limit int) ([]domain.Review, error)
}

// reviewService keeps the plan and creator rating aggregates equal to a
// full rescan of the review collection. Every mutation and both rescans run
// in one transaction.
type reviewService struct {
	tx           repository.TxRunner
	reviewRepo   repository.ReviewRepository
	planRepo     repository.PlanRepository
	userRepo     repository.UserRepository
	purchaseRepo repository.PurchaseRepository
	log          *logger.Logger
}

func NewReviewService(
	tx repository.TxRunner,
	reviewRepo repository.ReviewRepository,
	planRepo repository.PlanRepository,
	userRepo repository.UserRepository,
	purchaseRepo repository.PurchaseRepository,
	log *logger.Logger,
) ReviewService {
	return &reviewService{
		tx:           tx,
		reviewRepo:   reviewRepo,
		planRepo:     planRepo,
		userRepo:     userRepo,
		purchaseRepo: purchaseRepo,
		log:          log,
	}
}

func cleanReviewInput(rating int, comment string) (string, error) {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return "", invalidInput("rating must be between %d and %d", domain.MinRating, domain.MaxRating)
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return "", invalidInput("comment must be at most %d characters", MaxCommentLength)
	}
	return comment, nil
}

func (s *reviewService) getPlan(ctx context.Context, planID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

func (s *reviewService) SubmitReview(ctx context.Context, userID, planID primitive.ObjectID, rating int, comment string) (*domain.Review, error) {
	comment, err := cleanReviewInput(rating, comment)
	if err != nil {
		return nil, err
	}

	var review *domain.Review
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		plan, err := s.getPlan(ctx, planID)
		if err != nil {
			return err
		}
		owned, err := s.purchaseRepo.Exists(ctx, userID, planID)
		if err != nil {
			return err
		}
		if !owned {
			return ErrReviewNotEntitled
		}

		r := &domain.Review{UserID: userID, PlanID: planID, Rating: rating, Comment: comment}
		if _, err := s.reviewRepo.Create(ctx, r); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrReviewExists
			}
			return err
		}
		if err := s.recompute(ctx, plan); err != nil {
			return err
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("review submitted", "userId", userID.Hex(), "planId", planID.Hex(), "rating", rating)
	return review, nil
}

func (s *reviewService) UpdateReview(ctx context.Context, userID, planID primitive.ObjectID, rating int, comment string) (*domain.Review, error) {
	comment, err := cleanReviewInput(rating, comment)
	if err != nil {
		return nil, err
	}

	var review *domain.Review
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		plan, err := s.getPlan(ctx, planID)
		if err != nil {
			return err
		}
		r, err := s.reviewRepo.Get(ctx, userID, planID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReviewNotFound
			}
			return err
		}
		r.Rating = rating
		r.Comment = comment
		if err := s.reviewRepo.Update(ctx, r); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReviewNotFound
			}
			return err
		}
		if err := s.recompute(ctx, plan); err != nil {
			return err
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, userID, planID primitive.ObjectID) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		plan, err := s.getPlan(ctx, planID)
		if err != nil {
			return err
		}
		if err := s.reviewRepo.Delete(ctx, userID, planID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReviewNotFound
			}
			return err
		}
		return s.recompute(ctx, plan)
	})
	if err != nil {
		return err
	}
	s.log.Info("review deleted", "userId", userID.Hex(), "planId", planID.Hex())
	return nil
}

// recompute rescans reviews and overwrites both aggregates. It must run
// inside the transaction that changed the reviews.
func (s *reviewService) recompute(ctx context.Context, plan *domain.Plan) error {
	planStats, err := s.reviewRepo.StatsForPlans(ctx, []primitive.ObjectID{plan.ID})
	if err != nil {
		return fmt.Errorf("plan rating stats: %w", err)
	}
	if err := s.planRepo.SetRatingAggregate(ctx, plan.ID, planStats.Average(planRatingPlaces), int(planStats.Count)); err != nil {
		return fmt.Errorf("write plan rating: %w", err)
	}

	planIDs, err := s.planRepo.ListIDsByCreator(ctx, plan.CreatorID)
	if err != nil {
		return fmt.Errorf("list creator plans: %w", err)
	}
	creatorStats, err := s.reviewRepo.StatsForPlans(ctx, planIDs)
	if err != nil {
		return fmt.Errorf("creator rating stats: %w", err)
	}
	if err := s.userRepo.SetRatingAggregate(ctx, plan.CreatorID, creatorStats.Average(creatorRatingPlaces), int(creatorStats.Count)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("write creator rating: %w", err)
	}
	return nil
}

func (s *reviewService) GetReview(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Review, error) {
	review, err := s.reviewRepo.Get(ctx, userID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

func (s *reviewService) ListPlanReviews(ctx context.Context, planID primitive.ObjectID, limit int) ([]domain.Review, error) {
	if _, err := s.getPlan(ctx, planID); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultReviewPageSize
	case limit > MaxReviewPageSize:
		limit = MaxReviewPageSize
	}
	return s.reviewRepo.ListByPlan(ctx, planID, int64(limit))
}
