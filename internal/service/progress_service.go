package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alcyxob/planmarket/internal/content"
	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// CompletionState is the state of one day after a toggle.
type CompletionState struct {
	WeekID      string     `json:"weekId"`
	DayID       string     `json:"dayId"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Progress is measured against the plan's current content. Completions for
// days that no longer exist or are no longer workouts are not counted.
type Progress struct {
	PlanID    primitive.ObjectID `json:"planId"`
	Completed int                `json:"completed"`
	Total     int                `json:"total"`
	Ratio     float64            `json:"ratio"`
}

type ProgressService interface {
	ToggleCompletion(ctx context.Context, userID, planID primitive.ObjectID, weekID, dayID string) (*CompletionState, error)
	GetProgress(ctx context.Context, userID, planID primitive.ObjectID) (*Progress, error)
	ListCompletions(ctx context.Context, userID, planID primitive.ObjectID) ([]domain.Completion, error)
}

type progressService struct {
	planRepo       repository.PlanRepository
	completionRepo repository.CompletionRepository
	entitlements   EntitlementService
	log            *logger.Logger
}

func NewProgressService(
	planRepo repository.PlanRepository,
	completionRepo repository.CompletionRepository,
	entitlements EntitlementService,
	log *logger.Logger,
) ProgressService {
	return &progressService{
		planRepo:       planRepo,
		completionRepo: completionRepo,
		entitlements:   entitlements,
		log:            log,
	}
}

// loadOwned fetches the plan and checks entitlement concurrently. A missing
// entitlement wins over anything about the plan's content.
func (s *progressService) loadOwned(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Plan, error) {
	var plan *domain.Plan
	var owned bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		plan, err = s.planRepo.GetByID(gctx, planID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	})
	g.Go(func() error {
		var err error
		owned, err = s.entitlements.HasEntitlement(gctx, userID, planID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrNotEntitled
	}
	return plan, nil
}

func (s *progressService) ToggleCompletion(ctx context.Context, userID, planID primitive.ObjectID, weekID, dayID string) (*CompletionState, error) {
	plan, err := s.loadOwned(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	doc, err := decodePlanContent(plan)
	if err != nil {
		return nil, err
	}
	day, ok := doc.FindDay(weekID, dayID)
	if !ok || day.Type != content.DayWorkout {
		return nil, ErrInvalidReference
	}

	state := &CompletionState{WeekID: weekID, DayID: dayID}

	// Un-mark if present, otherwise mark. Both directions are idempotent
	// against the unique (user, plan, week, day) key.
	deleted, err := s.completionRepo.Delete(ctx, userID, planID, weekID, dayID)
	if err != nil {
		return nil, fmt.Errorf("toggle completion: %w", err)
	}
	if deleted {
		return state, nil
	}

	completion := &domain.Completion{
		UserID:         userID,
		PlanID:         planID,
		WeekID:         weekID,
		DayID:          dayID,
		ContentVersion: plan.ContentVersion,
	}
	result, err := s.completionRepo.InsertIfAbsent(ctx, completion)
	if err != nil {
		return nil, fmt.Errorf("toggle completion: %w", err)
	}
	state.Completed = true
	if result == repository.Created {
		at := completion.CompletedAt
		state.CompletedAt = &at
	}
	return state, nil
}

func (s *progressService) GetProgress(ctx context.Context, userID, planID primitive.ObjectID) (*Progress, error) {
	plan, err := s.loadOwned(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	doc, err := decodePlanContent(plan)
	if err != nil {
		return nil, err
	}
	completions, err := s.completionRepo.ListByUserAndPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	return computeProgress(planID, doc, completions), nil
}

func computeProgress(planID primitive.ObjectID, doc *content.Document, completions []domain.Completion) *Progress {
	workoutDays := doc.WorkoutDays()
	p := &Progress{PlanID: planID, Total: len(workoutDays)}
	if p.Total == 0 {
		return p
	}
	for _, c := range completions {
		if _, ok := workoutDays[content.DayKey{WeekID: c.WeekID, DayID: c.DayID}]; ok {
			p.Completed++
		}
	}
	p.Ratio = float64(p.Completed) / float64(p.Total)
	if p.Ratio > 1 {
		p.Ratio = 1
	}
	return p
}

func (s *progressService) ListCompletions(ctx context.Context, userID, planID primitive.ObjectID) ([]domain.Completion, error) {
	if _, err := s.loadOwned(ctx, userID, planID); err != nil {
		return nil, err
	}
	return s.completionRepo.ListByUserAndPlan(ctx, userID, planID)
}
