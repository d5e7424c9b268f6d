package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alcyxob/planmarket/internal/content"
	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// PlanInput is the full editable state of a plan. Content replaces the
// stored document wholesale.
type PlanInput struct {
	Slug          string           `validate:"required,max=80,slug"`
	Title         string           `validate:"required,max=200"`
	Description   string           `validate:"max=5000"`
	Price         decimal.Decimal  `validate:"-"`
	OriginalPrice *decimal.Decimal `validate:"-"`
	Currency      string           `validate:"required,iso4217"`
	PaddlePriceID string           `validate:"max=100"`
	Content       json.RawMessage  `validate:"-"`
}

// PlanView is a plan as seen by one viewer. Content is the full document
// for the creator and for owners, and a preview otherwise.
type PlanView struct {
	Plan      *domain.Plan      `json:"plan"`
	Content   *content.Document `json:"content"`
	Owned     bool              `json:"owned"`
	IsCreator bool              `json:"isCreator"`
	Preview   bool              `json:"preview"`
}

// OwnedPlan pairs a purchase with the plan it unlocks.
type OwnedPlan struct {
	Plan     domain.Plan     `json:"plan"`
	Purchase domain.Purchase `json:"purchase"`
}

// ContentArchiver stores superseded content versions.
type ContentArchiver interface {
	Archive(ctx context.Context, planID string, version int, raw string) (string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
	Discard(ctx context.Context, key string) error
}

// ContentVersionLink is a time-limited download link for an archived version.
type ContentVersionLink struct {
	Version    int       `json:"version"`
	URL        string    `json:"url"`
	ArchivedAt time.Time `json:"archivedAt"`
}

type PlanService interface {
	CreatePlan(ctx context.Context, creatorID primitive.ObjectID, input PlanInput) (*domain.Plan, error)
	UpdatePlan(ctx context.Context, creatorID, planID primitive.ObjectID, input PlanInput) (*domain.Plan, error)
	SetPublished(ctx context.Context, creatorID, planID primitive.ObjectID, published bool) (*domain.Plan, error)
	GetContent(ctx context.Context, planID primitive.ObjectID) (*content.Document, error)
	GetPlanView(ctx context.Context, viewerID, planID primitive.ObjectID) (*PlanView, error)
	ListOwnedPlans(ctx context.Context, userID primitive.ObjectID) ([]OwnedPlan, error)
	ContentVersionURL(ctx context.Context, creatorID, planID primitive.ObjectID, version int) (*ContentVersionLink, error)
}

type planService struct {
	planRepo     repository.PlanRepository
	userRepo     repository.UserRepository
	entitlements EntitlementService
	archive      ContentArchiver // optional
	log          *logger.Logger
}

// NewPlanService creates the plan service. archive may be nil.
func NewPlanService(
	planRepo repository.PlanRepository,
	userRepo repository.UserRepository,
	entitlements EntitlementService,
	archive ContentArchiver,
	log *logger.Logger,
) PlanService {
	return &planService{
		planRepo:     planRepo,
		userRepo:     userRepo,
		entitlements: entitlements,
		archive:      archive,
		log:          log,
	}
}

// preparedInput is a validated input with its normalized content.
type preparedInput struct {
	input   PlanInput
	doc     *content.Document
	encoded string
	summary content.Summary
}

func prepare(input PlanInput) (*preparedInput, error) {
	input.Slug = strings.TrimSpace(input.Slug)
	input.Title = strings.TrimSpace(input.Title)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))

	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, invalidInput("%s failed %q", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return nil, invalidInput("invalid plan")
	}
	if input.Price.IsNegative() {
		return nil, invalidInput("price must not be negative")
	}
	if input.OriginalPrice != nil && !input.OriginalPrice.GreaterThan(input.Price) {
		return nil, invalidInput("originalPrice must be greater than price")
	}

	doc, err := content.Parse(input.Content)
	if err != nil {
		var verr *content.ValidationError
		switch {
		case errors.As(err, &verr):
			return nil, &Error{Kind: KindInvalidInput, Message: verr.Error(), Err: err}
		case errors.Is(err, content.ErrUnsupportedSchema), errors.Is(err, content.ErrMalformed):
			return nil, &Error{Kind: KindInvalidInput, Message: err.Error(), Err: err}
		default:
			return nil, err
		}
	}
	encoded, err := content.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return &preparedInput{input: input, doc: doc, encoded: string(encoded), summary: content.Summarize(doc)}, nil
}

// apply copies the prepared input onto plan, content aggregates included.
func (p *preparedInput) apply(plan *domain.Plan) {
	plan.Slug = p.input.Slug
	plan.Title = p.input.Title
	plan.Description = p.input.Description
	plan.Price = domain.NewDecimal(p.input.Price)
	plan.OriginalPrice = nil
	if p.input.OriginalPrice != nil {
		op := domain.NewDecimal(*p.input.OriginalPrice)
		plan.OriginalPrice = &op
	}
	plan.Currency = p.input.Currency
	plan.PaddlePriceID = p.input.PaddlePriceID
	plan.Content = p.encoded
	plan.SchemaVersion = p.doc.SchemaVersion
	plan.TotalWeeks = p.summary.Weeks
	plan.TotalWorkouts = p.summary.Workouts
	plan.TotalMinutes = p.summary.Minutes
}

func (s *planService) requireCreator(ctx context.Context, userID primitive.ObjectID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !user.IsCreator() {
		return ErrNotCreator
	}
	return nil
}

func (s *planService) loadPlan(ctx context.Context, planID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

func (s *planService) loadOwnPlan(ctx context.Context, creatorID, planID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.OwnedBy(creatorID) {
		return nil, ErrNotPlanOwner
	}
	return plan, nil
}

func (s *planService) CreatePlan(ctx context.Context, creatorID primitive.ObjectID, input PlanInput) (*domain.Plan, error) {
	prepared, err := prepare(input)
	if err != nil {
		return nil, err
	}
	if err := s.requireCreator(ctx, creatorID); err != nil {
		return nil, err
	}

	plan := &domain.Plan{CreatorID: creatorID, ContentVersion: 1}
	prepared.apply(plan)

	if _, err := s.planRepo.Create(ctx, plan); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	s.log.Info("plan created", "planId", plan.ID.Hex(), "creatorId", creatorID.Hex(), "workouts", plan.TotalWorkouts)
	return plan, nil
}

func (s *planService) UpdatePlan(ctx context.Context, creatorID, planID primitive.ObjectID, input PlanInput) (*domain.Plan, error) {
	prepared, err := prepare(input)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadOwnPlan(ctx, creatorID, planID)
	if err != nil {
		return nil, err
	}

	previous := plan.Content
	previousVersion := plan.ContentVersion
	prepared.apply(plan)
	contentChanged := previous != plan.Content
	if contentChanged {
		plan.ContentVersion++
	}

	if err := s.planRepo.Update(ctx, plan, previousVersion); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrSlugTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrPlanNotFound
		case errors.Is(err, repository.ErrStale):
			return nil, ErrPlanModified
		}
		return nil, err
	}

	if contentChanged && s.archive != nil && previousVersion > 0 {
		s.archiveVersion(ctx, plan, previousVersion, previous)
	}
	return plan, nil
}

// archiveVersion stores a superseded version. Failures are logged only; the
// save that superseded it has already committed.
func (s *planService) archiveVersion(ctx context.Context, plan *domain.Plan, version int, raw string) {
	log := s.log.With("planId", plan.ID.Hex(), "version", version)
	key, err := s.archive.Archive(ctx, plan.ID.Hex(), version, raw)
	if err != nil {
		log.Warn("failed to archive previous content", "error", err)
		return
	}
	archived := domain.ArchivedContent{Version: version, Key: key, ArchivedAt: time.Now().UTC()}
	if err := s.planRepo.AddArchivedVersion(ctx, plan.ID, archived); err != nil {
		log.Warn("failed to record archived content", "key", key, "error", err)
		if derr := s.archive.Discard(ctx, key); derr != nil {
			log.Warn("failed to discard unrecorded archive object", "key", key, "error", derr)
		}
		return
	}
	plan.ArchivedVersions = append(plan.ArchivedVersions, archived)
	log.Debug("archived content version", "key", key)
}

func (s *planService) ContentVersionURL(ctx context.Context, creatorID, planID primitive.ObjectID, version int) (*ContentVersionLink, error) {
	plan, err := s.loadOwnPlan(ctx, creatorID, planID)
	if err != nil {
		return nil, err
	}
	archived, ok := plan.ArchivedVersion(version)
	if !ok || s.archive == nil {
		return nil, ErrVersionNotFound
	}
	url, err := s.archive.DownloadURL(ctx, archived.Key)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return &ContentVersionLink{Version: archived.Version, URL: url, ArchivedAt: archived.ArchivedAt}, nil
}

func (s *planService) SetPublished(ctx context.Context, creatorID, planID primitive.ObjectID, published bool) (*domain.Plan, error) {
	plan, err := s.loadOwnPlan(ctx, creatorID, planID)
	if err != nil {
		return nil, err
	}
	if published && plan.TotalWorkouts == 0 {
		return nil, invalidInput("a plan needs at least one workout day to be published")
	}
	if err := s.planRepo.SetPublished(ctx, planID, published); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	plan.IsPublished = published
	return plan, nil
}

func (s *planService) GetContent(ctx context.Context, planID primitive.ObjectID) (*content.Document, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return decodePlanContent(plan)
}

func decodePlanContent(plan *domain.Plan) (*content.Document, error) {
	doc, err := content.Decode([]byte(plan.Content))
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", plan.ID.Hex(), err)
	}
	return doc, nil
}

func (s *planService) GetPlanView(ctx context.Context, viewerID, planID primitive.ObjectID) (*PlanView, error) {
	var plan *domain.Plan
	var owned bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		plan, err = s.loadPlan(gctx, planID)
		return err
	})
	g.Go(func() error {
		var err error
		owned, err = s.entitlements.HasEntitlement(gctx, viewerID, planID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	isCreator := plan.OwnedBy(viewerID)
	if !plan.IsPublished && !isCreator {
		return nil, ErrPlanNotFound
	}

	doc, err := decodePlanContent(plan)
	if err != nil {
		return nil, err
	}
	view := &PlanView{Plan: plan, Owned: owned, IsCreator: isCreator, Content: doc}
	if !owned && !isCreator {
		view.Content = doc.Preview()
		view.Preview = true
	}
	return view, nil
}

func (s *planService) ListOwnedPlans(ctx context.Context, userID primitive.ObjectID) ([]OwnedPlan, error) {
	purchases, err := s.entitlements.ListPurchases(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(purchases))
	for _, p := range purchases {
		ids = append(ids, p.PlanID)
	}
	plans, err := s.planRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.Plan, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}

	// Keep purchase order (newest first).
	owned := make([]OwnedPlan, 0, len(purchases))
	for _, purchase := range purchases {
		plan, ok := byID[purchase.PlanID]
		if !ok {
			continue
		}
		owned = append(owned, OwnedPlan{Plan: plan, Purchase: purchase})
	}
	return owned, nil
}
