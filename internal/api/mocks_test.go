package api

import (
	"context"

	"github.com/alcyxob/planmarket/internal/content"
	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/service"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockCheckoutService struct{ mock.Mock }

func (m *mockCheckoutService) StartCheckout(ctx context.Context, userID, planID primitive.ObjectID) (*service.CheckoutSession, error) {
	args := m.Called(ctx, userID, planID)
	session, _ := args.Get(0).(*service.CheckoutSession)
	return session, args.Error(1)
}

type mockEventService struct{ mock.Mock }

func (m *mockEventService) HandlePaymentEvent(ctx context.Context, body []byte, signature string) error {
	return m.Called(ctx, body, signature).Error(0)
}

type mockPlanService struct{ mock.Mock }

func (m *mockPlanService) CreatePlan(ctx context.Context, creatorID primitive.ObjectID, input service.PlanInput) (*domain.Plan, error) {
	args := m.Called(ctx, creatorID, input)
	plan, _ := args.Get(0).(*domain.Plan)
	return plan, args.Error(1)
}

func (m *mockPlanService) UpdatePlan(ctx context.Context, creatorID, planID primitive.ObjectID, input service.PlanInput) (*domain.Plan, error) {
	args := m.Called(ctx, creatorID, planID, input)
	plan, _ := args.Get(0).(*domain.Plan)
	return plan, args.Error(1)
}

func (m *mockPlanService) SetPublished(ctx context.Context, creatorID, planID primitive.ObjectID, published bool) (*domain.Plan, error) {
	args := m.Called(ctx, creatorID, planID, published)
	plan, _ := args.Get(0).(*domain.Plan)
	return plan, args.Error(1)
}

func (m *mockPlanService) GetContent(ctx context.Context, planID primitive.ObjectID) (*content.Document, error) {
	args := m.Called(ctx, planID)
	doc, _ := args.Get(0).(*content.Document)
	return doc, args.Error(1)
}

func (m *mockPlanService) GetPlanView(ctx context.Context, viewerID, planID primitive.ObjectID) (*service.PlanView, error) {
	args := m.Called(ctx, viewerID, planID)
	view, _ := args.Get(0).(*service.PlanView)
	return view, args.Error(1)
}

func (m *mockPlanService) ListOwnedPlans(ctx context.Context, userID primitive.ObjectID) ([]service.OwnedPlan, error) {
	args := m.Called(ctx, userID)
	plans, _ := args.Get(0).([]service.OwnedPlan)
	return plans, args.Error(1)
}

func (m *mockPlanService) ContentVersionURL(ctx context.Context, creatorID, planID primitive.ObjectID, version int) (*service.ContentVersionLink, error) {
	args := m.Called(ctx, creatorID, planID, version)
	link, _ := args.Get(0).(*service.ContentVersionLink)
	return link, args.Error(1)
}

type mockProgressService struct{ mock.Mock }

func (m *mockProgressService) ToggleCompletion(ctx context.Context, userID, planID primitive.ObjectID, weekID, dayID string) (*service.CompletionState, error) {
	args := m.Called(ctx, userID, planID, weekID, dayID)
	state, _ := args.Get(0).(*service.CompletionState)
	return state, args.Error(1)
}

func (m *mockProgressService) GetProgress(ctx context.Context, userID, planID primitive.ObjectID) (*service.Progress, error) {
	args := m.Called(ctx, userID, planID)
	progress, _ := args.Get(0).(*service.Progress)
	return progress, args.Error(1)
}

func (m *mockProgressService) ListCompletions(ctx context.Context, userID, planID primitive.ObjectID) ([]domain.Completion, error) {
	args := m.Called(ctx, userID, planID)
	completions, _ := args.Get(0).([]domain.Completion)
	return completions, args.Error(1)
}

type mockReviewService struct{ mock.Mock }

func (m *mockReviewService) SubmitReview(ctx context.Context, userID, planID primitive.ObjectID, rating int, comment string) (*domain.Review, error) {
	args := m.Called(ctx, userID, planID, rating, comment)
	review, _ := args.Get(0).(*domain.Review)
	return review, args.Error(1)
}

func (m *mockReviewService) UpdateReview(ctx context.Context, userID, planID primitive.ObjectID, rating int, comment string) (*domain.Review, error) {
	args := m.Called(ctx, userID, planID, rating, comment)
	review, _ := args.Get(0).(*domain.Review)
	return review, args.Error(1)
}

func (m *mockReviewService) DeleteReview(ctx context.Context, userID, planID primitive.ObjectID) error {
	return m.Called(ctx, userID, planID).Error(0)
}

func (m *mockReviewService) GetReview(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Review, error) {
	args := m.Called(ctx, userID, planID)
	review, _ := args.Get(0).(*domain.Review)
	return review, args.Error(1)
}

func (m *mockReviewService) ListPlanReviews(ctx context.Context, planID primitive.ObjectID, limit int) ([]domain.Review, error) {
	args := m.Called(ctx, planID, limit)
	reviews, _ := args.Get(0).([]domain.Review)
	return reviews, args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }
