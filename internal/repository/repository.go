package repository

import (
	"context"

	"github.com/alcyxob/planmarket/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
	// ErrStale means a conditional write found the document changed since it was read.
	ErrStale = RepositoryError("stale write")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// InsertResult is the outcome of an insert-if-absent operation.
type InsertResult int

const (
	Created InsertResult = iota + 1
	AlreadyExists
)

func (r InsertResult) String() string {
	switch r {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// TxRunner runs fn as one atomic unit of work. Repository calls made with
// the ctx passed to fn participate in the transaction. fn may be invoked
// more than once when the store asks for a retry, so it must not have side
// effects outside the store.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	SetRatingAggregate(ctx context.Context, id primitive.ObjectID, avg domain.Decimal, count int) error
}

// PlanRepository defines the interface for interacting with plan data.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Plan, error)
	ListIDsByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]primitive.ObjectID, error)
	// Update writes metadata and content together, including the cached
	// content aggregates, in a single document update. It applies only while
	// the stored contentVersion equals expectedContentVersion; otherwise it
	// returns ErrStale.
	Update(ctx context.Context, plan *domain.Plan, expectedContentVersion int) error
	AddArchivedVersion(ctx context.Context, planID primitive.ObjectID, archived domain.ArchivedContent) error
	SetPublished(ctx context.Context, id primitive.ObjectID, published bool) error
	SetRatingAggregate(ctx context.Context, id primitive.ObjectID, avg domain.Decimal, count int) error
}

// PurchaseRepository is the entitlement store's persistence.
type PurchaseRepository interface {
	Exists(ctx context.Context, userID, planID primitive.ObjectID) (bool, error)
	// InsertIfAbsent stores p unless a purchase for (p.UserID, p.PlanID) exists.
	InsertIfAbsent(ctx context.Context, p *domain.Purchase) (InsertResult, error)
	Get(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Purchase, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Purchase, error)
}

// CompletionRepository stores per-user completed workout days.
type CompletionRepository interface {
	InsertIfAbsent(ctx context.Context, c *domain.Completion) (InsertResult, error)
	// Delete removes the completion, reporting whether one existed.
	Delete(ctx context.Context, userID, planID primitive.ObjectID, weekID, dayID string) (bool, error)
	ListByUserAndPlan(ctx context.Context, userID, planID primitive.ObjectID) ([]domain.Completion, error)
}

// ReviewRepository stores reviews and computes live rating statistics.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) (primitive.ObjectID, error)
	Get(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Review, error)
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, userID, planID primitive.ObjectID) error
	ListByPlan(ctx context.Context, planID primitive.ObjectID, limit int64) ([]domain.Review, error)
	StatsForPlans(ctx context.Context, planIDs []primitive.ObjectID) (domain.RatingStats, error)
}
