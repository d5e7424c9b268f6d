// internal/repository/mongo/plan_repo.go
package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planCollectionName = "plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new Plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan. A slug already used by the same creator yields repository.ErrDuplicate.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.CreatorID == primitive.NilObjectID || plan.Slug == "" {
		return primitive.NilObjectID, errors.New("plan requires creatorId and slug")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single plan by its ID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByIDs retrieves plans by ID. Missing IDs are skipped.
func (r *mongoPlanRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Plan, error) {
	plans := []domain.Plan{}
	if len(ids) == 0 {
		return plans, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// ListIDsByCreator returns the IDs of every plan owned by creatorID.
func (r *mongoPlanRepository) ListIDsByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]primitive.ObjectID, error) {
	findOptions := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"creatorId": creatorID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// Update replaces the editable fields. Content and its cached aggregates go
// out in the same $set so a reader never sees one without the other.
// CreatorID, CreatedAt and the rating aggregate are not touched. The filter
// on contentVersion makes concurrent saves of one plan fail instead of both
// claiming the same next version.
func (r *mongoPlanRepository) Update(ctx context.Context, plan *domain.Plan, expectedContentVersion int) error {
	if plan.ID == primitive.NilObjectID {
		return errors.New("plan ID is required for update")
	}

	set := bson.M{
		"slug":           plan.Slug,
		"title":          plan.Title,
		"description":    plan.Description,
		"price":          plan.Price,
		"currency":       plan.Currency,
		"paddlePriceId":  plan.PaddlePriceID,
		"content":        plan.Content,
		"schemaVersion":  plan.SchemaVersion,
		"contentVersion": plan.ContentVersion,
		"totalWeeks":     plan.TotalWeeks,
		"totalWorkouts":  plan.TotalWorkouts,
		"totalMinutes":   plan.TotalMinutes,
		"updatedAt":      time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if plan.OriginalPrice != nil {
		set["originalPrice"] = *plan.OriginalPrice
	} else {
		update["$unset"] = bson.M{"originalPrice": ""}
	}

	filter := bson.M{"_id": plan.ID, "contentVersion": expectedContentVersion}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": plan.ID}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrStale
	}
	return nil
}

// AddArchivedVersion appends an archive entry to the plan.
func (r *mongoPlanRepository) AddArchivedVersion(ctx context.Context, planID primitive.ObjectID, archived domain.ArchivedContent) error {
	update := bson.M{"$push": bson.M{"archivedVersions": archived}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": planID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoPlanRepository) SetPublished(ctx context.Context, id primitive.ObjectID, published bool) error {
	update := bson.M{"$set": bson.M{"isPublished": published, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetRatingAggregate overwrites the plan-level rating aggregate.
func (r *mongoPlanRepository) SetRatingAggregate(ctx context.Context, id primitive.ObjectID, avg domain.Decimal, count int) error {
	update := bson.M{"$set": bson.M{"avgRating": avg, "noReviews": count}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Slugs are namespaced per creator.
			Keys:    bson.D{{Key: "creatorId", Value: 1}, {Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "isPublished", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
