package mongo

import (
	"context"
	"time"

	"github.com/alcyxob/planmarket/internal/domain"
	"github.com/alcyxob/planmarket/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const completionCollectionName = "completions"

type mongoCompletionRepository struct {
	collection *mongo.Collection
}

func NewMongoCompletionRepository(db *mongo.Database) repository.CompletionRepository {
	return &mongoCompletionRepository{
		collection: db.Collection(completionCollectionName),
	}
}

func completionKey(userID, planID primitive.ObjectID, weekID, dayID string) bson.M {
	return bson.M{"userId": userID, "planId": planID, "weekId": weekID, "dayId": dayID}
}

func (r *mongoCompletionRepository) InsertIfAbsent(ctx context.Context, c *domain.Completion) (repository.InsertResult, error) {
	id := primitive.NewObjectID()
	now := time.Now().UTC()

	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":            id,
			"contentVersion": c.ContentVersion,
			"completedAt":    now,
		},
	}
	result, err := r.collection.UpdateOne(ctx, completionKey(c.UserID, c.PlanID, c.WeekID, c.DayID), update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.AlreadyExists, nil
		}
		return 0, err
	}
	if result.UpsertedCount == 0 {
		return repository.AlreadyExists, nil
	}
	c.ID = id
	c.CompletedAt = now
	return repository.Created, nil
}

func (r *mongoCompletionRepository) Delete(ctx context.Context, userID, planID primitive.ObjectID, weekID, dayID string) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, completionKey(userID, planID, weekID, dayID))
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (r *mongoCompletionRepository) ListByUserAndPlan(ctx context.Context, userID, planID primitive.ObjectID) ([]domain.Completion, error) {
	completions := []domain.Completion{}
	findOptions := options.Find().SetSort(bson.D{{Key: "completedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID, "planId": planID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &completions); err != nil {
		return nil, err
	}
	return completions, nil
}

func EnsureCompletionIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "planId", Value: 1},
				{Key: "weekId", Value: 1},
				{Key: "dayId", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
