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

const purchaseCollectionName = "purchases"

// mongoPurchaseRepository implements repository.PurchaseRepository.
type mongoPurchaseRepository struct {
	collection *mongo.Collection
}

func NewMongoPurchaseRepository(db *mongo.Database) repository.PurchaseRepository {
	return &mongoPurchaseRepository{
		collection: db.Collection(purchaseCollectionName),
	}
}

func (r *mongoPurchaseRepository) Exists(ctx context.Context, userID, planID primitive.ObjectID) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"userId": userID, "planId": planID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertIfAbsent upserts on (userId, planId) with $setOnInsert, so an
// existing row is never modified. Two concurrent upserts can both miss the
// filter; the loser then hits the unique index and is reported as
// AlreadyExists as well.
func (r *mongoPurchaseRepository) InsertIfAbsent(ctx context.Context, p *domain.Purchase) (repository.InsertResult, error) {
	if p.UserID == primitive.NilObjectID || p.PlanID == primitive.NilObjectID {
		return 0, errors.New("purchase requires userId and planId")
	}
	id := primitive.NewObjectID()
	now := time.Now().UTC()

	filter := bson.M{"userId": p.UserID, "planId": p.PlanID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":          id,
			"amount":       p.Amount,
			"currency":     p.Currency,
			"externalTxId": p.ExternalTxID,
			"eventId":      p.EventID,
			"createdAt":    now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.AlreadyExists, nil
		}
		return 0, err
	}
	if result.UpsertedCount == 0 {
		return repository.AlreadyExists, nil
	}
	p.ID = id
	p.CreatedAt = now
	return repository.Created, nil
}

func (r *mongoPurchaseRepository) Get(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Purchase, error) {
	var purchase domain.Purchase
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "planId": planID}).Decode(&purchase)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// ListByUser returns the user's purchases, newest first.
func (r *mongoPurchaseRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Purchase, error) {
	purchases := []domain.Purchase{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &purchases); err != nil {
		return nil, err
	}
	return purchases, nil
}

// EnsurePurchaseIndexes creates the (userId, planId) uniqueness constraint,
// the only serialization point for "has this user paid for this plan".
func EnsurePurchaseIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "planId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "externalTxId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
