package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a rating left by a purchaser. Unique per (UserID, PlanID).
type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	PlanID    primitive.ObjectID `bson:"planId" json:"planId"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RatingStats is the raw material for a rating aggregate: the sum and the
// number of ratings currently stored.
type RatingStats struct {
	Sum   int64 `bson:"sum"`
	Count int64 `bson:"count"`
}

// Average returns Sum/Count rounded half away from zero to places decimals,
// or zero when there are no ratings.
func (s RatingStats) Average(places int32) Decimal {
	if s.Count == 0 {
		return NewDecimal(decimal.Zero)
	}
	return NewDecimal(decimal.NewFromInt(s.Sum).DivRound(decimal.NewFromInt(s.Count), places))
}
