package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Completion marks one workout day of an owned plan as done.
// Unique per (UserID, PlanID, WeekID, DayID).
type Completion struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	PlanID primitive.ObjectID `bson:"planId" json:"planId"`
	WeekID string             `bson:"weekId" json:"weekId"`
	DayID  string             `bson:"dayId" json:"dayId"`
	// ContentVersion is the plan content version the day was completed against.
	ContentVersion int       `bson:"contentVersion" json:"contentVersion"`
	CompletedAt    time.Time `bson:"completedAt" json:"completedAt"`
}
