package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Purchase is the entitlement record: at most one per (UserID, PlanID).
// It is created only from a verified payment event and never updated.
type Purchase struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	PlanID       primitive.ObjectID `bson:"planId" json:"planId"`
	Amount       Decimal            `bson:"amount" json:"amount"`
	Currency     string             `bson:"currency" json:"currency"`
	ExternalTxID string             `bson:"externalTxId" json:"externalTxId"`
	EventID      string             `bson:"eventId,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
