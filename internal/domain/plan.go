package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Plan is a purchasable training program published by a creator.
type Plan struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatorID     primitive.ObjectID `bson:"creatorId" json:"creatorId"`
	Slug          string             `bson:"slug" json:"slug"` // unique per creator
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Price         Decimal            `bson:"price" json:"price"`
	OriginalPrice *Decimal           `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	Currency      string             `bson:"currency" json:"currency"`
	PaddlePriceID string             `bson:"paddlePriceId" json:"-"` // catalog price used at checkout
	IsPublished   bool               `bson:"isPublished" json:"isPublished"`

	// Content is the raw JSON document. It is replaced wholesale on every save.
	Content        string `bson:"content" json:"-"`
	SchemaVersion  int    `bson:"schemaVersion" json:"schemaVersion"`
	ContentVersion int    `bson:"contentVersion" json:"contentVersion"`

	// Denormalized from Content; refreshed in the same write as Content.
	TotalWeeks    int `bson:"totalWeeks" json:"totalWeeks"`
	TotalWorkouts int `bson:"totalWorkouts" json:"totalWorkouts"`
	TotalMinutes  int `bson:"totalMinutes" json:"totalMinutes"`

	// Rating aggregate, written only by the review transaction.
	AvgRating Decimal `bson:"avgRating" json:"avgRating"`
	NoReviews int     `bson:"noReviews" json:"noReviews"`

	// Superseded content versions stored in object storage.
	ArchivedVersions []ArchivedContent `bson:"archivedVersions,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ArchivedContent points at the stored copy of one superseded content version.
type ArchivedContent struct {
	Version    int       `bson:"version" json:"version"`
	Key        string    `bson:"key" json:"-"`
	ArchivedAt time.Time `bson:"archivedAt" json:"archivedAt"`
}

// ArchivedVersion returns the archive entry for version, if any.
func (p *Plan) ArchivedVersion(version int) (ArchivedContent, bool) {
	for _, a := range p.ArchivedVersions {
		if a.Version == version {
			return a, true
		}
	}
	return ArchivedContent{}, false
}

// OwnedBy reports whether userID is the plan's creator.
func (p *Plan) OwnedBy(userID primitive.ObjectID) bool {
	return p.CreatorID == userID
}
