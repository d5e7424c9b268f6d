package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleCreator Role = "creator"
	RoleMember  Role = "member"
)

// User represents an account. Creators additionally carry a rating
// aggregate over every review left on any of their plans.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Role      Role               `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	// --- Creator-specific, written only by the review transaction ---
	AvgRating Decimal `bson:"avgRating" json:"avgRating"`
	NoReviews int     `bson:"noReviews" json:"noReviews"`
}

func (u *User) IsCreator() bool {
	return u.Role == RoleCreator
}
