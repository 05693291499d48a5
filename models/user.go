package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UserCollectionName = "users"

// User is the lookup-side projection of a board member or owner. The users
// collection belongs to another service; password and verifyToken are stripped
// by the aggregation projection and have no place here.
type User struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email       string             `json:"email" bson:"email"`
	Username    string             `json:"username" bson:"username"`
	DisplayName string             `json:"displayName" bson:"displayName"`
	Avatar      string             `json:"avatar" bson:"avatar"`
	Role        string             `json:"role" bson:"role"`
	IsActive    bool               `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}
