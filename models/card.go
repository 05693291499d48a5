package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CardCollectionName = "cards"

type Card struct {
	ID          primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	BoardID     primitive.ObjectID   `json:"boardId" bson:"boardId"`
	ColumnID    primitive.ObjectID   `json:"columnId" bson:"columnId"`
	Title       string               `json:"title" bson:"title"`
	Description string               `json:"description" bson:"description"`
	Cover       string               `json:"cover" bson:"cover"`
	MemberIDs   []primitive.ObjectID `json:"memberIds" bson:"memberIds"`
	LabelIDs    []string             `json:"labelIds" bson:"labelIds"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt   *time.Time           `json:"updatedAt" bson:"updatedAt"`
	Destroy     bool                 `json:"_destroy" bson:"_destroy"`
}
