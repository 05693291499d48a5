package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ColumnCollectionName = "columns"

type Column struct {
	ID           primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	BoardID      primitive.ObjectID   `json:"boardId" bson:"boardId"`
	Title        string               `json:"title" bson:"title"`
	CardOrderIDs []primitive.ObjectID `json:"cardOrderIds" bson:"cardOrderIds"`
	CreatedAt    time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt    *time.Time           `json:"updatedAt" bson:"updatedAt"`
	Destroy      bool                 `json:"_destroy" bson:"_destroy"`
}
