package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const BoardCollectionName = "boards"

// Board visibility types
const (
	BoardTypePublic  = "public"
	BoardTypePrivate = "private"
)

// Background types
const (
	BackgroundTypeColor  = "color"
	BackgroundTypeImage  = "image"
	BackgroundTypeURL    = "url"
	BackgroundTypeUpload = "upload"
)

type Label struct {
	ID    string `json:"id" bson:"id" validate:"required"`
	Name  string `json:"name" bson:"name" validate:"required"`
	Color string `json:"color" bson:"color" validate:"required"`
}

// MemberNickname keeps userId as a hex string rather than an ObjectID so the
// stored documents stay compatible with the existing collection data.
type MemberNickname struct {
	UserID    string    `json:"userId" bson:"userId" validate:"required"`
	Nickname  string    `json:"nickname" bson:"nickname" validate:"required,min=1,max=50"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Board struct {
	ID               primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Title            string               `json:"title" bson:"title" validate:"required,min=3,max=50"`
	Slug             string               `json:"slug" bson:"slug" validate:"required,min=3"`
	Description      string               `json:"description" bson:"description" validate:"required,min=3,max=255"`
	BackgroundType   string               `json:"backgroundType" bson:"backgroundType" validate:"oneof=color image url upload"`
	BackgroundColor  string               `json:"backgroundColor" bson:"backgroundColor" validate:"omitempty,hexcolor"`
	BackgroundImage  string               `json:"backgroundImage" bson:"backgroundImage" validate:"omitempty,url"`
	BackgroundURL    string               `json:"backgroundUrl" bson:"backgroundUrl" validate:"omitempty,url"`
	BackgroundUpload string               `json:"backgroundUpload" bson:"backgroundUpload"`
	Type             string               `json:"type" bson:"type" validate:"required,oneof=public private"`
	ColumnOrderIDs   []primitive.ObjectID `json:"columnOrderIds" bson:"columnOrderIds"`
	OwnerIDs         []primitive.ObjectID `json:"ownerIds" bson:"ownerIds"`
	MemberIDs        []primitive.ObjectID `json:"memberIds" bson:"memberIds"`
	Labels           []Label              `json:"labels" bson:"labels" validate:"dive"`
	MemberNicknames  []MemberNickname     `json:"memberNicknames" bson:"memberNicknames" validate:"dive"`
	CreatedAt        time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt        *time.Time           `json:"updatedAt" bson:"updatedAt"`
	Destroy          bool                 `json:"_destroy" bson:"_destroy"`
}

// BoardWithDetails is the aggregate view of a board together with its columns,
// cards and the resolved owner/member user records.
type BoardWithDetails struct {
	Board   `bson:",inline"`
	Columns []Column `json:"columns" bson:"columns"`
	Cards   []Card   `json:"cards" bson:"cards"`
	Owners  []User   `json:"owners" bson:"owners"`
	Members []User   `json:"members" bson:"members"`
}

// BoardsPage is one page of a board listing plus the total match count.
type BoardsPage struct {
	Boards      []Board `json:"boards"`
	TotalBoards int64   `json:"totalBoards"`
}
