package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"trello-project/microservices/boards-service/logging"
	"trello-project/microservices/boards-service/models"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fields that update() silently drops; they are immutable after creation.
var invalidUpdateFields = map[string]bool{
	"id":        true,
	"_id":       true,
	"createdAt": true,
}

// Allow-list of fields the board listing may filter on. Every entry becomes a
// case-insensitive substring match; anything else in the query is ignored.
var filterableBoardFields = map[string]bool{
	"title":       true,
	"slug":        true,
	"description": true,
}

type BoardService struct {
	BoardsCollection *mongo.Collection
	Validator        *validator.Validate
}

// NewBoardService initializes a BoardService with the boards collection. The
// columns, cards and users collections are reached through $lookup stages and
// must live in the same database.
func NewBoardService(boardsCollection *mongo.Collection) *BoardService {
	return &BoardService{
		BoardsCollection: boardsCollection,
		Validator:        validator.New(),
	}
}

// pagingSkipValue computes how many documents the previous pages cover. Page
// numbers are 1-based; anything below that falls back to the first page.
func pagingSkipValue(page, itemsPerPage int64) int64 {
	if page <= 0 || itemsPerPage <= 0 {
		return 0
	}
	return (page - 1) * itemsPerPage
}

func (s *BoardService) validateBeforeCreate(board *models.Board) error {
	err := s.Validator.Struct(board)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("board validation failed: %w", err)
	}

	violations := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		violations = append(violations, fmt.Sprintf("field %s failed on the %s rule", fe.Field(), fe.Tag()))
	}
	return &ValidationError{Violations: violations}
}

// CreateBoard validates the board against the schema rules, applies defaults
// and inserts it with the creator as the sole owner.
func (s *BoardService) CreateBoard(ctx context.Context, creatorID primitive.ObjectID, board *models.Board) (primitive.ObjectID, error) {
	if board.BackgroundType == "" {
		board.BackgroundType = models.BackgroundTypeColor
	}
	if board.ColumnOrderIDs == nil {
		board.ColumnOrderIDs = []primitive.ObjectID{}
	}
	if board.MemberIDs == nil {
		board.MemberIDs = []primitive.ObjectID{}
	}
	if board.Labels == nil {
		board.Labels = []models.Label{}
	}
	if board.MemberNicknames == nil {
		board.MemberNicknames = []models.MemberNickname{}
	}

	if err := s.validateBeforeCreate(board); err != nil {
		return primitive.NilObjectID, err
	}

	board.ID = primitive.NewObjectID()
	board.OwnerIDs = []primitive.ObjectID{creatorID}
	board.CreatedAt = time.Now()
	board.UpdatedAt = nil
	board.Destroy = false

	result, err := s.BoardsCollection.InsertOne(ctx, board)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to create board: %w", err)
	}

	logging.Logger.Infof("Event ID: BOARD_CREATED, Description: Board %s created by user %s", board.ID.Hex(), creatorID.Hex())
	return result.InsertedID.(primitive.ObjectID), nil
}

// FindBoardByID returns the board with the given id, excluding soft-deleted
// boards. A missing board yields (nil, nil), not an error.
func (s *BoardService) FindBoardByID(ctx context.Context, boardID primitive.ObjectID) (*models.Board, error) {
	var board models.Board
	err := s.BoardsCollection.FindOne(ctx, bson.M{"_id": boardID, "_destroy": false}).Decode(&board)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch board: %w", err)
	}
	return &board, nil
}

// FindBoardByIDInternal looks the board up regardless of its delete status.
// Reserved for administrative and audit callers.
func (s *BoardService) FindBoardByIDInternal(ctx context.Context, boardID primitive.ObjectID) (*models.Board, error) {
	var board models.Board
	err := s.BoardsCollection.FindOne(ctx, bson.M{"_id": boardID}).Decode(&board)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch board: %w", err)
	}
	return &board, nil
}

// memberOrOwnerCondition matches boards where the user appears in ownerIds or
// memberIds.
func memberOrOwnerCondition(userID primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"ownerIds": bson.M{"$all": bson.A{userID}}},
		bson.M{"memberIds": bson.M{"$all": bson.A{userID}}},
	}}
}

// GetBoardDetails returns the board enriched with its columns, cards and the
// resolved owner/member user records. The whole call returns (nil, nil) unless
// the board exists, is not deleted and the user belongs to it.
func (s *BoardService) GetBoardDetails(ctx context.Context, userID, boardID primitive.ObjectID) (*models.BoardWithDetails, error) {
	matchConditions := bson.A{
		bson.M{"_id": boardID},
		bson.M{"_destroy": false},
		memberOrOwnerCondition(userID),
	}

	// $project with zeroed fields strips credentials from the joined users.
	userProjection := bson.A{bson.M{"$project": bson.M{"password": 0, "verifyToken": 0}}}
	childPipeline := bson.A{
		bson.M{"$match": bson.M{"_destroy": false}},
		bson.M{"$sort": bson.M{"createdAt": 1}},
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$and": matchConditions}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         models.ColumnCollectionName,
			"localField":   "_id",
			"foreignField": "boardId",
			"as":           "columns",
			"pipeline":     childPipeline,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         models.CardCollectionName,
			"localField":   "_id",
			"foreignField": "boardId",
			"as":           "cards",
			"pipeline":     childPipeline,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         models.UserCollectionName,
			"localField":   "ownerIds",
			"foreignField": "_id",
			"as":           "owners",
			"pipeline":     userProjection,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         models.UserCollectionName,
			"localField":   "memberIds",
			"foreignField": "_id",
			"as":           "members",
			"pipeline":     userProjection,
		}}},
	}

	cursor, err := s.BoardsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch board details: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.BoardWithDetails
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode board details: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// buildBoardFilters turns the raw query filters into match conditions. Only
// allow-listed fields are honored; values are matched as escaped,
// case-insensitive substrings, never as raw patterns.
func buildBoardFilters(queryFilters map[string]string) bson.A {
	conditions := bson.A{}
	for field, value := range queryFilters {
		if !filterableBoardFields[field] || value == "" {
			continue
		}
		conditions = append(conditions, bson.M{field: primitive.Regex{
			Pattern: regexp.QuoteMeta(value),
			Options: "i",
		}})
	}
	return conditions
}

// GetBoards lists the boards the user owns or belongs to, one page at a time.
// The page slice and the total count come from a single $facet query so both
// branches observe the same filtered set; the count branch runs before
// pagination. Sorting is title-ascending under the "en" collation so letter
// case does not dictate the order.
func (s *BoardService) GetBoards(ctx context.Context, userID primitive.ObjectID, page, itemsPerPage int64, queryFilters map[string]string) (*models.BoardsPage, error) {
	matchConditions := bson.A{
		bson.M{"_destroy": false},
		memberOrOwnerCondition(userID),
	}
	matchConditions = append(matchConditions, buildBoardFilters(queryFilters)...)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$and": matchConditions}}},
		{{Key: "$sort", Value: bson.M{"title": 1}}},
		{{Key: "$facet", Value: bson.M{
			"queryBoards": bson.A{
				bson.M{"$skip": pagingSkipValue(page, itemsPerPage)},
				bson.M{"$limit": itemsPerPage},
			},
			"queryTotalBoards": bson.A{
				bson.M{"$count": "countedAllBoards"},
			},
		}}},
	}

	opts := options.Aggregate().SetCollation(&options.Collation{Locale: "en"})
	cursor, err := s.BoardsCollection.Aggregate(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch boards: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		QueryBoards      []models.Board `bson:"queryBoards"`
		QueryTotalBoards []struct {
			CountedAllBoards int64 `bson:"countedAllBoards"`
		} `bson:"queryTotalBoards"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode boards: %w", err)
	}

	pageResult := &models.BoardsPage{Boards: []models.Board{}}
	if len(results) == 0 {
		return pageResult, nil
	}
	if results[0].QueryBoards != nil {
		pageResult.Boards = results[0].QueryBoards
	}
	if len(results[0].QueryTotalBoards) > 0 {
		pageResult.TotalBoards = results[0].QueryTotalBoards[0].CountedAllBoards
	}
	return pageResult, nil
}

// UpdateBoard applies a partial field-level update to a non-deleted board.
// Immutable fields are dropped, columnOrderIds elements are coerced to
// ObjectIDs, and updatedAt is stamped. Returns (nil, nil) when no matching
// board exists.
func (s *BoardService) UpdateBoard(ctx context.Context, boardID primitive.ObjectID, updateData bson.M) (*models.Board, error) {
	for field := range updateData {
		if invalidUpdateFields[field] {
			delete(updateData, field)
		}
	}

	if rawIDs, ok := updateData["columnOrderIds"]; ok {
		coerced, err := coerceObjectIDs(rawIDs)
		if err != nil {
			return nil, &ValidationError{Violations: []string{err.Error()}}
		}
		updateData["columnOrderIds"] = coerced
	}

	updateData["updatedAt"] = time.Now()

	var board models.Board
	err := s.BoardsCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": boardID, "_destroy": false},
		bson.M{"$set": updateData},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&board)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update board: %w", err)
	}
	return &board, nil
}

// coerceObjectIDs accepts the shapes a decoded JSON body can produce for an
// id list and converts them to ObjectIDs.
func coerceObjectIDs(raw interface{}) ([]primitive.ObjectID, error) {
	switch ids := raw.(type) {
	case []primitive.ObjectID:
		return ids, nil
	case []string:
		out := make([]primitive.ObjectID, 0, len(ids))
		for _, id := range ids {
			oid, err := primitive.ObjectIDFromHex(id)
			if err != nil {
				return nil, fmt.Errorf("invalid column id %q: %w", id, err)
			}
			out = append(out, oid)
		}
		return out, nil
	case []interface{}:
		out := make([]primitive.ObjectID, 0, len(ids))
		for _, id := range ids {
			switch v := id.(type) {
			case primitive.ObjectID:
				out = append(out, v)
			case string:
				oid, err := primitive.ObjectIDFromHex(v)
				if err != nil {
					return nil, fmt.Errorf("invalid column id %q: %w", v, err)
				}
				out = append(out, oid)
			default:
				return nil, fmt.Errorf("invalid column id of type %T", id)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid columnOrderIds value of type %T", raw)
	}
}

// PushColumnOrderIDs atomically appends the column id to the owning board's
// column order. The store serializes concurrent pushes on the same document,
// so sibling column creations cannot lose updates.
func (s *BoardService) PushColumnOrderIDs(ctx context.Context, column *models.Column) (*models.Board, error) {
	return s.findOneAndUpdateBoard(ctx,
		bson.M{"_id": column.BoardID, "_destroy": false},
		bson.M{"$push": bson.M{"columnOrderIds": column.ID}},
	)
}

// PullColumnOrderIDs atomically removes the column id from the owning board's
// column order.
func (s *BoardService) PullColumnOrderIDs(ctx context.Context, column *models.Column) (*models.Board, error) {
	return s.findOneAndUpdateBoard(ctx,
		bson.M{"_id": column.BoardID, "_destroy": false},
		bson.M{"$pull": bson.M{"columnOrderIds": column.ID}},
	)
}

// PushMemberIDs appends the user to the board's member list. No duplicate
// check is made here; callers are expected to have verified membership first.
func (s *BoardService) PushMemberIDs(ctx context.Context, boardID, userID primitive.ObjectID) (*models.Board, error) {
	return s.findOneAndUpdateBoard(ctx,
		bson.M{"_id": boardID, "_destroy": false},
		bson.M{"$push": bson.M{"memberIds": userID}},
	)
}

func (s *BoardService) findOneAndUpdateBoard(ctx context.Context, filter, update bson.M) (*models.Board, error) {
	var board models.Board
	err := s.BoardsCollection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&board)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update board: %w", err)
	}
	return &board, nil
}

// DeleteBoard soft-deletes the board after verifying the requester owns it.
// The verify and the flag flip are two separate store calls; the window
// between them is accepted.
func (s *BoardService) DeleteBoard(ctx context.Context, requesterID, boardID primitive.ObjectID) (*models.Board, error) {
	filter := bson.M{"$and": bson.A{
		bson.M{"_id": boardID},
		bson.M{"_destroy": false},
		bson.M{"ownerIds": bson.M{"$all": bson.A{requesterID}}},
	}}

	err := s.BoardsCollection.FindOne(ctx, filter).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("failed to verify board ownership: %w", err)
	}

	var board models.Board
	err = s.BoardsCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": boardID},
		bson.M{"$set": bson.M{"_destroy": true, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&board)
	if err != nil {
		return nil, fmt.Errorf("failed to delete board: %w", err)
	}

	logging.Logger.Infof("Event ID: BOARD_DELETED, Description: Board %s soft-deleted by user %s", boardID.Hex(), requesterID.Hex())
	return &board, nil
}

// IsUserBoardAdmin reports whether the user is an owner of a non-deleted
// board.
func (s *BoardService) IsUserBoardAdmin(ctx context.Context, boardID, userID primitive.ObjectID) (bool, error) {
	err := s.BoardsCollection.FindOne(ctx, bson.M{
		"_id":      boardID,
		"_destroy": false,
		"ownerIds": bson.M{"$in": bson.A{userID}},
	}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check board admin: %w", err)
	}
	return true, nil
}

// GetMemberRole resolves the user's role on the board: "admin" for owners,
// "member" for members, "" when the board is missing or the user belongs to
// neither list.
func (s *BoardService) GetMemberRole(ctx context.Context, boardID, userID primitive.ObjectID) (string, error) {
	var board models.Board
	err := s.BoardsCollection.FindOne(ctx, bson.M{
		"_id":      boardID,
		"_destroy": false,
		"$or": bson.A{
			bson.M{"ownerIds": bson.M{"$in": bson.A{userID}}},
			bson.M{"memberIds": bson.M{"$in": bson.A{userID}}},
		},
	}).Decode(&board)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", fmt.Errorf("failed to resolve member role: %w", err)
	}

	for _, ownerID := range board.OwnerIDs {
		if ownerID == userID {
			return "admin", nil
		}
	}
	return "member", nil
}

// RemoveMemberFromBoard drops the member and any nickname entry they hold in
// one atomic update, so no intermediate state is ever observable. Returns
// (nil, nil) when the board is missing or deleted.
func (s *BoardService) RemoveMemberFromBoard(ctx context.Context, boardID, memberID primitive.ObjectID) (*models.Board, error) {
	board, err := s.findOneAndUpdateBoard(ctx,
		bson.M{"_id": boardID, "_destroy": false},
		bson.M{
			"$pull": bson.M{
				"memberIds":       memberID,
				"memberNicknames": bson.M{"userId": memberID.Hex()},
			},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil || board == nil {
		return board, err
	}

	logging.Logger.Infof("Event ID: MEMBER_REMOVED, Description: Member %s removed from board %s", memberID.Hex(), boardID.Hex())
	return board, nil
}

// SetMemberNickname replaces the user's nickname entry in a single atomic
// update: a pipeline update filters out any existing entry for the user and
// appends the new one, and the membership requirement sits in the query
// filter. There is no window where the old nickname is gone but the new one
// is not yet set, and a non-member's existing nickname is never touched.
func (s *BoardService) SetMemberNickname(ctx context.Context, boardID, userID primitive.ObjectID, nickname string) (*models.Board, error) {
	now := time.Now()
	filter := bson.M{
		"_id":      boardID,
		"_destroy": false,
		"$or": bson.A{
			bson.M{"ownerIds": bson.M{"$in": bson.A{userID}}},
			bson.M{"memberIds": bson.M{"$in": bson.A{userID}}},
		},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"memberNicknames": bson.M{"$concatArrays": bson.A{
				bson.M{"$filter": bson.M{
					"input": bson.M{"$ifNull": bson.A{"$memberNicknames", bson.A{}}},
					"as":    "entry",
					"cond":  bson.M{"$ne": bson.A{"$$entry.userId", userID.Hex()}},
				}},
				bson.A{bson.M{
					"userId":    userID.Hex(),
					"nickname":  nickname,
					"updatedAt": now,
				}},
			}},
			"updatedAt": now,
		}}},
	}

	var board models.Board
	err := s.BoardsCollection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&board)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotAMember
		}
		return nil, fmt.Errorf("failed to set member nickname: %w", err)
	}
	return &board, nil
}

// RemoveMemberNickname drops the user's nickname entry if present and stamps
// updatedAt. Returns (nil, nil) when the board is missing or deleted.
func (s *BoardService) RemoveMemberNickname(ctx context.Context, boardID, userID primitive.ObjectID) (*models.Board, error) {
	return s.findOneAndUpdateBoard(ctx,
		bson.M{"_id": boardID, "_destroy": false},
		bson.M{
			"$pull": bson.M{"memberNicknames": bson.M{"userId": userID.Hex()}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
}

// GetMemberNickname reads only the memberNicknames field and returns the
// user's nickname, or "" when the board or the entry does not exist.
func (s *BoardService) GetMemberNickname(ctx context.Context, boardID, userID primitive.ObjectID) (string, error) {
	var board struct {
		MemberNicknames []models.MemberNickname `bson:"memberNicknames"`
	}
	err := s.BoardsCollection.FindOne(ctx,
		bson.M{"_id": boardID, "_destroy": false},
		options.FindOne().SetProjection(bson.M{"memberNicknames": 1}),
	).Decode(&board)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", fmt.Errorf("failed to fetch member nickname: %w", err)
	}

	for _, entry := range board.MemberNicknames {
		if entry.UserID == userID.Hex() {
			return entry.Nickname, nil
		}
	}
	return "", nil
}
