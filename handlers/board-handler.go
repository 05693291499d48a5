package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"trello-project/microservices/boards-service/middleware"
	"trello-project/microservices/boards-service/models"
	"trello-project/microservices/boards-service/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultItemsPerPage = 12

// BoardStore is the slice of the board store the board endpoints need.
type BoardStore interface {
	CreateBoard(ctx context.Context, creatorID primitive.ObjectID, board *models.Board) (primitive.ObjectID, error)
	GetBoardDetails(ctx context.Context, userID, boardID primitive.ObjectID) (*models.BoardWithDetails, error)
	GetBoards(ctx context.Context, userID primitive.ObjectID, page, itemsPerPage int64, queryFilters map[string]string) (*models.BoardsPage, error)
	UpdateBoard(ctx context.Context, boardID primitive.ObjectID, updateData bson.M) (*models.Board, error)
	DeleteBoard(ctx context.Context, requesterID, boardID primitive.ObjectID) (*models.Board, error)
}

type BoardHandler struct {
	Store BoardStore
}

func NewBoardHandler(store BoardStore) *BoardHandler {
	return &BoardHandler{Store: store}
}

// CreateBoardHandler creates a board owned by the caller.
func (h *BoardHandler) CreateBoardHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return
	}

	var board models.Board
	if err := json.NewDecoder(r.Body).Decode(&board); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	boardID, err := h.Store.CreateBoard(r.Context(), userID, &board)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message": "Board validation failed",
				"errors":  validationErr.Violations,
			})
			return
		}
		http.Error(w, "Failed to create board", http.StatusInternalServerError)
		return
	}

	board.ID = boardID
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(board)
}

// parseQueryFilters picks up q[field]=value pairs from the query string. The
// store applies its own allow-list on top of this.
func parseQueryFilters(r *http.Request) map[string]string {
	filters := map[string]string{}
	for key, values := range r.URL.Query() {
		if !strings.HasPrefix(key, "q[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		field := key[2 : len(key)-1]
		filters[field] = values[0]
	}
	return filters
}

// ListBoardsHandler returns one page of the caller's boards plus the total
// match count.
func (h *BoardHandler) ListBoardsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return
	}

	page := int64(1)
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid page parameter", http.StatusBadRequest)
			return
		}
		page = parsed
	}

	itemsPerPage := int64(defaultItemsPerPage)
	if raw := r.URL.Query().Get("itemsPerPage"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid itemsPerPage parameter", http.StatusBadRequest)
			return
		}
		itemsPerPage = parsed
	}

	result, err := h.Store.GetBoards(r.Context(), userID, page, itemsPerPage, parseQueryFilters(r))
	if err != nil {
		http.Error(w, "Failed to fetch boards", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GetBoardDetailsHandler returns the aggregate board view for the caller.
func (h *BoardHandler) GetBoardDetailsHandler(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathObjectID(r, "boardId")
	if err != nil {
		http.Error(w, "Invalid board ID", http.StatusBadRequest)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return
	}

	board, err := h.Store.GetBoardDetails(r.Context(), userID, boardID)
	if err != nil {
		http.Error(w, "Failed to fetch board", http.StatusInternalServerError)
		return
	}
	if board == nil {
		http.Error(w, "Board not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(board)
}

// UpdateBoardHandler applies a partial update to the board.
func (h *BoardHandler) UpdateBoardHandler(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathObjectID(r, "boardId")
	if err != nil {
		http.Error(w, "Invalid board ID", http.StatusBadRequest)
		return
	}

	var updateData bson.M
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	board, err := h.Store.UpdateBoard(r.Context(), boardID, updateData)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			http.Error(w, validationErr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to update board", http.StatusInternalServerError)
		return
	}
	if board == nil {
		http.Error(w, "Board not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(board)
}

// DeleteBoardHandler soft-deletes a board the caller owns. Missing board and
// missing permission are one indistinguishable outcome.
func (h *BoardHandler) DeleteBoardHandler(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathObjectID(r, "boardId")
	if err != nil {
		http.Error(w, "Invalid board ID", http.StatusBadRequest)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return
	}

	board, err := h.Store.DeleteBoard(r.Context(), userID, boardID)
	if err != nil {
		if errors.Is(err, services.ErrNotFoundOrForbidden) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete board", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Board deleted successfully",
		"board":   board,
	})
}
