package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"trello-project/microservices/boards-service/handlers"
	"trello-project/microservices/boards-service/models"
	"trello-project/microservices/boards-service/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockBoardStore struct{ mock.Mock }

func (m *mockBoardStore) CreateBoard(ctx context.Context, creatorID primitive.ObjectID, board *models.Board) (primitive.ObjectID, error) {
	args := m.Called(ctx, creatorID, board)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *mockBoardStore) GetBoardDetails(ctx context.Context, userID, boardID primitive.ObjectID) (*models.BoardWithDetails, error) {
	args := m.Called(ctx, userID, boardID)
	if b, ok := args.Get(0).(*models.BoardWithDetails); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBoardStore) GetBoards(ctx context.Context, userID primitive.ObjectID, page, itemsPerPage int64, queryFilters map[string]string) (*models.BoardsPage, error) {
	args := m.Called(ctx, userID, page, itemsPerPage, queryFilters)
	if p, ok := args.Get(0).(*models.BoardsPage); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBoardStore) UpdateBoard(ctx context.Context, boardID primitive.ObjectID, updateData bson.M) (*models.Board, error) {
	args := m.Called(ctx, boardID, updateData)
	if b, ok := args.Get(0).(*models.Board); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBoardStore) DeleteBoard(ctx context.Context, requesterID, boardID primitive.ObjectID) (*models.Board, error) {
	args := m.Called(ctx, requesterID, boardID)
	if b, ok := args.Get(0).(*models.Board); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ handlers.BoardStore = (*mockBoardStore)(nil)

func boardRouter(h *handlers.BoardHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/boards", h.CreateBoardHandler).Methods("POST")
	r.HandleFunc("/boards", h.ListBoardsHandler).Methods("GET")
	r.HandleFunc("/boards/{boardId}", h.GetBoardDetailsHandler).Methods("GET")
	r.HandleFunc("/boards/{boardId}", h.UpdateBoardHandler).Methods("PUT")
	r.HandleFunc("/boards/{boardId}", h.DeleteBoardHandler).Methods("DELETE")
	return r
}

func TestCreateBoardHandler(t *testing.T) {
	store := new(mockBoardStore)
	h := handlers.NewBoardHandler(store)
	userID := primitive.NewObjectID()
	boardID := primitive.NewObjectID()

	store.On("CreateBoard", mock.Anything, userID, mock.AnythingOfType("*models.Board")).Return(boardID, nil)

	body, _ := json.Marshal(map[string]string{
		"title":       "Roadmap",
		"slug":        "roadmap",
		"description": "quarterly roadmap board",
		"type":        "private",
	})
	w := httptest.NewRecorder()
	boardRouter(h).ServeHTTP(w, authedRequest("POST", "/boards", body, userID))

	assert.Equal(t, http.StatusCreated, w.Code)

	var created models.Board
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, boardID, created.ID)
	assert.Equal(t, "Roadmap", created.Title)
	store.AssertExpectations(t)
}

func TestCreateBoardHandlerValidationErrors(t *testing.T) {
	store := new(mockBoardStore)
	h := handlers.NewBoardHandler(store)
	userID := primitive.NewObjectID()

	validationErr := &services.ValidationError{Violations: []string{
		"field Title failed on the min rule",
		"field Type failed on the oneof rule",
	}}
	store.On("CreateBoard", mock.Anything, userID, mock.AnythingOfType("*models.Board")).Return(primitive.NilObjectID, validationErr)

	body, _ := json.Marshal(map[string]string{"title": "ab", "type": "secret"})
	w := httptest.NewRecorder()
	boardRouter(h).ServeHTTP(w, authedRequest("POST", "/boards", body, userID))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Every violation comes back, not just the first.
	var resp struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Errors, 2)
}

func TestListBoardsHandler(t *testing.T) {
	store := new(mockBoardStore)
	h := handlers.NewBoardHandler(store)
	userID := primitive.NewObjectID()

	page := &models.BoardsPage{
		Boards:      []models.Board{{Title: "Only board"}},
		TotalBoards: 1,
	}
	store.On("GetBoards", mock.Anything, userID, int64(2), int64(5), map[string]string{"title": "only"}).Return(page, nil)

	w := httptest.NewRecorder()
	boardRouter(h).ServeHTTP(w, authedRequest("GET", "/boards?page=2&itemsPerPage=5&q[title]=only", nil, userID))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.BoardsPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.TotalBoards)
	require.Len(t, resp.Boards, 1)
	store.AssertExpectations(t)
}

func TestListBoardsHandlerRejectsBadPaging(t *testing.T) {
	store := new(mockBoardStore)
	h := handlers.NewBoardHandler(store)
	userID := primitive.NewObjectID()

	for _, target := range []string{
		"/boards?page=0",
		"/boards?page=abc",
		"/boards?itemsPerPage=-1",
	} {
		w := httptest.NewRecorder()
		boardRouter(h).ServeHTTP(w, authedRequest("GET", target, nil, userID))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
	store.AssertNotCalled(t, "GetBoards")
}

func TestGetBoardDetailsHandlerNotFound(t *testing.T) {
	store := new(mockBoardStore)
	h := handlers.NewBoardHandler(store)
	userID := primitive.NewObjectID()
	boardID := primitive.NewObjectID()

	store.On("GetBoardDetails", mock.Anything, userID, boardID).Return(nil, nil)

	w := httptest.NewRecorder()
	boardRouter(h).ServeHTTP(w, authedRequest("GET", "/boards/"+boardID.Hex(), nil, userID))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateBoardHandler(t *testing.T) {
	store := new(mockBoardStore)
	h := handlers.NewBoardHandler(store)
	boardID := primitive.NewObjectID()

	board := &models.Board{ID: boardID, Title: "Renamed"}
	store.On("UpdateBoard", mock.Anything, boardID, bson.M{"title": "Renamed"}).Return(board, nil)

	body, _ := json.Marshal(map[string]string{"title": "Renamed"})
	w := httptest.NewRecorder()
	boardRouter(h).ServeHTTP(w, authedRequest("PUT", "/boards/"+boardID.Hex(), body, primitive.NewObjectID()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Renamed")
}

func TestUpdateBoardHandlerBadColumnIDs(t *testing.T) {
	store := new(mockBoardStore)
	h := handlers.NewBoardHandler(store)
	boardID := primitive.NewObjectID()

	validationErr := &services.ValidationError{Violations: []string{`invalid column id "nope"`}}
	store.On("UpdateBoard", mock.Anything, boardID, mock.Anything).Return(nil, validationErr)

	body, _ := json.Marshal(map[string]interface{}{"columnOrderIds": []string{"nope"}})
	w := httptest.NewRecorder()
	boardRouter(h).ServeHTTP(w, authedRequest("PUT", "/boards/"+boardID.Hex(), body, primitive.NewObjectID()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteBoardHandlerNotFoundOrForbidden(t *testing.T) {
	store := new(mockBoardStore)
	h := handlers.NewBoardHandler(store)
	userID := primitive.NewObjectID()
	boardID := primitive.NewObjectID()

	store.On("DeleteBoard", mock.Anything, userID, boardID).Return(nil, services.ErrNotFoundOrForbidden)

	w := httptest.NewRecorder()
	boardRouter(h).ServeHTTP(w, authedRequest("DELETE", "/boards/"+boardID.Hex(), nil, userID))

	// One combined outcome: the caller cannot tell missing from forbidden.
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteBoardHandler(t *testing.T) {
	store := new(mockBoardStore)
	h := handlers.NewBoardHandler(store)
	userID := primitive.NewObjectID()
	boardID := primitive.NewObjectID()

	board := &models.Board{ID: boardID, Destroy: true}
	store.On("DeleteBoard", mock.Anything, userID, boardID).Return(board, nil)

	w := httptest.NewRecorder()
	boardRouter(h).ServeHTTP(w, authedRequest("DELETE", "/boards/"+boardID.Hex(), nil, userID))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Board deleted successfully")
}
