package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"trello-project/microservices/boards-service/logging"
	"trello-project/microservices/boards-service/middleware"
	"trello-project/microservices/boards-service/models"
	"trello-project/microservices/boards-service/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxNicknameLength = 50

// MemberStore is the slice of the board store the member endpoints need.
type MemberStore interface {
	GetBoardDetails(ctx context.Context, userID, boardID primitive.ObjectID) (*models.BoardWithDetails, error)
	RemoveMemberFromBoard(ctx context.Context, boardID, memberID primitive.ObjectID) (*models.Board, error)
	SetMemberNickname(ctx context.Context, boardID, userID primitive.ObjectID, nickname string) (*models.Board, error)
	RemoveMemberNickname(ctx context.Context, boardID, userID primitive.ObjectID) (*models.Board, error)
	GetMemberNickname(ctx context.Context, boardID, userID primitive.ObjectID) (string, error)
}

// Notifier delivers member-removal notifications; delivery is best effort.
type Notifier interface {
	NotifyMemberRemoved(ctx context.Context, boardID, memberID string) error
}

type MemberHandler struct {
	Store    MemberStore
	Notifier Notifier
}

func NewMemberHandler(store MemberStore, notifier Notifier) *MemberHandler {
	return &MemberHandler{Store: store, Notifier: notifier}
}

func pathObjectID(r *http.Request, name string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(mux.Vars(r)[name])
}

// GetBoardMembersHandler returns the board's owners, members and nicknames.
func (h *MemberHandler) GetBoardMembersHandler(w http.ResponseWriter, r *http.Request) {
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
		http.Error(w, "Failed to fetch board members", http.StatusInternalServerError)
		return
	}
	if board == nil {
		http.Error(w, "Board not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"owners":          board.Owners,
		"members":         board.Members,
		"memberNicknames": board.MemberNicknames,
	})
}

// RemoveMemberHandler removes a member and their nickname from the board.
func (h *MemberHandler) RemoveMemberHandler(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathObjectID(r, "boardId")
	if err != nil {
		http.Error(w, "Invalid board ID", http.StatusBadRequest)
		return
	}
	memberID, err := pathObjectID(r, "memberId")
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	board, err := h.Store.RemoveMemberFromBoard(r.Context(), boardID, memberID)
	if err != nil {
		http.Error(w, "Failed to remove member", http.StatusInternalServerError)
		return
	}
	if board == nil {
		http.Error(w, "Board not found", http.StatusNotFound)
		return
	}

	if h.Notifier != nil {
		if err := h.Notifier.NotifyMemberRemoved(r.Context(), boardID.Hex(), memberID.Hex()); err != nil {
			logging.Logger.Warnf("Event ID: NOTIFICATION_FAILED, Description: Could not notify member %s about removal from board %s: %v", memberID.Hex(), boardID.Hex(), err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Member removed successfully",
		"board":   board,
	})
}

// SetMemberNicknameHandler sets or replaces a member's nickname. The nickname
// is trimmed and must be 1 to 50 characters long.
func (h *MemberHandler) SetMemberNicknameHandler(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathObjectID(r, "boardId")
	if err != nil {
		http.Error(w, "Invalid board ID", http.StatusBadRequest)
		return
	}
	memberID, err := pathObjectID(r, "memberId")
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	nickname := strings.TrimSpace(body.Nickname)
	if nickname == "" {
		http.Error(w, "Nickname is required", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(nickname) > maxNicknameLength {
		http.Error(w, "Nickname cannot exceed 50 characters", http.StatusBadRequest)
		return
	}

	board, err := h.Store.SetMemberNickname(r.Context(), boardID, memberID, nickname)
	if err != nil {
		if errors.Is(err, services.ErrNotAMember) {
			http.Error(w, "Board not found or user is not a member", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to set member nickname", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":         "Member nickname set successfully",
		"memberNicknames": board.MemberNicknames,
	})
}

// RemoveMemberNicknameHandler removes a member's nickname entry.
func (h *MemberHandler) RemoveMemberNicknameHandler(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathObjectID(r, "boardId")
	if err != nil {
		http.Error(w, "Invalid board ID", http.StatusBadRequest)
		return
	}
	memberID, err := pathObjectID(r, "memberId")
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	board, err := h.Store.RemoveMemberNickname(r.Context(), boardID, memberID)
	if err != nil {
		http.Error(w, "Failed to remove member nickname", http.StatusInternalServerError)
		return
	}
	if board == nil {
		http.Error(w, "Board not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":         "Member nickname removed successfully",
		"memberNicknames": board.MemberNicknames,
	})
}

// GetMemberNicknameHandler returns the member's nickname, or null when none
// exists.
func (h *MemberHandler) GetMemberNicknameHandler(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathObjectID(r, "boardId")
	if err != nil {
		http.Error(w, "Invalid board ID", http.StatusBadRequest)
		return
	}
	memberID, err := pathObjectID(r, "memberId")
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	nickname, err := h.Store.GetMemberNickname(r.Context(), boardID, memberID)
	if err != nil {
		http.Error(w, "Failed to fetch member nickname", http.StatusInternalServerError)
		return
	}

	var result *string
	if nickname != "" {
		result = &nickname
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"nickname": result})
}
