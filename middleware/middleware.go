package middleware

import (
	"context"
	"net/http"
	"strings"

	"trello-project/microservices/boards-service/logging"
	"trello-project/microservices/boards-service/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const userIDKey contextKey = "userId"

// UserIDFromContext returns the authenticated user's id placed there by
// JWTAuthMiddleware.
func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	userID, ok := ctx.Value(userIDKey).(primitive.ObjectID)
	return userID, ok
}

// ContextWithUserID attaches an authenticated user id to the context.
func ContextWithUserID(ctx context.Context, userID primitive.ObjectID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// JWTAuthMiddleware verifies the bearer token and stores the caller's user id
// in the request context.
func JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING_HEADER, Description: Authorization header missing for request to %s %s", r.Method, r.URL.Path)
			http.Error(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		userIDHex, err := utils.ExtractUserIDFromToken(tokenStr)
		if err != nil {
			logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: Invalid token provided for request to %s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		userID, err := primitive.ObjectIDFromHex(userIDHex)
		if err != nil {
			logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_USER_ID, Description: Token _id claim is not a valid id for request to %s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := ContextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RoleResolver resolves the caller's role on a board: "admin", "member" or ""
// when they do not belong to it.
type RoleResolver interface {
	GetMemberRole(ctx context.Context, boardID, userID primitive.ObjectID) (string, error)
}

// BoardRBAC gates routes on board-level roles. It expects to run after
// JWTAuthMiddleware and a {boardId} path variable.
type BoardRBAC struct {
	Roles RoleResolver
}

func NewBoardRBAC(roles RoleResolver) *BoardRBAC {
	return &BoardRBAC{Roles: roles}
}

func (m *BoardRBAC) resolveRole(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return "", false
	}

	boardID, err := primitive.ObjectIDFromHex(mux.Vars(r)["boardId"])
	if err != nil {
		http.Error(w, "Invalid board ID", http.StatusBadRequest)
		return "", false
	}

	role, err := m.Roles.GetMemberRole(r.Context(), boardID, userID)
	if err != nil {
		logging.Logger.Errorf("Event ID: RBAC_ROLE_LOOKUP_FAILED, Description: Failed to resolve role for user %s on board %s: %v", userID.Hex(), boardID.Hex(), err)
		http.Error(w, "Failed to verify board access", http.StatusInternalServerError)
		return "", false
	}
	return role, true
}

// IsMemberOfBoard lets owners and members through.
func (m *BoardRBAC) IsMemberOfBoard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := m.resolveRole(w, r)
		if !ok {
			return
		}
		if role == "" {
			http.Error(w, "You are not a member of this board", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CanManageBoard lets only board admins through.
func (m *BoardRBAC) CanManageBoard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := m.resolveRole(w, r)
		if !ok {
			return
		}
		if role != "admin" {
			http.Error(w, "Only board admins can perform this action", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
