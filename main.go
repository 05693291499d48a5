package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"trello-project/microservices/boards-service/handlers"
	"trello-project/microservices/boards-service/logging"
	"trello-project/microservices/boards-service/middleware"
	"trello-project/microservices/boards-service/services"
	"trello-project/microservices/boards-service/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createBoardMembershipIndexes(collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.M{"ownerIds": 1}},
		{Keys: bson.M{"memberIds": 1}},
	}
	_, err := collection.Indexes().CreateMany(context.TODO(), indexes)
	if err != nil {
		return fmt.Errorf("failed to create board membership indexes: %v", err)
	}
	return nil
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Boards Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	if mongoDBName == "" {
		mongoDBName = "boards_db"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(context.TODO())

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	boardsCollection := client.Database(mongoDBName).Collection("boards")
	if err := createBoardMembershipIndexes(boardsCollection); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}

	boardService := services.NewBoardService(boardsCollection)
	notificationService := services.NewNotificationService(os.Getenv("NOTIFICATIONS_SERVICE_URL"), utils.NewHTTPClient())

	boardHandler := handlers.NewBoardHandler(boardService)
	memberHandler := handlers.NewMemberHandler(boardService, notificationService)
	rbac := middleware.NewBoardRBAC(boardService)

	r := mux.NewRouter()
	r.Use(middleware.JWTAuthMiddleware)

	r.HandleFunc("/boards", boardHandler.CreateBoardHandler).Methods("POST")
	r.HandleFunc("/boards", boardHandler.ListBoardsHandler).Methods("GET")
	r.HandleFunc("/boards/{boardId}", boardHandler.GetBoardDetailsHandler).Methods("GET")
	r.Handle("/boards/{boardId}", rbac.IsMemberOfBoard(http.HandlerFunc(boardHandler.UpdateBoardHandler))).Methods("PUT")
	r.HandleFunc("/boards/{boardId}", boardHandler.DeleteBoardHandler).Methods("DELETE")

	r.Handle("/boards/{boardId}/members", rbac.IsMemberOfBoard(http.HandlerFunc(memberHandler.GetBoardMembersHandler))).Methods("GET")
	r.Handle("/boards/{boardId}/members/{memberId}", rbac.CanManageBoard(http.HandlerFunc(memberHandler.RemoveMemberHandler))).Methods("DELETE")
	r.Handle("/boards/{boardId}/members/{memberId}/nickname", rbac.CanManageBoard(http.HandlerFunc(memberHandler.SetMemberNicknameHandler))).Methods("POST")
	r.Handle("/boards/{boardId}/members/{memberId}/nickname", rbac.CanManageBoard(http.HandlerFunc(memberHandler.RemoveMemberNicknameHandler))).Methods("DELETE")
	r.Handle("/boards/{boardId}/members/{memberId}/nickname", rbac.IsMemberOfBoard(http.HandlerFunc(memberHandler.GetMemberNicknameHandler))).Methods("GET")

	corsRouter := enableCORS(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logging.Logger.Infof("Event ID: SERVICE_LISTENING, Description: Boards service server running on http://localhost:%s", port)
	fmt.Printf("Boards service server running on http://localhost:%s\n", port)
	logging.Logger.Fatal(http.ListenAndServe(":"+port, corsRouter))
}

// enableCORS allows any origin in dev mode; in production only origins on the
// WHITELIST_DOMAINS list get through.
func enableCORS(next http.Handler) http.Handler {
	buildMode := os.Getenv("BUILD_MODE")
	whitelist := map[string]bool{}
	for _, domain := range strings.Split(os.Getenv("WHITELIST_DOMAINS"), ",") {
		domain = strings.TrimSpace(domain)
		if domain != "" {
			whitelist[domain] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowed := buildMode != "production" || origin == "" || whitelist[origin]
		if !allowed {
			http.Error(w, fmt.Sprintf("%s not allowed by our CORS Policy.", origin), http.StatusForbidden)
			return
		}

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			// Some legacy browsers choke on 204.
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
