package router

import (
	"log"

	"firebase.google.com/go/v4/messaging"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hakuasns/backend/internal/cache"
	"github.com/hakuasns/backend/internal/classroom"
	"github.com/hakuasns/backend/internal/handlers"
	"github.com/hakuasns/backend/internal/middleware"
	"github.com/hakuasns/backend/internal/push"
	"github.com/hakuasns/backend/internal/ranking"
	"github.com/hakuasns/backend/internal/realtime"
	"github.com/hakuasns/backend/internal/repositories"
	"github.com/hakuasns/backend/internal/services"
	"github.com/hakuasns/backend/pkg/config"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies.
// The returned gateway must be run by the caller and closed on shutdown.
func SetupRoutes(e *echo.Echo, mgClient *mongo.Client, cfg *config.Config, messagingClient *messaging.Client) *realtime.Gateway {
	db := mgClient.Database(cfg.MongoDatabase)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewMongoUserRepository(db)
	postRepo := repositories.NewMongoPostRepository(db)
	commentRepo := repositories.NewMongoCommentRepository(db)
	conversationRepo := repositories.NewMongoConversationRepository(db)
	messageRepo := repositories.NewMongoMessageRepository(db)
	notificationRepo := repositories.NewMongoNotificationRepository(db)
	hashtagRepo := repositories.NewMongoHashtagRepository(db)
	noteRepo := repositories.NewMongoNoteRepository(db)
	learningRepo := repositories.NewMongoLearningRepository(db)
	courseRepo := repositories.NewMongoCourseRepository(db)

	// --- Cache and realtime ---
	store := cache.New(cfg.RedisAddr, cfg.RedisPassword)
	registry := realtime.NewRegistry()
	gateway := realtime.NewGateway(registry)
	socketHandler := realtime.NewHandler(gateway)
	socketHandler.Register(e)
	log.Println("Realtime gateway configured.")

	// --- OAuth ---
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/classroom.courses.readonly",
			"https://www.googleapis.com/auth/classroom.rosters.readonly",
		},
	}

	// --- Initialize Services ---
	pushSender := push.NewSender(messagingClient, userRepo)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, store, gateway, pushSender)
	followService := services.NewFollowService(userRepo, notificationService)
	messageService := services.NewMessageService(conversationRepo, messageRepo, userRepo, gateway)
	noteService := services.NewNoteService(noteRepo, userRepo)
	hashtagService := services.NewHashtagService(hashtagRepo)
	rankingService := ranking.NewService(store, learningRepo, notificationRepo, userRepo, postRepo, cfg.RankingDayOffsetHours)
	learningService := services.NewLearningService(learningRepo, rankingService)
	classroomService := classroom.NewService(oauthConfig, userRepo, courseRepo)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, oauthConfig)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	userHandler := handlers.NewUserHandler(userRepo, followService)
	userHandler.RegisterUserRoutes(api)

	postHandler := handlers.NewPostHandler(postRepo, userRepo, notificationService, hashtagService, rankingService, gateway)
	postHandler.RegisterPostRoutes(api)

	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, userRepo, notificationService)
	commentHandler.RegisterCommentRoutes(api)

	messageHandler := handlers.NewMessageHandler(messageService)
	messageHandler.RegisterMessageRoutes(api)

	notificationHandler := handlers.NewNotificationHandler(notificationService)
	notificationHandler.RegisterNotificationRoutes(api)

	hashtagHandler := handlers.NewHashtagHandler(hashtagService, postRepo)
	hashtagHandler.RegisterHashtagRoutes(api)

	noteHandler := handlers.NewNoteHandler(noteService)
	noteHandler.RegisterNoteRoutes(api)

	learningHandler := handlers.NewLearningHandler(learningService)
	learningHandler.RegisterLearningRoutes(api)

	rankingHandler := handlers.NewRankingHandler(rankingService)
	rankingHandler.RegisterRankingRoutes(api)

	classroomHandler := handlers.NewClassroomHandler(classroomService)
	classroomHandler.RegisterClassroomRoutes(api)

	log.Println("All routes configured.")
	return gateway
}
