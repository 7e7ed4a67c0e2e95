package router

import (
	"log"

	"github.com/driftline/driftline-backend/internal/events"
	"github.com/driftline/driftline-backend/internal/feed"
	"github.com/driftline/driftline-backend/internal/handlers"
	"github.com/driftline/driftline-backend/internal/middleware"
	"github.com/driftline/driftline-backend/internal/models"
	"github.com/driftline/driftline-backend/internal/repositories"
	"github.com/driftline/driftline-backend/pkg/uploader"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, mgClient *mongo.Client, uploads uploader.Uploader, sink events.Sink) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.PostImage{},
		&models.Like{},
		&models.Repost{},
		&models.Bookmark{},
		&models.Follow{},
		&models.Block{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	postRepo := repositories.NewPostgresPostRepository(pgdb)
	engagementRepo := repositories.NewPostgresEngagementRepository(pgdb)
	followRepo := repositories.NewPostgresFollowRepository(pgdb)
	blockRepo := repositories.NewPostgresBlockRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	conversationRepo := repositories.NewMongoConversationRepository(mgClient.Database("driftline"))

	// --- Feed core ---
	feedService := feed.NewService(postRepo, userRepo, engagementRepo, followRepo, blockRepo, notificationRepo, sink)

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo, blockRepo)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(feedService, uploads)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Feed routes
	feedHandler := handlers.NewFeedHandler(feedService)
	feedHandler.RegisterFeedRoutes(api)
	log.Println("Feed routes configured.")

	// Engagement routes
	engagementHandler := handlers.NewEngagementHandler(feedService)
	engagementHandler.RegisterEngagementRoutes(api)
	log.Println("Engagement routes configured.")

	// Search routes
	searchHandler := handlers.NewSearchHandler(feedService)
	searchHandler.RegisterSearchRoutes(api)
	log.Println("Search routes configured.")

	// Follow routes
	followHandler := handlers.NewFollowHandler(followRepo, userRepo, blockRepo, feedService)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	// Block routes
	blockHandler := handlers.NewBlockHandler(blockRepo, followRepo, userRepo)
	blockHandler.RegisterBlockRoutes(api)
	log.Println("Block routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Conversation routes
	conversationHandler := handlers.NewConversationHandler(conversationRepo, blockRepo, userRepo, sink)
	conversationHandler.RegisterConversationRoutes(api)
	log.Println("Conversation routes configured.")

	log.Println("All routes configured.")
}
