package main

import (
	"context"
	"log"

	"github.com/driftline/driftline-backend/internal/events"
	"github.com/driftline/driftline-backend/internal/router"
	"github.com/driftline/driftline-backend/pkg/config"
	"github.com/driftline/driftline-backend/pkg/firebase"
	"github.com/driftline/driftline-backend/pkg/uploader"
	"github.com/driftline/driftline-backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	// Initialize database connections. InitDB loads .env first, so the
	// configuration read below sees it.
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Load configuration
	cfg := config.Load()

	// Initialize Firebase storage for image uploads. Optional: without
	// a bucket the API runs but rejects image attachments.
	var uploads uploader.Uploader
	if cfg.StorageBucket != "" {
		ctx := context.Background()
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.StorageBucket)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		uploads, err = firebaseApp.NewUploader(ctx, cfg.StorageBucket)
		if err != nil {
			log.Fatalf("Failed to initialize storage uploader: %v", err)
		}
	} else {
		log.Println("STORAGE_BUCKET not set, image uploads disabled.")
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, db.Postgres, db.Mongo, uploads, events.NewLogSink())

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
