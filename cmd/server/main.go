package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/hakuasns/backend/internal/router"
	"github.com/hakuasns/backend/pkg/config"
	"github.com/hakuasns/backend/pkg/firebase"
	"github.com/hakuasns/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connection
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize Firebase (optional, push delivery only)
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	gateway := router.SetupRoutes(e, db.Mongo, cfg, firebaseApp.MessagingClient)
	go gateway.Run()
	defer gateway.Close()

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
