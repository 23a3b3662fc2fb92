package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"survey-app-server/internal/config"
	"survey-app-server/internal/handlers"
	"survey-app-server/internal/middleware"
	"survey-app-server/internal/models"
	"survey-app-server/internal/routes"
	"survey-app-server/internal/services"
	"survey-app-server/internal/store"
	"survey-app-server/internal/upload"
)

func main() {
	log.Infoln("Application Starting...")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Warnf("No .env file loaded: %v", err)
	}

	// Initialize configuration
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	config.SetupLogger(cfg)

	// Credential store
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	// Survey store
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoClient, mongoDB, err := store.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	cancel()
	if err != nil {
		log.Fatalf("Error connecting to mongodb: %v", err)
	}

	// Image storage is optional; without it image uploads fail.
	var blobs services.BlobStore
	uploader, err := upload.NewS3UploaderFromConfig(context.Background(), cfg.S3)
	if err != nil {
		log.Warnf("Image uploads disabled: %v", err)
	} else {
		blobs = uploader
	}

	credentials := store.NewCredentialStore(db)
	tokens := services.NewTokenService(credentials, cfg)
	auth := services.NewAuthService(credentials, tokens)
	surveys := services.NewSurveyService(store.NewSurveyStore(mongoDB), blobs, tokens)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.RequestLogger())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Handlers{
		Auth:     handlers.NewAuthHandler(auth, cfg.Environment != "development", cfg.RefreshTokenTTLHours*60*60),
		Surveys:  handlers.NewSurveyHandler(surveys, cfg.MaxImageSizeMB),
		Verifier: tokens,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Infof("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c

	log.Infof("sig=%v, gracefully shutting down...", sig)
	start := time.Now()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server, shutdown=%v", err)
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Errorf("mongo, disconnect=%v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Infof("Shutdown took, %.2fms", float64(time.Since(start).Microseconds())/1000)
}
