package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"domex/api/internal/ai"
	"domex/api/internal/api"
	"domex/api/internal/config"
	"domex/api/internal/logging"
	"domex/api/internal/repository/mongo"
	"domex/api/internal/service"
	"domex/api/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title Domex API
// @version 1.0
// @description File metadata registry, domain listings and AI insights for the domain auction.
// @BasePath /api
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting Domex API server...")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database)
	if err != nil {
		logger.Fatal("Could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logger.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("Database connection established", zap.String("database", cfg.Database.Name))

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureFileIndexes(ctx, appDB.Collection("files"), logger)
		mongo.EnsureDomainIndexes(ctx, appDB.Collection("domains"), logger)
		logger.Info("Index creation process completed")
	}()

	// --- Initialize Storage ---
	var blobStore storage.BlobStore
	if cfg.S3.BucketName != "" {
		blobStore, err = storage.NewS3Storage(context.Background(), cfg.S3, logger)
		if err != nil {
			logger.Fatal("Failed to initialize S3 storage", zap.Error(err))
		}
	} else {
		logger.Warn("s3.bucket_name not set, presigned uploads are disabled")
	}

	// --- Initialize Repositories ---
	fileRepo := mongo.NewMongoFileRepository(appDB)
	domainRepo := mongo.NewMongoDomainRepository(appDB)

	// --- Initialize Services ---
	var generator ai.TextGenerator
	if cfg.AI.Enabled() {
		generator = ai.New(cfg.AI, logger)
	} else {
		logger.Warn("ai.api_key not set, AI insight endpoints will answer 503")
	}
	fileService := service.NewFileService(fileRepo, blobStore, cfg.Upload, cfg.S3.UploadURLExpiry, logger.Named("files"))
	domainService := service.NewDomainService(domainRepo)
	insightService := service.NewInsightService(generator, domainRepo, cfg.AI, logger.Named("insights"))

	// --- Initialize Gin Engine ---
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, logger, mongo.Pinger{Client: dbClient}, fileService, domainService, insightService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ListenAndServe error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
