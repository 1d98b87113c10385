package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artswipe/backend/internal/config"
	"github.com/artswipe/backend/internal/handlers"
	"github.com/artswipe/backend/internal/models"
	"github.com/artswipe/backend/internal/services"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.New()

	if cfg.FalKey == "" {
		log.Println("WARNING: FAL_KEY is not set, image generation will fail")
	}

	// Initialize database
	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := models.CloseDB(db); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis is optional: stats caching and the cross-instance generation lock
	var (
		statsCache services.StatsCache
		genLock    services.GenerationLock
	)
	if redisClient := models.InitRedis(cfg); redisClient != nil {
		defer redisClient.Close()
		cacheService := services.NewRedisCacheService(redisClient, cfg.StatsCacheTTL, cfg.GenerationLockTTL)
		statsCache = cacheService
		genLock = cacheService
	}

	blobs, assetsPath, err := initBlobStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s storage: %v", cfg.StorageBackend, err)
	}

	// Initialize services
	imageService := services.NewImageService(db, statsCache)
	promptService := services.NewPromptService(nil)
	falClient := services.NewFalClient(cfg.FalBaseURL, cfg.FalModel, cfg.FalKey)
	generationService := services.NewGenerationService(cfg, imageService, promptService, falClient, blobs, genLock)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.PrefillSchedule != "" {
		prefill := services.NewPrefillService(imageService, generationService, cfg.PrefillMinPending)
		if err := prefill.Start(ctx, cfg.PrefillSchedule); err != nil {
			log.Fatalf("Failed to start prefill scheduler: %v", err)
		}
		defer prefill.Stop()
	}

	imageHandler := handlers.NewImageHandler(imageService, generationService)
	router := handlers.NewRouter(cfg, imageHandler, assetsPath)

	// Generation requests wait for the whole batch
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s (storage: %s, max images: %d)", cfg.Port, cfg.StorageBackend, cfg.MaxImages)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// initBlobStore returns the configured blob store and, for local storage, the directory to serve under /assets
func initBlobStore(cfg *config.Config) (services.BlobStore, string, error) {
	switch cfg.StorageBackend {
	case "s3":
		s3Service, err := services.NewS3Service(cfg)
		if err != nil {
			return nil, "", err
		}
		return s3Service, "", nil
	case "minio":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		minioService, err := services.NewMinioService(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		return minioService, "", nil
	default:
		storage, err := services.NewStorageService(cfg.LocalAssetsPath, "/assets")
		if err != nil {
			return nil, "", err
		}
		return storage, storage.BasePath(), nil
	}
}
