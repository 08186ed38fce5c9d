package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Zerr0-C00L/WatchArr/internal/api"
	"github.com/Zerr0-C00L/WatchArr/internal/auth"
	"github.com/Zerr0-C00L/WatchArr/internal/cache"
	"github.com/Zerr0-C00L/WatchArr/internal/config"
	"github.com/Zerr0-C00L/WatchArr/internal/database"
	"github.com/Zerr0-C00L/WatchArr/internal/services"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Println("Starting WatchArr API Server...")

	cfg := config.Load()

	// Connect the remote cache tier. Missing credentials degrade the cache
	// to a permanent no-op rather than failing startup.
	var remote cache.RemoteStore
	if cfg.CacheDatabaseURL != "" {
		db, err := database.Connect(cfg.CacheDatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to cache database: %v", err)
		}
		defer db.Close()

		kv, err := database.NewKVStore(db)
		if err != nil {
			log.Fatalf("Failed to initialize KV store: %v", err)
		}
		remote = kv
		log.Println("✓ Remote cache tier connected")
	} else {
		log.Println("⚠️ CACHE_DATABASE_URL not set - rating cache disabled")
	}

	cacheManager := cache.NewManager(remote)

	// Clients and pipeline
	tmdbClient := services.NewTMDBClient(cfg.TMDBAPIKey)
	omdbClient := services.NewOMDBClient(cfg.OMDBAPIKey, cacheManager)
	enricher := services.NewEnricher(cacheManager, tmdbClient, omdbClient)
	scheduler := services.NewServiceScheduler()
	populator := services.NewPopulator(cacheManager, tmdbClient, enricher, scheduler, cfg.TargetNewRatings, cfg.MaxPage)

	if !tmdbClient.Configured() {
		log.Println("⚠️ TMDB_API_KEY not set - catalog routes will fail")
	}
	if !omdbClient.Configured() {
		log.Println("⚠️ OMDB_API_KEY not set - ratings degrade to absent")
	}

	authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.AdminUsername, cfg.AdminPasswordHash)

	handler := api.NewHandler(cfg, cacheManager, tmdbClient, omdbClient, enricher, populator, scheduler, authenticator)
	router := api.SetupRoutes(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server listening on port %d", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 30 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
