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

	_ "refsync/docs" // This is required for swag to find your docs
	"refsync/internal/api"
	"refsync/internal/config"
	"refsync/internal/database"
	"refsync/internal/repository"
	"refsync/internal/services"
	"refsync/internal/utils"
)

// @title RefSync API
// @version 1.0
// @description Synchronization service for external reference-manager accounts.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
func main() {
	mainLogger := utils.NewLogger("Main")
	mainLogger.Info("Starting RefSync Service")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	dbConfig := database.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	}

	if err := database.Initialize(dbConfig); err != nil {
		mainLogger.Error("Failed to initialize database: %v", err)
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	db := database.GetDB()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	mappingRepo := repository.NewMappingRepository(db)
	profileRepo := repository.NewSyncProfileRepository(db)
	sessionRepo := repository.NewSyncSessionRepository(db)
	logRepo := repository.NewSyncLogRepository(db)
	conflictRepo := repository.NewConflictRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	// Initialize services
	detector := services.NewChangeDetector()
	resolver := services.NewConflictResolver(referenceRepo, mappingRepo, conflictRepo, detector)
	aggregator := services.NewStatisticsAggregator(statsRepo)
	engine := services.NewSyncEngine(cfg.Sync, accountRepo, referenceRepo, mappingRepo, sessionRepo, logRepo, resolver, detector, aggregator)
	resolution := services.NewResolutionService(referenceRepo, mappingRepo, conflictRepo, detector)

	// Start the auto-sync scheduler
	scheduler := services.NewAutoSyncScheduler(engine, profileRepo)
	if err := scheduler.Start(); err != nil {
		mainLogger.Error("Failed to start auto-sync scheduler: %v", err)
		log.Fatalf("Failed to start auto-sync scheduler: %v", err)
	}

	// Initialize API handlers
	apiHandler := api.NewAPIHandler(accountRepo, profileRepo, sessionRepo, logRepo, conflictRepo, engine, resolution, aggregator)
	progressHandler := api.NewSessionProgressHandler(sessionRepo)

	router := api.NewRouter(apiHandler, progressHandler)

	// Create HTTP server
	srv := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: router,
	}

	// Setup graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		mainLogger.Info("Server is running on http://%s", cfg.ServerAddress())
		fmt.Printf("Server is running on http://%s\n", cfg.ServerAddress())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLogger.Error("Server failed to start: %v", err)
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-stop
	mainLogger.Info("Shutting down server...")
	fmt.Println("\nShutting down server...")

	// Create a deadline to wait for
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop the scheduler first so no new runs start during shutdown
	mainLogger.Info("Stopping auto-sync scheduler...")
	scheduler.Stop()

	// Gracefully shutdown the HTTP server
	mainLogger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(ctx); err != nil {
		mainLogger.Error("Server forced to shutdown: %v", err)
	}

	mainLogger.Info("Server shutdown complete")
}
