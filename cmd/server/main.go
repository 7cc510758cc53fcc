package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/api"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/config"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/engine"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/repository/postgres"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/service"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize UCI engine; engine opponents are disabled when no
	// binary is configured.
	var searcher engine.MoveSearcher
	if cfg.EnginePath != "" {
		uciEngine, err := engine.NewUCIEngine(cfg.EnginePath)
		if err != nil {
			log.Fatalf("failed to start UCI engine: %v", err)
		}
		defer uciEngine.Close()
		searcher = uciEngine
	} else {
		log.Println("ENGINE_PATH not set; engine opponents disabled")
	}

	// Initialize services
	services := service.NewServices(repos, hub, searcher, cfg)

	// Initialize router
	router := api.NewRouter(services, hub)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // engine searches can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	hub.Stop()

	log.Println("Server stopped")
}
