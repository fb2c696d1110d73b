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

	"github.com/homequote/intake/internal/adapter/model"
	"github.com/homequote/intake/internal/adapter/vision"
	"github.com/homequote/intake/internal/capability"
	"github.com/homequote/intake/internal/classify"
	"github.com/homequote/intake/internal/config"
	"github.com/homequote/intake/internal/orchestrator"
	"github.com/homequote/intake/internal/policy"
	"github.com/homequote/intake/internal/store"
	handler "github.com/homequote/intake/internal/transport/http"
)

func main() {
	// Load .env if present
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Load configuration
	cfg := config.Load()

	log.Printf("Starting intake service...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Model URL: %s", cfg.ModelURL)
	log.Printf("Vision URL: %s", cfg.VisionURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize policy engine
	ctx := context.Background()
	policySource := policy.DefaultPolicy
	if cfg.PolicyPath != "" {
		content, err := os.ReadFile(cfg.PolicyPath)
		if err != nil {
			log.Fatalf("Failed to read policy file %s: %v", cfg.PolicyPath, err)
		}
		policySource = string(content)
	}
	policyEngine, err := policy.NewEngine(ctx, policySource)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize capability registry
	visionClient := vision.NewFromEnv(cfg.VisionURL, cfg.VisionTimeout)
	registry := capability.NewRegistry(policyEngine)
	capability.RegisterAll(registry, db, visionClient)

	// Initialize model client
	modelClient := model.NewClient(cfg.ModelURL, cfg.ModelAPIKey, cfg.ModelName, cfg.ModelTimeout)

	// Initialize orchestrator
	orch := orchestrator.New(db, registry, modelClient, classify.NewEngine(nil, classify.DefaultPolicy()))

	// Create HTTP server
	server := handler.NewServer(orch, db)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Intake API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down intake service...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Intake service stopped")
}
