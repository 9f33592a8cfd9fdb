package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/karooma/backend/config"
	httpDelivery "github.com/karooma/backend/internal/delivery/http"
	"github.com/karooma/backend/internal/infrastructure/cache"
	"github.com/karooma/backend/internal/infrastructure/marketplace"
	"github.com/karooma/backend/internal/infrastructure/store"
	"github.com/karooma/backend/internal/scheduler"
	"github.com/karooma/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Karooma Kit Engine v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Initialize infrastructure dependencies
	kitStore, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open kit store: %v", err)
	}
	defer kitStore.Close()
	log.Printf("Kit store: %s", cfg.Store.Path)

	memoryCache := cache.NewMemoryCache()
	log.Printf("Candidate cache TTL: %s", cfg.Cache.TTL)

	marketplaceClient := marketplace.NewClient(
		cfg.Marketplace.APIKey,
		cfg.Marketplace.BaseURL,
		cfg.Marketplace.RequestsPerSec,
		cfg.Marketplace.Burst,
	)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		marketplaceClient.SetDebug(true)
		log.Printf("Marketplace client debug mode enabled")
	}

	// Initialize usecase layer
	curationService := usecase.NewCurationService(
		kitStore,
		marketplaceClient,
		kitStore,
		memoryCache,
		usecase.CurationServiceConfig{
			CacheTTL:           cfg.Cache.TTL,
			CandidateLimit:     cfg.Curation.CandidateLimit,
			GroupBoostCap:      cfg.Curation.GroupBoostCap,
			AffiliateTag:       cfg.Marketplace.AffiliateTag,
			AffiliateBaseURL:   cfg.Marketplace.AffiliateBaseURL,
			EnableDebugLogging: cfg.Curation.EnableDebugLogging,
		},
	)

	log.Printf("Curation: boost_cap=%.2f, candidate_limit=%d, debug=%v",
		cfg.Curation.GroupBoostCap,
		cfg.Curation.CandidateLimit,
		cfg.Curation.EnableDebugLogging)

	// Kit refresh scheduler runs until shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		kitScheduler := scheduler.New(kitStore, curationService, scheduler.Config{
			Concurrency:        cfg.Scheduler.Concurrency,
			Interval:           cfg.Scheduler.Interval,
			EnableDebugLogging: cfg.Curation.EnableDebugLogging,
		})
		go kitScheduler.Run(ctx)
	} else {
		log.Printf("Scheduler disabled; kits refresh on demand only")
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(curationService, kitStore)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
