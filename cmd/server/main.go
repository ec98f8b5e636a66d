package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"linkmesh/internal/adapter"
	"linkmesh/internal/config"
	"linkmesh/internal/handler"
	"linkmesh/internal/loader"
	"linkmesh/internal/observability"
	"linkmesh/internal/repository/sqlite"
	"linkmesh/internal/service"
)

func main() {
	// Command line flags override config file values
	configPath := flag.String("config", "", "config file path (default: auto-discover)")
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path")
	inventoryPath := flag.String("inventory", "", "YAML inventory to import on startup")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting linkmesh server...")

	// .env is optional; environment beats it either way
	_ = godotenv.Load()

	cfg, loadedFrom, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if loadedFrom != "" {
		log.Printf("Config loaded: %s", loadedFrom)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *inventoryPath != "" {
		cfg.Inventory.Path = *inventoryPath
	}

	// Initialize SQLite repository
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()
	log.Printf("Database opened: %s", cfg.Database.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Seed the inventory if configured; the import is upsert-based so
	// re-running it on every startup is harmless
	if cfg.Inventory.Path != "" {
		inv, err := loader.LoadYAML(cfg.Inventory.Path)
		if err != nil {
			log.Fatalf("Failed to load inventory: %v", err)
		}
		if err := inv.Import(ctx, repo); err != nil {
			log.Fatalf("Failed to import inventory: %v", err)
		}
		log.Printf("Inventory imported: %s", cfg.Inventory.Path)
	}

	// Initialize event bus with a logging subscriber
	eventBus := service.NewEventBus()
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for event := range eventChan {
			log.Printf("Event: %s %v", event.Type, event.Payload)
		}
	}()

	metrics, err := observability.NewReconcilerCollector(nil)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	// Initialize services
	resolver := service.NewResolver(repo, eventBus)
	fetcher := adapter.NewDocumentFetcher(cfg.Reconciler.FetchTimeout.Std())
	reconciler := service.NewReconciler(repo, resolver, fetcher, eventBus, metrics, service.ReconcilerOptions{
		DisconnectVanished: cfg.Reconciler.ShouldDisconnectVanished(),
	})
	scheduler := service.NewScheduler(repo, reconciler, cfg.Reconciler.Interval.Std(), cfg.Reconciler.MaxParallel)
	go scheduler.Run(ctx)

	// Initialize HTTP handlers
	apiHandler := handler.NewAPIHandler(repo, resolver, reconciler)

	// Setup routes
	mux := http.NewServeMux()

	// Topology endpoints
	mux.HandleFunc("GET /api/topologies", apiHandler.ListTopologies)
	mux.HandleFunc("GET /api/topologies/{slug}", apiHandler.GetTopology)
	mux.HandleFunc("POST /api/topologies/{slug}/update", apiHandler.UpdateTopology)

	// Link endpoints
	mux.HandleFunc("GET /api/links", apiHandler.ListLinks)
	mux.HandleFunc("GET /api/links/lookup", apiHandler.GetLinkByAddresses)

	// Export endpoints
	mux.HandleFunc("GET /export/links.xlsx", apiHandler.ExportLinksXLSX)

	// Operational endpoints
	mux.HandleFunc("GET /healthz", apiHandler.Healthz)
	mux.Handle("GET /metrics", metrics.Handler())

	// Apply middleware
	finalHandler := handler.Chain(mux,
		handler.Recover,
		handler.Logger,
	)

	// Create server
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      finalHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}
