package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-vault/internal/database"
	"media-vault/internal/dirtree"
	"media-vault/internal/handlers"
	"media-vault/internal/ingest"
	"media-vault/internal/logging"
	"media-vault/internal/metrics"
	"media-vault/internal/middleware"
	"media-vault/internal/preview"
	"media-vault/internal/startup"
	"media-vault/internal/store"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Initialize content store
	st, err := store.New(config.LibraryDir)
	if err != nil {
		logging.Fatal("Failed to initialize content store: %v", err)
	}

	// Initialize thumbnail backend
	if config.VipsEnabled {
		if err := preview.InitVips(); err != nil {
			logging.Warn("libvips init failed: %v", err)
		}
	}
	startup.LogVipsInit(config.VipsEnabled, preview.IsVipsAvailable())

	// Initialize the ingest pipeline and directory lifecycle manager
	pipeline := ingest.New(db, st, preview.NewGenerator(config.VipsEnabled))
	tree := dirtree.NewManager(db, config.DeletePolicy)

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	// Initialize handlers
	h := handlers.New(db, st, pipeline, tree)

	// Setup router
	router := setupRouter(h, config.MetricsEnabled)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, config.VipsEnabled)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/media/ingest", h.IngestMedia).Methods("POST")
	api.HandleFunc("/media", h.ListMedia).Methods("GET")
	api.HandleFunc("/media/{id}", h.GetMedia).Methods("GET")
	api.HandleFunc("/media/{id}", h.UpdateMedia).Methods("PATCH")
	api.HandleFunc("/media/{id}", h.DeleteMedia).Methods("DELETE")

	api.HandleFunc("/directories", h.CreateDirectory).Methods("POST")
	api.HandleFunc("/directories/tree", h.GetDirectoryTree).Methods("GET")
	api.HandleFunc("/directories/{id}", h.RenameDirectory).Methods("PATCH")
	api.HandleFunc("/directories/{id}/move", h.MoveDirectory).Methods("POST")
	api.HandleFunc("/directories/{id}", h.DeleteDirectory).Methods("DELETE")

	return r
}

func handleShutdown(srv *http.Server, vipsEnabled bool) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if vipsEnabled {
		startup.LogShutdownStep("Shutting down libvips")
		preview.ShutdownVips()
		startup.LogShutdownStepComplete("libvips stopped")
	}

	startup.LogShutdownComplete()
}
