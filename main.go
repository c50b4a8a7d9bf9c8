package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MTGMAD/ai-media-gallery/internal/blobstore"
	"github.com/MTGMAD/ai-media-gallery/internal/database"
	"github.com/MTGMAD/ai-media-gallery/internal/handlers"
	"github.com/MTGMAD/ai-media-gallery/internal/ingest"
	"github.com/MTGMAD/ai-media-gallery/internal/logging"
	"github.com/MTGMAD/ai-media-gallery/internal/media"
	"github.com/MTGMAD/ai-media-gallery/internal/memory"
	"github.com/MTGMAD/ai-media-gallery/internal/metrics"
	"github.com/MTGMAD/ai-media-gallery/internal/middleware"
	"github.com/MTGMAD/ai-media-gallery/internal/reclaim"
	"github.com/MTGMAD/ai-media-gallery/internal/reconcile"
	"github.com/MTGMAD/ai-media-gallery/internal/startup"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Configure GOMEMLIMIT before any significant allocations
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize the vips image pipeline (falls back to pure Go when
	// the library is unavailable)
	if err := media.InitVips(); err != nil {
		logging.Warn("vips unavailable, using pure Go image pipeline: %v", err)
	}
	defer media.ShutdownVips()

	// Initialize metrics
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.Open(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Initialize blob store
	blobs, err := blobstore.New(config.MediaDir)
	if err != nil {
		startup.LogFatal("Failed to initialize blob store: %v", err)
	}
	existing, err := blobs.ListAll()
	if err != nil {
		logging.Warn("Could not enumerate blob tree: %v", err)
	}
	startup.LogBlobStoreInit(blobs.Root(), len(existing))

	// Memory monitor paces background passes that buffer whole payloads
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	// Initialize the ingest coordinator and maintenance engines
	ingestor := ingest.New(blobs, db, media.Thumbnail)
	reconciler := reconcile.New(blobs, db)
	reclaimer := reclaim.New(db, media.Thumbnail)
	reclaimer.SetBackpressure(monitor)

	// Run storage reclaim periodically
	reclaimCtx, stopReclaim := context.WithCancel(context.Background())
	defer stopReclaim()
	startup.LogReclaimerInit(config.ReclaimEnabled, config.ReclaimInterval)
	if config.ReclaimEnabled {
		go runPeriodicReclaim(reclaimCtx, reclaimer, config.ReclaimInterval)
	}

	// Initialize handlers
	h := handlers.New(db, blobs, ingestor, reconciler, reclaimer)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Apply metrics middleware
	var wrapped http.Handler = router
	if config.MetricsEnabled {
		wrapped = middleware.Metrics(middleware.DefaultMetricsConfig())(wrapped)
	}

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	wrapped = middleware.Logger(loggingConfig)(wrapped)

	// Apply compression middleware
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(wrapped)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Serve metrics on a separate port so scrapes bypass the main
	// middleware chain
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, stopReclaim)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Upload and item CRUD
	api.HandleFunc("/upload", h.Upload).Methods("POST")
	api.HandleFunc("/media", h.ListMedia).Methods("GET")
	api.HandleFunc("/media/{id}", h.GetMedia).Methods("GET")
	api.HandleFunc("/media/{id}", h.UpdateMedia).Methods("PUT")
	api.HandleFunc("/media/{id}", h.DeleteMedia).Methods("DELETE")
	api.HandleFunc("/media/{id}/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/media/{id}/file", h.GetFile).Methods("GET")

	// Search and stats
	api.HandleFunc("/search", h.SearchMedia).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	// Export / import
	api.HandleFunc("/export", h.ExportDatabase).Methods("GET")
	api.HandleFunc("/import", h.ImportDatabase).Methods("POST")

	// Maintenance
	api.HandleFunc("/reconcile/scan", h.ReconcileScan).Methods("POST")
	api.HandleFunc("/reconcile/cleanup", h.CleanupOrphans).Methods("POST")
	api.HandleFunc("/reclaim", h.RunReclaim).Methods("POST")

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./static")))

	return r
}

func runPeriodicReclaim(ctx context.Context, reclaimer *reclaim.Reclaimer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := reclaimer.Run(ctx); err != nil {
				logging.Error("Periodic reclaim failed: %v", err)
			}
		}
	}
}

func handleShutdown(srv, metricsSrv *http.Server, stopReclaim context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping background reclaimer")
	stopReclaim()
	startup.LogShutdownStepComplete("Reclaimer stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
