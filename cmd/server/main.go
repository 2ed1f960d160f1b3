package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"canopy/internal/ai/openai"
	"canopy/internal/capabilities"
	"canopy/internal/config"
	"canopy/internal/domain/repositories"
	"canopy/internal/domain/services"
	"canopy/internal/handler"
	"canopy/internal/middleware"
	"canopy/internal/repository/badgerstore"
	"canopy/internal/repository/memory"
	"canopy/internal/repository/postgres"
	"canopy/internal/service/analysis"
	"canopy/internal/service/persist"
	"canopy/internal/service/propagation"
	"canopy/internal/service/session"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.Debug {
		if logFile, err := config.SetupLogFile("logs", 5); err != nil {
			slog.Warn("file logging disabled", "error", err)
		} else {
			defer logFile.Close()
			logOut = io.MultiWriter(os.Stdout, logFile)
		}
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage", cfg.StorageBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}

	// Setup AI providers. Without an API key the workspace still works;
	// analysis and propagation requests fail with a provider error.
	var analyzer services.DocumentAnalyzer
	var comparator services.ImageComparator
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, analysis and propagation disabled")
	} else {
		aiClient, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.AnalyzerModel, cfg.ComparatorModel, capabilityRegistry, logger)
		if err != nil {
			log.Fatalf("Failed to setup AI client: %v", err)
		}
		analyzer = aiClient
		comparator = aiClient
		logger.Info("AI providers initialized",
			"analyzer_model", cfg.AnalyzerModel,
			"comparator_model", cfg.ComparatorModel,
		)
	}

	// Setup snapshot storage
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup snapshot storage: %v", err)
	}
	defer store.Close()

	// Create services
	gateway := persist.NewGateway(store, cfg.SaveDebounce, logger)
	orchestrator := analysis.NewOrchestrator(analyzer, logger)
	engine := propagation.NewEngine(comparator, logger)
	sessionService := session.New(ctx, orchestrator, engine, gateway, logger)

	logger.Info("services initialized")

	// Create handlers
	workspaceHandler := handler.NewWorkspaceHandler(sessionService, logger)
	analysisHandler := handler.NewAnalysisHandler(sessionService, logger)
	propagationHandler := handler.NewPropagationHandler(sessionService, logger)
	statusHandler := handler.NewStatusHandler(sessionService, logger)
	modelsHandler := handler.NewModelsHandler(capabilityRegistry, logger)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", workspaceHandler.HealthCheck)

	// Workspace routes
	mux.HandleFunc("GET /api/workspace/tree", workspaceHandler.GetTree)
	mux.HandleFunc("POST /api/workspace/files", workspaceHandler.UploadFile)
	mux.HandleFunc("PATCH /api/workspace/nodes/{id}", workspaceHandler.RenameNode)
	mux.HandleFunc("DELETE /api/workspace/nodes/{id}", workspaceHandler.DeleteNode)
	mux.HandleFunc("POST /api/workspace/reset", workspaceHandler.Reset)

	// Analysis routes
	mux.HandleFunc("POST /api/files/{id}/analysis", analysisHandler.Analyze)
	mux.HandleFunc("GET /api/analysis/status", statusHandler.Analysis)

	// Propagation routes
	mux.HandleFunc("POST /api/files/{id}/tags", propagationHandler.Propagate)
	mux.HandleFunc("GET /api/propagation/status", propagationHandler.Status)
	mux.HandleFunc("GET /api/propagation/events", propagationHandler.Events) // SSE progress stream

	// Persistence routes
	mux.HandleFunc("GET /api/persistence/status", statusHandler.Persistence)

	// Model capabilities routes
	mux.HandleFunc("GET /api/models/capabilities", modelsHandler.GetCapabilities)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	authMiddleware, err := middleware.Auth(ctx, cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to setup auth middleware: %v", err)
	}
	h = authMiddleware(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	// Flush any pending snapshot before the store closes.
	if err := gateway.Close(); err != nil {
		logger.Error("final snapshot write failed", "error", err)
	}
}

// openStore selects the snapshot backend from configuration.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.SnapshotStore, error) {
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo := postgres.NewSnapshotRepository(pool, cfg.Environment+"_snapshots", logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database connected")
		return repo, nil
	case "memory":
		logger.Warn("using in-memory snapshot store, workspace will not survive restarts")
		return memory.NewStore(), nil
	default:
		return badgerstore.Open(cfg.BadgerPath, logger)
	}
}
