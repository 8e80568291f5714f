package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"inkwell/internal/auth"
	"inkwell/internal/config"
	"inkwell/internal/handler"
	"inkwell/internal/handler/sse"
	"inkwell/internal/llm"
	"inkwell/internal/middleware"
	"inkwell/internal/repository/postgres"
	"inkwell/internal/service"
	"inkwell/internal/workflow"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Token verifier; an empty secret disables auth (dev mode)
	var verifier auth.TokenVerifier
	if cfg.JWTSecret != "" {
		v, err := auth.NewHMACVerifier(cfg.JWTSecret, logger)
		if err != nil {
			log.Fatalf("Failed to create token verifier: %v", err)
		}
		verifier = v
	} else {
		logger.Warn("JWT_SECRET not set, all requests run as the dev user")
	}

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if err := postgres.Migrate(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("schema ready", "table_prefix", cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	projectRepo := postgres.NewProjectRepository(repoConfig)
	docRepo := postgres.NewDocumentRepository(repoConfig)
	waitRepo := postgres.NewWaitAreaRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Load workflow templates (embedded default plus any custom dir)
	templates, err := workflow.Load(cfg.TemplateDir)
	if err != nil {
		log.Fatalf("Failed to load workflow templates: %v", err)
	}
	logger.Info("workflow templates loaded", "count", len(templates.List()))

	// Setup LLM providers
	registry, err := setupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up LLM providers: %v", err)
	}

	// Create services
	waitService := service.NewWaitAreaService(waitRepo, txManager, registry, cfg.DefaultModel, logger)
	reviewService := service.NewReviewService(logger)
	reviewService.StartCleanup(ctx)
	projectService := service.NewProjectService(projectRepo, docRepo, txManager, templates, logger)
	docService := service.NewDocumentService(projectRepo, docRepo, waitService, reviewService, registry, templates, cfg.DefaultModel, logger)

	// Create handlers
	healthHandler := handler.NewHealthHandler(pool)
	projectHandler := handler.NewProjectHandler(projectService, templates, logger)
	docHandler := handler.NewDocumentHandler(docService, waitService, logger)
	streamHandler := handler.NewStreamHandler(docService, sse.DefaultConfig(), logger)
	waitHandler := handler.NewWaitAreaHandler(waitService, projectService, logger)
	reviewHandler := handler.NewReviewHandler(reviewService, docService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", healthHandler.Check)

	// Template routes
	mux.HandleFunc("GET /api/templates", projectHandler.ListTemplates)
	mux.HandleFunc("GET /api/templates/{id}", projectHandler.GetTemplate)

	// Project routes
	mux.HandleFunc("GET /api/projects", projectHandler.ListProjects)
	mux.HandleFunc("POST /api/projects", projectHandler.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", projectHandler.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", projectHandler.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", projectHandler.DeleteProject)

	// Project-scoped document and waiting-area routes
	mux.HandleFunc("GET /api/projects/{id}/documents", docHandler.ListDocuments)
	mux.HandleFunc("GET /api/projects/{id}/states", waitHandler.ListStates)
	mux.HandleFunc("PUT /api/projects/{id}/states/{recordID}", waitHandler.UpdateState)
	mux.HandleFunc("DELETE /api/projects/{id}/states/{recordID}", waitHandler.DeleteState)
	mux.HandleFunc("GET /api/projects/{id}/tables", waitHandler.ListTables)
	mux.HandleFunc("GET /api/projects/{id}/tables/ddl", waitHandler.ExportDDL) // Must come before {recordID} route
	mux.HandleFunc("PUT /api/projects/{id}/tables/{recordID}", waitHandler.UpdateTable)
	mux.HandleFunc("DELETE /api/projects/{id}/tables/{recordID}", waitHandler.DeleteTable)

	// Document routes
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", docHandler.UpdateDocument)
	mux.HandleFunc("PUT /api/documents/{id}/content", docHandler.SaveContent)
	mux.HandleFunc("POST /api/documents/{id}/versions/{versionID}/switch", docHandler.SwitchVersion)
	mux.HandleFunc("POST /api/documents/{id}/extract", docHandler.Extract)
	mux.HandleFunc("POST /api/documents/{id}/inject", docHandler.Inject)

	// Streaming routes (SSE)
	mux.HandleFunc("POST /api/documents/{id}/generate", streamHandler.Generate)
	mux.HandleFunc("POST /api/documents/{id}/followup", streamHandler.FollowUp)

	// Review session routes
	mux.HandleFunc("GET /api/reviews/{id}", reviewHandler.GetSession)
	mux.HandleFunc("DELETE /api/reviews/{id}", reviewHandler.Discard)
	mux.HandleFunc("POST /api/reviews/{id}/hunks/{hunkID}", reviewHandler.SetHunkStatus)
	mux.HandleFunc("POST /api/reviews/{id}/accept-all", reviewHandler.AcceptAll)
	mux.HandleFunc("POST /api/reviews/{id}/reject-all", reviewHandler.RejectAll)
	mux.HandleFunc("POST /api/reviews/{id}/finalize", reviewHandler.Finalize)

	// Build middleware chain
	// Order: CORS → Recovery → Auth → Routes
	var root http.Handler = mux
	root = middleware.Auth(verifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupProviders builds the provider registry from configuration. The
// lorem provider is always registered in dev so the wizard works
// without API keys.
func setupProviders(cfg *config.Config, logger *slog.Logger) (*llm.Registry, error) {
	var providers []llm.Provider

	if cfg.AnthropicAPIKey != "" {
		p, err := llm.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
		logger.Info("anthropic provider configured")
	}

	if cfg.OpenAIAPIKey != "" {
		p, err := llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
		logger.Info("openai provider configured", "base_url", cfg.OpenAIBaseURL)
	}

	if cfg.Environment == "dev" || len(providers) == 0 {
		providers = append(providers, llm.NewLoremProvider())
		logger.Info("lorem provider configured")
	}

	defaultName := cfg.DefaultProvider
	found := false
	for _, p := range providers {
		if p.Name() == defaultName {
			found = true
			break
		}
	}
	if !found {
		defaultName = providers[0].Name()
		logger.Warn("default provider not configured, falling back", "provider", defaultName)
	}

	return llm.NewRegistry(defaultName, providers...), nil
}
