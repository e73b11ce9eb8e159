package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storyteller-admin/internal/auth"
	"storyteller-admin/internal/cdn"
	"storyteller-admin/internal/config"
	"storyteller-admin/internal/database"
	"storyteller-admin/internal/event"
	"storyteller-admin/internal/handler"
	"storyteller-admin/internal/logger"
	"storyteller-admin/internal/middleware"
	"storyteller-admin/internal/pipeline"
	"storyteller-admin/internal/repository"
	"storyteller-admin/internal/router"
	"storyteller-admin/internal/service"
	"storyteller-admin/internal/upstream"
	"storyteller-admin/internal/websocket"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server       *http.Server
	runner       *pipeline.Runner
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	return NewWithConfig(context.Background(), cfg)
}

// NewWithConfig wires every component from cfg. ctx bounds the startup
// calls only.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	var cleanups []func()
	fail := func(err error) (*App, error) {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		return nil, err
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize token verifier: %w", err))
	}
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set, session roles are decoded without signature verification")
	}

	apiClient := upstream.New(cfg.APIBaseURL, cfg.UpstreamTimeout)

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	completer, err := newCompleter(ctx, cfg, apiClient)
	if err != nil {
		return fail(err)
	}

	checks := map[string]handler.HealthChecker{}
	var store pipeline.Store = pipeline.NewMemoryStore(0)
	if cfg.DatabaseURL != "" {
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, cfg.DatabaseURL, database.PoolOptions{
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to connect to database: %w", err))
		}
		cleanups = append(cleanups, db.Close)

		if err := db.EnsureSchema(ctx); err != nil {
			return fail(fmt.Errorf("failed to ensure database schema: %w", err))
		}
		store = repository.NewPipelineRunRepository(db.Pool)
		checks["database"] = db
		slog.Info("database ready")
	} else {
		slog.Info("DATABASE_URL not set, pipeline runs are kept in memory")
	}

	aiService := service.NewAIService(apiClient, completer, cfg.TTSMaxChunkLength)
	authService := service.NewAuthService(apiClient, verifier)
	storyService := service.NewStoryService(apiClient)
	dashboardService := service.NewDashboardService(apiClient)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	go hub.Run(hubCtx)
	cleanups = append(cleanups, hubCancel)

	runner := pipeline.NewRunner(aiService, storyService, uploader, store, bus, pipeline.Options{
		Timeout:    cfg.PipelineTimeout,
		Compensate: cfg.PipelineCompensate,
	})

	proxy := handler.NewProxy(apiClient)
	session := middleware.NewSession(cfg.AuthCookieName, verifier)

	appRouter := router.New(cfg, session, router.Handlers{
		Auth: handler.NewAuthHandler(authService, proxy, handler.CookieOptions{
			Name:   cfg.AuthCookieName,
			Secure: cfg.AuthCookieSecure,
			MaxAge: cfg.AuthCookieMaxAge,
		}),
		User:         handler.NewUserHandler(proxy),
		Story:        handler.NewStoryHandler(proxy, storyService),
		Subscription: handler.NewSubscriptionHandler(proxy),
		Wallet:       handler.NewWalletHandler(proxy),
		Moderation:   handler.NewModerationHandler(proxy),
		SystemConfig: handler.NewSystemConfigHandler(proxy),
		Dashboard:    handler.NewDashboardHandler(dashboardService),
		AI:           handler.NewAIHandler(aiService),
		CDN:          handler.NewCDNHandler(uploader, cfg.MaxUploadSize),
		Pipeline:     handler.NewPipelineHandler(runner, hub, websocket.Upgrader(cfg.CORSOrigins)),
		Page:         handler.NewPageHandler(cfg.StaticDir),
		Health:       handler.NewHealthHandler(checks),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, runner: runner, cleanupFuncs: cleanups}, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func newUploader(ctx context.Context, cfg *config.Config) (cdn.Uploader, error) {
	if cfg.S3Bucket == "" {
		slog.Info("CDN uploads go to the file service", "base_url", cfg.CDNBaseURL)
		return cdn.NewFileServiceUploader(upstream.New(cfg.CDNBaseURL, cfg.UpstreamTimeout)), nil
	}

	uploader, err := cdn.NewS3Uploader(ctx, cdn.S3Config{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 uploader: %w", err)
	}
	slog.Info("CDN uploads go to S3", "bucket", cfg.S3Bucket)
	return uploader, nil
}

func newCompleter(ctx context.Context, cfg *config.Config, client *upstream.Client) (service.Completer, error) {
	if cfg.GeminiAPIKey == "" {
		return service.NewBackendCompleter(client), nil
	}

	completer, err := service.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	slog.Info("prompt completion uses Gemini", "model", cfg.GeminiModel)
	return completer, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return a.Shutdown(ctx)
}

// Shutdown stops accepting requests, waits for running pipelines up to the
// ctx deadline and then releases the database pool.
func (a *App) Shutdown(ctx context.Context) error {
	serverErr := a.server.Shutdown(ctx)

	if err := a.runner.Shutdown(ctx); err != nil {
		slog.Warn("pipeline runs interrupted by shutdown", "error", err)
	}

	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}

	if serverErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", serverErr)
	}

	slog.Info("server stopped")
	return nil
}
