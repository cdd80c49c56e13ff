package main

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

	"wordloop-backend/internal/config"
	"wordloop-backend/internal/database"
	"wordloop-backend/internal/handlers"
	"wordloop-backend/internal/logging"
	"wordloop-backend/internal/middleware"
	"wordloop-backend/internal/repository"
	"wordloop-backend/internal/router"
	"wordloop-backend/internal/services"
	"wordloop-backend/internal/websocket"
	"wordloop-backend/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("✗ server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.Info("🚀 Starting WordLoop backend...", "env", cfg.Env)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	slog.Info("✓ Environment variables loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("PostgreSQL connection failed: %w", err)
	}
	defer pool.Close()
	slog.Info("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL, cfg.WorkerCount)
	if err != nil {
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	defer redisClients.Close()
	slog.Info("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	slog.Info("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	txManager := repository.NewTxManager(pool)
	userRepo := repository.NewUserRepo(pool)
	wordRepo := repository.NewWordRepo(pool)
	masteryRepo := repository.NewMasteryRepo(pool)
	articleRepo := repository.NewArticleRepo(pool)
	templateRepo := repository.NewTemplateRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Content Generator ────
	generator, closeGenerator, err := newGenerator(cfg)
	if err != nil {
		return fmt.Errorf("generator initialization failed: %w", err)
	}
	defer closeGenerator()
	slog.Info("✓ Article generator initialized", "provider", cfg.GeneratorProvider)

	// ──── Initialize Services ────
	var locker services.UserLocker
	if cfg.UserLockBackend == config.LockBackendLocal {
		locker = services.NewLocalLocker()
	} else {
		locker = services.NewRedisLocker(redisClients.Queue)
	}

	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	notifier := services.NewNotifier(redisClients.PubSub)
	pipeline := services.NewArticlePipeline(masteryRepo, articleRepo, generator, locker, cfg.GeneratorTimeout)

	var dispatcher services.ArticleScheduler
	if cfg.WorkerCount > 0 {
		dispatcher = worker.NewDispatcher(jobRepo, redisClients.Queue)
	} else {
		dispatcher = services.NewInlineScheduler(pipeline)
	}
	gate := services.NewUnlockGate(userRepo, dispatcher)
	scheduler := services.NewReviewScheduler(wordRepo, masteryRepo, userRepo, txManager, locker, gate)
	articleQueue := services.NewArticleQueue(articleRepo, templateRepo, masteryRepo, gate, pipeline, dispatcher, txManager, locker)
	statsService := services.NewStatsService(userRepo, locker)
	vocabularyService := services.NewVocabularyService(masteryRepo)
	authService := services.NewAuthService(userRepo, services.NewRedisRefreshStore(redisClients.Queue), jwtAuth)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, pipeline, jobRepo, notifier, cfg.WorkerCount)
	if cfg.WorkerCount > 0 {
		workerPool.Start(ctx)
		slog.Info("✓ Worker pool started", "workers", cfg.WorkerCount)
	} else {
		slog.Info("✓ Inline article generation (no worker pool)")
	}

	replenisher := services.NewReplenisher(articleRepo, jobRepo, dispatcher, cfg.ReplenishInterval)
	if err := replenisher.Start(); err != nil {
		return fmt.Errorf("replenisher start failed: %w", err)
	}
	slog.Info("✓ Replenishment sweep scheduled", "interval", cfg.ReplenishInterval)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	slog.Info("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(jwtAuth, router.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Learning:   handlers.NewLearningHandler(scheduler),
		Article:    handlers.NewArticleHandler(articleQueue),
		User:       handlers.NewUserHandler(statsService),
		Vocabulary: handlers.NewVocabularyHandler(vocabularyService),
		Job:        handlers.NewJobHandler(jobRepo),
		WebSocket:  wsHub.HandleWebSocket,
	}, cfg.FrontendURL)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
		// custom article generation can wait on the generator
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GeneratorTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("✓ WordLoop backend ready", "api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port),
			"ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	// Graceful shutdown
	slog.Info("Shutting down...")
	replenisher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	workerPool.Stop()
	return nil
}

func newGenerator(cfg *config.Config) (services.ContentGenerator, func(), error) {
	switch cfg.GeneratorProvider {
	case config.ProviderOpenAI:
		g := services.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel,
			cfg.GeneratorConcurrency, cfg.GeneratorRPM)
		return g, func() {}, nil
	default:
		g, err := services.NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GeminiModel,
			cfg.GeneratorConcurrency, cfg.GeneratorRPM)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	}
}
