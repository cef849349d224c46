package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/cache"
	"github.com/stemsi/formbank-backend/internal/config"
	"github.com/stemsi/formbank-backend/internal/database"
	"github.com/stemsi/formbank-backend/internal/handler"
	"github.com/stemsi/formbank-backend/internal/logger"
	"github.com/stemsi/formbank-backend/internal/repository"
	"github.com/stemsi/formbank-backend/internal/router"
	"github.com/stemsi/formbank-backend/internal/service"
	"github.com/stemsi/formbank-backend/internal/validator"
	"github.com/stemsi/formbank-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("db_driver", cfg.DBDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Formbank Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Migrate and Connect to Database ───────────────────────────────
	if err := database.Migrate(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	db, dialect, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	var (
		rdb       *redis.Client
		bankCache service.BankCache
	)
	if cfg.CacheEnabled() {
		rdb, err = database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		bankCache = cache.NewRedisBankCache(rdb, cfg.CacheTTL)
	} else {
		log.Info().Msg("REDIS_URL not set, bank cache disabled")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	bankRepo := repository.NewBankRepository(dialect)
	pageRepo := repository.NewPageRepository(dialect)
	cardRepo := repository.NewCardRepository(dialect)
	contentRepo := repository.NewContentRepository(dialect, log)

	// ─── Initialize Services ───────────────────────────────────────────
	bankService := service.NewBankService(db, bankRepo, pageRepo, cardRepo, contentRepo, bankCache, log)
	exportService := service.NewExportService(bankService, log)
	spreadsheetExporter := service.NewSpreadsheetExporter(bankService, log)

	var authService *service.AuthService
	if cfg.AuthEnabled() {
		authService = service.NewAuthService(cfg)
		log.Info().Msg("Bearer-token auth enabled on write routes")
	}

	// ─── Start Background Workers ──────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(ctx)
	if rdb != nil {
		if err := bankService.PrewarmCache(ctx); err != nil {
			log.Warn().Err(err).Msg("Cache prewarm failed")
		}
		go worker.NewCacheWarmWorker(rdb, bankService, log).Start(workerCtx)
	}

	// ─── Initialize Handlers ───────────────────────────────────────────
	handlers := &router.Handlers{
		Form:   handler.NewFormHandler(bankService, exportService, spreadsheetExporter, log),
		System: handler.NewSystemHandler(db, rdb, log),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers.
	workerCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
