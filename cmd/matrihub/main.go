package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/config"
	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/handler"
	"github.com/matrihub/matrihub-go/internal/infra/cache"
	"github.com/matrihub/matrihub-go/internal/infra/memory"
	"github.com/matrihub/matrihub-go/internal/infra/observability"
	"github.com/matrihub/matrihub-go/internal/infra/payment"
	"github.com/matrihub/matrihub-go/internal/infra/resilience"
	"github.com/matrihub/matrihub-go/internal/infra/supabase"
	"github.com/matrihub/matrihub-go/internal/port"
	"github.com/matrihub/matrihub-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("showcase_limit", cfg.ShowcaseLimit),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "matrihub")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	showcaseCache := cache.New[[]domain.Profile](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var store port.DirectoryStore
	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		store = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilienceCfg,
			logger,
		)
	} else {
		logger.Warn("using in-memory data backend, data will not survive restarts")
		store = memory.New(logger)
	}

	var gateway port.PaymentGateway
	if cfg.PaymentAPIKey != "" {
		gateway = payment.NewClient(
			httpClient,
			cfg.PaymentAPIURL,
			cfg.PaymentAPIKey,
			cfg.ChargeCurrency,
			resilience.NewCircuitBreaker("payment"),
			resilienceCfg,
		)
		logger.Info("payment gateway enabled", zap.String("payment_api_url", cfg.PaymentAPIURL))
	} else {
		logger.Warn("payment gateway: no API key configured, charges disabled")
	}

	// --- Service ---
	directorySvc := service.NewDirectory(
		store,
		gateway,
		showcaseCache,
		metrics,
		logger,
		cfg.ShowcaseLimit,
		cfg.ListLimit,
	)

	if cfg.AdminKeyHash == "" {
		logger.Warn("admin key hash not configured, admin routes unavailable")
	}

	// --- Router ---
	router := handler.NewRouter(directorySvc, metrics, logger, cfg.JWTSecret, cfg.AdminKeyHash)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
