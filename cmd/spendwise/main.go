package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"spendwise/internal/accounting"
	"spendwise/internal/ai"
	"spendwise/internal/backend"
	"spendwise/internal/cache"
	"spendwise/internal/cli"
	"spendwise/internal/core"
	apphttp "spendwise/internal/http"
	"spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/utils"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, "backend", cfg.DataBackend)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	converter := core.NewConverter(nil)
	clock := utils.SystemClock{}
	engine := accounting.New(converter,
		accounting.WithClock(clock),
		accounting.WithLocation(cfg.Location()),
		accounting.WithDefaultCurrency(cfg.DefaultCurrency),
	)

	deps := apphttp.Dependencies{
		Store:              res.Store,
		Records:            services.NewRecordService(res.Store, res.Publisher, engine, logger),
		Summary:            services.NewSummaryService(res.Store, engine, converter, cfg.DefaultCurrency),
		Ledger:             services.NewLedgerService(res.Store, cfg.DefaultCurrency, logger),
		Today:              engine.Today,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AITimeout:          cfg.AITimeout,
	}

	if cfg.AIEnabled() {
		gen, err := ai.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Gemini client", err)
		}
		assistant := ai.NewClient(gen, ai.Config{
			Models:   cfg.GeminiModels,
			Timeout:  cfg.AITimeout,
			Clock:    clock,
			Location: cfg.Location(),
			Logger:   logger,
		})
		deps.Intake = services.NewIntakeService(assistant, res.Store, clock, cfg.Location(), cfg.DefaultCurrency, logger)
		logger.Info("Assistant enabled", "model", assistant.Model())
	} else {
		logger.Info("Assistant disabled - no GEMINI_API_KEY provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	caches := cache.NewManager()
	for _, c := range srv.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(5 * time.Minute)
	defer caches.Stop()

	_, _, done := cli.GracefulShutdown(logger, 30*time.Second, srv.Shutdown)

	logger.Info("Starting spendwise server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"currency", cfg.DefaultCurrency,
		"timezone", cfg.Location().String(),
		"publishing", res.Publisher != nil,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		return
	}

	<-done
	metrics := srv.TraceMetrics()
	logger.Info("Server stopped gracefully",
		"requests", metrics.TotalRequests,
		"avg_response_time", metrics.AverageResponseTime.String(),
	)
}
