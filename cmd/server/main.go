package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"marketdash/internal/app"
	"marketdash/internal/config"
	"marketdash/internal/logging"
	"marketdash/internal/trace"
)

const version = "1.0.0"

func main() {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := trace.Init(cfg.Tracing.Enabled, version); err != nil {
		logger.Fatal("tracing init", zap.Error(err))
	}

	h, err := buildHandler(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("wiring", zap.Error(err))
	}

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: newRouter(h, routerConfig{
			RequestTimeout: cfg.RequestTimeout(),
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		}, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

// buildHandler wires the upstream clients into the HTTP handlers.
func buildHandler(ctx context.Context, cfg config.Config, logger *zap.Logger) (*handler, error) {
	fetcher, err := app.NewFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	h := &handler{
		markets:    fetcher,
		predictor:  app.NewPredictor(cfg, logger),
		candidates: app.Candidates(cfg),
		logger:     logger.With(zap.String("caller", "Handler")),
	}

	filter, err := app.NewFilter(ctx, cfg, logger)
	switch {
	case errors.Is(err, app.ErrFilterDisabled):
		logger.Warn("GEMINI_API_KEY not set; /filter-stocks is disabled")
		return h, nil
	case err != nil:
		return nil, err
	}
	h.filter = filter
	return h, nil
}
