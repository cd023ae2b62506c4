package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/api"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/config"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/logging"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/service"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/store"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/telemetry"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/webhook"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.MustNew("", logging.FormatJSON)
		bootLogger.Fatal().Err(err).Msg("config")
	}
	logger := logging.MustNew(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	ctx := context.Background()
	st, err := store.NewStore(ctx, cfg.StoreType, cfg.StoreDSN())
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.StoreType).Msg("store")
	}
	defer st.Close()
	logger.Info().Str("store", cfg.StoreType).Str("env", cfg.AppEnv).Msg("store ready")

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMaxRuleLength(cfg.MaxRuleLength),
		service.WithConcurrency(cfg.BatchConcurrency),
		service.WithEnvironment(cfg.AppEnv),
	}
	var dispatcher *webhook.Dispatcher
	if len(cfg.WebhookURLs) > 0 {
		endpoints := make([]webhook.Endpoint, 0, len(cfg.WebhookURLs))
		for _, u := range cfg.WebhookURLs {
			endpoints = append(endpoints, webhook.Endpoint{URL: u, Secret: cfg.WebhookSecret, Events: cfg.WebhookEvents})
		}
		dispatcher = webhook.NewDispatcher(endpoints,
			webhook.WithLogger(logger.With().Str("component", "webhook").Logger()),
			webhook.WithMaxRetries(cfg.WebhookMaxRetries),
		)
		dispatcher.Start()
		opts = append(opts, service.WithNotifier(dispatcher))
		logger.Info().Int("endpoints", len(endpoints)).Msg("webhooks enabled")
	}

	svc := service.New(st, opts...)
	srvAPI := api.NewServer(svc, cfg.AdminAPIKey,
		api.WithLogger(logger),
		api.WithRateLimit(cfg.RateLimitPerIP),
	)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:        cfg.MetricsAddr,
		Handler:     metricsMux(),
		ReadTimeout: 3 * time.Second,
	}

	serve(logger, "api", srv)
	serve(logger, "metrics", metricsSrv)

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	ctxShut, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctxShut); err != nil {
		logger.Error().Err(err).Msg("api shutdown")
	}
	if err := metricsSrv.Shutdown(ctxShut); err != nil {
		logger.Error().Err(err).Msg("metrics shutdown")
	}
	if dispatcher != nil {
		if err := dispatcher.Close(ctxShut); err != nil {
			logger.Warn().Err(err).Msg("webhook queue not drained")
		}
	}
	logger.Info().Msg("stopped")
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return mux
}

func serve(logger zerolog.Logger, name string, srv *http.Server) {
	go func() {
		logger.Info().Str("server", name).Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Str("server", name).Msg("serve")
		}
	}()
}
