package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ristrutturami/backend/internal/capitolato"
	"github.com/ristrutturami/backend/internal/config"
	"github.com/ristrutturami/backend/internal/db"
	httpapi "github.com/ristrutturami/backend/internal/http"
	"github.com/ristrutturami/backend/internal/service"
	"github.com/ristrutturami/backend/internal/storage"
	"github.com/ristrutturami/backend/internal/telemetry"
)

const serviceName = "pricing-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", serviceName).Logger()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint, cfg.Env)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	quantity, err := service.NewQuantityStrategy(cfg.QuantityStrategy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid quantity strategy")
	}
	estimator := &service.Estimator{
		Catalog:  store,
		Quantity: quantity,
		Timeout:  cfg.EstimateTimeout,
		Logger:   logger,
	}

	var synth capitolato.Synthesizer
	switch {
	case cfg.AnthropicKey != "":
		a, err := capitolato.NewAnthropicSynthesizer(cfg.AnthropicKey, cfg.AnthropicModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create anthropic synthesizer")
		}
		synth = a
		logger.Info().Str("model", a.Model).Msg("using anthropic capitolato synthesizer")
	case cfg.CapitolatoURL != "":
		synth = capitolato.HTTPAdapter{BaseURL: cfg.CapitolatoURL}
	default:
		synth = capitolato.MockSynthesizer{ModelVersion: "mock-v1"}
		logger.Info().Msg("using mock capitolato synthesizer")
	}

	var archive storage.Archive
	if cfg.MinioEndpoint != "" {
		a, err := storage.NewMinIOArchive(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect object storage")
		}
		archive = a
	} else {
		logger.Info().Msg("pricelist archive disabled")
	}

	router := httpapi.Router(cfg, store, estimator, synth, archive, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
