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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/bibbank/fraudscore/internal/application/usecase"
	"github.com/bibbank/fraudscore/internal/domain/service"
	"github.com/bibbank/fraudscore/internal/infrastructure/config"
	"github.com/bibbank/fraudscore/internal/infrastructure/metrics"
	"github.com/bibbank/fraudscore/internal/infrastructure/ml"
	"github.com/bibbank/fraudscore/internal/infrastructure/tabular"
	grpcpresentation "github.com/bibbank/fraudscore/internal/presentation/grpc"
	"github.com/bibbank/fraudscore/internal/presentation/rest"
	"github.com/bibbank/fraudscore/internal/presentation/stream"
	pkgkafka "github.com/bibbank/fraudscore/pkg/kafka"
	"github.com/bibbank/fraudscore/pkg/observability"
)

func init() {
	if os.Getenv("RUNNING_IN_DOCKER") == "" {
		_ = godotenv.Load()
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.Telemetry.ServiceName,
	})

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fraudscored exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("fraudscored stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting fraudscored",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"model_format", cfg.Model.Format,
		"cache_backend", cfg.Cache.Backend,
	)

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer shutdownTracer(context.Background()) //nolint:errcheck
	}

	// Metrics
	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer meterProvider.Shutdown(context.Background()) //nolint:errcheck

	recorder, err := metrics.NewRecorder(meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create metrics recorder: %w", err)
	}

	// A missing or corrupt model is fatal; a bad scaler only degrades to raw features.
	engine, err := ml.LoadEngine(cfg.EngineConfig(), logger)
	if err != nil {
		return err
	}

	store, err := openResultStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	// Wire dependencies
	bulk := service.NewBulkScorer(engine, tabular.NewCSVCodec(), store.cache)
	scoreTx := usecase.NewScoreTransaction(service.NewTransactionScorer(engine), publisher, recorder, logger)
	scoreBatch := usecase.NewScoreBatch(bulk, publisher, recorder, logger)
	fetchBatch := usecase.NewFetchLastBatch(bulk, logger)

	// HTTP server (scoring, health checks and metrics)
	checks := map[string]rest.ReadinessCheck{"model": engine.Ready}
	if store.ping != nil {
		checks["cache"] = store.ping
	}
	scoringHandler := rest.NewScoringHandler(
		scoreTx, scoreBatch, fetchBatch,
		rest.NewRateLimiter(cfg.Bulk.RateLimit, cfg.Bulk.RateBurst),
		cfg.Bulk.MaxUploadBytes,
		logger,
	)
	healthHandler := rest.NewHealthHandler(cfg.Telemetry.ServiceName, checks, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           rest.NewRouter(scoringHandler, healthHandler, metricsHandler, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// gRPC server
	grpcServer, err := grpcpresentation.NewServer(
		grpcpresentation.NewScoringServiceHandler(scoreTx, scoreBatch, fetchBatch, logger),
		cfg.GRPCAddress(),
		grpcpresentation.ServerOptions{
			CertFile:       cfg.TLS.CertFile,
			KeyFile:        cfg.TLS.KeyFile,
			Reflection:     cfg.Environment == "development",
			MaxRecvMsgSize: int(cfg.Bulk.MaxUploadBytes) + 1<<20,
		},
		logger,
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grpcServer.Start(); err != nil {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server starting", "address", cfg.HTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		store.keepAlive(gctx)
		return nil
	})

	if cfg.Kafka.RequestsTopic != "" {
		consumer, err := pkgkafka.NewConsumer(
			cfg.KafkaClientConfig(),
			cfg.Kafka.RequestsTopic,
			stream.NewHandler(scoreTx, logger).Handle,
			logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create kafka consumer: %w", err)
		}
		defer consumer.Close() //nolint:errcheck

		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	// Graceful shutdown once a signal arrives or any component fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down fraudscored")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		grpcServer.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	})

	logger.Info("fraudscored started",
		"grpc_address", cfg.GRPCAddress(),
		"http_address", cfg.HTTPAddress(),
		"feature_policy", engine.Policy(),
		"environment", cfg.Environment,
	)

	return g.Wait()
}
