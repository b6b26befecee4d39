package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bibbank/fraudscore/internal/domain/port"
	"github.com/bibbank/fraudscore/internal/infrastructure/cache"
	"github.com/bibbank/fraudscore/internal/infrastructure/config"
	"github.com/bibbank/fraudscore/internal/infrastructure/messaging"
	infrapg "github.com/bibbank/fraudscore/internal/infrastructure/postgres"
	"github.com/bibbank/fraudscore/internal/presentation/rest"
	pkgkafka "github.com/bibbank/fraudscore/pkg/kafka"
	pkgpostgres "github.com/bibbank/fraudscore/pkg/postgres"
)

// resultStore is the configured bulk result cache plus its lifecycle hooks.
type resultStore struct {
	cache     port.ResultCache
	ping      rest.ReadinessCheck
	heartbeat cache.Heartbeater
	lease     time.Duration
	closers   []func(context.Context) error
	logger    *slog.Logger
}

// keepAlive renews the shared slot's lease until ctx is done. It returns
// at once for the memory backend or a zero lease.
func (s *resultStore) keepAlive(ctx context.Context) {
	if s.heartbeat == nil {
		return
	}
	cache.KeepAlive(ctx, s.heartbeat, cache.HeartbeatInterval(s.lease), s.logger)
}

// Close drops this instance's cached entry and releases connections.
func (s *resultStore) Close(ctx context.Context) {
	for _, closeFn := range s.closers {
		if err := closeFn(ctx); err != nil {
			s.logger.Warn("failed to close result cache", "error", err)
		}
	}
}

// openResultStore builds the cache named by CACHE_BACKEND. Each process gets
// its own instance id, so a restart never serves a previous run's output.
func openResultStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*resultStore, error) {
	instanceID := uuid.New()

	switch cfg.Cache.Backend {
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		c := cache.NewRedisCache(client, instanceID, cfg.Cache.TTL)
		if err := c.Ping(ctx); err != nil {
			client.Close() //nolint:errcheck
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("connected to redis", "address", cfg.Cache.RedisAddr)
		return &resultStore{
			cache:     c,
			ping:      c.Ping,
			heartbeat: c,
			lease:     cfg.Cache.TTL,
			closers: []func(context.Context) error{
				c.Close,
				func(context.Context) error { return client.Close() },
			},
			logger: logger,
		}, nil

	case config.CachePostgres:
		if err := infrapg.Migrate(cfg.Cache.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		pool, err := pkgpostgres.NewPool(ctx, pkgpostgres.Config{
			URL:             cfg.Cache.DatabaseURL,
			ApplicationName: cfg.Telemetry.ServiceName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("connected to database")
		c := infrapg.NewBulkCache(pool, instanceID, cfg.Cache.TTL)
		return &resultStore{
			cache:     c,
			ping:      c.Ping,
			heartbeat: c,
			lease:     cfg.Cache.TTL,
			closers: []func(context.Context) error{
				c.Close,
				func(context.Context) error { pool.Close(); return nil },
			},
			logger: logger,
		}, nil

	default:
		c := cache.NewMemoryCache()
		return &resultStore{
			cache:   c,
			closers: []func(context.Context) error{c.Close},
			logger:  logger,
		}, nil
	}
}

// newPublisher returns a Kafka publisher when brokers are configured and a
// log-only publisher otherwise.
func newPublisher(cfg *config.Config, logger *slog.Logger) (port.EventPublisher, func(), error) {
	if len(cfg.KafkaBrokers()) == 0 {
		logger.Info("kafka not configured, domain events are logged only")
		return messaging.NewLogPublisher(logger), func() {}, nil
	}

	producer, err := pkgkafka.NewProducer(cfg.KafkaClientConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	closeFn := func() {
		if err := producer.Close(); err != nil {
			logger.Warn("failed to close kafka producer", "error", err)
		}
	}
	return messaging.NewKafkaPublisher(producer, cfg.Kafka.EventsTopic, logger), closeFn, nil
}
