package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/AIComply/internal/application/certification"
	"github.com/turtacn/AIComply/internal/config"
	"github.com/turtacn/AIComply/internal/infrastructure/database/postgres"
	"github.com/turtacn/AIComply/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/AIComply/internal/infrastructure/database/redis"
	"github.com/turtacn/AIComply/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/AIComply/internal/infrastructure/search/opensearch"
	"github.com/turtacn/AIComply/internal/intelligence/common"
	"github.com/turtacn/AIComply/internal/interfaces/http/handlers"
)

// infrastructure holds every external connection of the API server. Redis,
// Kafka and OpenSearch are optional and stay nil when unconfigured.
type infrastructure struct {
	conn     *postgres.Connection
	pool     *pgxpool.Pool
	redis    *redis.Client
	producer *kafka.Producer
	search   *opensearch.Client

	collector prometheus.MetricsCollector
	metrics   *prometheus.AppMetrics
	genMetric common.GenerationMetrics
	checkers  []handlers.HealthChecker
	closers   []func() error
	logger    logging.Logger
}

func initInfrastructure(ctx context.Context, cfg *config.Config, logger logging.Logger) (infra *infrastructure, err error) {
	infra = &infrastructure{logger: logger}
	defer func() {
		if err != nil {
			infra.Close()
		}
	}()

	namespace := cfg.Metrics.Namespace
	if namespace == "" {
		namespace = "aicomply"
	}
	infra.collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	infra.metrics = prometheus.NewAppMetrics(infra.collector)
	infra.genMetric, err = common.NewPrometheusGenerationMetrics(infra.collector.Registerer())
	if err != nil {
		return nil, fmt.Errorf("generation metrics: %w", err)
	}

	pgCfg := postgres.FromDatabaseConfig(cfg.Database)
	infra.conn, err = postgres.NewConnection(pgCfg, logger)
	if err != nil {
		return nil, err
	}
	infra.closers = append(infra.closers, infra.conn.Close)
	infra.checkers = append(infra.checkers, postgresChecker(infra.conn))

	if cfg.Database.AutoMigrate {
		if err = infra.conn.RunMigrations(cfg.Database.MigrationPath); err != nil {
			return nil, err
		}
	}

	infra.pool, err = postgres.NewPool(ctx, pgCfg, logger)
	if err != nil {
		return nil, err
	}
	infra.closers = append(infra.closers, func() error { infra.pool.Close(); return nil })
	infra.checkers = append(infra.checkers, pgxChecker(infra.pool))

	if cfg.Redis.Addr != "" {
		infra.redis, err = redis.NewClient(redis.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, infra.redis.Close)
		infra.checkers = append(infra.checkers, redisChecker(infra.redis))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		infra.producer, err = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Acks:         "all",
			MaxRetries:   cfg.Kafka.MaxRetries,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, infra.producer.Close)
	}

	if len(cfg.OpenSearch.Addresses) > 0 {
		infra.search, err = opensearch.NewClient(opensearch.FromOpenSearchConfig(cfg.OpenSearch), logger)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, infra.search.Close)
		infra.checkers = append(infra.checkers, opensearchChecker(infra.search))
	}

	return infra, nil
}

// newService builds the certification service over the connected stores.
func (i *infrastructure) newService(cfg *config.Config, logger logging.Logger) (certification.Service, error) {
	engine, err := certification.NewEngine(cfg, i.genMetric, logger)
	if err != nil {
		return nil, err
	}

	deps := certification.Dependencies{
		Assessments:          repositories.NewPostgresAssessmentRepo(i.conn, logger),
		Certificates:         repositories.NewCertificateRepository(i.pool, logger),
		Composer:             engine.Composer,
		Frameworks:           engine.Frameworks,
		Table:                engine.Table,
		Metrics:              i.metrics,
		Logger:               logger,
		IssueMaxAttempts:     cfg.Certificate.IssueMaxAttempts,
		RetryInitialInterval: cfg.Certificate.RetryInitialInterval,
		Language:             cfg.Recommendation.Language,
	}
	if i.redis != nil {
		ttl := cfg.Certificate.CacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		var opts []redis.CacheOption
		if cfg.Redis.KeyPrefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.KeyPrefix))
		}
		if cfg.Redis.DefaultTTL > 0 {
			opts = append(opts, redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
		}
		cache := redis.NewRedisCache(i.redis, logger, opts...)
		deps.Cache = redis.NewCertificateCache(cache, ttl, cacheObserver(i.metrics))
	}
	if i.producer != nil {
		deps.Publisher = kafka.NewCertificateEventPublisher(i.producer, kafka.TopicCertificateIssued)
	}
	if i.search != nil {
		deps.Registry = opensearch.NewRegistrySearcher(i.search, opensearch.SearcherConfig{
			Index:         cfg.OpenSearch.Index,
			SearchTimeout: cfg.OpenSearch.RequestTimeout,
		}, logger)
	}
	return certification.NewService(deps)
}

// Close releases connections in reverse order of acquisition.
func (i *infrastructure) Close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](); err != nil {
			i.logger.Warn("failed to close resource", logging.Err(err))
		}
	}
	i.closers = nil
}
