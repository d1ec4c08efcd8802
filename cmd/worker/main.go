// Command worker consumes certificate.issued events, archiving each
// certificate to object storage and indexing it into the public registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/AIComply/internal/application/certification"
	"github.com/turtacn/AIComply/internal/config"
	"github.com/turtacn/AIComply/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/AIComply/internal/infrastructure/search/opensearch"
	"github.com/turtacn/AIComply/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/AIComply/internal/interfaces/http"
	"github.com/turtacn/AIComply/internal/interfaces/http/handlers"
)

const (
	defaultHealthPort = 8081
	defaultGroupID    = "aicomply-worker"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for /healthz, /readyz and /metrics")
	ensureTopics := flag.Bool("ensure-topics", false, "create the event topics before consuming")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *healthPort, *ensureTopics, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, healthPort int, ensureTopics bool, logger logging.Logger) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required for the worker")
	}

	namespace := cfg.Metrics.Namespace
	if namespace == "" {
		namespace = "aicomply"
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:   namespace,
		Subsystem:   "worker",
		ConstLabels: map[string]string{"version": version},
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	var (
		checkers []handlers.HealthChecker
		archive  certification.CertificateArchive
		indexer  certification.RegistryIndexer
	)

	if cfg.MinIO.Endpoint != "" {
		mc, err := minio.NewClient(minio.FromMinIOConfig(cfg.MinIO), logger)
		if err != nil {
			return err
		}
		defer func() { _ = mc.Close() }()
		if err := mc.EnsureBucket(ctx); err != nil {
			return err
		}
		archive = minio.NewCertificateArchive(mc, logger)
		checkers = append(checkers, handlers.HealthCheckerFunc{ComponentName: "minio", Fn: mc.HealthCheck})
	}

	if len(cfg.OpenSearch.Addresses) > 0 {
		oc, err := opensearch.NewClient(opensearch.FromOpenSearchConfig(cfg.OpenSearch), logger)
		if err != nil {
			return err
		}
		defer func() { _ = oc.Close() }()
		ri := opensearch.NewRegistryIndexer(oc, opensearch.IndexerConfig{Index: cfg.OpenSearch.Index}, logger)
		if err := ri.EnsureIndex(ctx); err != nil {
			return err
		}
		indexer = ri
		checkers = append(checkers, handlers.HealthCheckerFunc{ComponentName: "opensearch", Fn: oc.HealthCheck})
	}

	if archive == nil && indexer == nil {
		logger.Warn("neither minio nor opensearch is configured; events will only be validated")
	}

	if ensureTopics {
		tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
		if err != nil {
			return err
		}
		err = tm.EnsureTopics(ctx, kafka.DefaultTopics())
		_ = tm.Close()
		if err != nil {
			return err
		}
	}

	dlq, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Acks:         "all",
		MaxRetries:   cfg.Kafka.MaxRetries,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = dlq.Close() }()

	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = defaultGroupID
	}
	deadLetterTopic := cfg.Kafka.DeadLetterTopic
	if deadLetterTopic == "" {
		deadLetterTopic = kafka.TopicDeadLetterCertificate
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         groupID,
		Topics:          []string{kafka.TopicCertificateIssued},
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      cfg.Kafka.MaxRetries,
			DeadLetterTopic: deadLetterTopic,
		},
	}, dlq, logger)
	if err != nil {
		return err
	}

	handler := certification.NewIssuedEventHandler(archive, indexer, logger)
	consumer.Subscribe(kafka.TopicCertificateIssued, handler.Handle)
	consumer.Observe(func(topic string, err error, d time.Duration) {
		prometheus.RecordMessage(metrics, topic, err, d)
	})

	healthSrv := httpserver.NewServer(config.ServerConfig{
		Port:            healthPort,
		Mode:            cfg.Server.Mode,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}, httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(version, metrics, checkers...),
		Logger:        logger,
		Collector:     collector,
		Metrics:       metrics,
	}), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- healthSrv.Start() }()

	if err := consumer.Start(ctx); err != nil {
		_ = healthSrv.Shutdown(context.Background())
		return err
	}
	logger.Info("worker started",
		logging.String("group", groupID),
		logging.Bool("archive", archive != nil),
		logging.Bool("index", indexer != nil))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err = <-errCh:
		logger.Error("health server failed", logging.Err(err))
	}

	if closeErr := consumer.Close(); closeErr != nil {
		logger.Warn("consumer close failed", logging.Err(closeErr))
	}
	_ = healthSrv.Shutdown(context.Background())
	logger.Info("worker stopped",
		logging.Int64("processed", consumer.Processed()),
		logging.Int64("failed", consumer.Failed()),
		logging.Int64("dead_lettered", consumer.DeadLettered()))
	return err
}
