// Command apiserver serves the certification REST API and the gRPC health
// endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/AIComply/internal/application/certification"
	"github.com/turtacn/AIComply/internal/config"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	grpcserver "github.com/turtacn/AIComply/internal/interfaces/grpc"
	httpserver "github.com/turtacn/AIComply/internal/interfaces/http"
	"github.com/turtacn/AIComply/internal/interfaces/http/handlers"
	"github.com/turtacn/AIComply/internal/interfaces/http/middleware"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC server port (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}
	if *grpcPort > 0 {
		cfg.GRPC.Port = *grpcPort
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
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *configPath, logger); err != nil {
		logger.Error("apiserver exited with error", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, configPath string, logger logging.Logger) error {
	logger.Info("starting AIComply API server",
		logging.String("version", version),
		logging.String("commit", gitCommit),
		logging.Int("http_port", cfg.Server.Port),
		logging.Bool("grpc_enabled", cfg.GRPC.Enabled),
	)

	infra, err := initInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc, err := infra.newService(cfg, logger)
	if err != nil {
		return err
	}

	if configPath != "" {
		watchScoring(configPath, svc, logger)
	}

	rl := middleware.DefaultRateLimitConfig()
	limiter := middleware.NewTokenBucketLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.CleanupInterval)
	defer limiter.Stop()

	cors := middleware.DefaultCORSConfig()
	router := httpserver.NewRouter(httpserver.RouterConfig{
		SystemHandler:      handlers.NewSystemHandler(svc, logger),
		AssessmentHandler:  handlers.NewAssessmentHandler(svc, logger),
		CertificateHandler: handlers.NewCertificateHandler(svc, logger),
		HealthHandler:      handlers.NewHealthHandler(version, infra.metrics, infra.checkers...),
		CORS:               &cors,
		Logging:            middleware.DefaultLoggingConfig(),
		RateLimiter:        limiter,
		RateLimit:          rl,
		MaxBodySize:        cfg.Server.MaxBodySize,
		Logger:             logger,
		Collector:          infra.collector,
		Metrics:            infra.metrics,
	})
	httpSrv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Start() }()

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		checkers := make([]grpcserver.Checker, 0, len(infra.checkers))
		for _, c := range infra.checkers {
			checkers = append(checkers, c)
		}
		grpcSrv, err = grpcserver.NewServer(cfg.GRPC,
			grpcserver.WithLogger(logger),
			grpcserver.WithMetrics(infra.metrics),
			grpcserver.WithCheckers(checkers...),
		)
		if err != nil {
			_ = httpSrv.Shutdown(context.Background())
			return err
		}
		go func() { errCh <- grpcSrv.Start() }()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err = <-errCh:
		if err != nil {
			logger.Error("server failed", logging.Err(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		_ = grpcSrv.Stop(shutdownCtx)
	}
	if shutdownErr := httpSrv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("HTTP server shutdown error", logging.Err(shutdownErr))
	}
	logger.Info("servers stopped")
	return err
}

// watchScoring reloads the scoring table whenever the config file changes.
// A table that fails validation is rejected and the previous one stays live.
func watchScoring(configPath string, svc certification.Service, logger logging.Logger) {
	err := config.Watch(configPath, func(cfg *config.Config) {
		table, _, err := certification.LoadScoring(cfg.Scoring)
		if err != nil {
			logger.Error("scoring table reload failed", logging.Err(err))
			return
		}
		if err := svc.ReloadScoringTable(table); err != nil {
			logger.Error("scoring table rejected", logging.Err(err))
			return
		}
		logger.Info("scoring table reloaded", logging.String("version", table.Version))
	}, func(err error) {
		logger.Warn("config reload failed", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}
