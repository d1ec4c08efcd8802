package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/AIComply/internal/infrastructure/database/postgres"
	"github.com/turtacn/AIComply/internal/infrastructure/database/redis"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/AIComply/internal/infrastructure/search/opensearch"
)

// checker adapts a named check function to the HTTP and gRPC health
// interfaces.
type checker struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checker) Name() string                    { return c.name }
func (c checker) Check(ctx context.Context) error { return c.fn(ctx) }

func postgresChecker(conn *postgres.Connection) checker {
	return checker{name: "postgres", fn: conn.HealthCheck}
}

func pgxChecker(pool *pgxpool.Pool) checker {
	return checker{name: "pgx", fn: pool.Ping}
}

func redisChecker(client *redis.Client) checker {
	return checker{name: "redis", fn: client.Ping}
}

func opensearchChecker(client *opensearch.Client) checker {
	return checker{name: "opensearch", fn: client.HealthCheck}
}

// cacheObserver feeds certificate cache hits and misses into metrics.
func cacheObserver(m *prometheus.AppMetrics) redis.AccessObserver {
	return func(hit bool) { prometheus.RecordCacheAccess(m, "certificate", hit) }
}

const defaultCacheTTL = 24 * time.Hour
