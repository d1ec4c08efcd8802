package config

import (
	"fmt"
	"net/url"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"
	DefaultGRPCPort   = 9090

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBUser     = "aicomply"
	DefaultDBName     = "aicomply"
	DefaultDBMaxConns = 25

	DefaultRedisKeyPrefix = "aicomply:"

	DefaultKafkaGroupID = "aicomply-worker"

	DefaultMinIOBucket = "certificates"

	DefaultOpenSearchIndex = "certificate-registry"

	DefaultStorePath = "./data/aicomply.ldb"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "aicomply"
	DefaultMetricsPath      = "/metrics"

	DefaultRecommendationTimeout  = 15 * time.Second
	DefaultRecommendationModel    = "gpt-4o-mini"
	DefaultRecommendationLanguage = "en"
	DefaultRecommendationTokens   = 512

	DefaultCertificateAuthority = "AIComply Certification Authority"
	DefaultCertificateStandard  = "EU AI Act (Regulation (EU) 2024/1689)"
	DefaultCertificateValidity  = 365
	DefaultIssueMaxAttempts     = 3
	DefaultIssueRetryInterval   = 50 * time.Millisecond
	DefaultCertificateCacheTTL  = 15 * time.Minute
)

// ApplyDefaults fills every zero-value field in cfg with its default. Values
// set explicitly by the caller are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 1 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.GRPC.Port == 0 {
		cfg.GRPC.Port = DefaultGRPCPort
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "internal/infrastructure/database/postgres/migrations"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultCertificateCacheTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// ── MinIO / OpenSearch ────────────────────────────────────────────────────
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.OpenSearch.Index == "" {
		cfg.OpenSearch.Index = DefaultOpenSearchIndex
	}
	if cfg.OpenSearch.RequestTimeout == 0 {
		cfg.OpenSearch.RequestTimeout = 10 * time.Second
	}

	// ── Store ─────────────────────────────────────────────────────────────────
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}

	// ── Log / Metrics ─────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Recommendation ────────────────────────────────────────────────────────
	if cfg.Recommendation.Timeout == 0 {
		cfg.Recommendation.Timeout = DefaultRecommendationTimeout
	}
	if cfg.Recommendation.Model == "" {
		cfg.Recommendation.Model = DefaultRecommendationModel
	}
	if cfg.Recommendation.Language == "" {
		cfg.Recommendation.Language = DefaultRecommendationLanguage
	}
	if cfg.Recommendation.MaxTokens == 0 {
		cfg.Recommendation.MaxTokens = DefaultRecommendationTokens
	}

	// ── Certificate ───────────────────────────────────────────────────────────
	if cfg.Certificate.Authority == "" {
		cfg.Certificate.Authority = DefaultCertificateAuthority
	}
	if cfg.Certificate.Standard == "" {
		cfg.Certificate.Standard = DefaultCertificateStandard
	}
	if cfg.Certificate.ValidityDays == 0 {
		cfg.Certificate.ValidityDays = DefaultCertificateValidity
	}
	if cfg.Certificate.IssueMaxAttempts == 0 {
		cfg.Certificate.IssueMaxAttempts = DefaultIssueMaxAttempts
	}
	if cfg.Certificate.RetryInitialInterval == 0 {
		cfg.Certificate.RetryInitialInterval = DefaultIssueRetryInterval
	}
	if cfg.Certificate.CacheTTL == 0 {
		cfg.Certificate.CacheTTL = DefaultCertificateCacheTTL
	}
}

// NewDefaultConfig returns a Config populated only with defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func buildDSN(d DatabaseConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
