package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/AIComply/internal/config"
)

// validConfig returns a Config that passes Validate() with defaults only.
func validConfig() *config.Config {
	return config.NewDefaultConfig()
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantKey string
	}{
		{"server port zero", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"server port too large", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"server mode", func(c *config.Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"grpc port when enabled", func(c *config.Config) { c.GRPC.Enabled = true; c.GRPC.Port = -1 }, "grpc.port"},
		{"database port", func(c *config.Config) { c.Database.Port = 0 }, "database.port"},
		{"database max conns", func(c *config.Config) { c.Database.MaxConns = 0 }, "database.max_conns"},
		{"redis db", func(c *config.Config) { c.Redis.DB = -1 }, "redis.db"},
		{"kafka group", func(c *config.Config) {
			c.Kafka.Brokers = []string{"localhost:9092"}
			c.Kafka.GroupID = ""
		}, "kafka.group_id"},
		{"kafka offset reset", func(c *config.Config) { c.Kafka.AutoOffsetReset = "newest" }, "kafka.auto_offset_reset"},
		{"minio bucket", func(c *config.Config) {
			c.MinIO.Endpoint = "localhost:9000"
			c.MinIO.Bucket = ""
		}, "minio.bucket"},
		{"log level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"recommendation timeout", func(c *config.Config) { c.Recommendation.Timeout = 0 }, "recommendation.timeout"},
		{"recommendation base url", func(c *config.Config) { c.Recommendation.Enabled = true }, "recommendation.base_url"},
		{"recommendation model", func(c *config.Config) {
			c.Recommendation.Enabled = true
			c.Recommendation.BaseURL = "http://llm"
			c.Recommendation.Model = ""
		}, "recommendation.model"},
		{"recommendation language", func(c *config.Config) { c.Recommendation.Language = "fr" }, "recommendation.language"},
		{"validity days", func(c *config.Config) { c.Certificate.ValidityDays = 0 }, "certificate.validity_days"},
		{"issue attempts", func(c *config.Config) { c.Certificate.IssueMaxAttempts = 0 }, "certificate.issue_max_attempts"},
		{"authority", func(c *config.Config) { c.Certificate.Authority = "" }, "certificate.authority"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestConfig_Validate_RecommendationEnabled(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Recommendation.Enabled = true
	cfg.Recommendation.BaseURL = "http://localhost:11434/v1"
	assert.NoError(t, cfg.Validate())
}

func TestCertificateConfig_Validity(t *testing.T) {
	t.Parallel()
	c := config.CertificateConfig{ValidityDays: 365}
	assert.Equal(t, 365*24*time.Hour, c.Validity())
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	t.Parallel()
	d := config.DatabaseConfig{
		Host: "db", Port: 5433, User: "svc", Password: "p@ss", DBName: "aicomply", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://svc:p%40ss@db:5433/aicomply?sslmode=disable", d.PostgresDSN())
}
