package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, DefaultKafkaGroupID, cfg.Kafka.GroupID)
	assert.Equal(t, "earliest", cfg.Kafka.AutoOffsetReset)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
	assert.Equal(t, DefaultOpenSearchIndex, cfg.OpenSearch.Index)
	assert.Equal(t, DefaultRecommendationTimeout, cfg.Recommendation.Timeout)
	assert.Equal(t, "en", cfg.Recommendation.Language)
	assert.Equal(t, 365, cfg.Certificate.ValidityDays)
	assert.Equal(t, 3, cfg.Certificate.IssueMaxAttempts)
	assert.Equal(t, DefaultCertificateAuthority, cfg.Certificate.Authority)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Recommendation.Timeout = 3 * time.Second
	cfg.Certificate.ValidityDays = 730
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Recommendation.Timeout)
	assert.Equal(t, 730, cfg.Certificate.ValidityDays)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
