package certification

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/AIComply/internal/config"
	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/intelligence/common"
)

func TestLoadScoring_Defaults(t *testing.T) {
	table, frameworks, err := LoadScoring(config.ScoringConfig{})
	require.NoError(t, err)
	assert.Equal(t, assessment.DefaultTableVersion, table.Version)
	require.Len(t, frameworks, 1)
	assert.Equal(t, assessment.DefaultFramework().ID, frameworks[0].ID)
}

func TestLoadScoring_FromFile(t *testing.T) {
	table := assessment.DefaultScoringTable()
	table.Version = "1.2.0"
	table.Risk.Thresholds.High = 90
	raw, err := yaml.Marshal(table)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	got, _, err := LoadScoring(config.ScoringConfig{TablePath: path})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", got.Version)
	assert.Equal(t, 90, got.Risk.Thresholds.High)

	_, _, err = LoadScoring(config.ScoringConfig{TablePath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestNewEngine_FallbackOnly(t *testing.T) {
	cfg := config.NewDefaultConfig()
	metrics := common.NewInMemoryGenerationMetrics()

	engine, err := NewEngine(cfg, metrics, nil)
	require.NoError(t, err)

	score := 70
	rec, err := engine.Composer.Compose(context.Background(), certificate.Input{
		OrganizationName: "Acme GmbH",
		CertificateType:  certificate.TypeMaturity,
		Maturity: &assessment.MaturityAssessmentResult{
			OverallScore:    score,
			OverallMaturity: assessment.MaturityManaged,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, cfg.Certificate.Authority, rec.Certification.Authority)
	assert.Equal(t, common.SourceFallback, rec.RecommendationSource)
	assert.Equal(t, 1, metrics.CountBySource(common.SourceFallback))
	assert.True(t, certificate.Verify(rec))
}

func TestNewEngine_InvalidRecommendationBackend(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Recommendation.Enabled = true
	cfg.Recommendation.BaseURL = ""

	_, err := NewEngine(cfg, nil, nil)
	assert.Error(t, err)
}
