package certification

import (
	"github.com/turtacn/AIComply/internal/config"
	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/intelligence/common"
	"github.com/turtacn/AIComply/internal/intelligence/llm"
	"github.com/turtacn/AIComply/internal/intelligence/recommend"
)

// Engine bundles the scoring inputs and the composer built from configuration.
type Engine struct {
	Table      *assessment.ScoringTable
	Frameworks []*assessment.Framework
	Composer   *certificate.Composer
}

// LoadScoring reads the scoring table and framework files named in cfg, or
// returns the built-in defaults for empty paths.
func LoadScoring(cfg config.ScoringConfig) (*assessment.ScoringTable, []*assessment.Framework, error) {
	table := assessment.DefaultScoringTable()
	if cfg.TablePath != "" {
		t, err := assessment.LoadScoringTable(cfg.TablePath)
		if err != nil {
			return nil, nil, err
		}
		table = t
	}

	fw := assessment.DefaultFramework()
	if cfg.FrameworkPath != "" {
		f, err := assessment.LoadFramework(cfg.FrameworkPath)
		if err != nil {
			return nil, nil, err
		}
		fw = f
	}
	return table, []*assessment.Framework{fw}, nil
}

// NewEngine loads scoring inputs and builds the composer. When the
// recommendation backend is disabled only the fallback table is used.
func NewEngine(cfg *config.Config, metrics common.GenerationMetrics, logger logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	table, frameworks, err := LoadScoring(cfg.Scoring)
	if err != nil {
		return nil, err
	}

	var backend common.TextGenerator
	if cfg.Recommendation.Enabled {
		client, err := llm.NewClient(llm.Config{
			BaseURL:     cfg.Recommendation.BaseURL,
			APIKey:      cfg.Recommendation.APIKey,
			Model:       cfg.Recommendation.Model,
			MaxTokens:   cfg.Recommendation.MaxTokens,
			Temperature: cfg.Recommendation.Temperature,
			Timeout:     cfg.Recommendation.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		backend = client
	}

	gen := recommend.NewGenerator(backend, recommend.Options{
		Timeout:  cfg.Recommendation.Timeout,
		Model:    cfg.Recommendation.Model,
		Language: cfg.Recommendation.Language,
		Metrics:  metrics,
	}, logger)

	composer, err := certificate.NewComposer(certificate.ComposerConfig{
		Authority:    cfg.Certificate.Authority,
		Standard:     cfg.Certificate.Standard,
		Version:      table.Version,
		ValidityDays: cfg.Certificate.ValidityDays,
	}, NewRecommender(gen))
	if err != nil {
		return nil, err
	}

	logger.Info("certification engine ready",
		logging.String("table_version", table.Version),
		logging.String("framework", frameworks[0].ID),
		logging.Bool("llm_enabled", backend != nil),
	)
	return &Engine{Table: table, Frameworks: frameworks, Composer: composer}, nil
}
