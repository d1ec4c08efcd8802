package assessment

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/AIComply/pkg/errors"
)

// Risk factor identifiers expected in every QuestionnaireResponse.
const (
	FactorSensitiveData      = "sensitiveData"
	FactorDiscriminationRisk = "discriminationRisk"
	FactorHumanOversight     = "humanOversight"
	FactorSafetyImpact       = "safetyImpact"
)

// DefaultTableVersion is the version of DefaultScoringTable.
const DefaultTableVersion = "1.0.0"

// RiskFactor defines the point value of every option for one factor.
type RiskFactor struct {
	ID      string         `yaml:"id" json:"id"`
	Label   string         `yaml:"label" json:"label"`
	Options map[string]int `yaml:"options" json:"options"`
}

// RiskThresholds are the upper bounds of the lower tiers. A score below
// Minimal is minimal, below Limited is limited, up to and including High is
// high, anything above is unacceptable.
type RiskThresholds struct {
	Minimal int `yaml:"minimal" json:"minimal"`
	Limited int `yaml:"limited" json:"limited"`
	High    int `yaml:"high" json:"high"`
}

// RiskTable configures the classifier.
type RiskTable struct {
	Factors           []RiskFactor   `yaml:"factors" json:"factors"`
	Thresholds        RiskThresholds `yaml:"thresholds" json:"thresholds"`
	ProhibitedMarkers []string       `yaml:"prohibited_markers" json:"prohibited_markers"`
}

// MaturityBands are the lower bounds of each tier above initial.
type MaturityBands struct {
	Developing int `yaml:"developing" json:"developing"`
	Defined    int `yaml:"defined" json:"defined"`
	Managed    int `yaml:"managed" json:"managed"`
	Optimizing int `yaml:"optimizing" json:"optimizing"`
}

// MaturityTable configures the scorer.
type MaturityTable struct {
	Bands MaturityBands `yaml:"bands" json:"bands"`
	// Question points at or above StrengthThreshold are strengths; below
	// ImprovementThreshold are improvements.
	StrengthThreshold    float64 `yaml:"strength_threshold" json:"strength_threshold"`
	ImprovementThreshold float64 `yaml:"improvement_threshold" json:"improvement_threshold"`
	// Domains below RecommendationThreshold contribute a recommendation;
	// below ActionThreshold an action item.
	RecommendationThreshold int `yaml:"recommendation_threshold" json:"recommendation_threshold"`
	ActionThreshold         int `yaml:"action_threshold" json:"action_threshold"`
	HighPriorityBelow       int `yaml:"high_priority_below" json:"high_priority_below"`
	MediumPriorityBelow     int `yaml:"medium_priority_below" json:"medium_priority_below"`
}

// ScoringTable is the named, versioned set of thresholds and point values
// used by ClassifyRisk and ScoreMaturity.
type ScoringTable struct {
	Name     string        `yaml:"name" json:"name"`
	Version  string        `yaml:"version" json:"version"`
	Risk     RiskTable     `yaml:"risk" json:"risk"`
	Maturity MaturityTable `yaml:"maturity" json:"maturity"`

	semver *semver.Version
}

// DefaultScoringTable returns the built-in EU AI Act table.
func DefaultScoringTable() *ScoringTable {
	t := &ScoringTable{
		Name:    "eu-ai-act-default",
		Version: DefaultTableVersion,
		Risk: RiskTable{
			Factors: []RiskFactor{
				{ID: FactorSensitiveData, Label: "Sensitive data processing", Options: map[string]int{"no": 0, "yes": 25}},
				{ID: FactorDiscriminationRisk, Label: "Discrimination risk", Options: map[string]int{"low": 0, "medium": 10, "high": 20}},
				{ID: FactorHumanOversight, Label: "Human oversight", Options: map[string]int{"full": 0, "partial": 10, "minimal": 20, "none": 25}},
				{ID: FactorSafetyImpact, Label: "Safety impact", Options: map[string]int{"none": 0, "low": 5, "moderate": 10, "high": 15, "critical": 20}},
			},
			Thresholds: RiskThresholds{Minimal: 30, Limited: 60, High: 85},
			ProhibitedMarkers: []string{
				"manipulation",
				"social_scoring",
				"subliminal",
				"exploitation_of_vulnerabilities",
				"real_time_biometric_identification",
				"emotion_recognition_workplace",
			},
		},
		Maturity: MaturityTable{
			Bands:                   MaturityBands{Developing: 20, Defined: 40, Managed: 60, Optimizing: 80},
			StrengthThreshold:       75,
			ImprovementThreshold:    50,
			RecommendationThreshold: 60,
			ActionThreshold:         80,
			HighPriorityBelow:       40,
			MediumPriorityBelow:     60,
		},
	}
	t.semver = semver.MustParse(DefaultTableVersion)
	return t
}

// Validate checks structural consistency and parses the version.
func (t *ScoringTable) Validate() error {
	if t == nil {
		return errors.New(errors.ErrCodeInvalidScoringTable, "scoring table is nil")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New(errors.ErrCodeInvalidScoringTable, "scoring table name is required")
	}
	v, err := semver.NewVersion(t.Version)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeInvalidScoringTable, "scoring table version %q is not a semantic version", t.Version)
	}
	t.semver = v

	if len(t.Risk.Factors) == 0 {
		return errors.New(errors.ErrCodeInvalidScoringTable, "risk factors are required")
	}
	seen := make(map[string]struct{}, len(t.Risk.Factors))
	for _, f := range t.Risk.Factors {
		if f.ID == "" {
			return errors.New(errors.ErrCodeInvalidScoringTable, "risk factor id is required")
		}
		if _, dup := seen[f.ID]; dup {
			return errors.Newf(errors.ErrCodeInvalidScoringTable, "duplicate risk factor %q", f.ID)
		}
		seen[f.ID] = struct{}{}
		if len(f.Options) == 0 {
			return errors.Newf(errors.ErrCodeInvalidScoringTable, "risk factor %q has no options", f.ID)
		}
		for opt, pts := range f.Options {
			if pts < 0 || pts > 100 {
				return errors.Newf(errors.ErrCodeInvalidScoringTable, "risk factor %q option %q points %d out of range", f.ID, opt, pts)
			}
		}
	}

	th := t.Risk.Thresholds
	if !(0 < th.Minimal && th.Minimal < th.Limited && th.Limited <= th.High && th.High <= 100) {
		return errors.Newf(errors.ErrCodeInvalidScoringTable, "risk thresholds must ascend within (0, 100]: %+v", th)
	}

	b := t.Maturity.Bands
	if !(0 < b.Developing && b.Developing < b.Defined && b.Defined < b.Managed && b.Managed < b.Optimizing && b.Optimizing <= 100) {
		return errors.Newf(errors.ErrCodeInvalidScoringTable, "maturity bands must ascend within (0, 100]: %+v", b)
	}
	m := t.Maturity
	if m.ImprovementThreshold > m.StrengthThreshold {
		return errors.New(errors.ErrCodeInvalidScoringTable, "improvement threshold must not exceed strength threshold")
	}
	if m.HighPriorityBelow > m.MediumPriorityBelow || m.MediumPriorityBelow > m.ActionThreshold {
		return errors.New(errors.ErrCodeInvalidScoringTable, "priority thresholds must ascend up to the action threshold")
	}
	return nil
}

// SemVer returns the parsed table version. Tables that were never validated
// report 0.0.0.
func (t *ScoringTable) SemVer() *semver.Version {
	if t.semver == nil {
		if v, err := semver.NewVersion(t.Version); err == nil {
			return v
		}
		return semver.MustParse("0.0.0")
	}
	return t.semver
}

// IsNewerThan reports whether t carries a higher version than other. Used by
// hot reload to ignore stale files.
func (t *ScoringTable) IsNewerThan(other *ScoringTable) bool {
	if other == nil {
		return true
	}
	return t.SemVer().GreaterThan(other.SemVer())
}

// RiskLevelFor maps a score to its tier.
func (t *ScoringTable) RiskLevelFor(score int) RiskLevel {
	th := t.Risk.Thresholds
	switch {
	case score < th.Minimal:
		return RiskMinimal
	case score < th.Limited:
		return RiskLimited
	case score <= th.High:
		return RiskHigh
	default:
		return RiskUnacceptable
	}
}

// MaturityLevelFor maps a score to its tier.
func (t *ScoringTable) MaturityLevelFor(score int) MaturityLevel {
	b := t.Maturity.Bands
	switch {
	case score < b.Developing:
		return MaturityInitial
	case score < b.Defined:
		return MaturityDeveloping
	case score < b.Managed:
		return MaturityDefined
	case score < b.Optimizing:
		return MaturityManaged
	default:
		return MaturityOptimizing
	}
}

func (t *ScoringTable) factor(id string) (RiskFactor, bool) {
	for _, f := range t.Risk.Factors {
		if f.ID == id {
			return f, true
		}
	}
	return RiskFactor{}, false
}

// optionKeys lists a factor's options in ascending point order.
func (f RiskFactor) optionKeys() []string {
	keys := make([]string, 0, len(f.Options))
	for k := range f.Options {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if f.Options[keys[i]] == f.Options[keys[j]] {
			return keys[i] < keys[j]
		}
		return f.Options[keys[i]] < f.Options[keys[j]]
	})
	return keys
}

// ParseScoringTable decodes and validates a YAML table.
func ParseScoringTable(data []byte) (*ScoringTable, error) {
	var t ScoringTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidScoringTable, "failed to decode scoring table")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadScoringTable reads a YAML table from path. An empty path yields the
// default table.
func LoadScoringTable(path string) (*ScoringTable, error) {
	if path == "" {
		return DefaultScoringTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidScoringTable, fmt.Sprintf("failed to read scoring table %s", path))
	}
	return ParseScoringTable(data)
}
