// Package assessment holds the EU AI Act risk classifier and maturity scorer
// together with the records they produce. Both scorers are pure functions of
// their input and the ScoringTable passed to them.
package assessment

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/AIComply/pkg/errors"
)

// RiskLevel is the EU AI Act risk tier.
type RiskLevel string

const (
	RiskMinimal      RiskLevel = "minimal"
	RiskLimited      RiskLevel = "limited"
	RiskHigh         RiskLevel = "high"
	RiskUnacceptable RiskLevel = "unacceptable"
)

// IsValid reports whether r is one of the four tiers.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskMinimal, RiskLimited, RiskHigh, RiskUnacceptable:
		return true
	}
	return false
}

// MaturityLevel is the organisational capability tier.
type MaturityLevel string

const (
	MaturityInitial    MaturityLevel = "initial"
	MaturityDeveloping MaturityLevel = "developing"
	MaturityDefined    MaturityLevel = "defined"
	MaturityManaged    MaturityLevel = "managed"
	MaturityOptimizing MaturityLevel = "optimizing"
)

// IsValid reports whether m is one of the five tiers.
func (m MaturityLevel) IsValid() bool {
	switch m {
	case MaturityInitial, MaturityDeveloping, MaturityDefined, MaturityManaged, MaturityOptimizing:
		return true
	}
	return false
}

// Priority ranks action plan items.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// QuestionnaireResponse maps a risk factor id to the selected option key.
type QuestionnaireResponse map[string]string

// RiskQuestionnaire is the classifier input: factor answers plus the declared
// application domain and purpose scanned for prohibited practices.
type RiskQuestionnaire struct {
	Answers           QuestionnaireResponse `json:"answers"`
	ApplicationDomain string                `json:"application_domain,omitempty"`
	Purpose           string                `json:"purpose,omitempty"`
}

// DomainResponses maps domain id → question id → selected option value.
type DomainResponses map[string]map[string]int

// Timeline groups follow-up actions by horizon.
type Timeline struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

// RiskAssessmentResult is the classifier output.
type RiskAssessmentResult struct {
	RiskLevel       RiskLevel `json:"risk_level"`
	RiskScore       int       `json:"risk_score"`
	Reasoning       string    `json:"reasoning"`
	Obligations     []string  `json:"obligations"`
	Recommendations []string  `json:"recommendations"`
	Timeline        Timeline  `json:"timeline"`
	// ProhibitedMarkers lists the markers that forced the unacceptable tier.
	ProhibitedMarkers []string `json:"prohibited_markers,omitempty"`
}

// DomainScore is the per-domain maturity outcome.
type DomainScore struct {
	Score         int           `json:"score"`
	MaturityLevel MaturityLevel `json:"maturity_level"`
	Strengths     []string      `json:"strengths"`
	Improvements  []string      `json:"improvements"`
}

// ActionItem is one entry of the maturity action plan.
type ActionItem struct {
	Priority  Priority `json:"priority"`
	Domain    string   `json:"domain"`
	Action    string   `json:"action"`
	Timeline  string   `json:"timeline"`
	Resources []string `json:"resources"`
}

// MaturityAssessmentResult is the scorer output.
type MaturityAssessmentResult struct {
	OverallMaturity MaturityLevel          `json:"overall_maturity"`
	OverallScore    int                    `json:"overall_score"`
	DomainScores    map[string]DomainScore `json:"domain_scores"`
	Recommendations []string               `json:"recommendations"`
	ActionPlan      []ActionItem           `json:"action_plan"`
}

// AISystem is a registered AI system owned by an organisation.
type AISystem struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	OrganizationName  string    `json:"organization_name"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	ApplicationDomain string    `json:"application_domain,omitempty"`
	Purpose           string    `json:"purpose,omitempty"`
	ComplianceScore   *int      `json:"compliance_score,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewAISystem validates the identity fields and returns a new record.
func NewAISystem(userID, organizationName, name string) (*AISystem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.InvalidParam("user id cannot be empty")
	}
	if strings.TrimSpace(organizationName) == "" {
		return nil, errors.InvalidParam("organization name cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.InvalidParam("system name cannot be empty")
	}
	return &AISystem{
		ID:               uuid.New().String(),
		UserID:           userID,
		OrganizationName: organizationName,
		Name:             name,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// RiskAssessment is the persisted record of one classification.
type RiskAssessment struct {
	ID               string                `json:"id"`
	UserID           string                `json:"user_id"`
	OrganizationName string                `json:"organization_name"`
	SystemID         string                `json:"system_id,omitempty"`
	Questionnaire    RiskQuestionnaire     `json:"questionnaire"`
	Result           *RiskAssessmentResult `json:"result"`
	TableVersion     string                `json:"table_version"`
	CreatedAt        time.Time             `json:"created_at"`
}

// NewRiskAssessment wraps a classification result in a new record.
func NewRiskAssessment(userID, organizationName, systemID string, q RiskQuestionnaire, result *RiskAssessmentResult, tableVersion string) (*RiskAssessment, error) {
	if result == nil {
		return nil, errors.InvalidParam("risk assessment result cannot be nil")
	}
	if strings.TrimSpace(organizationName) == "" {
		return nil, errors.InvalidParam("organization name cannot be empty")
	}
	return &RiskAssessment{
		ID:               uuid.New().String(),
		UserID:           userID,
		OrganizationName: organizationName,
		SystemID:         systemID,
		Questionnaire:    q,
		Result:           result,
		TableVersion:     tableVersion,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// MaturityAssessment is the persisted record of one maturity scoring.
type MaturityAssessment struct {
	ID               string                    `json:"id"`
	UserID           string                    `json:"user_id"`
	OrganizationName string                    `json:"organization_name"`
	FrameworkID      string                    `json:"framework_id"`
	Responses        DomainResponses           `json:"responses"`
	Result           *MaturityAssessmentResult `json:"result"`
	TableVersion     string                    `json:"table_version"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// NewMaturityAssessment wraps a scoring result in a new record.
func NewMaturityAssessment(userID, organizationName, frameworkID string, responses DomainResponses, result *MaturityAssessmentResult, tableVersion string) (*MaturityAssessment, error) {
	if result == nil {
		return nil, errors.InvalidParam("maturity assessment result cannot be nil")
	}
	if strings.TrimSpace(organizationName) == "" {
		return nil, errors.InvalidParam("organization name cannot be empty")
	}
	return &MaturityAssessment{
		ID:               uuid.New().String(),
		UserID:           userID,
		OrganizationName: organizationName,
		FrameworkID:      frameworkID,
		Responses:        responses,
		Result:           result,
		TableVersion:     tableVersion,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// ClampScore bounds v to [0, 100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// RoundScore rounds half away from zero and clamps to [0, 100].
func RoundScore(v float64) int {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 100:
		return 100
	}
	return int(math.Round(v))
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
