package client

import (
	"context"
	"net/url"
	"time"
)

// AISystem is a registered AI system.
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

// RegisterSystemRequest registers an AI system.
type RegisterSystemRequest struct {
	OrganizationName  string `json:"organization_name"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	ApplicationDomain string `json:"application_domain,omitempty"`
	Purpose           string `json:"purpose,omitempty"`
	ComplianceScore   *int   `json:"compliance_score,omitempty"`
}

// ClassifyRiskRequest carries factor answers, e.g. {"sensitiveData": "yes"}.
type ClassifyRiskRequest struct {
	OrganizationName  string            `json:"organization_name"`
	SystemID          string            `json:"system_id,omitempty"`
	Answers           map[string]string `json:"answers"`
	ApplicationDomain string            `json:"application_domain,omitempty"`
	Purpose           string            `json:"purpose,omitempty"`
}

// Timeline groups recommended actions by horizon.
type Timeline struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

// RiskResult is the classifier output.
type RiskResult struct {
	RiskLevel         string   `json:"risk_level"`
	RiskScore         int      `json:"risk_score"`
	Reasoning         string   `json:"reasoning"`
	Obligations       []string `json:"obligations"`
	Recommendations   []string `json:"recommendations"`
	Timeline          Timeline `json:"timeline"`
	ProhibitedMarkers []string `json:"prohibited_markers,omitempty"`
}

// RiskAssessment is a stored risk classification.
type RiskAssessment struct {
	ID               string      `json:"id"`
	OrganizationName string      `json:"organization_name"`
	SystemID         string      `json:"system_id,omitempty"`
	TableVersion     string      `json:"table_version"`
	CreatedAt        time.Time   `json:"created_at"`
	Result           *RiskResult `json:"result"`
}

// ScoreMaturityRequest carries per-domain question answers. An empty
// FrameworkID selects the server default.
type ScoreMaturityRequest struct {
	OrganizationName string                    `json:"organization_name"`
	FrameworkID      string                    `json:"framework_id,omitempty"`
	Responses        map[string]map[string]int `json:"responses"`
}

// DomainScore is one domain's maturity outcome.
type DomainScore struct {
	Score         int      `json:"score"`
	MaturityLevel string   `json:"maturity_level"`
	Strengths     []string `json:"strengths"`
	Improvements  []string `json:"improvements"`
}

// ActionItem is one action plan entry.
type ActionItem struct {
	Priority  string   `json:"priority"`
	Domain    string   `json:"domain"`
	Action    string   `json:"action"`
	Timeline  string   `json:"timeline"`
	Resources []string `json:"resources"`
}

// MaturityResult is the scorer output.
type MaturityResult struct {
	OverallMaturity string                 `json:"overall_maturity"`
	OverallScore    int                    `json:"overall_score"`
	DomainScores    map[string]DomainScore `json:"domain_scores"`
	Recommendations []string               `json:"recommendations"`
	ActionPlan      []ActionItem           `json:"action_plan"`
}

// MaturityAssessment is a stored maturity scoring.
type MaturityAssessment struct {
	ID               string          `json:"id"`
	OrganizationName string          `json:"organization_name"`
	FrameworkID      string          `json:"framework_id"`
	TableVersion     string          `json:"table_version"`
	CreatedAt        time.Time       `json:"created_at"`
	Result           *MaturityResult `json:"result"`
}

// Framework is a maturity model definition.
type Framework struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Domains []FrameworkDomain `json:"domains"`
}

// FrameworkDomain groups weighted questions.
type FrameworkDomain struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Weight    float64             `json:"weight"`
	Questions []FrameworkQuestion `json:"questions"`
}

// FrameworkQuestion is one scored question.
type FrameworkQuestion struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Options []struct {
		Value int    `json:"value"`
		Label string `json:"label"`
	} `json:"options"`
}

// AssessmentsClient covers systems, risk classification and maturity scoring.
type AssessmentsClient struct {
	client *Client
}

// RegisterSystem registers an AI system.
func (a *AssessmentsClient) RegisterSystem(ctx context.Context, req *RegisterSystemRequest) (*AISystem, error) {
	var out AISystem
	if err := a.client.post(ctx, "/systems", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSystem fetches a registered AI system.
func (a *AssessmentsClient) GetSystem(ctx context.Context, id string) (*AISystem, error) {
	var out AISystem
	if err := a.client.get(ctx, "/systems/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClassifyRisk runs and stores a risk classification.
func (a *AssessmentsClient) ClassifyRisk(ctx context.Context, req *ClassifyRiskRequest) (*RiskAssessment, error) {
	var out RiskAssessment
	if err := a.client.post(ctx, "/risk-assessments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScoreMaturity runs and stores a maturity scoring.
func (a *AssessmentsClient) ScoreMaturity(ctx context.Context, req *ScoreMaturityRequest) (*MaturityAssessment, error) {
	var out MaturityAssessment
	if err := a.client.post(ctx, "/maturity-assessments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFramework fetches a framework; an empty id returns the default one.
func (a *AssessmentsClient) GetFramework(ctx context.Context, id string) (*Framework, error) {
	path := "/frameworks"
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	var out Framework
	if err := a.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
