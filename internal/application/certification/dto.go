package certification

import (
	"time"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/domain/certificate"
)

// ClassifyRiskRequest is the input for ClassifyRisk.
type ClassifyRiskRequest struct {
	UserID            string                           `json:"user_id"`
	OrganizationName  string                           `json:"organization_name"`
	SystemID          string                           `json:"system_id,omitempty"`
	Answers           assessment.QuestionnaireResponse `json:"answers"`
	ApplicationDomain string                           `json:"application_domain,omitempty"`
	Purpose           string                           `json:"purpose,omitempty"`
}

// RiskAssessmentDTO is a stored risk classification.
type RiskAssessmentDTO struct {
	ID               string                           `json:"id"`
	OrganizationName string                           `json:"organization_name"`
	SystemID         string                           `json:"system_id,omitempty"`
	TableVersion     string                           `json:"table_version"`
	CreatedAt        time.Time                        `json:"created_at"`
	Result           *assessment.RiskAssessmentResult `json:"result"`
}

// ScoreMaturityRequest is the input for ScoreMaturity. An empty FrameworkID
// selects the default framework.
type ScoreMaturityRequest struct {
	UserID           string                     `json:"user_id"`
	OrganizationName string                     `json:"organization_name"`
	FrameworkID      string                     `json:"framework_id,omitempty"`
	Responses        assessment.DomainResponses `json:"responses"`
}

// MaturityAssessmentDTO is a stored maturity scoring.
type MaturityAssessmentDTO struct {
	ID               string                               `json:"id"`
	OrganizationName string                               `json:"organization_name"`
	FrameworkID      string                               `json:"framework_id"`
	TableVersion     string                               `json:"table_version"`
	CreatedAt        time.Time                            `json:"created_at"`
	Result           *assessment.MaturityAssessmentResult `json:"result"`
}

// IssueCertificateRequest references previously stored inputs by id. At
// least the organisation must be given; every reference is optional.
type IssueCertificateRequest struct {
	UserID               string                      `json:"user_id"`
	OrganizationName     string                      `json:"organization_name"`
	SystemName           string                      `json:"system_name,omitempty"`
	SystemID             string                      `json:"system_id,omitempty"`
	CertificateType      certificate.CertificateType `json:"certificate_type"`
	RiskAssessmentID     string                      `json:"risk_assessment_id,omitempty"`
	MaturityAssessmentID string                      `json:"maturity_assessment_id,omitempty"`
	Language             string                      `json:"language,omitempty"`
}

// RegisterAISystemRequest is the input for RegisterAISystem.
type RegisterAISystemRequest struct {
	UserID            string `json:"user_id"`
	OrganizationName  string `json:"organization_name"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	ApplicationDomain string `json:"application_domain,omitempty"`
	Purpose           string `json:"purpose,omitempty"`
	ComplianceScore   *int   `json:"compliance_score,omitempty"`
}

// VerificationDTO is the public verification answer for a certificate number.
type VerificationDTO struct {
	certificate.VerificationReport
	OrganizationName string                      `json:"organization_name"`
	SystemName       string                      `json:"system_name,omitempty"`
	CertificateType  certificate.CertificateType `json:"certificate_type"`
	IssuedAt         time.Time                   `json:"issued_at"`
	OverallStatus    certificate.OverallStatus   `json:"overall_status"`
	ComplianceScore  int                         `json:"compliance_score"`
}

func riskDTO(a *assessment.RiskAssessment) *RiskAssessmentDTO {
	return &RiskAssessmentDTO{
		ID:               a.ID,
		OrganizationName: a.OrganizationName,
		SystemID:         a.SystemID,
		TableVersion:     a.TableVersion,
		CreatedAt:        a.CreatedAt,
		Result:           a.Result,
	}
}

func maturityDTO(a *assessment.MaturityAssessment) *MaturityAssessmentDTO {
	return &MaturityAssessmentDTO{
		ID:               a.ID,
		OrganizationName: a.OrganizationName,
		FrameworkID:      a.FrameworkID,
		TableVersion:     a.TableVersion,
		CreatedAt:        a.CreatedAt,
		Result:           a.Result,
	}
}
