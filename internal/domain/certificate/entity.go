// Package certificate composes and verifies tamper-evident EU AI Act
// compliance certificates.
package certificate

import (
	"time"

	"github.com/turtacn/AIComply/internal/domain/assessment"
)

// CertificateType selects the serial prefix and the certificate wording.
type CertificateType string

const (
	TypeConformity        CertificateType = "conformity"
	TypeRiskAssessment    CertificateType = "risk_assessment"
	TypeMaturity          CertificateType = "maturity"
	TypeComplianceSummary CertificateType = "compliance_summary"
)

// DefaultPrefix is used for unrecognised certificate types.
const DefaultPrefix = "CC"

// Prefix returns the two-letter serial prefix for t.
func (t CertificateType) Prefix() string {
	switch t {
	case TypeConformity:
		return "CF"
	case TypeRiskAssessment:
		return "RA"
	case TypeMaturity:
		return "MA"
	case TypeComplianceSummary:
		return "CS"
	default:
		return DefaultPrefix
	}
}

// IsValid reports whether t is one of the four known types.
func (t CertificateType) IsValid() bool {
	return t.Prefix() != DefaultPrefix
}

// OverallStatus summarises the compliance score.
type OverallStatus string

const (
	StatusCompliant          OverallStatus = "compliant"
	StatusPartiallyCompliant OverallStatus = "partially_compliant"
	StatusNonCompliant       OverallStatus = "non_compliant"
)

// StatusForScore maps a compliance score to its status: ≥80 compliant,
// ≥60 partially compliant, otherwise non-compliant.
func StatusForScore(score int) OverallStatus {
	switch {
	case score >= 80:
		return StatusCompliant
	case score >= 60:
		return StatusPartiallyCompliant
	default:
		return StatusNonCompliant
	}
}

// ReviewOffsetDays returns the number of days until the next review. Lower
// scores are reviewed sooner.
func ReviewOffsetDays(score int) int {
	switch {
	case score < 60:
		return 180
	case score < 80:
		return 270
	default:
		return 365
	}
}

// NextReviewDate returns issuedAt plus the score-banded review offset.
func NextReviewDate(issuedAt time.Time, score int) time.Time {
	return issuedAt.AddDate(0, 0, ReviewOffsetDays(score))
}

// CertificationCriteria lists what the certificate covers.
type CertificationCriteria struct {
	EvaluatedDomains  []string `json:"evaluated_domains"`
	ComplianceChecks  []string `json:"compliance_checks"`
	AssessmentMethods []string `json:"assessment_methods"`
}

// ComplianceDetails carries the derived compliance outcome.
type ComplianceDetails struct {
	OverallStatus   OverallStatus `json:"overall_status"`
	RiskMitigation  []string      `json:"risk_mitigation"`
	Recommendations []string      `json:"recommendations"`
	NextReviewDate  time.Time     `json:"next_review_date"`
}

// Certification identifies the issuer and carries the integrity hash.
type Certification struct {
	Authority string `json:"authority"`
	Standard  string `json:"standard"`
	Version   string `json:"version"`
	Hash      string `json:"hash"`
}

// CertificateRecord is an issued certificate. It is never mutated after
// issuance; corrections are new certificates with new serials.
type CertificateRecord struct {
	ID                    string                   `json:"id"`
	CertificateNumber     string                   `json:"certificate_number"`
	OrganizationName      string                   `json:"organization_name"`
	SystemName            string                   `json:"system_name,omitempty"`
	SystemID              string                   `json:"system_id,omitempty"`
	CertificateType       CertificateType          `json:"certificate_type"`
	IssuedAt              time.Time                `json:"issued_at"`
	ValidUntil            time.Time                `json:"valid_until"`
	RiskLevel             assessment.RiskLevel     `json:"risk_level,omitempty"`
	ComplianceScore       int                      `json:"compliance_score"`
	MaturityLevel         assessment.MaturityLevel `json:"maturity_level,omitempty"`
	CertificationCriteria CertificationCriteria    `json:"certification_criteria"`
	ComplianceDetails     ComplianceDetails        `json:"compliance_details"`
	Certification         Certification            `json:"certification"`
	UserID                string                   `json:"user_id,omitempty"`
	RecommendationSource  string                   `json:"recommendation_source,omitempty"`
}

// IsExpired reports whether now is past ValidUntil.
func (c *CertificateRecord) IsExpired(now time.Time) bool {
	return !c.ValidUntil.IsZero() && now.After(c.ValidUntil)
}
