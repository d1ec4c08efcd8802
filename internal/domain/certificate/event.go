package certificate

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/AIComply/internal/domain/assessment"
)

// EventCertificateIssued is the event type emitted after a certificate has
// been stored.
const EventCertificateIssued = "certificate.issued"

// IssuedEvent announces a stored certificate. The full record travels with
// the event so consumers can verify and archive it without a store lookup.
type IssuedEvent struct {
	EventID     string             `json:"event_id"`
	EventType   string             `json:"event_type"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Certificate *CertificateRecord `json:"certificate"`
}

// NewIssuedEvent wraps rec in an IssuedEvent.
func NewIssuedEvent(rec *CertificateRecord, at time.Time) *IssuedEvent {
	return &IssuedEvent{
		EventID:     uuid.New().String(),
		EventType:   EventCertificateIssued,
		OccurredAt:  at.UTC(),
		Certificate: rec,
	}
}

// RegistryQuery filters the public certificate registry.
type RegistryQuery struct {
	OrganizationName string        `json:"organization_name,omitempty"`
	Text             string        `json:"text,omitempty"`
	Status           OverallStatus `json:"status,omitempty"`
	Limit            int           `json:"limit,omitempty"`
	Offset           int           `json:"offset,omitempty"`
}

// RegistryEntry is the public projection of a certificate. It omits the
// recommendations and the issuing user.
type RegistryEntry struct {
	CertificateNumber string                   `json:"certificate_number"`
	OrganizationName  string                   `json:"organization_name"`
	SystemName        string                   `json:"system_name,omitempty"`
	CertificateType   CertificateType          `json:"certificate_type"`
	ComplianceScore   int                      `json:"compliance_score"`
	OverallStatus     OverallStatus            `json:"overall_status"`
	RiskLevel         assessment.RiskLevel     `json:"risk_level,omitempty"`
	MaturityLevel     assessment.MaturityLevel `json:"maturity_level,omitempty"`
	IssuedAt          time.Time                `json:"issued_at"`
	ValidUntil        time.Time                `json:"valid_until"`
	Hash              string                   `json:"hash"`
}

// RegistryPage is one page of registry results.
type RegistryPage struct {
	Entries []RegistryEntry `json:"entries"`
	Total   int64           `json:"total"`
}

// EntryFor projects rec onto a RegistryEntry.
func EntryFor(rec *CertificateRecord) RegistryEntry {
	return RegistryEntry{
		CertificateNumber: rec.CertificateNumber,
		OrganizationName:  rec.OrganizationName,
		SystemName:        rec.SystemName,
		CertificateType:   rec.CertificateType,
		ComplianceScore:   rec.ComplianceScore,
		OverallStatus:     rec.ComplianceDetails.OverallStatus,
		RiskLevel:         rec.RiskLevel,
		MaturityLevel:     rec.MaturityLevel,
		IssuedAt:          rec.IssuedAt,
		ValidUntil:        rec.ValidUntil,
		Hash:              rec.Certification.Hash,
	}
}
