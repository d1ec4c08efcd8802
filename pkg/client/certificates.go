package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// Certificate types accepted by Issue.
const (
	TypeConformity        = "conformity"
	TypeRiskAssessment    = "risk_assessment"
	TypeMaturity          = "maturity"
	TypeComplianceSummary = "compliance_summary"
)

// Certificate is an issued certificate document. It round-trips every field
// the integrity hash covers, so it can be handed back to VerifyDocument.
type Certificate struct {
	ID                    string    `json:"id"`
	CertificateNumber     string    `json:"certificate_number"`
	OrganizationName      string    `json:"organization_name"`
	SystemName            string    `json:"system_name,omitempty"`
	SystemID              string    `json:"system_id,omitempty"`
	CertificateType       string    `json:"certificate_type"`
	IssuedAt              time.Time `json:"issued_at"`
	ValidUntil            time.Time `json:"valid_until"`
	RiskLevel             string    `json:"risk_level,omitempty"`
	ComplianceScore       int       `json:"compliance_score"`
	MaturityLevel         string    `json:"maturity_level,omitempty"`
	CertificationCriteria struct {
		EvaluatedDomains  []string `json:"evaluated_domains"`
		ComplianceChecks  []string `json:"compliance_checks"`
		AssessmentMethods []string `json:"assessment_methods"`
	} `json:"certification_criteria"`
	ComplianceDetails struct {
		OverallStatus   string    `json:"overall_status"`
		RiskMitigation  []string  `json:"risk_mitigation"`
		Recommendations []string  `json:"recommendations"`
		NextReviewDate  time.Time `json:"next_review_date"`
	} `json:"compliance_details"`
	Certification struct {
		Authority string `json:"authority"`
		Standard  string `json:"standard"`
		Version   string `json:"version"`
		Hash      string `json:"hash"`
	} `json:"certification"`
	UserID               string `json:"user_id,omitempty"`
	RecommendationSource string `json:"recommendation_source,omitempty"`
}

// IssueRequest references previously stored assessments by id.
type IssueRequest struct {
	OrganizationName     string `json:"organization_name"`
	SystemName           string `json:"system_name,omitempty"`
	SystemID             string `json:"system_id,omitempty"`
	CertificateType      string `json:"certificate_type"`
	RiskAssessmentID     string `json:"risk_assessment_id,omitempty"`
	MaturityAssessmentID string `json:"maturity_assessment_id,omitempty"`
	Language             string `json:"language,omitempty"`
}

// Verification is the verification verdict for a certificate.
type Verification struct {
	CertificateNumber string    `json:"certificate_number"`
	Valid             bool      `json:"valid"`
	Expired           bool      `json:"expired"`
	WellFormedNumber  bool      `json:"well_formed_number"`
	StoredHash        string    `json:"stored_hash"`
	ExpectedHash      string    `json:"expected_hash,omitempty"`
	ValidUntil        time.Time `json:"valid_until"`
	CheckedAt         time.Time `json:"checked_at"`
	Reason            string    `json:"reason,omitempty"`
	OrganizationName  string    `json:"organization_name"`
	SystemName        string    `json:"system_name,omitempty"`
	CertificateType   string    `json:"certificate_type"`
	IssuedAt          time.Time `json:"issued_at"`
	OverallStatus     string    `json:"overall_status"`
	ComplianceScore   int       `json:"compliance_score"`
}

// SearchRequest filters the public registry.
type SearchRequest struct {
	Organization string
	Text         string
	Status       string
	Limit        int
	Offset       int
}

// RegistryEntry is the public projection of a certificate.
type RegistryEntry struct {
	CertificateNumber string    `json:"certificate_number"`
	OrganizationName  string    `json:"organization_name"`
	SystemName        string    `json:"system_name,omitempty"`
	CertificateType   string    `json:"certificate_type"`
	ComplianceScore   int       `json:"compliance_score"`
	OverallStatus     string    `json:"overall_status"`
	RiskLevel         string    `json:"risk_level,omitempty"`
	MaturityLevel     string    `json:"maturity_level,omitempty"`
	IssuedAt          time.Time `json:"issued_at"`
	ValidUntil        time.Time `json:"valid_until"`
	Hash              string    `json:"hash"`
}

// RegistryPage is one page of search results.
type RegistryPage struct {
	Entries []RegistryEntry `json:"entries"`
	Total   int64           `json:"total"`
}

// CertificatesClient covers issuance, lookup, verification and search.
type CertificatesClient struct {
	client *Client
}

// Issue issues a certificate.
func (cc *CertificatesClient) Issue(ctx context.Context, req *IssueRequest) (*Certificate, error) {
	var out Certificate
	if err := cc.client.post(ctx, "/certificates", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a certificate by number.
func (cc *CertificatesClient) Get(ctx context.Context, number string) (*Certificate, error) {
	var out Certificate
	if err := cc.client.get(ctx, "/certificates/"+url.PathEscape(number), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify checks a stored certificate. A tampered certificate is not an
// error; it comes back with Valid false.
func (cc *CertificatesClient) Verify(ctx context.Context, number string) (*Verification, error) {
	var out Verification
	if err := cc.client.get(ctx, "/certificates/"+url.PathEscape(number)+"/verify", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyDocument checks a certificate document without a store lookup.
func (cc *CertificatesClient) VerifyDocument(ctx context.Context, cert *Certificate) (*Verification, error) {
	var out Verification
	if err := cc.client.post(ctx, "/certificates/verify", cert, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search queries the public registry.
func (cc *CertificatesClient) Search(ctx context.Context, req SearchRequest) (*RegistryPage, error) {
	q := url.Values{}
	if req.Organization != "" {
		q.Set("org", req.Organization)
	}
	if req.Text != "" {
		q.Set("q", req.Text)
	}
	if req.Status != "" {
		q.Set("status", req.Status)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}
	path := "/certificates"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out RegistryPage
	if err := cc.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
