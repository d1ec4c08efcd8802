package certificate

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/pkg/errors"
)

const (
	riskWeight     = 0.4
	maturityWeight = 0.6
	// defaultComplianceScore applies when no assessment and no system score exist.
	defaultComplianceScore = 50
)

// RecommendationRequest is the context handed to a Recommender.
type RecommendationRequest struct {
	OrganizationName string
	SystemName       string
	RiskLevel        assessment.RiskLevel
	RiskScore        *int
	MaturityLevel    assessment.MaturityLevel
	MaturityScore    *int
	ComplianceScore  int
	Language         string
}

// Recommender produces at most five remediation strings and reports their
// source ("llm" or "fallback"). Implementations must not fail.
type Recommender interface {
	Recommend(ctx context.Context, req RecommendationRequest) (items []string, source string)
}

// ComposerConfig holds issuer metadata.
type ComposerConfig struct {
	Authority    string
	Standard     string
	Version      string
	ValidityDays int
}

// Input is everything a certificate can be composed from. Risk, Maturity and
// AISystem are each optional.
type Input struct {
	UserID           string
	OrganizationName string
	SystemName       string
	CertificateType  CertificateType
	AISystem         *assessment.AISystem
	Risk             *assessment.RiskAssessmentResult
	Maturity         *assessment.MaturityAssessmentResult
	Language         string
	// TableVersion overrides ComposerConfig.Version when set.
	TableVersion string
}

// Composer assembles CertificateRecords.
type Composer struct {
	cfg         ComposerConfig
	serials     *SerialGenerator
	recommender Recommender
	now         func() time.Time
}

// ComposerOption customises a Composer.
type ComposerOption func(*Composer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ComposerOption {
	return func(c *Composer) { c.now = now }
}

// WithRandom replaces the serial randomness source.
func WithRandom(r io.Reader) ComposerOption {
	return func(c *Composer) { c.serials = NewSerialGenerator(r) }
}

// NewComposer validates cfg and returns a Composer.
func NewComposer(cfg ComposerConfig, recommender Recommender, opts ...ComposerOption) (*Composer, error) {
	if strings.TrimSpace(cfg.Authority) == "" {
		return nil, errors.InvalidParam("certificate authority is required")
	}
	if recommender == nil {
		return nil, errors.InvalidParam("recommender is required")
	}
	if cfg.ValidityDays <= 0 {
		cfg.ValidityDays = 365
	}
	c := &Composer{
		cfg:         cfg,
		serials:     NewSerialGenerator(nil),
		recommender: recommender,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compose builds a certificate. The steps run in a fixed order and the hash
// is computed last over the fully materialised canonical fields. Compose does
// not check serial uniqueness.
func (c *Composer) Compose(ctx context.Context, in Input) (*CertificateRecord, error) {
	if strings.TrimSpace(in.OrganizationName) == "" {
		return nil, errors.New(errors.ErrCodeInvalidCertificateInput, "organization name is required")
	}
	systemName := in.SystemName
	if systemName == "" && in.AISystem != nil {
		systemName = in.AISystem.Name
	}
	if !utf8.ValidString(in.OrganizationName) || !utf8.ValidString(systemName) {
		return nil, errors.New(errors.ErrCodeInvalidCertificateInput, "organization and system names must be valid UTF-8")
	}
	issuedAt := c.now().UTC().Truncate(time.Microsecond)

	// 1. serial
	number, err := c.serials.Next(in.CertificateType, issuedAt)
	if err != nil {
		return nil, err
	}

	rec := &CertificateRecord{
		ID:                uuid.New().String(),
		CertificateNumber: number,
		OrganizationName:  in.OrganizationName,
		SystemName:        systemName,
		CertificateType:   in.CertificateType,
		IssuedAt:          issuedAt,
		ValidUntil:        issuedAt.AddDate(0, 0, c.cfg.ValidityDays),
		UserID:            in.UserID,
	}
	if in.AISystem != nil {
		rec.SystemID = in.AISystem.ID
	}
	if in.Risk != nil {
		rec.RiskLevel = in.Risk.RiskLevel
	}
	if in.Maturity != nil {
		rec.MaturityLevel = in.Maturity.OverallMaturity
	}

	// 2. compliance score, 3. status
	rec.ComplianceScore = ComplianceScore(in.Risk, in.Maturity, in.AISystem)
	rec.ComplianceDetails.OverallStatus = StatusForScore(rec.ComplianceScore)

	// 4. criteria, 5. mitigation
	rec.CertificationCriteria = BuildCriteria(in.Risk != nil, in.Maturity != nil, in.AISystem != nil)
	rec.ComplianceDetails.RiskMitigation = RiskMitigation(rec.RiskLevel)

	// 6. recommendations
	req := RecommendationRequest{
		OrganizationName: in.OrganizationName,
		SystemName:       systemName,
		RiskLevel:        rec.RiskLevel,
		MaturityLevel:    rec.MaturityLevel,
		ComplianceScore:  rec.ComplianceScore,
		Language:         in.Language,
	}
	if in.Risk != nil {
		s := in.Risk.RiskScore
		req.RiskScore = &s
	}
	if in.Maturity != nil {
		s := in.Maturity.OverallScore
		req.MaturityScore = &s
	}
	items, source := c.recommender.Recommend(ctx, req)
	rec.ComplianceDetails.Recommendations = items
	rec.RecommendationSource = source

	// 7. review date
	rec.ComplianceDetails.NextReviewDate = NextReviewDate(issuedAt, rec.ComplianceScore)

	version := c.cfg.Version
	if in.TableVersion != "" {
		version = in.TableVersion
	}
	rec.Certification = Certification{
		Authority: c.cfg.Authority,
		Standard:  c.cfg.Standard,
		Version:   version,
	}

	// 8. hash
	hash, err := ComputeHash(rec)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to compute certificate hash")
	}
	rec.Certification.Hash = hash
	return rec, nil
}

// Renumber gives rec a fresh serial for its type and issue time and
// recomputes the hash. It is used after a storage collision so that a retry
// does not repeat the recommendation step.
func (c *Composer) Renumber(rec *CertificateRecord) error {
	if rec == nil {
		return errors.New(errors.ErrCodeInvalidCertificateInput, "certificate record is required")
	}
	number, err := c.serials.Next(rec.CertificateType, rec.IssuedAt)
	if err != nil {
		return err
	}
	rec.CertificateNumber = number
	hash, err := ComputeHash(rec)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to compute certificate hash")
	}
	rec.Certification.Hash = hash
	return nil
}

// ComplianceScore blends the available inputs: (100 − riskScore) at weight
// 0.4 and the maturity overall score at weight 0.6, normalised over the
// weights present. Without assessments the AI system score is used, and
// without anything the score is 50.
func ComplianceScore(risk *assessment.RiskAssessmentResult, maturity *assessment.MaturityAssessmentResult, system *assessment.AISystem) int {
	var sum, weights float64
	if risk != nil {
		sum += riskWeight * float64(100-assessment.ClampScore(risk.RiskScore))
		weights += riskWeight
	}
	if maturity != nil {
		sum += maturityWeight * float64(assessment.ClampScore(maturity.OverallScore))
		weights += maturityWeight
	}
	if weights > 0 {
		return assessment.RoundScore(sum / weights)
	}
	if system != nil && system.ComplianceScore != nil {
		return assessment.ClampScore(*system.ComplianceScore)
	}
	return defaultComplianceScore
}

var (
	riskCriteria = CertificationCriteria{
		EvaluatedDomains:  []string{"Risk classification (Article 6, Annex III)", "Prohibited practices (Article 5)"},
		ComplianceChecks:  []string{"Risk tier determination", "Prohibited practice screening", "Obligation mapping"},
		AssessmentMethods: []string{"Structured risk questionnaire"},
	}
	maturityCriteria = CertificationCriteria{
		EvaluatedDomains: []string{
			"AI strategy", "Governance and accountability", "Risk management",
			"Data governance", "Technical robustness", "Transparency and human oversight",
		},
		ComplianceChecks:  []string{"Organisational maturity scoring", "Action plan review"},
		AssessmentMethods: []string{"Weighted maturity self-assessment"},
	}
	systemCriteria = CertificationCriteria{
		EvaluatedDomains:  []string{"AI system registration"},
		ComplianceChecks:  []string{"AI system inventory record", "Obligation mapping"},
		AssessmentMethods: []string{"System documentation review"},
	}
)

// BuildCriteria unions the fixed criteria of each present input, keeping
// first-seen order and dropping duplicates.
func BuildCriteria(hasRisk, hasMaturity, hasSystem bool) CertificationCriteria {
	out := CertificationCriteria{
		EvaluatedDomains:  []string{},
		ComplianceChecks:  []string{},
		AssessmentMethods: []string{},
	}
	add := func(src CertificationCriteria) {
		out.EvaluatedDomains = appendUnique(out.EvaluatedDomains, src.EvaluatedDomains...)
		out.ComplianceChecks = appendUnique(out.ComplianceChecks, src.ComplianceChecks...)
		out.AssessmentMethods = appendUnique(out.AssessmentMethods, src.AssessmentMethods...)
	}
	if hasRisk {
		add(riskCriteria)
	}
	if hasMaturity {
		add(maturityCriteria)
	}
	if hasSystem {
		add(systemCriteria)
	}
	return out
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		found := false
		for _, existing := range dst {
			if existing == it {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, it)
		}
	}
	return dst
}

// RiskMitigation returns the fixed mitigation measures for a risk tier.
func RiskMitigation(level assessment.RiskLevel) []string {
	switch level {
	case assessment.RiskHigh, assessment.RiskUnacceptable:
		return []string{
			"Implement effective human oversight measures",
			"Conduct regular testing for accuracy, robustness and bias",
			"Maintain comprehensive technical documentation",
		}
	case assessment.RiskLimited:
		return []string{
			"Provide clear transparency notices to users",
			"Ensure traceability of AI-generated outputs",
		}
	default:
		return []string{}
	}
}
