// Package certification is the application service in front of the
// assessment and certificate domains. It persists assessments, issues
// certificates with retry on serial collisions, serves verification and
// fans issued certificates out to the cache and the event stream.
package certification

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/pkg/errors"
)

const (
	defaultIssueMaxAttempts = 3
	defaultRetryInterval    = 50 * time.Millisecond
	defaultListLimit        = 20
	maxListLimit            = 100
)

// Service defines the certification use cases.
type Service interface {
	RegisterAISystem(ctx context.Context, req *RegisterAISystemRequest) (*assessment.AISystem, error)
	GetAISystem(ctx context.Context, id string) (*assessment.AISystem, error)
	ClassifyRisk(ctx context.Context, req *ClassifyRiskRequest) (*RiskAssessmentDTO, error)
	ScoreMaturity(ctx context.Context, req *ScoreMaturityRequest) (*MaturityAssessmentDTO, error)
	GetFramework(ctx context.Context, id string) (*assessment.Framework, error)
	IssueCertificate(ctx context.Context, req *IssueCertificateRequest) (*certificate.CertificateRecord, error)
	GetCertificate(ctx context.Context, number string) (*certificate.CertificateRecord, error)
	VerifyCertificate(ctx context.Context, number string) (*VerificationDTO, error)
	VerifyRecord(rec *certificate.CertificateRecord) bool
	SearchCertificates(ctx context.Context, q certificate.RegistryQuery) (*certificate.RegistryPage, error)
	ScoringTable() *assessment.ScoringTable
	ReloadScoringTable(table *assessment.ScoringTable) error
}

// Dependencies wires a Service. Assessments, Certificates and Composer are
// required; every other collaborator is optional.
type Dependencies struct {
	Assessments  assessment.Repository
	Certificates certificate.Repository
	Composer     *certificate.Composer
	Frameworks   []*assessment.Framework
	Table        *assessment.ScoringTable

	Cache     CertificateCache
	Publisher EventPublisher
	Registry  RegistrySearcher
	Metrics   Metrics
	Logger    logging.Logger

	IssueMaxAttempts     int
	RetryInitialInterval time.Duration
	Language             string
	Clock                func() time.Time
}

type serviceImpl struct {
	assessments  assessment.Repository
	certificates certificate.Repository
	composer     *certificate.Composer
	frameworks   map[string]*assessment.Framework
	defaultFwID  string
	table        atomic.Pointer[assessment.ScoringTable]

	cache     CertificateCache
	publisher EventPublisher
	registry  RegistrySearcher
	metrics   Metrics
	logger    logging.Logger

	maxAttempts   int
	retryInterval time.Duration
	language      string
	now           func() time.Time
}

// NewService validates deps and returns a Service.
func NewService(deps Dependencies) (Service, error) {
	if deps.Assessments == nil || deps.Certificates == nil {
		return nil, errors.InvalidParam("assessment and certificate repositories are required")
	}
	if deps.Composer == nil {
		return nil, errors.InvalidParam("certificate composer is required")
	}
	table := deps.Table
	if table == nil {
		table = assessment.DefaultScoringTable()
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	frameworks := deps.Frameworks
	if len(frameworks) == 0 {
		frameworks = []*assessment.Framework{assessment.DefaultFramework()}
	}

	s := &serviceImpl{
		assessments:   deps.Assessments,
		certificates:  deps.Certificates,
		composer:      deps.Composer,
		frameworks:    make(map[string]*assessment.Framework, len(frameworks)),
		defaultFwID:   frameworks[0].ID,
		cache:         deps.Cache,
		publisher:     deps.Publisher,
		registry:      deps.Registry,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		maxAttempts:   deps.IssueMaxAttempts,
		retryInterval: deps.RetryInitialInterval,
		language:      deps.Language,
		now:           deps.Clock,
	}
	for _, fw := range frameworks {
		if err := fw.Validate(); err != nil {
			return nil, err
		}
		s.frameworks[fw.ID] = fw
	}
	s.table.Store(table)

	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.logger = s.logger.Named("certification")
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultIssueMaxAttempts
	}
	if s.retryInterval <= 0 {
		s.retryInterval = defaultRetryInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *serviceImpl) ScoringTable() *assessment.ScoringTable {
	return s.table.Load()
}

// ReloadScoringTable swaps the active table. Invalid tables are rejected and
// the previous table stays active.
func (s *serviceImpl) ReloadScoringTable(table *assessment.ScoringTable) error {
	if table == nil {
		return errors.New(errors.ErrCodeInvalidScoringTable, "scoring table is nil")
	}
	if err := table.Validate(); err != nil {
		return err
	}
	prev := s.table.Swap(table)
	if prev != nil && !table.IsNewerThan(prev) {
		s.logger.Warn("scoring table reloaded without a version increase",
			logging.String("previous", prev.Version),
			logging.String("current", table.Version))
	}
	s.logger.Info("scoring table activated",
		logging.String("name", table.Name),
		logging.String("version", table.Version))
	return nil
}

func (s *serviceImpl) RegisterAISystem(ctx context.Context, req *RegisterAISystemRequest) (*assessment.AISystem, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	sys, err := assessment.NewAISystem(req.UserID, req.OrganizationName, req.Name)
	if err != nil {
		return nil, err
	}
	sys.Description = req.Description
	sys.ApplicationDomain = req.ApplicationDomain
	sys.Purpose = req.Purpose
	if req.ComplianceScore != nil {
		score := assessment.ClampScore(*req.ComplianceScore)
		sys.ComplianceScore = &score
	}
	if err := s.assessments.CreateAISystem(ctx, sys); err != nil {
		return nil, err
	}
	s.logger.Info("AI system registered",
		logging.String("system_id", sys.ID),
		logging.String("organization", sys.OrganizationName))
	return sys, nil
}

func (s *serviceImpl) GetAISystem(ctx context.Context, id string) (*assessment.AISystem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidParam("system id is required")
	}
	return s.assessments.GetAISystem(ctx, id)
}

func (s *serviceImpl) ClassifyRisk(ctx context.Context, req *ClassifyRiskRequest) (*RiskAssessmentDTO, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	start := s.now()
	q := assessment.RiskQuestionnaire{
		Answers:           req.Answers,
		ApplicationDomain: req.ApplicationDomain,
		Purpose:           req.Purpose,
	}
	if req.SystemID != "" {
		sys, err := s.assessments.GetAISystem(ctx, req.SystemID)
		if err != nil {
			return nil, err
		}
		if q.ApplicationDomain == "" {
			q.ApplicationDomain = sys.ApplicationDomain
		}
		if q.Purpose == "" {
			q.Purpose = sys.Purpose
		}
	}

	table := s.table.Load()
	result, err := assessment.ClassifyRisk(q, table)
	if err != nil {
		return nil, err
	}
	record, err := assessment.NewRiskAssessment(req.UserID, req.OrganizationName, req.SystemID, q, result, table.Version)
	if err != nil {
		return nil, err
	}
	if err := s.assessments.CreateRiskAssessment(ctx, record); err != nil {
		return nil, err
	}

	s.metrics.ObserveAssessment("risk", string(result.RiskLevel), s.now().Sub(start))
	s.logger.Info("risk classified",
		logging.String("assessment_id", record.ID),
		logging.String("risk_level", string(result.RiskLevel)),
		logging.Int("risk_score", result.RiskScore),
		logging.String("table_version", table.Version))
	return riskDTO(record), nil
}

func (s *serviceImpl) GetFramework(_ context.Context, id string) (*assessment.Framework, error) {
	if id == "" {
		id = s.defaultFwID
	}
	fw, ok := s.frameworks[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeFrameworkNotFound, "maturity framework %q not found", id)
	}
	return fw, nil
}

func (s *serviceImpl) ScoreMaturity(ctx context.Context, req *ScoreMaturityRequest) (*MaturityAssessmentDTO, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	start := s.now()
	fw, err := s.GetFramework(ctx, req.FrameworkID)
	if err != nil {
		return nil, err
	}
	table := s.table.Load()
	result, err := assessment.ScoreMaturity(req.Responses, fw, table)
	if err != nil {
		return nil, err
	}
	record, err := assessment.NewMaturityAssessment(req.UserID, req.OrganizationName, fw.ID, req.Responses, result, table.Version)
	if err != nil {
		return nil, err
	}
	if err := s.assessments.CreateMaturityAssessment(ctx, record); err != nil {
		return nil, err
	}

	s.metrics.ObserveAssessment("maturity", string(result.OverallMaturity), s.now().Sub(start))
	s.logger.Info("maturity scored",
		logging.String("assessment_id", record.ID),
		logging.String("maturity_level", string(result.OverallMaturity)),
		logging.Int("overall_score", result.OverallScore))
	return maturityDTO(record), nil
}

func (s *serviceImpl) IssueCertificate(ctx context.Context, req *IssueCertificateRequest) (*certificate.CertificateRecord, error) {
	start := s.now()
	rec, attempts, err := s.issue(ctx, req)
	if err != nil {
		s.metrics.ObserveIssuance("", "", attempts, s.now().Sub(start), string(errors.GetCode(err)))
		return nil, err
	}
	s.metrics.ObserveIssuance(string(rec.CertificateType), rec.RecommendationSource, attempts, s.now().Sub(start), "")
	s.afterIssue(ctx, rec)
	return rec, nil
}

func (s *serviceImpl) issue(ctx context.Context, req *IssueCertificateRequest) (*certificate.CertificateRecord, int, error) {
	if req == nil {
		return nil, 0, errors.New(errors.ErrCodeInvalidCertificateInput, "request is required")
	}
	if strings.TrimSpace(req.OrganizationName) == "" {
		return nil, 0, errors.New(errors.ErrCodeInvalidCertificateInput, "organization name is required")
	}
	if !req.CertificateType.IsValid() {
		return nil, 0, errors.Newf(errors.ErrCodeInvalidCertificateInput, "unknown certificate type %q", req.CertificateType)
	}

	in, err := s.gatherInput(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	rec, err := s.composer.Compose(ctx, in)
	if err != nil {
		return nil, 0, err
	}

	attempts := 0
	op := func() error {
		attempts++
		if attempts > 1 {
			if err := s.composer.Renumber(rec); err != nil {
				return backoff.Permanent(err)
			}
		}
		err := s.certificates.Create(ctx, rec)
		if err == nil {
			return nil
		}
		if errors.IsCode(err, errors.ErrCodeSerialCollision) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(_ error, wait time.Duration) {
		s.logger.Warn("certificate serial collision, retrying",
			logging.String("certificate_number", rec.CertificateNumber),
			logging.Int("attempt", attempts),
			logging.Duration("backoff", wait))
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInterval
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.maxAttempts-1)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		s.logger.Error("certificate issuance failed",
			logging.String("organization", req.OrganizationName),
			logging.Int("attempts", attempts),
			logging.Err(err))
		return nil, attempts, err
	}

	s.logger.Info("certificate issued",
		logging.String("certificate_number", rec.CertificateNumber),
		logging.String("organization", rec.OrganizationName),
		logging.Int("compliance_score", rec.ComplianceScore),
		logging.String("recommendation_source", rec.RecommendationSource),
		logging.Int("attempts", attempts))
	return rec, attempts, nil
}

// gatherInput loads the referenced system and assessments. References must
// belong to the requesting organisation.
func (s *serviceImpl) gatherInput(ctx context.Context, req *IssueCertificateRequest) (certificate.Input, error) {
	in := certificate.Input{
		UserID:           req.UserID,
		OrganizationName: req.OrganizationName,
		SystemName:       req.SystemName,
		CertificateType:  req.CertificateType,
		Language:         req.Language,
		TableVersion:     s.table.Load().Version,
	}
	if in.Language == "" {
		in.Language = s.language
	}

	if req.SystemID != "" {
		sys, err := s.assessments.GetAISystem(ctx, req.SystemID)
		if err != nil {
			return in, err
		}
		if err := sameOrganization(req.OrganizationName, sys.OrganizationName, "AI system"); err != nil {
			return in, err
		}
		in.AISystem = sys
	}
	if req.RiskAssessmentID != "" {
		ra, err := s.assessments.GetRiskAssessment(ctx, req.RiskAssessmentID)
		if err != nil {
			return in, err
		}
		if err := sameOrganization(req.OrganizationName, ra.OrganizationName, "risk assessment"); err != nil {
			return in, err
		}
		in.Risk = ra.Result
		in.TableVersion = ra.TableVersion
	}
	if req.MaturityAssessmentID != "" {
		ma, err := s.assessments.GetMaturityAssessment(ctx, req.MaturityAssessmentID)
		if err != nil {
			return in, err
		}
		if err := sameOrganization(req.OrganizationName, ma.OrganizationName, "maturity assessment"); err != nil {
			return in, err
		}
		in.Maturity = ma.Result
		if req.RiskAssessmentID == "" {
			in.TableVersion = ma.TableVersion
		}
	}
	return in, nil
}

func sameOrganization(want, got, what string) error {
	if !strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got)) {
		return errors.Newf(errors.ErrCodeInvalidCertificateInput, "%s belongs to a different organization", what)
	}
	return nil
}

// afterIssue runs the best-effort side effects of a stored certificate.
func (s *serviceImpl) afterIssue(ctx context.Context, rec *certificate.CertificateRecord) {
	if rec.SystemID != "" {
		if err := s.assessments.UpdateAISystemScore(ctx, rec.SystemID, rec.ComplianceScore); err != nil {
			s.logger.Warn("failed to update AI system compliance score",
				logging.String("system_id", rec.SystemID), logging.Err(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, rec); err != nil {
			s.logger.Warn("failed to cache certificate",
				logging.String("certificate_number", rec.CertificateNumber), logging.Err(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishCertificateIssued(ctx, certificate.NewIssuedEvent(rec, s.now())); err != nil {
			s.logger.Error("failed to publish certificate.issued",
				logging.String("certificate_number", rec.CertificateNumber), logging.Err(err))
		}
	}
}

func (s *serviceImpl) GetCertificate(ctx context.Context, number string) (*certificate.CertificateRecord, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, errors.InvalidParam("certificate number is required")
	}
	if s.cache == nil {
		return s.certificates.GetByNumber(ctx, number)
	}
	return s.cache.GetOrLoad(ctx, number, func(ctx context.Context) (*certificate.CertificateRecord, error) {
		return s.certificates.GetByNumber(ctx, number)
	})
}

// VerifyCertificate loads the certificate and reports whether its stored
// hash matches the recomputed one. A mismatch is a negative verdict, not an
// error; only a missing certificate or a lookup failure is an error.
func (s *serviceImpl) VerifyCertificate(ctx context.Context, number string) (*VerificationDTO, error) {
	rec, err := s.GetCertificate(ctx, number)
	if err != nil {
		return nil, err
	}
	report := certificate.Inspect(rec, s.now())
	s.metrics.ObserveVerification(report.Valid)
	if !report.Valid {
		s.logger.Warn("certificate failed verification",
			logging.String("certificate_number", rec.CertificateNumber),
			logging.String("reason", report.Reason))
	}
	return &VerificationDTO{
		VerificationReport: report,
		OrganizationName:   rec.OrganizationName,
		SystemName:         rec.SystemName,
		CertificateType:    rec.CertificateType,
		IssuedAt:           rec.IssuedAt,
		OverallStatus:      rec.ComplianceDetails.OverallStatus,
		ComplianceScore:    rec.ComplianceScore,
	}, nil
}

func (s *serviceImpl) VerifyRecord(rec *certificate.CertificateRecord) bool {
	ok := certificate.Verify(rec)
	s.metrics.ObserveVerification(ok)
	return ok
}

// SearchCertificates queries the registry when one is configured and falls
// back to listing the store by organisation otherwise. The store applies the
// status filter before paging, so Total counts every match.
func (s *serviceImpl) SearchCertificates(ctx context.Context, q certificate.RegistryQuery) (*certificate.RegistryPage, error) {
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if s.registry != nil {
		return s.registry.Search(ctx, q)
	}
	if strings.TrimSpace(q.OrganizationName) == "" {
		return nil, errors.InvalidParam("organization name is required without a registry")
	}
	recs, total, err := s.certificates.ListByOrganization(ctx, q.OrganizationName, q.Status, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	page := &certificate.RegistryPage{Entries: make([]certificate.RegistryEntry, 0, len(recs)), Total: total}
	for _, rec := range recs {
		page.Entries = append(page.Entries, certificate.EntryFor(rec))
	}
	return page, nil
}
