package certification

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/intelligence/common"
	"github.com/turtacn/AIComply/internal/intelligence/recommend"
	"github.com/turtacn/AIComply/internal/testutil"
	"github.com/turtacn/AIComply/pkg/errors"
)

var fixedNow = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishCertificateIssued(ctx context.Context, evt *certificate.IssuedEvent) error {
	return m.Called(ctx, evt).Error(0)
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]*certificate.CertificateRecord
	loads int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string]*certificate.CertificateRecord{}}
}

func (c *memoryCache) GetOrLoad(ctx context.Context, number string, load func(context.Context) (*certificate.CertificateRecord, error)) (*certificate.CertificateRecord, error) {
	c.mu.Lock()
	if rec, ok := c.items[number]; ok {
		c.mu.Unlock()
		return rec, nil
	}
	c.loads++
	c.mu.Unlock()
	rec, err := load(ctx)
	if err != nil {
		return nil, err
	}
	return rec, c.Put(ctx, rec)
}

func (c *memoryCache) Put(_ context.Context, rec *certificate.CertificateRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[rec.CertificateNumber] = rec
	return nil
}

type recordingMetrics struct {
	mu            sync.Mutex
	assessments   []string
	issuanceCodes []string
	attempts      []int
	verifications []bool
}

func (m *recordingMetrics) ObserveAssessment(kind, level string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments = append(m.assessments, kind+":"+level)
}

func (m *recordingMetrics) ObserveIssuance(_, _ string, attempts int, _ time.Duration, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issuanceCodes = append(m.issuanceCodes, code)
	m.attempts = append(m.attempts, attempts)
}

func (m *recordingMetrics) ObserveVerification(valid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, valid)
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	repo      *testutil.MockAssessmentRepository
	certs     *testutil.MockCertificateRepository
	publisher *mockPublisher
	cache     *memoryCache
	metrics   *recordingMetrics
	logger    *testutil.MockLogger
	svc       Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = new(testutil.MockAssessmentRepository)
	s.certs = new(testutil.MockCertificateRepository)
	s.publisher = new(mockPublisher)
	s.cache = newMemoryCache()
	s.metrics = &recordingMetrics{}
	s.logger = testutil.NewMockLogger()

	// serials walk through distinct letters so a renumbered certificate
	// differs from the first draw
	entropy := make([]byte, 0, 64)
	for i := 0; i < 8; i++ {
		entropy = append(entropy, bytes.Repeat([]byte{byte(i)}, 8)...)
	}
	gen := recommend.NewGenerator(nil, recommend.Options{}, s.logger)
	composer, err := certificate.NewComposer(certificate.ComposerConfig{
		Authority: "AIComply Certification Authority",
		Standard:  "EU AI Act",
		Version:   "0.0.0",
	}, NewRecommender(gen),
		certificate.WithClock(func() time.Time { return fixedNow }),
		certificate.WithRandom(bytes.NewReader(entropy)),
	)
	s.Require().NoError(err)

	svc, err := NewService(Dependencies{
		Assessments:          s.repo,
		Certificates:         s.certs,
		Composer:             composer,
		Cache:                s.cache,
		Publisher:            s.publisher,
		Metrics:              s.metrics,
		Logger:               s.logger,
		IssueMaxAttempts:     3,
		RetryInitialInterval: time.Millisecond,
		Clock:                func() time.Time { return fixedNow },
	})
	s.Require().NoError(err)
	s.svc = svc
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func allYes() assessment.QuestionnaireResponse {
	return assessment.QuestionnaireResponse{
		assessment.FactorSensitiveData:      "yes",
		assessment.FactorDiscriminationRisk: "high",
		assessment.FactorHumanOversight:     "partial",
		assessment.FactorSafetyImpact:       "low",
	}
}

func (s *ServiceSuite) TestClassifyRisk_StoresRecord() {
	s.repo.On("CreateRiskAssessment", s.ctx, mock.MatchedBy(func(a *assessment.RiskAssessment) bool {
		return a.OrganizationName == "Acme" && a.TableVersion == assessment.DefaultTableVersion
	})).Return(nil).Once()

	dto, err := s.svc.ClassifyRisk(s.ctx, &ClassifyRiskRequest{
		UserID: "u1", OrganizationName: "Acme", Answers: allYes(),
	})

	s.Require().NoError(err)
	s.NotEmpty(dto.ID)
	s.Equal(assessment.DefaultTableVersion, dto.TableVersion)
	s.Require().NotNil(dto.Result)
	s.True(dto.Result.RiskLevel.IsValid())
	s.Equal([]string{"risk:" + string(dto.Result.RiskLevel)}, s.metrics.assessments)
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestClassifyRisk_UsesSystemPurposeForProhibitedScreening() {
	sys := &assessment.AISystem{ID: "sys-1", OrganizationName: "Acme", Purpose: "social scoring of citizens"}
	s.repo.On("GetAISystem", s.ctx, "sys-1").Return(sys, nil).Once()
	s.repo.On("CreateRiskAssessment", s.ctx, mock.Anything).Return(nil).Once()

	dto, err := s.svc.ClassifyRisk(s.ctx, &ClassifyRiskRequest{
		UserID: "u1", OrganizationName: "Acme", SystemID: "sys-1", Answers: allYes(),
	})

	s.Require().NoError(err)
	s.Equal(assessment.RiskUnacceptable, dto.Result.RiskLevel)
	s.Equal(100, dto.Result.RiskScore)
}

func (s *ServiceSuite) TestClassifyRisk_InvalidAnswerNotStored() {
	answers := allYes()
	answers[assessment.FactorSafetyImpact] = "catastrophic"

	_, err := s.svc.ClassifyRisk(s.ctx, &ClassifyRiskRequest{OrganizationName: "Acme", Answers: answers})

	s.True(errors.IsCode(err, errors.ErrCodeInvalidAnswer))
	s.repo.AssertNotCalled(s.T(), "CreateRiskAssessment", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestScoreMaturity_UnknownFramework() {
	_, err := s.svc.ScoreMaturity(s.ctx, &ScoreMaturityRequest{OrganizationName: "Acme", FrameworkID: "iso-42001"})
	s.True(errors.IsCode(err, errors.ErrCodeFrameworkNotFound))
}

func (s *ServiceSuite) TestScoreMaturity_DefaultFramework() {
	fw, err := s.svc.GetFramework(s.ctx, "")
	s.Require().NoError(err)

	responses := assessment.DomainResponses{}
	for _, d := range fw.Domains {
		responses[d.ID] = map[string]int{}
		for _, q := range d.Questions {
			responses[d.ID][q.ID] = 3
		}
	}
	s.repo.On("CreateMaturityAssessment", s.ctx, mock.Anything).Return(nil).Once()

	dto, err := s.svc.ScoreMaturity(s.ctx, &ScoreMaturityRequest{OrganizationName: "Acme", Responses: responses})

	s.Require().NoError(err)
	s.Equal(fw.ID, dto.FrameworkID)
	s.Equal(75, dto.Result.OverallScore)
	s.Equal(assessment.MaturityManaged, dto.Result.OverallMaturity)
}

func (s *ServiceSuite) TestIssueCertificate_MaturityOnly() {
	ma := &assessment.MaturityAssessment{
		ID: "ma-1", OrganizationName: "Acme", TableVersion: "1.2.0",
		Result: &assessment.MaturityAssessmentResult{OverallScore: 70, OverallMaturity: assessment.MaturityManaged},
	}
	s.repo.On("GetMaturityAssessment", s.ctx, "ma-1").Return(ma, nil).Once()
	s.certs.On("Create", s.ctx, mock.Anything).Return(nil).Once()
	s.publisher.On("PublishCertificateIssued", s.ctx, mock.MatchedBy(func(e *certificate.IssuedEvent) bool {
		return e.EventType == certificate.EventCertificateIssued && e.Certificate != nil
	})).Return(nil).Once()

	rec, err := s.svc.IssueCertificate(s.ctx, &IssueCertificateRequest{
		UserID: "u1", OrganizationName: "Acme", CertificateType: certificate.TypeMaturity, MaturityAssessmentID: "ma-1",
	})

	s.Require().NoError(err)
	s.Equal(70, rec.ComplianceScore)
	s.Equal(certificate.StatusPartiallyCompliant, rec.ComplianceDetails.OverallStatus)
	s.Equal(fixedNow.AddDate(0, 0, 270), rec.ComplianceDetails.NextReviewDate)
	s.Equal("1.2.0", rec.Certification.Version)
	s.Equal(common.SourceFallback, rec.RecommendationSource)
	s.NotEmpty(rec.ComplianceDetails.Recommendations)
	s.True(s.svc.VerifyRecord(rec))
	s.Contains(s.cache.items, rec.CertificateNumber)
	s.Equal([]int{1}, s.metrics.attempts)
	s.publisher.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestIssueCertificate_RetriesOnSerialCollision() {
	var numbers []string
	s.certs.On("Create", s.ctx, mock.Anything).Run(func(args mock.Arguments) {
		numbers = append(numbers, args.Get(1).(*certificate.CertificateRecord).CertificateNumber)
	}).Return(errors.New(errors.ErrCodeSerialCollision, "duplicate")).Once()
	s.certs.On("Create", s.ctx, mock.Anything).Run(func(args mock.Arguments) {
		numbers = append(numbers, args.Get(1).(*certificate.CertificateRecord).CertificateNumber)
	}).Return(nil).Once()
	s.publisher.On("PublishCertificateIssued", s.ctx, mock.Anything).Return(nil).Once()

	rec, err := s.svc.IssueCertificate(s.ctx, &IssueCertificateRequest{
		OrganizationName: "Acme", CertificateType: certificate.TypeConformity,
	})

	s.Require().NoError(err)
	s.Require().Len(numbers, 2)
	s.NotEqual(numbers[0], numbers[1])
	s.Equal(numbers[1], rec.CertificateNumber)
	s.True(certificate.Verify(rec))
	s.Equal([]int{2}, s.metrics.attempts)
	s.True(s.logger.HasMessage("warn", "certificate serial collision, retrying"))
}

func (s *ServiceSuite) TestIssueCertificate_GivesUpAfterMaxAttempts() {
	s.certs.On("Create", s.ctx, mock.Anything).
		Return(errors.New(errors.ErrCodeSerialCollision, "duplicate")).Times(3)

	_, err := s.svc.IssueCertificate(s.ctx, &IssueCertificateRequest{
		OrganizationName: "Acme", CertificateType: certificate.TypeConformity,
	})

	s.True(errors.IsCode(err, errors.ErrCodeSerialCollision))
	s.certs.AssertNumberOfCalls(s.T(), "Create", 3)
	s.Equal([]string{string(errors.ErrCodeSerialCollision)}, s.metrics.issuanceCodes)
	s.publisher.AssertNotCalled(s.T(), "PublishCertificateIssued", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestIssueCertificate_NonRetryableStoreError() {
	s.certs.On("Create", s.ctx, mock.Anything).
		Return(errors.New(errors.ErrCodeDatabaseError, "connection reset")).Once()

	_, err := s.svc.IssueCertificate(s.ctx, &IssueCertificateRequest{
		OrganizationName: "Acme", CertificateType: certificate.TypeConformity,
	})

	s.True(errors.IsCode(err, errors.ErrCodeDatabaseError))
	s.certs.AssertNumberOfCalls(s.T(), "Create", 1)
}

func (s *ServiceSuite) TestIssueCertificate_Validation() {
	_, err := s.svc.IssueCertificate(s.ctx, &IssueCertificateRequest{CertificateType: certificate.TypeMaturity})
	s.True(errors.IsCode(err, errors.ErrCodeInvalidCertificateInput))

	_, err = s.svc.IssueCertificate(s.ctx, &IssueCertificateRequest{OrganizationName: "Acme", CertificateType: "audit"})
	s.True(errors.IsCode(err, errors.ErrCodeInvalidCertificateInput))

	_, err = s.svc.IssueCertificate(s.ctx, nil)
	s.True(errors.IsCode(err, errors.ErrCodeInvalidCertificateInput))
}

func (s *ServiceSuite) TestIssueCertificate_ForeignAssessmentRejected() {
	ra := &assessment.RiskAssessment{ID: "ra-1", OrganizationName: "Globex",
		Result: &assessment.RiskAssessmentResult{RiskLevel: assessment.RiskMinimal, RiskScore: 10}}
	s.repo.On("GetRiskAssessment", s.ctx, "ra-1").Return(ra, nil).Once()

	_, err := s.svc.IssueCertificate(s.ctx, &IssueCertificateRequest{
		OrganizationName: "Acme", CertificateType: certificate.TypeRiskAssessment, RiskAssessmentID: "ra-1",
	})

	s.True(errors.IsCode(err, errors.ErrCodeInvalidCertificateInput))
	s.certs.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestIssueCertificate_UpdatesSystemScoreAndToleratesPublishFailure() {
	score := 90
	sys := &assessment.AISystem{ID: "sys-1", OrganizationName: "Acme", Name: "Chatbot", ComplianceScore: &score}
	s.repo.On("GetAISystem", s.ctx, "sys-1").Return(sys, nil).Once()
	s.repo.On("UpdateAISystemScore", s.ctx, "sys-1", 90).Return(nil).Once()
	s.certs.On("Create", s.ctx, mock.Anything).Return(nil).Once()
	s.publisher.On("PublishCertificateIssued", s.ctx, mock.Anything).
		Return(errors.New(errors.ErrCodeExternalService, "broker down")).Once()

	rec, err := s.svc.IssueCertificate(s.ctx, &IssueCertificateRequest{
		OrganizationName: "acme", CertificateType: certificate.TypeConformity, SystemID: "sys-1",
	})

	s.Require().NoError(err)
	s.Equal("Chatbot", rec.SystemName)
	s.Equal(90, rec.ComplianceScore)
	s.Equal(certificate.StatusCompliant, rec.ComplianceDetails.OverallStatus)
	s.True(s.logger.HasMessage("error", "failed to publish certificate.issued"))
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestVerifyCertificate_CacheThenStore() {
	s.certs.On("Create", s.ctx, mock.Anything).Return(nil).Once()
	s.publisher.On("PublishCertificateIssued", s.ctx, mock.Anything).Return(nil).Once()
	rec, err := s.svc.IssueCertificate(s.ctx, &IssueCertificateRequest{
		OrganizationName: "Acme", CertificateType: certificate.TypeComplianceSummary,
	})
	s.Require().NoError(err)

	dto, err := s.svc.VerifyCertificate(s.ctx, rec.CertificateNumber)
	s.Require().NoError(err)
	s.True(dto.Valid)
	s.False(dto.Expired)
	s.Equal("Acme", dto.OrganizationName)
	s.Equal(rec.Certification.Hash, dto.StoredHash)
	s.certs.AssertNotCalled(s.T(), "GetByNumber", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestVerifyCertificate_TamperedRecordIsNegativeVerdict() {
	s.certs.On("Create", s.ctx, mock.Anything).Return(nil).Once()
	s.publisher.On("PublishCertificateIssued", s.ctx, mock.Anything).Return(nil).Once()
	rec, err := s.svc.IssueCertificate(s.ctx, &IssueCertificateRequest{
		OrganizationName: "Acme", CertificateType: certificate.TypeComplianceSummary,
	})
	s.Require().NoError(err)

	tampered := *rec
	tampered.ComplianceScore = 99
	s.cache.items = map[string]*certificate.CertificateRecord{}
	s.certs.On("GetByNumber", s.ctx, rec.CertificateNumber).Return(&tampered, nil).Once()

	dto, err := s.svc.VerifyCertificate(s.ctx, rec.CertificateNumber)
	s.Require().NoError(err)
	s.False(dto.Valid)
	s.Equal("integrity hash mismatch", dto.Reason)
	s.Equal([]bool{false}, s.metrics.verifications)
	s.Equal(1, s.cache.loads)
}

func (s *ServiceSuite) TestVerifyCertificate_NotFound() {
	s.certs.On("GetByNumber", s.ctx, "CF-2025-AAAAAAAA").
		Return(nil, errors.New(errors.ErrCodeCertificateNotFound, "not found")).Once()

	_, err := s.svc.VerifyCertificate(s.ctx, "CF-2025-AAAAAAAA")
	s.True(errors.IsCode(err, errors.ErrCodeCertificateNotFound))

	_, err = s.svc.VerifyCertificate(s.ctx, "  ")
	s.True(errors.IsValidation(err))
}

func (s *ServiceSuite) TestSearchCertificates_StoreFallback() {
	compliant := &certificate.CertificateRecord{CertificateNumber: "CF-2025-AAAAAAAA", OrganizationName: "Acme",
		ComplianceDetails: certificate.ComplianceDetails{OverallStatus: certificate.StatusCompliant}}
	s.certs.On("ListByOrganization", s.ctx, "Acme", certificate.StatusCompliant, 100, 0).
		Return([]*certificate.CertificateRecord{compliant}, int64(1), nil).Once()

	page, err := s.svc.SearchCertificates(s.ctx, certificate.RegistryQuery{
		OrganizationName: "Acme", Status: certificate.StatusCompliant, Limit: 500, Offset: -3,
	})

	s.Require().NoError(err)
	s.Require().Len(page.Entries, 1)
	s.Equal("CF-2025-AAAAAAAA", page.Entries[0].CertificateNumber)
	s.Equal(int64(1), page.Total)

	_, err = s.svc.SearchCertificates(s.ctx, certificate.RegistryQuery{})
	s.True(errors.IsValidation(err))
}

func (s *ServiceSuite) TestSearchCertificates_StoreFallbackTotalSpansPages() {
	recs := []*certificate.CertificateRecord{
		{CertificateNumber: "CF-2025-CCCCCCCC", OrganizationName: "Acme",
			ComplianceDetails: certificate.ComplianceDetails{OverallStatus: certificate.StatusCompliant}},
		{CertificateNumber: "CF-2025-DDDDDDDD", OrganizationName: "Acme",
			ComplianceDetails: certificate.ComplianceDetails{OverallStatus: certificate.StatusCompliant}},
	}
	s.certs.On("ListByOrganization", s.ctx, "Acme", certificate.StatusCompliant, 2, 2).
		Return(recs, int64(9), nil).Once()

	page, err := s.svc.SearchCertificates(s.ctx, certificate.RegistryQuery{
		OrganizationName: "Acme", Status: certificate.StatusCompliant, Limit: 2, Offset: 2,
	})

	s.Require().NoError(err)
	s.Len(page.Entries, 2)
	s.Equal(int64(9), page.Total, "total reflects all matching certificates, not the page")
}

func (s *ServiceSuite) TestRegisterAISystem() {
	s.repo.On("CreateAISystem", s.ctx, mock.Anything).Return(nil).Once()

	score := 140
	sys, err := s.svc.RegisterAISystem(s.ctx, &RegisterAISystemRequest{
		UserID: "u1", OrganizationName: "Acme", Name: "Chatbot", Purpose: "customer support", ComplianceScore: &score,
	})

	s.Require().NoError(err)
	s.Equal("customer support", sys.Purpose)
	s.Equal(100, *sys.ComplianceScore)

	_, err = s.svc.RegisterAISystem(s.ctx, &RegisterAISystemRequest{OrganizationName: "Acme"})
	s.True(errors.IsValidation(err))
}

func (s *ServiceSuite) TestReloadScoringTable() {
	next := assessment.DefaultScoringTable()
	next.Version = "1.1.0"
	s.Require().NoError(s.svc.ReloadScoringTable(next))
	s.Equal("1.1.0", s.svc.ScoringTable().Version)

	bad := assessment.DefaultScoringTable()
	bad.Version = "not-semver"
	s.Error(s.svc.ReloadScoringTable(bad))
	s.Equal("1.1.0", s.svc.ScoringTable().Version)

	s.True(errors.IsCode(s.svc.ReloadScoringTable(nil), errors.ErrCodeInvalidScoringTable))
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := NewService(Dependencies{})
	assert.Error(t, err)

	_, err = NewService(Dependencies{
		Assessments:  new(testutil.MockAssessmentRepository),
		Certificates: new(testutil.MockCertificateRepository),
	})
	assert.Error(t, err)
}

func TestRecommenderAdapter_PassesContext(t *testing.T) {
	var prompt string
	llm := common.TextGeneratorFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "Keep a model register", nil
	})
	rec := NewRecommender(recommend.NewGenerator(llm, recommend.Options{}, nil))

	score := 55
	items, source := rec.Recommend(context.Background(), certificate.RecommendationRequest{
		OrganizationName: "Acme",
		MaturityLevel:    assessment.MaturityDefined,
		MaturityScore:    &score,
		ComplianceScore:  55,
	})

	require.Equal(t, []string{"Keep a model register"}, items)
	assert.Equal(t, common.SourceLLM, source)
	assert.Contains(t, prompt, "Maturity: defined (score 55/100)")
}
