package leveldb

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/pkg/errors"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(number, org string, issued time.Time) *certificate.CertificateRecord {
	rec := &certificate.CertificateRecord{
		ID:                number,
		CertificateNumber: number,
		OrganizationName:  org,
		SystemName:        "Credit Scoring",
		CertificateType:   certificate.TypeConformity,
		IssuedAt:          issued,
		ValidUntil:        issued.AddDate(1, 0, 0),
		ComplianceScore:   82,
	}
	rec.Certification.Hash, _ = certificate.ComputeHash(rec)
	return rec
}

func TestStore_CertificateLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := record(fmt.Sprintf("CF-2025-0000000%d", i), "Acme GmbH", base.AddDate(0, i, 0))
		require.NoError(t, s.Create(ctx, rec))
	}
	require.NoError(t, s.Create(ctx, record("CF-2025-OTHER001", "Acme GmbH/EU", base)))

	got, err := s.GetByNumber(ctx, "CF-2025-00000001")
	require.NoError(t, err)
	assert.Equal(t, "Acme GmbH", got.OrganizationName)
	hash, _ := certificate.ComputeHash(got)
	assert.Equal(t, got.Certification.Hash, hash)

	list, total, err := s.ListByOrganization(ctx, "Acme GmbH", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 3, "index must not bleed into organisations sharing a prefix")
	assert.Equal(t, "CF-2025-00000002", list[0].CertificateNumber, "newest first")
	assert.Equal(t, "CF-2025-00000000", list[2].CertificateNumber)

	page, total, err := s.ListByOrganization(ctx, "Acme GmbH", "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(3), total, "total spans every page")
	assert.Equal(t, "CF-2025-00000001", page[0].CertificateNumber)

	_, err = s.GetByNumber(ctx, "CF-2025-MISSING0")
	assert.True(t, errors.IsCode(err, errors.ErrCodeCertificateNotFound))
}

func TestStore_ListByOrganization_StatusFilterBeforePaging(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	statuses := []certificate.OverallStatus{
		certificate.StatusCompliant, certificate.StatusNonCompliant, certificate.StatusCompliant,
		certificate.StatusNonCompliant, certificate.StatusCompliant,
	}
	for i, st := range statuses {
		rec := record(fmt.Sprintf("CF-2025-STAT000%d", i), "Acme GmbH", base.AddDate(0, i, 0))
		rec.ComplianceDetails.OverallStatus = st
		require.NoError(t, s.Create(ctx, rec))
	}

	page, total, err := s.ListByOrganization(ctx, "Acme GmbH", certificate.StatusCompliant, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "CF-2025-STAT0004", page[0].CertificateNumber)
	assert.Equal(t, "CF-2025-STAT0002", page[1].CertificateNumber)

	page, total, err = s.ListByOrganization(ctx, "Acme GmbH", certificate.StatusCompliant, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "CF-2025-STAT0000", page[0].CertificateNumber)

	page, total, err = s.ListByOrganization(ctx, "Acme GmbH", certificate.StatusPartiallyCompliant, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)
}

func TestStore_Create_DuplicateNumberIsCollision(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Create(ctx, record("RA-2025-DUPE0001", "Acme GmbH", now)))
	err := s.Create(ctx, record("RA-2025-DUPE0001", "Other Ltd", now))
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialCollision))

	stored, err := s.GetByNumber(ctx, "RA-2025-DUPE0001")
	require.NoError(t, err)
	assert.Equal(t, "Acme GmbH", stored.OrganizationName)

	others, _, err := s.ListByOrganization(ctx, "Other Ltd", "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestStore_Create_ConcurrentSameNumber(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Create(ctx, record("CS-2025-RACE0001", "Acme GmbH", time.Now().UTC())); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestStore_AISystems(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a, _ := assessment.NewAISystem("user-1", "Acme GmbH", "Chatbot")
	b, _ := assessment.NewAISystem("user-1", "Acme GmbH", "Credit Scoring")
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	c, _ := assessment.NewAISystem("user-2", "Other Ltd", "Vision")
	for _, sys := range []*assessment.AISystem{a, b, c} {
		require.NoError(t, s.CreateAISystem(ctx, sys))
	}
	assert.True(t, errors.IsCode(s.CreateAISystem(ctx, a), errors.ErrCodeConflict))

	list, err := s.ListAISystems(ctx, "user-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Credit Scoring", list[0].Name)

	require.NoError(t, s.UpdateAISystemScore(ctx, a.ID, 140))
	got, err := s.GetAISystem(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ComplianceScore)
	assert.Equal(t, 100, *got.ComplianceScore)

	err = s.UpdateAISystemScore(ctx, "missing", 10)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAISystemNotFound))
}

func TestStore_Assessments(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	risk, _ := assessment.NewRiskAssessment("user-1", "Acme GmbH", "", assessment.RiskQuestionnaire{
		Answers: assessment.QuestionnaireResponse{"autonomy": "high"},
	}, &assessment.RiskAssessmentResult{RiskLevel: assessment.RiskHigh, RiskScore: 70}, "1.0.0")
	require.NoError(t, s.CreateRiskAssessment(ctx, risk))

	got, err := s.GetRiskAssessment(ctx, risk.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.RiskHigh, got.Result.RiskLevel)
	assert.Equal(t, "high", got.Questionnaire.Answers["autonomy"])

	orphan, _ := assessment.NewRiskAssessment("user-1", "Acme GmbH", "ghost", assessment.RiskQuestionnaire{},
		&assessment.RiskAssessmentResult{RiskLevel: assessment.RiskMinimal}, "1.0.0")
	assert.True(t, errors.IsNotFound(s.CreateRiskAssessment(ctx, orphan)))

	mat, _ := assessment.NewMaturityAssessment("user-1", "Acme GmbH", "eu-ai-act",
		assessment.DomainResponses{"governance": {"q1": 3}},
		&assessment.MaturityAssessmentResult{OverallMaturity: assessment.MaturityManaged, OverallScore: 75}, "1.0.0")
	require.NoError(t, s.CreateMaturityAssessment(ctx, mat))

	gotMat, err := s.GetMaturityAssessment(ctx, mat.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, gotMat.Responses["governance"]["q1"])

	_, err = s.GetMaturityAssessment(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAssessmentNotFound))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, record("MA-2025-PERSIST1", "Acme GmbH", time.Now().UTC())))
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetByNumber(ctx, "MA-2025-PERSIST1")
	require.NoError(t, err)
	assert.Equal(t, 82, got.ComplianceScore)
}
