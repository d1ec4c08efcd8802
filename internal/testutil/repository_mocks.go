package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/domain/certificate"
)

// MockAssessmentRepository is a testify mock of assessment.Repository.
type MockAssessmentRepository struct {
	mock.Mock
}

func (m *MockAssessmentRepository) CreateAISystem(ctx context.Context, sys *assessment.AISystem) error {
	return m.Called(ctx, sys).Error(0)
}

func (m *MockAssessmentRepository) GetAISystem(ctx context.Context, id string) (*assessment.AISystem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assessment.AISystem), args.Error(1)
}

func (m *MockAssessmentRepository) ListAISystems(ctx context.Context, userID string, limit, offset int) ([]*assessment.AISystem, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*assessment.AISystem), args.Error(1)
}

func (m *MockAssessmentRepository) UpdateAISystemScore(ctx context.Context, id string, score int) error {
	return m.Called(ctx, id, score).Error(0)
}

func (m *MockAssessmentRepository) CreateRiskAssessment(ctx context.Context, a *assessment.RiskAssessment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAssessmentRepository) GetRiskAssessment(ctx context.Context, id string) (*assessment.RiskAssessment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assessment.RiskAssessment), args.Error(1)
}

func (m *MockAssessmentRepository) CreateMaturityAssessment(ctx context.Context, a *assessment.MaturityAssessment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAssessmentRepository) GetMaturityAssessment(ctx context.Context, id string) (*assessment.MaturityAssessment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assessment.MaturityAssessment), args.Error(1)
}

// MockCertificateRepository is a testify mock of certificate.Repository.
type MockCertificateRepository struct {
	mock.Mock
}

func (m *MockCertificateRepository) Create(ctx context.Context, rec *certificate.CertificateRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockCertificateRepository) GetByNumber(ctx context.Context, number string) (*certificate.CertificateRecord, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*certificate.CertificateRecord), args.Error(1)
}

func (m *MockCertificateRepository) ListByOrganization(ctx context.Context, org string, status certificate.OverallStatus, limit, offset int) ([]*certificate.CertificateRecord, int64, error) {
	args := m.Called(ctx, org, status, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*certificate.CertificateRecord), args.Get(1).(int64), args.Error(2)
}

var (
	_ assessment.Repository  = (*MockAssessmentRepository)(nil)
	_ certificate.Repository = (*MockCertificateRepository)(nil)
)
