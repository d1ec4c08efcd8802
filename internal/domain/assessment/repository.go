package assessment

import "context"

// Repository persists AI systems and assessment records. Records are written
// once; there are no update operations on assessments.
type Repository interface {
	CreateAISystem(ctx context.Context, sys *AISystem) error
	GetAISystem(ctx context.Context, id string) (*AISystem, error)
	ListAISystems(ctx context.Context, userID string, limit, offset int) ([]*AISystem, error)
	UpdateAISystemScore(ctx context.Context, id string, score int) error

	CreateRiskAssessment(ctx context.Context, a *RiskAssessment) error
	GetRiskAssessment(ctx context.Context, id string) (*RiskAssessment, error)

	CreateMaturityAssessment(ctx context.Context, a *MaturityAssessment) error
	GetMaturityAssessment(ctx context.Context, id string) (*MaturityAssessment, error)
}
