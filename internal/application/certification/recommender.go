package certification

import (
	"context"

	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/internal/intelligence/recommend"
)

// recommenderAdapter lets the composer use the recommendation generator
// without the domain importing the intelligence layer.
type recommenderAdapter struct {
	gen *recommend.Generator
}

// NewRecommender adapts gen to certificate.Recommender.
func NewRecommender(gen *recommend.Generator) certificate.Recommender {
	return recommenderAdapter{gen: gen}
}

func (a recommenderAdapter) Recommend(ctx context.Context, req certificate.RecommendationRequest) ([]string, string) {
	res := a.gen.Generate(ctx, recommend.Context{
		OrganizationName: req.OrganizationName,
		SystemName:       req.SystemName,
		RiskLevel:        req.RiskLevel,
		RiskScore:        req.RiskScore,
		MaturityLevel:    req.MaturityLevel,
		MaturityScore:    req.MaturityScore,
		ComplianceScore:  req.ComplianceScore,
		Language:         req.Language,
	})
	return res.Items, res.Source
}
