package assessment

import (
	"fmt"
	"sort"

	"github.com/turtacn/AIComply/pkg/errors"
)

const (
	timelineHigh   = "0-3 months"
	timelineMedium = "3-6 months"
	timelineLow    = "6-12 months"
)

// ValidateResponses rejects unknown domains, questions and option values,
// then rejects submissions that answer fewer questions than the framework
// defines.
func ValidateResponses(responses DomainResponses, fw *Framework) error {
	if fw == nil {
		return errors.New(errors.ErrCodeFrameworkNotFound, "framework is required")
	}
	answered := 0
	for domainID, answers := range responses {
		d, ok := fw.Domain(domainID)
		if !ok {
			return errors.Newf(errors.ErrCodeInvalidAnswer, "unknown maturity domain %q", domainID)
		}
		for questionID, value := range answers {
			q, ok := d.question(questionID)
			if !ok {
				return errors.Newf(errors.ErrCodeInvalidAnswer, "unknown question %q in domain %q", questionID, domainID)
			}
			if _, ok := q.option(value); !ok {
				return errors.Newf(errors.ErrCodeInvalidAnswer, "unrecognised option %d for question %q", value, questionID)
			}
			answered++
		}
	}
	if total := fw.QuestionCount(); answered < total {
		return errors.Newf(errors.ErrCodeIncompleteResponse, "%d of %d maturity questions answered", answered, total).
			WithDetail(fmt.Sprintf("missing: %v", missingQuestions(responses, fw)))
	}
	return nil
}

func missingQuestions(responses DomainResponses, fw *Framework) []string {
	var missing []string
	for _, d := range fw.Domains {
		for _, q := range d.Questions {
			if _, ok := responses[d.ID][q.ID]; !ok {
				missing = append(missing, d.ID+"."+q.ID)
			}
		}
	}
	return missing
}

// ScoreMaturity computes weighted per-domain and overall maturity. Domain
// scores are the weighted mean of question points; the overall score is the
// weighted mean of the rounded domain scores by domain weight. Incomplete
// submissions fail with ErrCodeIncompleteResponse. A nil table selects
// DefaultScoringTable.
func ScoreMaturity(responses DomainResponses, fw *Framework, table *ScoringTable) (*MaturityAssessmentResult, error) {
	if table == nil {
		table = DefaultScoringTable()
	}
	if err := ValidateResponses(responses, fw); err != nil {
		return nil, err
	}
	mt := table.Maturity

	type scored struct {
		order  int
		domain *Domain
		score  int
	}

	result := &MaturityAssessmentResult{
		DomainScores:    make(map[string]DomainScore, len(fw.Domains)),
		Recommendations: []string{},
		ActionPlan:      []ActionItem{},
	}
	all := make([]scored, 0, len(fw.Domains))
	var weighted, totalWeight float64

	for i := range fw.Domains {
		d := &fw.Domains[i]
		var sum, wsum float64
		ds := DomainScore{Strengths: []string{}, Improvements: []string{}}
		for _, q := range d.Questions {
			opt, _ := q.option(responses[d.ID][q.ID])
			sum += q.Weight * opt.Points
			wsum += q.Weight
			switch {
			case opt.Points >= mt.StrengthThreshold:
				if q.Strength != "" {
					ds.Strengths = append(ds.Strengths, q.Strength)
				}
			case opt.Points < mt.ImprovementThreshold:
				if q.Improvement != "" {
					ds.Improvements = append(ds.Improvements, q.Improvement)
				}
			}
		}
		ds.Score = RoundScore(sum / wsum)
		ds.MaturityLevel = table.MaturityLevelFor(ds.Score)
		result.DomainScores[d.ID] = ds

		weighted += d.Weight * float64(ds.Score)
		totalWeight += d.Weight
		all = append(all, scored{order: i, domain: d, score: ds.Score})
	}

	result.OverallScore = RoundScore(weighted / totalWeight)
	result.OverallMaturity = table.MaturityLevelFor(result.OverallScore)

	sort.SliceStable(all, func(i, j int) bool { return all[i].score < all[j].score })
	for _, s := range all {
		if s.score < mt.RecommendationThreshold && s.domain.Recommendation != "" {
			result.Recommendations = append(result.Recommendations, s.domain.Recommendation)
		}
		if s.score >= mt.ActionThreshold {
			continue
		}
		item := ActionItem{
			Domain:    s.domain.ID,
			Action:    s.domain.Action,
			Resources: cloneStrings(s.domain.Resources),
		}
		switch {
		case s.score < mt.HighPriorityBelow:
			item.Priority, item.Timeline = PriorityHigh, timelineHigh
		case s.score < mt.MediumPriorityBelow:
			item.Priority, item.Timeline = PriorityMedium, timelineMedium
		default:
			item.Priority, item.Timeline = PriorityLow, timelineLow
		}
		if item.Action == "" {
			item.Action = fmt.Sprintf("Raise %s maturity", s.domain.Name)
		}
		result.ActionPlan = append(result.ActionPlan, item)
	}
	// priority first, ascending score within a priority
	sort.SliceStable(result.ActionPlan, func(i, j int) bool {
		return result.ActionPlan[i].Priority.rank() < result.ActionPlan[j].Priority.rank()
	})

	return result, nil
}
