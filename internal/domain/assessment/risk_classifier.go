package assessment

import (
	"fmt"
	"strings"

	"github.com/turtacn/AIComply/pkg/errors"
)

// tierGuidance is the fixed per-tier output attached to every classification.
type tierGuidance struct {
	obligations     []string
	recommendations []string
	timeline        Timeline
}

var riskGuidance = map[RiskLevel]tierGuidance{
	RiskUnacceptable: {
		obligations: []string{
			"Prohibited AI practice under Article 5: the system must not be placed on the market, put into service or used in the EU",
			"Withdraw or decommission the prohibited functionality",
			"Inform the competent market surveillance authority where the system is already deployed",
		},
		recommendations: []string{
			"Stop deployment of the prohibited functionality immediately",
			"Obtain a legal assessment of the intended purpose",
			"Redesign the use case to remove prohibited practices before any re-assessment",
		},
		timeline: Timeline{
			Immediate: []string{"Suspend the system", "Notify stakeholders and legal counsel"},
			ShortTerm: []string{"Decommission or redesign the prohibited functionality"},
			LongTerm:  []string{"Establish pre-deployment screening for prohibited practices"},
		},
	},
	RiskHigh: {
		obligations: []string{
			"Establish and maintain a risk management system (Article 9)",
			"Apply data governance to training, validation and testing data (Article 10)",
			"Draw up technical documentation (Article 11)",
			"Enable automatic recording of events (Article 12)",
			"Provide transparency information to deployers (Article 13)",
			"Design for effective human oversight (Article 14)",
			"Ensure accuracy, robustness and cybersecurity (Article 15)",
			"Complete the conformity assessment and register in the EU database (Articles 43 and 49)",
		},
		recommendations: []string{
			"Appoint an accountable owner for AI Act compliance",
			"Run a gap analysis against Articles 9 to 15",
			"Introduce human-in-the-loop review for consequential decisions",
			"Prepare technical documentation ahead of the conformity assessment",
		},
		timeline: Timeline{
			Immediate: []string{"Assign compliance ownership", "Start the risk management file"},
			ShortTerm: []string{"Implement logging and human oversight controls", "Complete data governance review"},
			LongTerm:  []string{"Pass the conformity assessment", "Set up post-market monitoring"},
		},
	},
	RiskLimited: {
		obligations: []string{
			"Inform natural persons that they are interacting with an AI system (Article 50)",
			"Mark synthetic audio, image, video or text content as artificially generated",
			"Document the transparency measures in place",
		},
		recommendations: []string{
			"Add clear AI disclosure notices to user-facing channels",
			"Label generated content in a machine-readable format",
			"Review the classification whenever the intended purpose changes",
		},
		timeline: Timeline{
			Immediate: []string{"Publish AI interaction disclosures"},
			ShortTerm: []string{"Implement content labelling"},
			LongTerm:  []string{"Review classification annually"},
		},
	},
	RiskMinimal: {
		obligations: []string{
			"No mandatory obligations; voluntary codes of conduct apply (Article 95)",
			"Ensure a sufficient level of AI literacy among staff (Article 4)",
		},
		recommendations: []string{
			"Adopt a voluntary code of conduct",
			"Keep an inventory of AI systems in use",
		},
		timeline: Timeline{
			Immediate: []string{},
			ShortTerm: []string{"Document the system in the AI inventory"},
			LongTerm:  []string{"Re-assess when functionality changes"},
		},
	},
}

// NormalizeMarkerText lower-cases s and folds spaces and hyphens into
// underscores so that "Social Scoring" and "social-scoring" both match.
func NormalizeMarkerText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// DetectProhibitedMarkers returns the table's markers found in the declared
// domain or purpose, in table order.
func DetectProhibitedMarkers(table *ScoringTable, applicationDomain, purpose string) []string {
	haystack := NormalizeMarkerText(applicationDomain) + "|" + NormalizeMarkerText(purpose)
	var hits []string
	for _, m := range table.Risk.ProhibitedMarkers {
		marker := NormalizeMarkerText(m)
		if marker != "" && strings.Contains(haystack, marker) {
			hits = append(hits, marker)
		}
	}
	return hits
}

// ValidateQuestionnaire checks that every factor is answered with a known
// option. Unanswered or unknown options are rejected rather than scored as zero.
func ValidateQuestionnaire(q RiskQuestionnaire, table *ScoringTable) error {
	for _, f := range table.Risk.Factors {
		answer, ok := q.Answers[f.ID]
		if !ok || strings.TrimSpace(answer) == "" {
			return errors.Newf(errors.ErrCodeInvalidAnswer, "missing answer for risk factor %q", f.ID).
				WithDetail(fmt.Sprintf("expected one of %s", strings.Join(f.optionKeys(), ", ")))
		}
		if _, ok := f.Options[answer]; !ok {
			return errors.Newf(errors.ErrCodeInvalidAnswer, "unrecognised answer %q for risk factor %q", answer, f.ID).
				WithDetail(fmt.Sprintf("expected one of %s", strings.Join(f.optionKeys(), ", ")))
		}
	}
	return nil
}

// ClassifyRisk maps a questionnaire to a risk tier. A prohibited-practice
// marker in the declared domain or purpose forces unacceptable / 100.
// Answers are validated first: an incomplete or unrecognised questionnaire is
// rejected with ErrCodeInvalidAnswer even when a marker is declared, so every
// stored classification carries a complete factor breakdown.
// A nil table selects DefaultScoringTable.
func ClassifyRisk(q RiskQuestionnaire, table *ScoringTable) (*RiskAssessmentResult, error) {
	if table == nil {
		table = DefaultScoringTable()
	}
	if err := ValidateQuestionnaire(q, table); err != nil {
		return nil, err
	}

	sum := 0
	parts := make([]string, 0, len(table.Risk.Factors))
	for _, f := range table.Risk.Factors {
		answer := q.Answers[f.ID]
		pts := f.Options[answer]
		sum += pts
		parts = append(parts, fmt.Sprintf("%s=%s (+%d)", f.ID, answer, pts))
	}
	score := ClampScore(sum)
	level := table.RiskLevelFor(score)
	reasoning := fmt.Sprintf("Weighted risk score %d from %s places the system in the %s risk tier.",
		score, strings.Join(parts, ", "), level)

	markers := DetectProhibitedMarkers(table, q.ApplicationDomain, q.Purpose)
	if len(markers) > 0 {
		score = 100
		level = RiskUnacceptable
		reasoning = fmt.Sprintf("Declared application domain or purpose matches prohibited practice markers [%s]; "+
			"the system is classified as unacceptable regardless of the weighted score %d.",
			strings.Join(markers, ", "), ClampScore(sum))
	}

	g := riskGuidance[level]
	return &RiskAssessmentResult{
		RiskLevel:       level,
		RiskScore:       score,
		Reasoning:       reasoning,
		Obligations:     cloneStrings(g.obligations),
		Recommendations: cloneStrings(g.recommendations),
		Timeline: Timeline{
			Immediate: cloneStrings(g.timeline.Immediate),
			ShortTerm: cloneStrings(g.timeline.ShortTerm),
			LongTerm:  cloneStrings(g.timeline.LongTerm),
		},
		ProhibitedMarkers: markers,
	}, nil
}
