package recommend

import "github.com/turtacn/AIComply/internal/domain/assessment"

// lowMaturityBelow selects the strategy/skills rule.
const lowMaturityBelow = 60

type ruleTable struct {
	highRisk    []string
	limitedRisk []string
	lowMaturity []string
	baseline    []string
}

var fallbackTables = map[string]ruleTable{
	"en": {
		highRisk: []string{
			"Implement robust human oversight mechanisms for high-risk AI decisions",
			"Establish systematic testing and validation procedures for accuracy, robustness and bias",
		},
		limitedRisk: []string{
			"Ensure users are clearly informed when they interact with an AI system",
		},
		lowMaturity: []string{
			"Develop a comprehensive AI governance strategy with clear ownership",
			"Invest in AI literacy and compliance skills across the organization",
		},
		baseline: []string{
			"Continuously monitor regulatory developments under the EU AI Act",
			"Conduct periodic compliance audits of all AI systems",
		},
	},
	"de": {
		highRisk: []string{
			"Wirksame menschliche Aufsicht für KI-Entscheidungen mit hohem Risiko einrichten",
			"Systematische Test- und Validierungsverfahren für Genauigkeit, Robustheit und Verzerrungen etablieren",
		},
		limitedRisk: []string{
			"Nutzer klar darüber informieren, dass sie mit einem KI-System interagieren",
		},
		lowMaturity: []string{
			"Eine umfassende KI-Governance-Strategie mit klaren Verantwortlichkeiten entwickeln",
			"In KI-Kompetenz und Compliance-Fähigkeiten im gesamten Unternehmen investieren",
		},
		baseline: []string{
			"Regulatorische Entwicklungen zum EU AI Act kontinuierlich beobachten",
			"Regelmäßige Compliance-Audits aller KI-Systeme durchführen",
		},
	},
}

// Fallback builds deterministic recommendations from the risk tier and the
// maturity score bucket, always ending with the two baseline items and
// capped at MaxItems. Unknown languages use English.
func Fallback(in Context) []string {
	t, ok := fallbackTables[in.Language]
	if !ok {
		t = fallbackTables["en"]
	}
	var items []string
	switch in.RiskLevel {
	case assessment.RiskHigh, assessment.RiskUnacceptable:
		items = append(items, t.highRisk...)
	case assessment.RiskLimited:
		items = append(items, t.limitedRisk...)
	}
	if in.MaturityScore != nil && *in.MaturityScore < lowMaturityBelow {
		items = append(items, t.lowMaturity...)
	}
	items = append(items, t.baseline...)
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	return items
}
