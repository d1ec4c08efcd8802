package assessment

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/AIComply/pkg/errors"
)

// DefaultFrameworkID identifies the built-in framework.
const DefaultFrameworkID = "eu-ai-act-maturity"

// Option is one discrete answer to a maturity question.
type Option struct {
	Value  int     `yaml:"value" json:"value"`
	Label  string  `yaml:"label" json:"label"`
	Points float64 `yaml:"points" json:"points"`
}

// Question is a weighted maturity question.
type Question struct {
	ID          string   `yaml:"id" json:"id"`
	Text        string   `yaml:"text" json:"text"`
	Weight      float64  `yaml:"weight" json:"weight"`
	Options     []Option `yaml:"options" json:"options"`
	Strength    string   `yaml:"strength" json:"strength"`
	Improvement string   `yaml:"improvement" json:"improvement"`
}

// Domain groups questions under a weight.
type Domain struct {
	ID             string     `yaml:"id" json:"id"`
	Name           string     `yaml:"name" json:"name"`
	Weight         float64    `yaml:"weight" json:"weight"`
	Questions      []Question `yaml:"questions" json:"questions"`
	Recommendation string     `yaml:"recommendation" json:"recommendation"`
	Action         string     `yaml:"action" json:"action"`
	Resources      []string   `yaml:"resources" json:"resources"`
}

// Framework is a maturity model definition.
type Framework struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Version string   `yaml:"version" json:"version"`
	Domains []Domain `yaml:"domains" json:"domains"`
}

// Domain returns the domain with id.
func (f *Framework) Domain(id string) (*Domain, bool) {
	for i := range f.Domains {
		if f.Domains[i].ID == id {
			return &f.Domains[i], true
		}
	}
	return nil, false
}

// QuestionCount is the number of questions across all domains.
func (f *Framework) QuestionCount() int {
	n := 0
	for _, d := range f.Domains {
		n += len(d.Questions)
	}
	return n
}

// DomainIDs lists domain ids in definition order.
func (f *Framework) DomainIDs() []string {
	ids := make([]string, 0, len(f.Domains))
	for _, d := range f.Domains {
		ids = append(ids, d.ID)
	}
	return ids
}

func (d *Domain) question(id string) (*Question, bool) {
	for i := range d.Questions {
		if d.Questions[i].ID == id {
			return &d.Questions[i], true
		}
	}
	return nil, false
}

func (q *Question) option(value int) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// Validate checks ids, weights and option points.
func (f *Framework) Validate() error {
	if f == nil {
		return errors.New(errors.ErrCodeFrameworkNotFound, "framework is nil")
	}
	if strings.TrimSpace(f.ID) == "" {
		return errors.Validation("framework id is required")
	}
	if len(f.Domains) == 0 {
		return errors.Validation(fmt.Sprintf("framework %s defines no domains", f.ID))
	}
	domains := make(map[string]struct{}, len(f.Domains))
	for _, d := range f.Domains {
		if d.ID == "" {
			return errors.Validation("domain id is required")
		}
		if _, dup := domains[d.ID]; dup {
			return errors.Validation(fmt.Sprintf("duplicate domain %s", d.ID))
		}
		domains[d.ID] = struct{}{}
		if d.Weight <= 0 {
			return errors.Validation(fmt.Sprintf("domain %s weight must be positive", d.ID))
		}
		if len(d.Questions) == 0 {
			return errors.Validation(fmt.Sprintf("domain %s defines no questions", d.ID))
		}
		questions := make(map[string]struct{}, len(d.Questions))
		for _, q := range d.Questions {
			if q.ID == "" {
				return errors.Validation(fmt.Sprintf("domain %s has a question without id", d.ID))
			}
			if _, dup := questions[q.ID]; dup {
				return errors.Validation(fmt.Sprintf("duplicate question %s in domain %s", q.ID, d.ID))
			}
			questions[q.ID] = struct{}{}
			if q.Weight <= 0 {
				return errors.Validation(fmt.Sprintf("question %s weight must be positive", q.ID))
			}
			if len(q.Options) == 0 {
				return errors.Validation(fmt.Sprintf("question %s defines no options", q.ID))
			}
			for _, o := range q.Options {
				if o.Points < 0 || o.Points > 100 {
					return errors.Validation(fmt.Sprintf("question %s option %d points out of range", q.ID, o.Value))
				}
			}
		}
	}
	return nil
}

// ParseFramework decodes and validates a YAML framework definition.
func ParseFramework(data []byte) (*Framework, error) {
	var f Framework
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to decode framework")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFramework reads a YAML framework from path. An empty path yields
// DefaultFramework.
func LoadFramework(path string) (*Framework, error) {
	if path == "" {
		return DefaultFramework(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFrameworkNotFound, fmt.Sprintf("failed to read framework %s", path))
	}
	return ParseFramework(data)
}

// standardOptions is the five-step scale shared by all default questions.
func standardOptions() []Option {
	return []Option{
		{Value: 0, Label: "Not in place", Points: 0},
		{Value: 1, Label: "Ad hoc", Points: 25},
		{Value: 2, Label: "Partially defined", Points: 50},
		{Value: 3, Label: "Implemented", Points: 75},
		{Value: 4, Label: "Continuously improved", Points: 100},
	}
}

func newQuestion(id, text, strength, improvement string) Question {
	return Question{ID: id, Text: text, Weight: 1, Options: standardOptions(), Strength: strength, Improvement: improvement}
}

// DefaultFramework returns the built-in six-domain EU AI Act maturity model.
func DefaultFramework() *Framework {
	return &Framework{
		ID:      DefaultFrameworkID,
		Name:    "EU AI Act Organisational Maturity",
		Version: "1.0.0",
		Domains: []Domain{
			{
				ID: "strategy", Name: "AI Strategy", Weight: 0.15,
				Questions: []Question{
					newQuestion("strategy_vision", "Is there a documented AI strategy aligned with business objectives?",
						"Documented AI strategy aligned with business goals", "Define and document an AI strategy"),
					newQuestion("strategy_inventory", "Is an inventory of AI systems maintained?",
						"Complete AI system inventory", "Build and maintain an AI system inventory"),
					newQuestion("strategy_literacy", "Are staff trained in AI literacy?",
						"Established AI literacy programme", "Introduce AI literacy training for staff"),
				},
				Recommendation: "Develop a documented AI strategy with an AI inventory and literacy programme",
				Action:         "Define the AI strategy, inventory all AI systems and launch AI literacy training",
				Resources:      []string{"Executive sponsor", "AI inventory template", "AI literacy training material"},
			},
			{
				ID: "governance", Name: "Governance & Accountability", Weight: 0.2,
				Questions: []Question{
					newQuestion("governance_roles", "Are roles and responsibilities for AI compliance assigned?",
						"Clear AI accountability structure", "Assign owners for AI compliance"),
					newQuestion("governance_policy", "Is there an approved AI use policy?",
						"Approved AI use policy", "Adopt an AI use policy"),
					newQuestion("governance_board", "Does an oversight body review high-impact AI use cases?",
						"Active AI oversight committee", "Establish an AI oversight committee"),
				},
				Recommendation: "Establish an AI governance framework with clear roles and an oversight committee",
				Action:         "Set up an AI governance board and approve the AI use policy",
				Resources:      []string{"Governance charter template", "RACI matrix", "Legal counsel"},
			},
			{
				ID: "risk_management", Name: "Risk Management", Weight: 0.2,
				Questions: []Question{
					newQuestion("risk_process", "Is there a documented AI risk management process?",
						"Documented AI risk management process", "Document an AI risk management process"),
					newQuestion("risk_classification", "Are AI systems classified by EU AI Act risk tier?",
						"Systematic risk tier classification", "Classify all AI systems by risk tier"),
					newQuestion("risk_monitoring", "Are risks monitored after deployment?",
						"Post-deployment risk monitoring", "Introduce post-market monitoring of AI risks"),
				},
				Recommendation: "Implement a lifecycle AI risk management process aligned with Article 9",
				Action:         "Adopt a risk management procedure and classify every AI system",
				Resources:      []string{"Risk register", "ISO/IEC 23894 guidance", "Risk owner per system"},
			},
			{
				ID: "data_management", Name: "Data Governance", Weight: 0.15,
				Questions: []Question{
					newQuestion("data_quality", "Are training and test data quality criteria defined?",
						"Defined data quality criteria", "Define data quality criteria for AI datasets"),
					newQuestion("data_bias", "Are datasets examined for bias?",
						"Systematic bias examination", "Introduce bias checks for datasets"),
					newQuestion("data_lineage", "Is data lineage documented?",
						"Documented data lineage", "Document data provenance and lineage"),
				},
				Recommendation: "Strengthen data governance for training, validation and testing data",
				Action:         "Introduce dataset documentation, bias checks and lineage tracking",
				Resources:      []string{"Datasheets for datasets", "Bias assessment tooling", "Data steward"},
			},
			{
				ID: "technical", Name: "Technical Robustness", Weight: 0.15,
				Questions: []Question{
					newQuestion("technical_testing", "Are models tested for accuracy and robustness before release?",
						"Structured pre-release testing", "Introduce accuracy and robustness testing"),
					newQuestion("technical_logging", "Do systems log events automatically?",
						"Automatic event logging", "Enable automatic event logging"),
					newQuestion("technical_security", "Are AI-specific security threats addressed?",
						"AI security controls in place", "Address AI-specific security threats"),
				},
				Recommendation: "Improve technical robustness through testing, logging and security controls",
				Action:         "Establish a model validation pipeline with logging and security review",
				Resources:      []string{"MLOps pipeline", "Adversarial testing tools", "Security team"},
			},
			{
				ID: "transparency", Name: "Transparency & Human Oversight", Weight: 0.15,
				Questions: []Question{
					newQuestion("transparency_disclosure", "Are users informed when interacting with AI?",
						"Consistent AI disclosure to users", "Inform users about AI interaction"),
					newQuestion("transparency_documentation", "Is technical documentation available for each system?",
						"Complete technical documentation", "Produce technical documentation per system"),
					newQuestion("transparency_oversight", "Can humans intervene in or override AI decisions?",
						"Effective human oversight mechanisms", "Add human oversight and override mechanisms"),
				},
				Recommendation: "Increase transparency and human oversight of AI decisions",
				Action:         "Publish AI disclosures and implement human override procedures",
				Resources:      []string{"Disclosure templates", "Technical documentation template", "Oversight procedures"},
			},
		},
	}
}
