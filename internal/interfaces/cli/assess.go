package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/AIComply/internal/application/certification"
	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/pkg/errors"
)

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	var (
		org      string
		user     string
		systemID string
		domain   string
		purpose  string
		answers  []string
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify an AI system into an EU AI Act risk tier",
		Long: "Classify an AI system from questionnaire answers. Each --answer is factor=option,\n" +
			"e.g. --answer sensitiveData=yes --answer humanOversight=partial.",
		Example: "  aicomply classify --org \"Acme GmbH\" --answer sensitiveData=yes --answer discriminationRisk=high \\\n" +
			"    --answer humanOversight=partial --answer safetyImpact=moderate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			parsed, err := parseAnswers(answers)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			dto, err := cliCtx.Service.ClassifyRisk(ctx, &certification.ClassifyRiskRequest{
				UserID:            user,
				OrganizationName:  org,
				SystemID:          systemID,
				Answers:           parsed,
				ApplicationDomain: domain,
				Purpose:           purpose,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, riskView{dto})
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "organisation name [REQUIRED]")
	cmd.Flags().StringVar(&user, "user", "cli", "user id recorded with the assessment")
	cmd.Flags().StringVar(&systemID, "system-id", "", "registered AI system id")
	cmd.Flags().StringVar(&domain, "domain", "", "application domain")
	cmd.Flags().StringVar(&purpose, "purpose", "", "intended purpose")
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "factor=option answer (repeatable)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

// NewScoreCmd creates the score command.
func NewScoreCmd() *cobra.Command {
	var (
		org         string
		user        string
		frameworkID string
		file        string
		all         int
		responses   []string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score organisational AI governance maturity",
		Long: "Score maturity from per-question answers. Answers come from a JSON file\n" +
			"({\"domain\": {\"question\": value}}), from --all applied to every question,\n" +
			"and from --response domain.question=value overrides, in that order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			fw, err := cliCtx.Service.GetFramework(ctx, frameworkID)
			if err != nil {
				return err
			}

			resp := assessment.DomainResponses{}
			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read responses: %w", err)
				}
				if err := json.Unmarshal(raw, &resp); err != nil {
					return errors.Wrap(err, errors.ErrCodeValidation, "responses file is not valid JSON")
				}
			}
			if cmd.Flags().Changed("all") {
				for _, d := range fw.Domains {
					for _, q := range d.Questions {
						setResponse(resp, d.ID, q.ID, all)
					}
				}
			}
			for _, r := range responses {
				domainID, questionID, value, err := parseResponse(r)
				if err != nil {
					return err
				}
				setResponse(resp, domainID, questionID, value)
			}

			dto, err := cliCtx.Service.ScoreMaturity(ctx, &certification.ScoreMaturityRequest{
				UserID:           user,
				OrganizationName: org,
				FrameworkID:      fw.ID,
				Responses:        resp,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, maturityView{dto})
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "organisation name [REQUIRED]")
	cmd.Flags().StringVar(&user, "user", "cli", "user id recorded with the assessment")
	cmd.Flags().StringVar(&frameworkID, "framework", "", "framework id (default: built-in framework)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON responses file")
	cmd.Flags().IntVar(&all, "all", 0, "answer every question with this value")
	cmd.Flags().StringArrayVar(&responses, "response", nil, "domain.question=value override (repeatable)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

// NewFrameworkCmd creates the framework command.
func NewFrameworkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "framework [id]",
		Short: "Show the maturity framework questions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			fw, err := cliCtx.Service.GetFramework(cmd.Context(), id)
			if err != nil {
				return err
			}
			return PrintResult(cmd, frameworkView{fw})
		},
	}
}

func parseAnswers(raw []string) (assessment.QuestionnaireResponse, error) {
	out := assessment.QuestionnaireResponse{}
	for _, a := range raw {
		k, v, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, errors.InvalidParam(fmt.Sprintf("invalid answer %q (expected factor=option)", a))
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

func parseResponse(raw string) (string, string, int, error) {
	key, val, ok := strings.Cut(raw, "=")
	if !ok {
		return "", "", 0, errors.InvalidParam(fmt.Sprintf("invalid response %q (expected domain.question=value)", raw))
	}
	domainID, questionID, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok || domainID == "" || questionID == "" {
		return "", "", 0, errors.InvalidParam(fmt.Sprintf("invalid response key %q (expected domain.question)", key))
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return "", "", 0, errors.InvalidParam(fmt.Sprintf("invalid response value %q", val))
	}
	return domainID, questionID, n, nil
}

func setResponse(resp assessment.DomainResponses, domainID, questionID string, value int) {
	if resp[domainID] == nil {
		resp[domainID] = map[string]int{}
	}
	resp[domainID][questionID] = value
}

type riskView struct {
	*certification.RiskAssessmentDTO
}

func (v riskView) String() string {
	r := v.Result
	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk assessment %s\n", v.ID)
	fmt.Fprintf(&sb, "  Organisation: %s\n", v.OrganizationName)
	fmt.Fprintf(&sb, "  Risk level:   %s (score %d)\n", r.RiskLevel, r.RiskScore)
	fmt.Fprintf(&sb, "  Reasoning:    %s\n", r.Reasoning)
	if len(r.ProhibitedMarkers) > 0 {
		fmt.Fprintf(&sb, "  Prohibited:   %s\n", strings.Join(r.ProhibitedMarkers, ", "))
	}
	writeList(&sb, "Obligations", r.Obligations)
	writeList(&sb, "Recommendations", r.Recommendations)
	return strings.TrimRight(sb.String(), "\n")
}

func (v riskView) TableHeaders() []string {
	return []string{"ID", "ORGANISATION", "LEVEL", "SCORE", "TABLE"}
}

func (v riskView) TableRows() [][]string {
	return [][]string{{v.ID, v.OrganizationName, string(v.Result.RiskLevel), strconv.Itoa(v.Result.RiskScore), v.TableVersion}}
}

type maturityView struct {
	*certification.MaturityAssessmentDTO
}

func (v maturityView) String() string {
	r := v.Result
	var sb strings.Builder
	fmt.Fprintf(&sb, "Maturity assessment %s\n", v.ID)
	fmt.Fprintf(&sb, "  Organisation: %s\n", v.OrganizationName)
	fmt.Fprintf(&sb, "  Maturity:     %s (score %d)\n", r.OverallMaturity, r.OverallScore)
	sb.WriteString("  Domains:\n")
	for _, id := range sortedKeys(r.DomainScores) {
		ds := r.DomainScores[id]
		fmt.Fprintf(&sb, "    %-18s %3d  %s\n", id, ds.Score, ds.MaturityLevel)
	}
	writeList(&sb, "Recommendations", r.Recommendations)
	if len(r.ActionPlan) > 0 {
		sb.WriteString("  Action plan:\n")
		for _, a := range r.ActionPlan {
			fmt.Fprintf(&sb, "    [%s] %s: %s (%s)\n", a.Priority, a.Domain, a.Action, a.Timeline)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (v maturityView) TableHeaders() []string {
	return []string{"DOMAIN", "SCORE", "LEVEL"}
}

func (v maturityView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Result.DomainScores)+1)
	for _, id := range sortedKeys(v.Result.DomainScores) {
		ds := v.Result.DomainScores[id]
		rows = append(rows, []string{id, strconv.Itoa(ds.Score), string(ds.MaturityLevel)})
	}
	return append(rows, []string{"overall", strconv.Itoa(v.Result.OverallScore), string(v.Result.OverallMaturity)})
}

type frameworkView struct {
	*assessment.Framework
}

func (v frameworkView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s, version %s)\n", v.Name, v.ID, v.Version)
	for _, d := range v.Domains {
		fmt.Fprintf(&sb, "  %s - %s (weight %.2f)\n", d.ID, d.Name, d.Weight)
		for _, q := range d.Questions {
			fmt.Fprintf(&sb, "    %s.%s  %s\n", d.ID, q.ID, q.Text)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (v frameworkView) TableHeaders() []string {
	return []string{"KEY", "WEIGHT", "QUESTION"}
}

func (v frameworkView) TableRows() [][]string {
	var rows [][]string
	for _, d := range v.Domains {
		for _, q := range d.Questions {
			rows = append(rows, []string{d.ID + "." + q.ID, strconv.FormatFloat(d.Weight, 'f', 2, 64), q.Text})
		}
	}
	return rows
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "  %s:\n", title)
	for i, it := range items {
		fmt.Fprintf(sb, "    %d. %s\n", i+1, it)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
