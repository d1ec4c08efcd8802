package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/AIComply/internal/application/certification"
	"github.com/turtacn/AIComply/internal/domain/assessment"
)

// NewSystemCmd creates the system command group.
func NewSystemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Register and inspect AI systems",
	}
	cmd.AddCommand(newSystemRegisterCmd(), newSystemShowCmd())
	return cmd
}

func newSystemRegisterCmd() *cobra.Command {
	var (
		req   certification.RegisterAISystemRequest
		score int
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an AI system",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("score") {
				req.ComplianceScore = &score
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			sys, err := cliCtx.Service.RegisterAISystem(ctx, &req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, systemView{sys})
		},
	}

	cmd.Flags().StringVar(&req.OrganizationName, "org", "", "organisation name [REQUIRED]")
	cmd.Flags().StringVar(&req.Name, "name", "", "system name [REQUIRED]")
	cmd.Flags().StringVar(&req.UserID, "user", "cli", "owning user id")
	cmd.Flags().StringVar(&req.Description, "description", "", "description")
	cmd.Flags().StringVar(&req.ApplicationDomain, "domain", "", "application domain")
	cmd.Flags().StringVar(&req.Purpose, "purpose", "", "intended purpose")
	cmd.Flags().IntVar(&score, "score", 0, "externally determined compliance score (0-100)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSystemShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <system-id>",
		Short: "Show a registered AI system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			sys, err := cliCtx.Service.GetAISystem(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, systemView{sys})
		},
	}
}

type systemView struct {
	*assessment.AISystem
}

func (v systemView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "AI system %s\n", v.ID)
	fmt.Fprintf(&sb, "  Name:         %s\n", v.Name)
	fmt.Fprintf(&sb, "  Organisation: %s\n", v.OrganizationName)
	if v.ApplicationDomain != "" {
		fmt.Fprintf(&sb, "  Domain:       %s\n", v.ApplicationDomain)
	}
	if v.Purpose != "" {
		fmt.Fprintf(&sb, "  Purpose:      %s\n", v.Purpose)
	}
	if v.ComplianceScore != nil {
		fmt.Fprintf(&sb, "  Score:        %d\n", *v.ComplianceScore)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (v systemView) TableHeaders() []string {
	return []string{"ID", "NAME", "ORGANISATION", "SCORE"}
}

func (v systemView) TableRows() [][]string {
	score := "-"
	if v.ComplianceScore != nil {
		score = strconv.Itoa(*v.ComplianceScore)
	}
	return [][]string{{v.ID, v.Name, v.OrganizationName, score}}
}
