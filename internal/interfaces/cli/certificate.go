package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/AIComply/internal/application/certification"
	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/pkg/errors"
)

const dateLayout = "2006-01-02"

// NewIssueCmd creates the issue command.
func NewIssueCmd() *cobra.Command {
	var (
		org        string
		user       string
		certType   string
		riskID     string
		maturityID string
		systemID   string
		systemName string
		language   string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a compliance certificate from stored assessments",
		Example: "  aicomply issue --org \"Acme GmbH\" --type conformity --risk-id <id> --maturity-id <id>\n" +
			"  aicomply issue --org \"Acme GmbH\" --type maturity --maturity-id <id> -o json > cert.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			rec, err := cliCtx.Service.IssueCertificate(ctx, &certification.IssueCertificateRequest{
				UserID:               user,
				OrganizationName:     org,
				SystemName:           systemName,
				SystemID:             systemID,
				CertificateType:      certificate.CertificateType(strings.ToLower(certType)),
				RiskAssessmentID:     riskID,
				MaturityAssessmentID: maturityID,
				Language:             language,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, certificateView{rec})
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "organisation name [REQUIRED]")
	cmd.Flags().StringVar(&user, "user", "cli", "issuing user id")
	cmd.Flags().StringVarP(&certType, "type", "t", string(certificate.TypeConformity),
		"certificate type (conformity, risk_assessment, maturity, compliance_summary)")
	cmd.Flags().StringVar(&riskID, "risk-id", "", "risk assessment id")
	cmd.Flags().StringVar(&maturityID, "maturity-id", "", "maturity assessment id")
	cmd.Flags().StringVar(&systemID, "system-id", "", "registered AI system id")
	cmd.Flags().StringVar(&systemName, "system-name", "", "AI system name")
	cmd.Flags().StringVar(&language, "lang", "", "recommendation language (default from config)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

// NewVerifyCmd creates the verify command. A certificate document given with
// --file is checked without touching the store.
func NewVerifyCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "verify [certificate-number]",
		Short: "Verify a certificate's integrity hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read certificate: %w", err)
				}
				var rec certificate.CertificateRecord
				if err := json.Unmarshal(raw, &rec); err != nil {
					return errors.Wrap(err, errors.ErrCodeValidation, "certificate file is not valid JSON")
				}
				report := certificate.Inspect(&rec, time.Now())
				return PrintResult(cmd, verificationView{&certification.VerificationDTO{
					VerificationReport: report,
					OrganizationName:   rec.OrganizationName,
					SystemName:         rec.SystemName,
					CertificateType:    rec.CertificateType,
					IssuedAt:           rec.IssuedAt,
					OverallStatus:      rec.ComplianceDetails.OverallStatus,
					ComplianceScore:    rec.ComplianceScore,
				}})
			}

			if len(args) == 0 {
				return errors.InvalidParam("a certificate number or --file is required")
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			dto, err := cliCtx.Service.VerifyCertificate(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, verificationView{dto})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "verify a certificate JSON document instead of a stored one")
	return cmd
}

// NewCertificateCmd creates the certificate command group.
func NewCertificateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "certificate",
		Aliases: []string{"cert"},
		Short:   "Inspect issued certificates",
	}
	cmd.AddCommand(newCertificateShowCmd(), newCertificateListCmd())
	return cmd
}

func newCertificateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <certificate-number>",
		Short: "Show a stored certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			rec, err := cliCtx.Service.GetCertificate(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, certificateView{rec})
		},
	}
}

func newCertificateListCmd() *cobra.Command {
	var (
		org    string
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List certificates issued to an organisation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			page, err := cliCtx.Service.SearchCertificates(ctx, certificate.RegistryQuery{
				OrganizationName: org,
				Status:           certificate.OverallStatus(status),
				Limit:            limit,
				Offset:           offset,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, registryView{page})
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "organisation name [REQUIRED]")
	cmd.Flags().StringVar(&status, "status", "", "filter by overall status")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of certificates")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of certificates to skip")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

type certificateView struct {
	*certificate.CertificateRecord
}

func (v certificateView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Certificate %s\n", v.CertificateNumber)
	fmt.Fprintf(&sb, "  Organisation:  %s\n", v.OrganizationName)
	if v.SystemName != "" {
		fmt.Fprintf(&sb, "  System:        %s\n", v.SystemName)
	}
	fmt.Fprintf(&sb, "  Type:          %s\n", v.CertificateType)
	fmt.Fprintf(&sb, "  Score:         %d (%s)\n", v.ComplianceScore, v.ComplianceDetails.OverallStatus)
	if v.RiskLevel != "" {
		fmt.Fprintf(&sb, "  Risk level:    %s\n", v.RiskLevel)
	}
	if v.MaturityLevel != "" {
		fmt.Fprintf(&sb, "  Maturity:      %s\n", v.MaturityLevel)
	}
	fmt.Fprintf(&sb, "  Issued:        %s\n", v.IssuedAt.Format(dateLayout))
	fmt.Fprintf(&sb, "  Valid until:   %s\n", v.ValidUntil.Format(dateLayout))
	fmt.Fprintf(&sb, "  Next review:   %s\n", v.ComplianceDetails.NextReviewDate.Format(dateLayout))
	fmt.Fprintf(&sb, "  Authority:     %s (%s)\n", v.Certification.Authority, v.Certification.Standard)
	fmt.Fprintf(&sb, "  Hash:          %s\n", v.Certification.Hash)
	writeList(&sb, "Recommendations", v.ComplianceDetails.Recommendations)
	return strings.TrimRight(sb.String(), "\n")
}

func (v certificateView) TableHeaders() []string {
	return []string{"NUMBER", "ORGANISATION", "TYPE", "SCORE", "STATUS", "VALID UNTIL"}
}

func (v certificateView) TableRows() [][]string {
	return [][]string{{
		v.CertificateNumber,
		v.OrganizationName,
		string(v.CertificateType),
		strconv.Itoa(v.ComplianceScore),
		string(v.ComplianceDetails.OverallStatus),
		v.ValidUntil.Format(dateLayout),
	}}
}

type verificationView struct {
	*certification.VerificationDTO
}

func (v verificationView) String() string {
	verdict := "VALID"
	if !v.Valid {
		verdict = "INVALID"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Certificate %s: %s\n", v.CertificateNumber, verdict)
	fmt.Fprintf(&sb, "  Organisation: %s\n", v.OrganizationName)
	fmt.Fprintf(&sb, "  Status:       %s (score %d)\n", v.OverallStatus, v.ComplianceScore)
	fmt.Fprintf(&sb, "  Valid until:  %s", v.ValidUntil.Format(dateLayout))
	if v.Expired {
		sb.WriteString(" (expired)")
	}
	sb.WriteString("\n")
	if v.Reason != "" {
		fmt.Fprintf(&sb, "  Reason:       %s\n", v.Reason)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (v verificationView) TableHeaders() []string {
	return []string{"NUMBER", "VALID", "EXPIRED", "ORGANISATION", "REASON"}
}

func (v verificationView) TableRows() [][]string {
	return [][]string{{
		v.CertificateNumber,
		strconv.FormatBool(v.Valid),
		strconv.FormatBool(v.Expired),
		v.OrganizationName,
		v.Reason,
	}}
}

type registryView struct {
	*certificate.RegistryPage
}

func (v registryView) String() string {
	if len(v.Entries) == 0 {
		return "No certificates found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d certificate(s)\n", v.Total)
	for _, e := range v.Entries {
		fmt.Fprintf(&sb, "  %s  %-20s  %3d  %s\n", e.CertificateNumber, e.CertificateType, e.ComplianceScore, e.OverallStatus)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (v registryView) TableHeaders() []string {
	return []string{"NUMBER", "ORGANISATION", "TYPE", "SCORE", "STATUS", "ISSUED"}
}

func (v registryView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		rows = append(rows, []string{
			e.CertificateNumber,
			e.OrganizationName,
			string(e.CertificateType),
			strconv.Itoa(e.ComplianceScore),
			string(e.OverallStatus),
			e.IssuedAt.Format(dateLayout),
		})
	}
	return rows
}
