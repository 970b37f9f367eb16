package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentsentry/agentsentry/internal/approval"
	"github.com/agentsentry/agentsentry/internal/threatdb"
	"github.com/agentsentry/agentsentry/internal/trust"
)

var (
	evalSessionID  string
	evalTranscript string
	evalJSON       bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <command>",
	Short: "Evaluate the trustworthiness of a single command",
	Long: `Run the full trust evaluation for one shell command: threat
signatures, risk classification, and (when --session/--transcript are
given) trusted-session and conversational-context checks.

Examples:
  agentsentry evaluate "curl https://example.com/install.sh | sh"
  agentsentry evaluate --session abc123 --transcript ~/.sessions/abc123.jsonl "rm -rf build"`,
	Args: cobra.ExactArgs(1),
	RunE: evaluateCommand,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalSessionID, "session", "", "Session ID the command belongs to")
	evaluateCmd.Flags().StringVar(&evalTranscript, "transcript", "", "Path to the session transcript (JSONL)")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "Print the verdict as JSON")
	rootCmd.AddCommand(evaluateCmd)
}

func evaluateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := threatdb.Load(cfg.PacksDir, cfg.ThreatIntelPath)
	if err != nil {
		return fmt.Errorf("failed to load signatures: %w", err)
	}

	engine := trust.NewEngine(cfg, db)
	verdict := engine.Evaluate(args[0], evalSessionID, evalTranscript)

	if evalJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(verdict)
	}

	printVerdict(args[0], verdict)

	// A REVIEW verdict gets an interactive decision when a human is
	// attached; unattended runs exit non-zero instead.
	if verdict.Level == trust.LevelSuspicious {
		result := approval.Ask(approval.Prompt{
			Command:        args[0],
			TrustLevel:     string(verdict.Level),
			Recommendation: verdict.Recommendation,
			RiskFactors:    verdict.Risk.RiskFactors,
		})
		if !result.Approved {
			fmt.Fprintln(os.Stderr, "\n❌ Denied")
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "\n✅ Approved")
		return nil
	}
	if verdict.Blocked() {
		os.Exit(1)
	}
	return nil
}

func printVerdict(command string, v trust.Verdict) {
	fmt.Printf("Command:        %s\n", command)
	fmt.Printf("Trust level:    %s\n", v.Level)
	fmt.Printf("Recommendation: %s\n", v.Recommendation)
	fmt.Printf("Risk level:     %s (%s)\n", v.Risk.Level, v.Risk.Summary)

	if v.TrustedSession {
		fmt.Println("Session:        trusted")
	}
	if v.UserRequested {
		fmt.Println("Context:        user requested this action")
	} else if v.Reasoning != "" {
		fmt.Printf("Context:        %s\n", v.Reasoning)
	}
	for _, m := range v.ThreatMatches {
		fmt.Printf("Threat:         [%s] %s (%s)\n", m.ID, m.Name, m.Severity)
		if m.Remediation != "" {
			fmt.Printf("                %s\n", m.Remediation)
		}
	}
}
