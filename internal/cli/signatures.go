package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsentry/agentsentry/internal/threatdb"
)

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "Inspect the loaded threat signatures",
}

var signaturesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all loaded signatures",
	Long: `List every loaded signature: the built-in pack plus any .yaml packs
in the signatures.d directory. Packs prefixed with underscore are
disabled and skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		db, err := threatdb.Load(cfg.PacksDir, cfg.ThreatIntelPath)
		if err != nil {
			return fmt.Errorf("failed to load signatures: %w", err)
		}

		for _, sig := range db.Signatures() {
			fmt.Printf("%-12s %-8s %-20s %s\n", sig.ID, sig.Severity, sig.Category, sig.Name)
			if sig.MitreID != "" {
				fmt.Printf("             mitre: %s\n", sig.MitreID)
			}
		}
		fmt.Printf("\n%d signatures loaded\n", len(db.Signatures()))
		return nil
	},
}

func init() {
	signaturesCmd.AddCommand(signaturesListCmd)
	rootCmd.AddCommand(signaturesCmd)
}
