package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsentry/agentsentry/internal/threatdb"
)

var intelSeverity string

var intelCmd = &cobra.Command{
	Use:   "intel",
	Short: "Manage custom threat intel",
	Long: `Custom threat intel overlays the built-in signature packs: regex
patterns, blocked IPs, and blocked domains added here match with the
same weight as built-in signatures.`,
}

var intelBlockIPCmd = &cobra.Command{
	Use:   "block-ip <ip>",
	Short: "Block an IP address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		intel, err := loadIntel()
		if err != nil {
			return err
		}
		if err := intel.BlockIP(args[0]); err != nil {
			return err
		}
		fmt.Printf("Blocked IP %s\n", args[0])
		return nil
	},
}

var intelBlockDomainCmd = &cobra.Command{
	Use:   "block-domain <domain>",
	Short: "Block a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		intel, err := loadIntel()
		if err != nil {
			return err
		}
		if err := intel.BlockDomain(args[0]); err != nil {
			return err
		}
		fmt.Printf("Blocked domain %s\n", args[0])
		return nil
	},
}

var intelAddPatternCmd = &cobra.Command{
	Use:   "add-pattern <regex> <reason>",
	Short: "Add a custom threat pattern",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		intel, err := loadIntel()
		if err != nil {
			return err
		}
		sev := threatdb.Severity(intelSeverity)
		if sev.Rank() == 0 {
			return fmt.Errorf("invalid severity %q (low, medium, high, critical)", intelSeverity)
		}
		if err := intel.AddPattern(args[0], args[1], sev); err != nil {
			return err
		}
		fmt.Printf("Added pattern %q (%s)\n", args[0], sev)
		return nil
	},
}

func init() {
	intelAddPatternCmd.Flags().StringVar(&intelSeverity, "severity", "high", "Severity of the pattern")
	intelCmd.AddCommand(intelBlockIPCmd, intelBlockDomainCmd, intelAddPatternCmd)
	rootCmd.AddCommand(intelCmd)
}

func loadIntel() (*threatdb.Intel, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return threatdb.LoadIntel(cfg.ThreatIntelPath)
}
