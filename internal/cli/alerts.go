package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsentry/agentsentry/internal/alert"
	"github.com/agentsentry/agentsentry/internal/smartfilter"
)

var alertsLimit int

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List and dismiss alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log, err := alert.OpenLog(cfg.AlertLogPath, cfg.DismissedLogPath)
		if err != nil {
			return err
		}

		alerts := log.Recent(alertsLimit)
		if len(alerts) == 0 {
			fmt.Println("No alerts.")
			return nil
		}
		// Newest first for the operator.
		for i := len(alerts) - 1; i >= 0; i-- {
			a := alerts[i]
			fmt.Printf("%s  [%s/%s]  %s\n", a.Timestamp.Format("2006-01-02 15:04"), a.Severity, a.Category, a.Title)
			fmt.Printf("    id: %s\n", a.ID)
			if a.Description != "" {
				fmt.Printf("    %s\n", a.Description)
			}
		}
		return nil
	},
}

var alertsDismissCmd = &cobra.Command{
	Use:   "dismiss <alert-id>",
	Short: "Dismiss an alert and learn from it",
	Long: `Dismiss an alert. The alert moves to the dismissed log and its title
pattern feeds the smart filter, so similar alerts are suppressed in
the future. Rate-based activity alerts are never learned.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log, err := alert.OpenLog(cfg.AlertLogPath, cfg.DismissedLogPath)
		if err != nil {
			return err
		}

		dismissed, err := log.Dismiss(args[0])
		if err != nil {
			return err
		}
		smartfilter.Open(cfg.LearnedPatternsPath).LearnFromDismissal(dismissed)
		fmt.Printf("Dismissed: %s\n", dismissed.Title)
		return nil
	},
}

var alertsFilterStatsCmd = &cobra.Command{
	Use:   "filter-stats",
	Short: "Show smart filter statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		stats := smartfilter.Open(cfg.LearnedPatternsPath).Stats()
		fmt.Printf("Built-in benign patterns: %d\n", stats.BenignPatterns)
		fmt.Printf("Dismissed patterns:       %d\n", stats.DismissedPatterns)
		fmt.Printf("Known safe processes:     %d\n", stats.SafeProcesses)
		fmt.Printf("Known safe paths:         %d\n", stats.SafePaths)
		if stats.LastUpdated != "" {
			fmt.Printf("Last updated:             %s\n", stats.LastUpdated)
		}
		return nil
	},
}

var alertsMarkSafeProcessCmd = &cobra.Command{
	Use:   "mark-safe-process <process>",
	Short: "Suppress future alerts from a process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		smartfilter.Open(cfg.LearnedPatternsPath).MarkProcessSafe(args[0])
		fmt.Printf("Marked process safe: %s\n", args[0])
		return nil
	},
}

var alertsMarkSafePathCmd = &cobra.Command{
	Use:   "mark-safe-path <path>",
	Short: "Suppress future alerts under a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		smartfilter.Open(cfg.LearnedPatternsPath).MarkPathSafe(args[0])
		fmt.Printf("Marked path safe: %s\n", args[0])
		return nil
	},
}

var alertsFilterResetCmd = &cobra.Command{
	Use:   "filter-reset",
	Short: "Forget all learned suppression patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		smartfilter.Open(cfg.LearnedPatternsPath).Reset()
		fmt.Println("Learned patterns cleared.")
		return nil
	},
}

func init() {
	alertsListCmd.Flags().IntVar(&alertsLimit, "limit", 50, "Maximum number of alerts to show")
	alertsCmd.AddCommand(alertsListCmd, alertsDismissCmd, alertsFilterStatsCmd,
		alertsMarkSafeProcessCmd, alertsMarkSafePathCmd, alertsFilterResetCmd)
	rootCmd.AddCommand(alertsCmd)
}
