package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentsentry/agentsentry/internal/baseline"
	"github.com/agentsentry/agentsentry/internal/crypt"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect the learned behavioral baseline",
}

var baselineStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show baseline learning progress and top activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		box, err := crypt.Open(cfg.CryptoConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load crypto config: %w", err)
		}
		unlocked, err := unlockInteractive(box)
		if err != nil {
			return err
		}
		if !unlocked {
			fmt.Println("Baseline is encrypted; passphrase required to read stats.")
			return nil
		}

		stats := baseline.Open(cfg, box).Stats()
		if stats.WindowsCollected == 0 {
			fmt.Println("Collecting baseline data...")
			fmt.Printf("Windows: 0/%d\n", stats.WindowsNeeded)
			return nil
		}

		state := "learning"
		if stats.Learned {
			state = "learned"
		}
		fmt.Printf("State:   %s\n", state)
		fmt.Printf("Windows: %d collected (%d needed)\n", stats.WindowsCollected, stats.WindowsNeeded)

		printCounts("Activity totals", stats.ActivityTotals)
		printCounts("Top commands", stats.TopCommands)
		printCounts("Top directories", stats.TopDirectories)
		return nil
	},
}

func init() {
	baselineCmd.AddCommand(baselineStatsCmd)
	rootCmd.AddCommand(baselineCmd)
}

func printCounts(header string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", header)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
	for _, k := range keys {
		fmt.Printf("  %6d  %s\n", counts[k], k)
	}
}
