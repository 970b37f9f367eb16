package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsentry/agentsentry/internal/threatdb"
	"github.com/agentsentry/agentsentry/internal/trust"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage trusted agent sessions",
}

var sessionTrustCmd = &cobra.Command{
	Use:   "trust <session-id>",
	Short: "Mark a session as the user's own agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadTrustEngine()
		if err != nil {
			return err
		}
		if err := engine.TrustSession(args[0]); err != nil {
			return err
		}
		fmt.Printf("Session %s is now trusted\n", args[0])
		return nil
	},
}

var sessionUntrustCmd = &cobra.Command{
	Use:   "untrust <session-id>",
	Short: "Remove trust from a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadTrustEngine()
		if err != nil {
			return err
		}
		if err := engine.UntrustSession(args[0]); err != nil {
			return err
		}
		fmt.Printf("Session %s is no longer trusted\n", args[0])
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trusted sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadTrustEngine()
		if err != nil {
			return err
		}
		sessions := engine.TrustedSessions()
		if len(sessions) == 0 {
			fmt.Println("No trusted sessions.")
			return nil
		}
		for _, s := range sessions {
			fmt.Println(s)
		}
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionTrustCmd, sessionUntrustCmd, sessionListCmd)
	rootCmd.AddCommand(sessionCmd)
}

func loadTrustEngine() (*trust.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := threatdb.Load(cfg.PacksDir, cfg.ThreatIntelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load signatures: %w", err)
	}
	return trust.NewEngine(cfg, db), nil
}
