package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentsentry/agentsentry/internal/config"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "agentsentry",
	Short: "AgentSentry - Trust and threat detection for AI agent activity",
	Long: `AgentSentry watches what an AI agent actually does (shell commands,
file access, network connections) and decides how much to trust each
action: threat signature matching, command risk classification,
behavioral baselining, and conversational-context verification.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (default: ~/.agentsentry)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configDir)
}

func Execute() error {
	return rootCmd.Execute()
}
