package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agentsentry/agentsentry/internal/baseline"
	"github.com/agentsentry/agentsentry/internal/config"
	"github.com/agentsentry/agentsentry/internal/crypt"
	"github.com/agentsentry/agentsentry/internal/store"
)

var cryptoCmd = &cobra.Command{
	Use:   "crypto",
	Short: "Manage encryption of the behavioral baseline",
	Long: `Baseline data is a map of what the agent normally does, which makes
it useful to an attacker. These commands enable or disable AES-256-GCM
encryption at rest with a passphrase-derived key.`,
}

var cryptoSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Enable encryption with a new passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, box, err := loadBox()
		if err != nil {
			return err
		}
		if box.Enabled() {
			return errors.New("encryption is already enabled")
		}

		pass, err := readPassphrase("New passphrase (min 8 chars): ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}
		if err := box.Setup(pass); err != nil {
			return err
		}

		// Re-persist any existing plaintext baseline in encrypted form.
		if err := baseline.Open(cfg, box).Persist(); err != nil {
			return fmt.Errorf("failed to encrypt existing baseline: %w", err)
		}
		fmt.Println("Encryption enabled. The baseline is now stored encrypted.")
		return nil
	},
}

var cryptoUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Verify the passphrase against the stored key hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, box, err := loadBox()
		if err != nil {
			return err
		}
		if !box.Enabled() {
			fmt.Println("Encryption is not enabled.")
			return nil
		}
		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		ok, err := box.Unlock(pass)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("wrong passphrase")
		}
		fmt.Println("Passphrase verified.")
		return nil
	},
}

var cryptoDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable encryption and re-persist the baseline in plaintext",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, box, err := loadBox()
		if err != nil {
			return err
		}
		if !box.Enabled() {
			fmt.Println("Encryption is not enabled.")
			return nil
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		ok, err := box.Unlock(pass)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("wrong passphrase")
		}

		// Load decrypted state before the key goes away.
		b := baseline.Open(cfg, box)
		if err := box.Disable(); err != nil {
			return err
		}
		if err := b.Persist(); err != nil {
			return fmt.Errorf("failed to write plaintext baseline: %w", err)
		}
		store.Remove(cfg.BaselineEncryptedPath)
		fmt.Println("Encryption disabled. The baseline is stored in plaintext again.")
		return nil
	},
}

var cryptoStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show encryption status",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, box, err := loadBox()
		if err != nil {
			return err
		}
		st := box.Status()
		if !st.Enabled {
			fmt.Println("Encryption: disabled")
			return nil
		}
		fmt.Println("Encryption: enabled")
		if st.Unlocked {
			fmt.Println("Key:        unlocked")
		} else {
			fmt.Println("Key:        locked (passphrase required to read the baseline)")
		}
		return nil
	},
}

func init() {
	cryptoCmd.AddCommand(cryptoSetupCmd, cryptoUnlockCmd, cryptoDisableCmd, cryptoStatusCmd)
	rootCmd.AddCommand(cryptoCmd)
}

func loadBox() (*config.Config, *crypt.Box, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	box, err := crypt.Open(cfg.CryptoConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load crypto config: %w", err)
	}
	return cfg, box, nil
}

// readPassphrase prompts without echo when stdin is a terminal and
// falls back to a plain line read otherwise (piped input in tests and
// scripts).
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	var pass string
	if _, err := fmt.Fscanln(os.Stdin, &pass); err != nil {
		return "", err
	}
	return pass, nil
}

// unlockInteractive prompts for the passphrase when encrypted state
// needs reading. Returns false when the box stays locked.
func unlockInteractive(box *crypt.Box) (bool, error) {
	if !box.Enabled() || box.Unlocked() {
		return true, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, nil
	}
	pass, err := readPassphrase("Baseline passphrase: ")
	if err != nil {
		return false, err
	}
	return box.Unlock(pass)
}
