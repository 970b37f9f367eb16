// Package approval prompts the operator when a verdict asks for
// review. Non-interactive runs deny automatically: an unattended
// REVIEW is a no.
package approval

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

type Result struct {
	Approved   bool
	UserAction string
}

// Prompt describes the action under review.
type Prompt struct {
	Command        string
	TrustLevel     string
	Recommendation string
	RiskFactors    []string
}

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func Ask(p Prompt) Result {
	if !IsInteractive() {
		return Result{Approved: false, UserAction: "auto_deny_non_interactive"}
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(os.Stderr, "║              ⚠️  REVIEW REQUIRED                              ║")
	fmt.Fprintln(os.Stderr, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "Command:     %s\n", p.Command)
	fmt.Fprintf(os.Stderr, "Trust level: %s\n", p.TrustLevel)
	fmt.Fprintf(os.Stderr, "%s\n", p.Recommendation)

	if len(p.RiskFactors) > 0 {
		fmt.Fprintln(os.Stderr, "Risk factors:")
		for _, f := range p.RiskFactors {
			fmt.Fprintf(os.Stderr, "  • %s\n", f)
		}
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "  [a] Approve - treat this action as legitimate")
	fmt.Fprintln(os.Stderr, "  [d] Deny - treat this action as hostile")
	fmt.Fprintln(os.Stderr, "")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "Your choice [a/d]: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return Result{Approved: false, UserAction: "error_reading_input"}
		}

		switch strings.TrimSpace(strings.ToLower(input)) {
		case "a", "approve", "yes", "y":
			return Result{Approved: true, UserAction: "approve_once"}
		case "d", "deny", "no", "n":
			return Result{Approved: false, UserAction: "deny"}
		default:
			fmt.Fprintln(os.Stderr, "Invalid input. Please enter 'a' to approve or 'd' to deny.")
		}
	}
}
