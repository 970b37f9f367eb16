// Package riskclass derives a capability/risk profile for a single
// shell command. It is an independent signal from signature matching:
// signatures catch specific exploit shapes, this catches general
// capability breadth (network reach, system modification, code
// execution) regardless of intent.
package riskclass

import (
	"fmt"
	"strings"
)

// Level is the closed set of risk levels, ordered
// minimal < low < medium < high.
type Level string

const (
	LevelMinimal Level = "minimal"
	LevelLow     Level = "low"
	LevelMedium  Level = "medium"
	LevelHigh    Level = "high"
)

// Rank returns a numeric position for level comparison.
func (l Level) Rank() int {
	switch l {
	case LevelMinimal:
		return 1
	case LevelLow:
		return 2
	case LevelMedium:
		return 3
	case LevelHigh:
		return 4
	default:
		return 0
	}
}

// Profile is the derived risk assessment for one command. Computed
// fresh per evaluation, never persisted.
type Profile struct {
	Level        Level                `json:"risk_level"`
	Capabilities []string             `json:"capabilities,omitempty"`
	RiskFactors  []string             `json:"risk_factors,omitempty"`
	Obfuscation  []ObfuscationFinding `json:"obfuscation,omitempty"`
	Summary      string               `json:"summary"`
	BaseCommand  string               `json:"base_command"`
}

// Classify analyzes a command without any session context.
//
// Decision order: obfuscation scan on the raw text, safe-allowlist
// short-circuit, then capability table lookups on the base command,
// then dangerous structural pattern scan, then the priority cascade
// high > medium > low > minimal.
func Classify(command string) Profile {
	lower := strings.ToLower(strings.TrimSpace(command))
	base := BaseCommand(lower)

	// The scan runs on the raw command: lowercasing or trimming first
	// would hide exactly the characters it looks for.
	obfuscation := scanObfuscation(command)

	if desc, ok := safeCommands[base]; ok && len(obfuscation) == 0 {
		return Profile{
			Level:        LevelMinimal,
			Capabilities: []string{"Safe: " + desc},
			Summary:      desc,
			BaseCommand:  base,
		}
	}

	var capabilities, riskFactors []string
	for _, f := range obfuscation {
		riskFactors = append(riskFactors, "Obfuscation: "+f.Description)
	}

	if cap, ok := networkCommands[base]; ok {
		capabilities = append(capabilities, fmt.Sprintf("Network: %s - %s", cap.name, cap.desc))
		riskFactors = append(riskFactors, "Network capability")
	}
	if cap, ok := systemCommands[base]; ok {
		capabilities = append(capabilities, fmt.Sprintf("System: %s - %s", cap.name, cap.desc))
		riskFactors = append(riskFactors, "System modification capability")
	}
	if cap, ok := execCommands[base]; ok {
		capabilities = append(capabilities, fmt.Sprintf("Execution: %s - %s", cap.name, cap.desc))
	}

	for _, dp := range dangerousPatterns {
		if dp.re.MatchString(lower) {
			riskFactors = append(riskFactors, dp.reason)
		}
	}

	level := decideLevel(riskFactors, capabilities)
	for _, f := range obfuscation {
		if f.Blocking && level.Rank() < LevelHigh.Rank() {
			level = LevelHigh
		} else if level.Rank() < LevelMedium.Rank() {
			level = LevelMedium
		}
	}

	return Profile{
		Level:        level,
		Capabilities: capabilities,
		RiskFactors:  riskFactors,
		Obfuscation:  obfuscation,
		Summary:      buildSummary(base, capabilities, riskFactors),
		BaseCommand:  base,
	}
}

// decideLevel applies the priority cascade over accumulated factors.
func decideLevel(riskFactors, capabilities []string) Level {
	for _, f := range riskFactors {
		lf := strings.ToLower(f)
		if strings.Contains(lf, "shell") || strings.Contains(lf, "fork bomb") || strings.Contains(lf, "root") {
			return LevelHigh
		}
	}
	if len(riskFactors) >= 2 {
		return LevelMedium
	}
	for _, f := range riskFactors {
		if strings.Contains(f, "System modification") {
			return LevelMedium
		}
	}
	if len(riskFactors) > 0 || len(capabilities) > 0 {
		return LevelLow
	}
	return LevelMinimal
}

func buildSummary(base string, capabilities, riskFactors []string) string {
	switch {
	case len(capabilities) == 0 && len(riskFactors) == 0:
		return fmt.Sprintf("Command '%s' - no specific risk indicators found", base)
	case len(riskFactors) > 0:
		shown := riskFactors
		if len(shown) > 3 {
			shown = shown[:3]
		}
		return "Risk factors: " + strings.Join(shown, ", ")
	default:
		return capabilities[0]
	}
}
