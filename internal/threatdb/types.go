package threatdb

import "regexp"

// Severity is the closed set of signature severities, ordered
// low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a numeric position for severity comparison.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Signature is one static detection rule: a compiled pattern plus
// metadata describing a known-bad command or network shape. Signatures
// are immutable after load.
type Signature struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Severity    Severity `yaml:"severity"`
	Category    string `yaml:"category"`
	Pattern     string `yaml:"pattern"`
	MitreID     string `yaml:"mitre,omitempty"`
	Remediation string `yaml:"remediation,omitempty"`

	compiled *regexp.Regexp
}

// Match is a single signature hit against an input.
type Match struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	MitreID     string   `json:"mitre_id,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
	Pattern     string   `json:"pattern"`
}

// MaxSeverity returns the highest severity among matches, or "" when
// there are none.
func MaxSeverity(matches []Match) Severity {
	var max Severity
	for _, m := range matches {
		if m.Severity.Rank() > max.Rank() {
			max = m.Severity
		}
	}
	return max
}

// SuspiciousPort is a known-bad destination port.
type SuspiciousPort struct {
	Port        int      `yaml:"port"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Severity    Severity `yaml:"severity"`
}

// SuspiciousDomain is a domain substring associated with malware
// hosting or tunneling.
type SuspiciousDomain struct {
	Domain      string   `yaml:"domain"`
	Description string   `yaml:"description"`
	Severity    Severity `yaml:"severity"`
}

// SuspiciousIPRange is an IP prefix associated with known-bad
// infrastructure. Matched as a string prefix on the remote address.
type SuspiciousIPRange struct {
	Prefix      string   `yaml:"prefix"`
	Description string   `yaml:"description"`
	Severity    Severity `yaml:"severity"`
}
