// Package redact strips credential material from text before it is
// persisted to audit logs or alert records. Monitored commands and
// transcript snippets routinely contain exported secrets; the logs
// must not become a secondary credential store.
package redact

import "regexp"

const placeholder = "[REDACTED]"

var secretPatterns = []*regexp.Regexp{
	// Cloud provider credentials
	regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

	// GitHub tokens
	regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`),
	regexp.MustCompile(`gh[opusr]_[A-Za-z0-9]{36}`),

	// Model/API provider keys commonly present in agent environments
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|secretkey|secret-key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`),

	// Key material and auth headers
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{20,}`),

	// Credentials embedded in URLs
	regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@`),

	// Service tokens
	regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`),
	regexp.MustCompile(`sk_live_[0-9a-zA-Z]{24}`),

	// Password assignments
	regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),
}

// Redact replaces credential-shaped substrings with a placeholder.
func Redact(input string) string {
	out := input
	for _, p := range secretPatterns {
		out = p.ReplaceAllString(out, placeholder)
	}
	return out
}

// RedactAll redacts each string of a slice.
func RedactAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Redact(v)
	}
	return out
}
