// Package alert defines the alert model and a bounded, persisted alert
// log with duplicate suppression.
package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentsentry/agentsentry/internal/threatdb"
)

// Alert is one security finding surfaced to the operator.
type Alert struct {
	ID          string            `json:"id"`
	Severity    threatdb.Severity `json:"severity"`
	Category    string            `json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Timestamp   time.Time         `json:"timestamp"`
	Details     Details           `json:"details,omitempty"`
	DismissedAt *time.Time        `json:"dismissed_at,omitempty"`
}

// Details carries the structured context of a finding. Only the fields
// relevant to the alert's category are populated.
type Details struct {
	SessionID    string           `json:"session_id,omitempty"`
	Command      string           `json:"command,omitempty"`
	Path         string           `json:"path,omitempty"`
	Remote       string           `json:"remote,omitempty"`
	Process      string           `json:"process,omitempty"`
	ActivityType string           `json:"activity_type,omitempty"`
	Matches      []threatdb.Match `json:"matches,omitempty"`
	Reasons      []string         `json:"reasons,omitempty"`
}

// New builds an alert with a fresh id and timestamp.
func New(severity threatdb.Severity, category, title, description string, details Details) Alert {
	return Alert{
		ID:          uuid.NewString(),
		Severity:    severity,
		Category:    category,
		Title:       title,
		Description: description,
		Timestamp:   time.Now(),
		Details:     details,
	}
}

// Fingerprint identifies "the same" alert across repeated evaluations:
// identity is what happened and to what, not when.
func (a Alert) Fingerprint() string {
	return a.Category + "|" + a.Title + "|" + a.Details.Command + "|" + a.Details.Path + "|" + a.Details.Remote
}
