package event

import "time"

// Type classifies an observed agent action.
type Type string

const (
	TypeExec    Type = "EXEC"
	TypeRead    Type = "READ"
	TypeWrite   Type = "WRITE"
	TypeEdit    Type = "EDIT"
	TypeNetwork Type = "NETWORK"
)

// IsFileAccess reports whether the type touches the filesystem.
func (t Type) IsFileAccess() bool {
	return t == TypeRead || t == TypeWrite || t == TypeEdit
}

// Event is a single observed action, produced by an external session-log
// reader or gateway-event forwarder. Only the fields relevant to the
// event's type are populated.
type Event struct {
	Type      Type      `json:"type"`
	Command   string    `json:"command,omitempty"`
	Path      string    `json:"path,omitempty"`
	Remote    string    `json:"remote,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is one entry of a session transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}
