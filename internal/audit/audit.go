// Package audit appends one JSONL record per evaluated event. The
// audit trail records every verdict, including suppressed and allowed
// ones, so an incident review can reconstruct what the engine saw.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agentsentry/agentsentry/internal/redact"
)

// Entry is one audit record.
type Entry struct {
	Timestamp      string   `json:"timestamp"`
	EventType      string   `json:"event_type"`
	SessionID      string   `json:"session_id,omitempty"`
	Command        string   `json:"command,omitempty"`
	Path           string   `json:"path,omitempty"`
	Remote         string   `json:"remote,omitempty"`
	TrustLevel     string   `json:"trust_level,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	RiskLevel      string   `json:"risk_level,omitempty"`
	ThreatIDs      []string `json:"threat_ids,omitempty"`
	Anomalies      []string `json:"anomalies,omitempty"`
	AlertsRaised   int      `json:"alerts_raised"`
	Suppressed     []string `json:"suppressed,omitempty"`
}

// Logger appends entries to a JSONL file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &Logger{file: file}, nil
}

// Log writes one entry. Command text and anomaly reasons pass through
// secret redaction; an audit log must never hold credentials.
func (l *Logger) Log(e Entry) error {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().Format(time.RFC3339)
	}
	e.Command = redact.Redact(e.Command)
	e.Anomalies = redact.RedactAll(e.Anomalies)

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.file.Write(append(data, '\n'))
	return err
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
