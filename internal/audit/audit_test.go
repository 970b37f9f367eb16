package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLog_WritesJSONLWithRedaction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	entries := []Entry{
		{
			EventType:      "EXEC",
			SessionID:      "sess-1",
			Command:        "export AWS_SECRET_ACCESS_KEY=abcdefghijklmnopqrstuvwxyz123456",
			TrustLevel:     "suspicious",
			Recommendation: "REVIEW: No trusted session or user request",
		},
		{
			EventType:    "NETWORK",
			Remote:       "203.0.113.9:4444",
			AlertsRaised: 1,
			ThreatIDs:    []string{"NETPORT-4444"},
		},
	}
	for _, e := range entries {
		if err := l.Log(e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var lines []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		lines = append(lines, e)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	if strings.Contains(lines[0].Command, "abcdefghijklmnopqrstuvwxyz123456") {
		t.Error("secret survived redaction in audit log")
	}
	if !strings.Contains(lines[0].Command, "[REDACTED]") {
		t.Errorf("Command = %q, want redaction marker", lines[0].Command)
	}
	if lines[0].Timestamp == "" {
		t.Error("timestamp should be filled in")
	}
	if lines[1].ThreatIDs[0] != "NETPORT-4444" {
		t.Errorf("ThreatIDs = %v", lines[1].ThreatIDs)
	}
}
