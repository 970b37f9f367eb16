package event

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadTranscriptStringContent(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"message","message":{"role":"user","content":"run the tests"}}`,
		`{"type":"message","message":{"role":"assistant","content":"Running them now."}}`,
	)
	msgs, err := ReadTranscript(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "run the tests" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
}

func TestReadTranscriptBlockContent(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"message","message":{"role":"user","content":[{"type":"text","text":"please fetch"},{"type":"image","text":"ignored"},{"type":"text","text":"the report"}]}}`,
	)
	msgs, err := ReadTranscript(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Content != "please fetch the report" {
		t.Errorf("content = %q, want text blocks joined", msgs[0].Content)
	}
}

func TestReadTranscriptSkipsNoise(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"summary","summary":"irrelevant"}`,
		`not json at all`,
		`{"type":"message","message":{"role":"","content":"no role"}}`,
		`{"type":"message","message":{"role":"user","content":"real message"}}`,
	)
	msgs, err := ReadTranscript(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "real message" {
		t.Errorf("got %+v, want only the real message", msgs)
	}
}

func TestReadTranscriptTail(t *testing.T) {
	var lines []string
	for i := 0; i < 60; i++ {
		lines = append(lines, fmt.Sprintf(`{"type":"message","message":{"role":"user","content":"message %d"}}`, i))
	}
	msgs, err := ReadTranscript(writeTranscript(t, lines...))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 50 {
		t.Fatalf("got %d messages, want 50", len(msgs))
	}
	if msgs[0].Content != "message 10" {
		t.Errorf("first kept message = %q, want %q", msgs[0].Content, "message 10")
	}
}

func TestReadTranscriptTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("x", 800)
	path := writeTranscript(t,
		`{"type":"message","message":{"role":"user","content":"`+long+`"}}`,
	)
	msgs, err := ReadTranscript(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs[0].Content) != 500 {
		t.Errorf("content length = %d, want 500", len(msgs[0].Content))
	}
}

func TestReadTranscriptTruncatesOnRuneBoundary(t *testing.T) {
	// 200 three-byte runes = 600 bytes; a blind 500-byte cut would land
	// mid-rune.
	long := strings.Repeat("€", 200)
	path := writeTranscript(t,
		`{"type":"message","message":{"role":"user","content":"`+long+`"}}`,
	)
	msgs, err := ReadTranscript(path)
	if err != nil {
		t.Fatal(err)
	}
	content := msgs[0].Content
	if !utf8.ValidString(content) {
		t.Error("truncated content is not valid UTF-8")
	}
	if len(content) > 500 || len(content) < 498 {
		t.Errorf("content length = %d, want just under 500", len(content))
	}
}

func TestReadTranscriptMissingFile(t *testing.T) {
	if _, err := ReadTranscript(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Fatal("expected an error for a missing transcript")
	}
}
