package event

import (
	"bufio"
	"encoding/json"
	"os"
	"unicode/utf8"
)

const (
	// transcriptTail bounds how much of a session file is considered.
	transcriptTail = 50
	// Content is truncated so a single huge message cannot dominate
	// term-overlap scoring downstream.
	maxMessageLen = 500
	maxBlockLen   = 200
)

// transcriptEntry mirrors one line of an agent session JSONL file.
// Content is either a plain string or a list of typed blocks.
type transcriptEntry struct {
	Type    string `json:"type"`
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ReadTranscript parses a session JSONL file and returns the messages
// from its last entries. Malformed lines are skipped; a missing file is
// an error the caller decides how to surface.
func ReadTranscript(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(lines) > transcriptTail {
		lines = lines[len(lines)-transcriptTail:]
	}

	var messages []Message
	for _, line := range lines {
		var entry transcriptEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Type != "message" || entry.Message.Role == "" {
			continue
		}
		content := flattenContent(entry.Message.Content)
		if content == "" {
			continue
		}
		messages = append(messages, Message{
			Role:    entry.Message.Role,
			Content: content,
		})
	}
	return messages, nil
}

// flattenContent handles both string content and block-list content,
// joining the text blocks into a single bounded string.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return truncate(s, maxMessageLen)
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var joined string
	for _, b := range blocks {
		if b.Type != "text" || b.Text == "" {
			continue
		}
		if joined != "" {
			joined += " "
		}
		joined += truncate(b.Text, maxBlockLen)
	}
	return truncate(joined, maxMessageLen)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
