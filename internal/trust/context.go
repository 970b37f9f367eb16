package trust

import (
	"regexp"
	"strings"

	"github.com/agentsentry/agentsentry/internal/event"
)

// contextResult is the outcome of reading a session transcript.
type contextResult struct {
	userRequested bool
	messages      []event.Message
	reasoning     string
}

const (
	// recentUserMessages bounds how far back a user request can be.
	recentUserMessages = 20
	// contextMessagesKept is how many messages surface in the verdict.
	contextMessagesKept = 10
)

// requestMarkers are phrasings that indicate the user asked for
// something, as opposed to the agent narrating its own plan.
var requestMarkers = []*regexp.Regexp{
	regexp.MustCompile(`run\s`), regexp.MustCompile(`execute\s`),
	regexp.MustCompile(`install\s`), regexp.MustCompile(`setup\s`),
	regexp.MustCompile(`create\s`), regexp.MustCompile(`build\s`),
	regexp.MustCompile(`start\s`), regexp.MustCompile(`download\s`),
	regexp.MustCompile(`please\s`), regexp.MustCompile(`can you\s`),
	regexp.MustCompile(`could you\s`), regexp.MustCompile(`would you\s`),
}

// wellKnownTools match loosely: a user mentioning "npm" and a command
// running npm counts as a request even without term overlap.
var wellKnownTools = []string{"curl", "wget", "npm", "pip", "git"}

var termRe = regexp.MustCompile(`\b\w{4,}\b`)

// analyzeContext reads the session transcript and decides whether the
// command was user-requested. A missing or unreadable transcript is
// not an error here; it just yields an unverified result.
func (e *Engine) analyzeContext(transcriptPath, command string) contextResult {
	messages, err := event.ReadTranscript(transcriptPath)
	if err != nil {
		return contextResult{reasoning: "Session transcript not readable"}
	}

	kept := messages
	if len(kept) > contextMessagesKept {
		kept = kept[len(kept)-contextMessagesKept:]
	}

	if e.userRequested(messages, command) {
		return contextResult{
			userRequested: true,
			messages:      kept,
			reasoning:     "User message found requesting this action",
		}
	}
	return contextResult{
		messages:  kept,
		reasoning: "No clear user request found for this action",
	}
}

// userRequested scans recent user messages newest-first for either a
// request phrasing with enough term overlap against the command, or a
// shared well-known tool name.
func (e *Engine) userRequested(messages []event.Message, command string) bool {
	commandLower := strings.ToLower(command)
	commandTerms := termSet(commandLower)

	if len(messages) > recentUserMessages {
		messages = messages[len(messages)-recentUserMessages:]
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		content := strings.ToLower(messages[i].Content)

		if hasRequestMarker(content) && termOverlap(commandTerms, termSet(content)) >= e.tuning.ContextTermOverlap {
			return true
		}
		if sharesTool(content, commandLower) {
			return true
		}
	}
	return false
}

func hasRequestMarker(content string) bool {
	for _, re := range requestMarkers {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

func sharesTool(content, command string) bool {
	for _, tool := range wellKnownTools {
		if strings.Contains(content, tool) {
			for _, t := range wellKnownTools {
				if strings.Contains(command, t) {
					return true
				}
			}
			return false
		}
	}
	return false
}

func termSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, term := range termRe.FindAllString(text, -1) {
		set[term] = true
	}
	return set
}

func termOverlap(a, b map[string]bool) int {
	n := 0
	for term := range a {
		if b[term] {
			n++
		}
	}
	return n
}
