// Package smartfilter suppresses alerts that are almost never real
// threats: routine development noise, patterns the operator has
// already dismissed, and rate-based behavioral alerts. Suppression is
// first-match-wins, and every suppression carries its reason.
package smartfilter

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/agentsentry/agentsentry/internal/alert"
	"github.com/agentsentry/agentsentry/internal/store"
)

// benignPatterns are built-in substrings of titles, descriptions, or
// detail fields that mark routine activity.
var benignPatterns = []string{
	// Development activity
	"package-lock.json",
	"package.json",
	"yarn.lock",
	"Cargo.lock",
	"Gemfile.lock",
	"poetry.lock",
	"pnpm-lock.yaml",
	".git/",
	"node_modules/",
	"__pycache__/",
	".pyc",
	".npm/",
	".cache/",

	// Normal system activity
	".DS_Store",
	".Trash",
	"Library/Caches",
	"Library/Preferences",
	"/var/folders/",
	"/tmp/",

	// IDE and editors
	".vscode/",
	".idea/",
	".swp",
	".eslintcache",
}

// learned is the persisted operator-taught state.
type learned struct {
	DismissedPatterns []string `json:"dismissed_patterns"`
	SafeProcesses     []string `json:"known_safe_processes"`
	SafePaths         []string `json:"known_safe_paths"`
	LastUpdated       string   `json:"last_updated,omitempty"`
}

// Filter decides which alerts reach the operator.
type Filter struct {
	mu      sync.Mutex
	path    string
	learned learned
}

// Open loads the learned-pattern state. Corrupt state is logged and
// reset; the built-in benign patterns always apply.
func Open(path string) *Filter {
	f := &Filter{path: path}
	if err := store.LoadJSON(path, &f.learned); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("learned patterns unreadable, resetting", "error", err)
		}
		f.learned = learned{}
	}
	return f
}

// ShouldSuppress reports whether the alert should be dropped before it
// reaches the operator, and why. Checks run in order: built-in benign
// patterns, dismissed patterns, safe processes, safe paths, then the
// blanket behavioral_anomaly suppression. Rate-based behavioral alerts
// are always suppressed; real threats surface through signature
// matching, not rates.
func (f *Filter) ShouldSuppress(a alert.Alert) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	haystack := strings.Join([]string{
		a.Title, a.Description,
		a.Details.Command, a.Details.Path, a.Details.Remote,
		a.Details.Process, a.Details.ActivityType,
		strings.Join(a.Details.Reasons, " "),
	}, " ")
	for _, pattern := range benignPatterns {
		if strings.Contains(haystack, pattern) {
			return true, "Matches benign pattern: " + pattern
		}
	}

	for _, dismissed := range f.learned.DismissedPatterns {
		if strings.Contains(a.Title, dismissed) || strings.Contains(a.Description, dismissed) {
			return true, "Previously dismissed: " + dismissed
		}
	}

	if a.Details.Process != "" {
		for _, p := range f.learned.SafeProcesses {
			if p == a.Details.Process {
				return true, "Known safe process: " + p
			}
		}
	}

	if a.Details.Path != "" {
		for _, safe := range f.learned.SafePaths {
			if strings.Contains(a.Details.Path, safe) {
				return true, "Known safe path: " + safe
			}
		}
	}

	if a.Category == "behavioral_anomaly" {
		return true, "Suppressed rate-based alert: " + a.Details.ActivityType
	}

	return false, ""
}

// LearnFromDismissal records the dismissed alert's title pattern so
// similar alerts are suppressed in the future. Rate-based activity
// alerts are temporary and never learned.
func (f *Filter) LearnFromDismissal(a alert.Alert) {
	pattern := a.Title
	switch {
	case strings.Contains(a.Title, "Lockfile"):
		pattern = "Lockfile"
	case strings.Contains(a.Title, "Activity Pattern"):
		return
	case strings.Contains(a.Title, ":"):
		pattern = strings.TrimSpace(a.Title[:strings.Index(a.Title, ":")])
	}
	if pattern == "" {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.learned.DismissedPatterns {
		if existing == pattern {
			return
		}
	}
	f.learned.DismissedPatterns = append(f.learned.DismissedPatterns, pattern)
	f.saveLocked()
}

// MarkProcessSafe whitelists a process name. Idempotent.
func (f *Filter) MarkProcessSafe(process string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.learned.SafeProcesses {
		if p == process {
			return
		}
	}
	f.learned.SafeProcesses = append(f.learned.SafeProcesses, process)
	f.saveLocked()
}

// MarkPathSafe whitelists a path substring. Idempotent.
func (f *Filter) MarkPathSafe(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.learned.SafePaths {
		if p == path {
			return
		}
	}
	f.learned.SafePaths = append(f.learned.SafePaths, path)
	f.saveLocked()
}

// Stats summarizes the filter state for the operator surface.
type Stats struct {
	DismissedPatterns int    `json:"dismissed_patterns"`
	SafeProcesses     int    `json:"known_safe_processes"`
	SafePaths         int    `json:"known_safe_paths"`
	BenignPatterns    int    `json:"benign_patterns"`
	LastUpdated       string `json:"last_updated,omitempty"`
}

func (f *Filter) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		DismissedPatterns: len(f.learned.DismissedPatterns),
		SafeProcesses:     len(f.learned.SafeProcesses),
		SafePaths:         len(f.learned.SafePaths),
		BenignPatterns:    len(benignPatterns),
		LastUpdated:       f.learned.LastUpdated,
	}
}

// Reset clears all learned state. Built-in benign patterns remain.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.learned = learned{}
	f.saveLocked()
}

func (f *Filter) saveLocked() {
	f.learned.LastUpdated = time.Now().Format(time.RFC3339)
	if err := store.SaveJSON(f.path, &f.learned); err != nil {
		slog.Warn("learned patterns save failed", "error", err)
	}
}
