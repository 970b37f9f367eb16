// Package baseline learns an hourly activity profile from observed
// agent actions and flags departures from it. Learning and detection
// share one structure: a FIFO of hourly windows, each a histogram of
// activity counts, base commands, directories, and network remotes.
package baseline

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agentsentry/agentsentry/internal/config"
	"github.com/agentsentry/agentsentry/internal/crypt"
	"github.com/agentsentry/agentsentry/internal/event"
	"github.com/agentsentry/agentsentry/internal/riskclass"
	"github.com/agentsentry/agentsentry/internal/store"
)

// Window is one hour of aggregated activity.
type Window struct {
	Start       time.Time      `json:"timestamp"`
	Hour        int            `json:"hour"`
	Counts      map[string]int `json:"counts"`
	Commands    map[string]int `json:"commands"`
	Directories map[string]int `json:"directories"`
	Network     map[string]int `json:"network"`
}

func newWindow(start time.Time) Window {
	return Window{
		Start:       start,
		Hour:        start.Hour(),
		Counts:      map[string]int{},
		Commands:    map[string]int{},
		Directories: map[string]int{},
		Network:     map[string]int{},
	}
}

func (w Window) empty() bool {
	return len(w.Counts) == 0
}

// Anomaly is a departure from the learned profile.
type Anomaly struct {
	Reasons  []string `json:"reasons"`
	Severity string   `json:"severity"` // medium or high
}

// persisted is the on-disk baseline shape.
type persisted struct {
	Windows    []Window `json:"windows"`
	Learned    bool     `json:"learned"`
	MinWindows int      `json:"min_windows"`
}

// Baseline accumulates activity into the current hourly window and
// compares new activity against the persisted history.
type Baseline struct {
	mu      sync.Mutex
	history persisted
	current Window
	tuning  config.Tuning

	plainPath string
	encPath   string
	box       *crypt.Box

	now func() time.Time
}

// sensitiveCommands rarely appear in normal agent work; their first
// use is worth a flag even when the command itself is common tooling.
var sensitiveCommands = map[string]bool{
	"curl": true, "wget": true, "nc": true, "ncat": true, "netcat": true,
	"ssh": true, "scp": true, "base64": true, "xxd": true, "dd": true,
	"tar": true, "zip": true, "gpg": true, "chmod": true, "chown": true,
	"sudo": true, "su": true, "passwd": true, "crontab": true,
	"systemctl": true, "launchctl": true,
}

// sensitivePathMarkers identify credential and secret stores.
var sensitivePathMarkers = []string{
	".ssh", ".aws", ".gnupg", ".config/gcloud",
	"Cookies", "Login Data", "Keychain",
	"/etc/passwd", "/etc/shadow", "/etc/sudoers",
}

// localRemoteMarkers exclude localhost and common LAN ranges from
// new-destination flagging.
var localRemoteMarkers = []string{"127.0.0.1", "::1", "192.168.", "10.0.", "172.16."}

// Open loads the persisted baseline. Encrypted state is preferred when
// the box is enabled and unlocked; enabled-but-locked starts from an
// empty profile rather than reading the plaintext fallback. Corrupt
// state is logged and replaced with an empty profile.
func Open(cfg *config.Config, box *crypt.Box) *Baseline {
	b := &Baseline{
		tuning:    cfg.Tuning,
		plainPath: cfg.BaselinePath,
		encPath:   cfg.BaselineEncryptedPath,
		box:       box,
		now:       time.Now,
	}
	b.history = b.load()
	b.current = newWindow(b.now())
	return b
}

func (b *Baseline) load() persisted {
	empty := persisted{MinWindows: b.tuning.MinWindows}

	if b.box != nil && b.box.Enabled() {
		if !b.box.Unlocked() {
			return empty
		}
		blob, err := store.LoadText(b.encPath)
		if err == nil {
			data, err := b.box.Decrypt(blob)
			if err != nil {
				slog.Warn("baseline decrypt failed, starting fresh", "error", err)
				return empty
			}
			var p persisted
			if err := store.UnmarshalJSON(data, &p); err != nil {
				slog.Warn("encrypted baseline corrupt, starting fresh", "error", err)
				return empty
			}
			return p
		}
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("baseline read failed, starting fresh", "error", err)
			return empty
		}
		// No encrypted file yet; fall through to the plaintext file so
		// enabling encryption does not drop an existing profile.
	}

	var p persisted
	err := store.LoadJSON(b.plainPath, &p)
	switch {
	case err == nil:
		if p.MinWindows == 0 {
			p.MinWindows = b.tuning.MinWindows
		}
		return p
	case errors.Is(err, store.ErrNotFound):
		return empty
	default:
		slog.Warn("baseline state corrupt, starting fresh", "error", err)
		return empty
	}
}

// save persists the history, encrypted when possible. The plaintext
// file is removed after a successful encrypted write so state never
// lingers in both forms.
func (b *Baseline) save() error {
	if b.box != nil && b.box.Enabled() && b.box.Unlocked() {
		data, err := store.MarshalJSON(&b.history)
		if err != nil {
			return err
		}
		blob, err := b.box.Encrypt(data)
		if err != nil {
			return err
		}
		if err := store.SaveText(b.encPath, blob); err != nil {
			return err
		}
		store.Remove(b.plainPath)
		return nil
	}
	return store.SaveJSON(b.plainPath, &b.history)
}

// Record folds one event into the current window, rotating it into
// history when the hour is up.
func (b *Baseline) Record(ev event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.now().Sub(b.current.Start) > time.Hour {
		b.rotateLocked()
	}

	b.current.Counts[string(ev.Type)]++

	switch {
	case ev.Type == event.TypeExec:
		cmd := riskclass.BaseCommand(ev.Command)
		if cmd == "" {
			cmd = "unknown"
		}
		b.current.Commands[cmd]++
	case ev.Type.IsFileAccess():
		dir := "unknown"
		if ev.Path != "" {
			dir = filepath.Dir(ev.Path)
		}
		b.current.Directories[dir]++
	case ev.Type == event.TypeNetwork:
		remote := ev.Remote
		if remote == "" {
			remote = "unknown"
		}
		b.current.Network[remote]++
	}
}

func (b *Baseline) rotateLocked() {
	if !b.current.empty() {
		b.history.Windows = append(b.history.Windows, b.current)
		if len(b.history.Windows) > b.tuning.MaxWindows {
			b.history.Windows = b.history.Windows[len(b.history.Windows)-b.tuning.MaxWindows:]
		}
		if len(b.history.Windows) >= b.tuning.MinWindows {
			b.history.Learned = true
		}
		if err := b.save(); err != nil {
			slog.Warn("baseline save failed", "error", err)
		}
	}
	b.current = newWindow(b.now())
}

// Learned reports whether enough history exists for anomaly checks.
func (b *Baseline) Learned() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.Learned
}

// CheckAnomaly compares an event against the learned profile. Returns
// nil while unlearned or when nothing stands out. Comparison windows
// are those sharing the current hour of day; with fewer than 3 such
// windows the most recent 24 are used instead.
func (b *Baseline) CheckAnomaly(ev event.Event) *Anomaly {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.history.Learned {
		return nil
	}

	windows := b.comparisonWindowsLocked()
	var reasons []string

	if r := b.rateAnomalyLocked(string(ev.Type), windows); r != "" {
		reasons = append(reasons, r)
	}
	switch {
	case ev.Type == event.TypeExec:
		if r := commandAnomaly(ev.Command, windows); r != "" {
			reasons = append(reasons, r)
		}
	case ev.Type.IsFileAccess():
		if r := directoryAnomaly(ev.Path, windows); r != "" {
			reasons = append(reasons, r)
		}
	case ev.Type == event.TypeNetwork:
		if r := networkAnomaly(ev.Remote, windows); r != "" {
			reasons = append(reasons, r)
		}
	}

	if len(reasons) == 0 {
		return nil
	}
	severity := "medium"
	if len(reasons) > 1 {
		severity = "high"
	}
	return &Anomaly{Reasons: reasons, Severity: severity}
}

func (b *Baseline) comparisonWindowsLocked() []Window {
	hour := b.now().Hour()
	var same []Window
	for _, w := range b.history.Windows {
		if w.Hour == hour {
			same = append(same, w)
		}
	}
	if len(same) >= 3 {
		return same
	}
	if n := len(b.history.Windows); n > 24 {
		return b.history.Windows[n-24:]
	}
	return b.history.Windows
}

func (b *Baseline) rateAnomalyLocked(activityType string, windows []Window) string {
	if len(windows) == 0 {
		return ""
	}
	var sum int
	for _, w := range windows {
		sum += w.Counts[activityType]
	}
	current := b.current.Counts[activityType]

	if sum == 0 {
		// No history at all for this activity type.
		if current > b.tuning.NewActivityFloor {
			return fmt.Sprintf("Unusual %s activity: %d ops (normally none)", activityType, current)
		}
		return ""
	}

	mean := float64(sum) / float64(len(windows))
	if float64(current) > mean*b.tuning.RateMultiplier && current > b.tuning.RateFloor {
		return fmt.Sprintf("High %s rate: %d ops (normal: ~%.0f)", activityType, current, mean)
	}
	return ""
}

func commandAnomaly(command string, windows []Window) string {
	cmd := riskclass.BaseCommand(command)
	if cmd == "" || !sensitiveCommands[cmd] {
		return ""
	}
	for _, w := range windows {
		if _, ok := w.Commands[cmd]; ok {
			return ""
		}
	}
	return "First-time sensitive command: " + cmd
}

func directoryAnomaly(path string, windows []Window) string {
	if path == "" {
		return ""
	}
	sensitive := false
	for _, marker := range sensitivePathMarkers {
		if strings.Contains(path, marker) {
			sensitive = true
			break
		}
	}
	if !sensitive {
		return ""
	}
	dir := filepath.Dir(path)
	for _, w := range windows {
		if _, ok := w.Directories[dir]; ok {
			return ""
		}
	}
	return "First-time access to sensitive path: " + path
}

func networkAnomaly(remote string, windows []Window) string {
	if remote == "" || remote == "-" {
		return ""
	}
	for _, w := range windows {
		if _, ok := w.Network[remote]; ok {
			return ""
		}
	}
	for _, marker := range localRemoteMarkers {
		if strings.Contains(remote, marker) {
			return ""
		}
	}
	return "New network destination: " + remote
}

// Stats summarizes the learned profile for the operator surface.
type Stats struct {
	Learned          bool           `json:"learned"`
	WindowsCollected int            `json:"windows_collected"`
	WindowsNeeded    int            `json:"windows_needed"`
	ActivityTotals   map[string]int `json:"activity_totals,omitempty"`
	TopCommands      map[string]int `json:"top_commands,omitempty"`
	TopDirectories   map[string]int `json:"top_directories,omitempty"`
}

const topN = 10

func (b *Baseline) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{
		Learned:          b.history.Learned,
		WindowsCollected: len(b.history.Windows),
		WindowsNeeded:    b.tuning.MinWindows,
	}
	if len(b.history.Windows) == 0 {
		return s
	}

	totals := map[string]int{}
	commands := map[string]int{}
	directories := map[string]int{}
	for _, w := range b.history.Windows {
		for k, v := range w.Counts {
			totals[k] += v
		}
		for k, v := range w.Commands {
			commands[k] += v
		}
		for k, v := range w.Directories {
			directories[k] += v
		}
	}
	s.ActivityTotals = totals
	s.TopCommands = topEntries(commands, topN)
	s.TopDirectories = topEntries(directories, topN)
	return s
}

func topEntries(counts map[string]int, n int) map[string]int {
	type kv struct {
		k string
		v int
	}
	entries := make([]kv, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, kv{k, v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].v > entries[j].v })
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.k] = e.v
	}
	return out
}

// Flush rotates and persists the current window regardless of age.
// Used on shutdown so a short-lived process still contributes history.
func (b *Baseline) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotateLocked()
}

// Persist rewrites the history with the current encryption settings.
// Used when encryption is enabled or disabled so state does not stay
// on disk in the old form.
func (b *Baseline) Persist() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.save()
}
