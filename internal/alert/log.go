package alert

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentsentry/agentsentry/internal/store"
)

const (
	// maxAlerts bounds the persisted log; oldest entries fall off.
	maxAlerts = 500
	// dedupWindow is how many recent fingerprints suppress repeats.
	dedupWindow = 256
)

// ErrUnknownAlert is returned by Dismiss for an id not in the log.
var ErrUnknownAlert = errors.New("unknown alert id")

// Log is the persisted alert list. Appends dedup against an LRU of
// recent fingerprints so a re-evaluated command does not stack
// identical alerts.
type Log struct {
	mu            sync.Mutex
	path          string
	dismissedPath string
	alerts        []Alert
	seen          *lru.Cache[string, time.Time]
}

// OpenLog loads the persisted alert log. A corrupt file is logged and
// replaced with an empty log.
func OpenLog(path, dismissedPath string) (*Log, error) {
	seen, err := lru.New[string, time.Time](dedupWindow)
	if err != nil {
		return nil, err
	}
	l := &Log{path: path, dismissedPath: dismissedPath, seen: seen}

	if err := store.LoadJSON(path, &l.alerts); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("alert log unreadable, starting empty", "error", err)
		}
		l.alerts = nil
	}
	// Prime the dedup cache from persisted alerts so a restart does
	// not re-raise what is already on file.
	for _, a := range l.alerts {
		l.seen.Add(a.Fingerprint(), a.Timestamp)
	}
	return l, nil
}

// Append stores an alert unless an identical recent one exists.
// Returns true when the alert was actually added.
func (l *Log) Append(a Alert) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fp := a.Fingerprint()
	if _, dup := l.seen.Get(fp); dup {
		return false, nil
	}
	l.seen.Add(fp, a.Timestamp)

	l.alerts = append(l.alerts, a)
	if len(l.alerts) > maxAlerts {
		l.alerts = l.alerts[len(l.alerts)-maxAlerts:]
	}
	return true, store.SaveJSON(l.path, l.alerts)
}

// Recent returns up to limit alerts, newest last.
func (l *Log) Recent(limit int) []Alert {
	l.mu.Lock()
	defer l.mu.Unlock()

	alerts := l.alerts
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[len(alerts)-limit:]
	}
	out := make([]Alert, len(alerts))
	copy(out, alerts)
	return out
}

// Find returns the alert with the given id.
func (l *Log) Find(id string) (Alert, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.alerts {
		if a.ID == id {
			return a, true
		}
	}
	return Alert{}, false
}

// Dismiss removes an alert from the live log and appends it to the
// dismissed log. The dismissed alert is returned so the caller can
// feed pattern learning.
func (l *Log) Dismiss(id string) (Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, a := range l.alerts {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Alert{}, fmt.Errorf("%w: %s", ErrUnknownAlert, id)
	}

	dismissed := l.alerts[idx]
	now := time.Now()
	dismissed.DismissedAt = &now
	l.alerts = append(l.alerts[:idx], l.alerts[idx+1:]...)

	if err := store.SaveJSON(l.path, l.alerts); err != nil {
		return Alert{}, err
	}

	var history []Alert
	if err := store.LoadJSON(l.dismissedPath, &history); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("dismissed log unreadable, rewriting", "error", err)
	}
	history = append(history, dismissed)
	if err := store.SaveJSON(l.dismissedPath, history); err != nil {
		return Alert{}, err
	}
	return dismissed, nil
}
