package trust

import (
	"log/slog"
	"path/filepath"

	"github.com/agentsentry/agentsentry/internal/riskclass"
	"github.com/agentsentry/agentsentry/internal/store"
)

// Activity is one observed action attributed to a session.
type Activity struct {
	Command string
	Path    string
	Host    string
}

// SessionBaseline accumulates per-session behavior histograms. Unlike
// the global hourly baseline, this profiles one agent session over its
// whole lifetime.
type SessionBaseline struct {
	Commands     map[string]int `json:"common_commands"`
	Paths        map[string]int `json:"common_paths"`
	Hosts        map[string]int `json:"common_hosts"`
	Hours        [24]int        `json:"activity_hours"`
	TotalActions int            `json:"total_actions"`
}

// SessionAnomaly lists departures from a session's own history.
type SessionAnomaly struct {
	Reasons         []string `json:"anomalies"`
	BaselineActions int      `json:"baseline_actions"`
}

// saveEvery bounds persistence churn on the hot path.
const saveEvery = 100

// UpdateBaseline folds an activity into the session's profile and
// persists every saveEvery actions.
func (e *Engine) UpdateBaseline(sessionID string, act Activity) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.baselines[sessionID]
	if !ok {
		b = &SessionBaseline{
			Commands: map[string]int{},
			Paths:    map[string]int{},
			Hosts:    map[string]int{},
		}
		e.baselines[sessionID] = b
	}
	b.TotalActions++

	if cmd := riskclass.BaseCommand(act.Command); cmd != "" {
		b.Commands[cmd]++
	}
	if act.Path != "" {
		b.Paths[filepath.Dir(act.Path)]++
	}
	if act.Host != "" {
		b.Hosts[act.Host]++
	}
	b.Hours[e.now().Hour()]++

	if b.TotalActions%saveEvery == 0 {
		if err := store.SaveJSON(e.baselinePath, e.baselines); err != nil {
			slog.Warn("session baseline save failed", "error", err)
		}
	}
}

// CheckSessionAnomaly compares an activity against the session's own
// history. Silent until the session has enough actions to profile.
func (e *Engine) CheckSessionAnomaly(sessionID string, act Activity) *SessionAnomaly {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.baselines[sessionID]
	if !ok || b.TotalActions < e.tuning.SessionMinActions {
		return nil
	}

	var reasons []string
	if cmd := riskclass.BaseCommand(act.Command); cmd != "" {
		if _, seen := b.Commands[cmd]; !seen {
			reasons = append(reasons, "Unusual command: "+cmd)
		}
	}
	if act.Path != "" {
		dir := filepath.Dir(act.Path)
		if _, seen := b.Paths[dir]; !seen {
			reasons = append(reasons, "Unusual path: "+dir)
		}
	}
	if act.Host != "" {
		if _, seen := b.Hosts[act.Host]; !seen {
			reasons = append(reasons, "Unusual host: "+act.Host)
		}
	}
	if b.Hours[e.now().Hour()] == 0 {
		reasons = append(reasons, "Unusual activity hour")
	}

	if len(reasons) == 0 {
		return nil
	}
	return &SessionAnomaly{Reasons: reasons, BaselineActions: b.TotalActions}
}

// FlushBaselines persists session profiles regardless of the periodic
// counter. Used on shutdown.
func (e *Engine) FlushBaselines() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return store.SaveJSON(e.baselinePath, e.baselines)
}
