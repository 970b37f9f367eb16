// Package trust decides how much to believe an agent action. It folds
// three independent signals into one verdict: threat signature matches
// (worst case, short-circuits to a block), explicit session trust, and
// conversational context showing the user actually asked for the
// action. Without session context the command's own risk profile
// drives the verdict.
package trust

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/agentsentry/agentsentry/internal/config"
	"github.com/agentsentry/agentsentry/internal/event"
	"github.com/agentsentry/agentsentry/internal/riskclass"
	"github.com/agentsentry/agentsentry/internal/store"
	"github.com/agentsentry/agentsentry/internal/threatdb"
)

// Level is the closed set of trust levels, ordered
// malicious < suspicious < unverified < verified < trusted.
type Level string

const (
	LevelTrusted    Level = "trusted"
	LevelVerified   Level = "verified"
	LevelUnverified Level = "unverified"
	LevelSuspicious Level = "suspicious"
	LevelMalicious  Level = "malicious"
)

// Verdict is the full trust evaluation of one command.
type Verdict struct {
	Level          Level             `json:"trust_level"`
	Recommendation string            `json:"recommendation"`
	TrustedSession bool              `json:"is_trusted_session"`
	UserRequested  bool              `json:"user_requested"`
	ThreatMatches  []threatdb.Match  `json:"threat_matches,omitempty"`
	Risk           riskclass.Profile `json:"risk_analysis"`
	Context        []event.Message   `json:"context_messages,omitempty"`
	Reasoning      string            `json:"reasoning,omitempty"`
}

// Blocked reports whether the verdict demands blocking the action.
func (v Verdict) Blocked() bool {
	return v.Level == LevelMalicious
}

// Engine evaluates commands against trusted sessions, threat
// signatures, and per-session behavioral baselines.
type Engine struct {
	db     *threatdb.DB
	tuning config.Tuning

	mu           sync.Mutex
	sessions     []string
	sessionsPath string
	baselines    map[string]*SessionBaseline
	baselinePath string

	now func() time.Time
}

// persistedSessions is the trusted-sessions file shape.
type persistedSessions struct {
	Sessions []string `json:"sessions"`
	Updated  string   `json:"updated"`
}

// NewEngine loads persisted trust state. Corrupt state files are
// logged and replaced with empty state rather than aborting startup.
func NewEngine(cfg *config.Config, db *threatdb.DB) *Engine {
	e := &Engine{
		db:           db,
		tuning:       cfg.Tuning,
		sessionsPath: cfg.TrustedSessionsPath,
		baselines:    map[string]*SessionBaseline{},
		baselinePath: cfg.SessionBaselinePath,
		now:          time.Now,
	}

	var ps persistedSessions
	if err := store.LoadJSON(e.sessionsPath, &ps); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("trusted sessions unreadable, starting empty", "error", err)
		}
	} else {
		e.sessions = ps.Sessions
	}

	if err := store.LoadJSON(e.baselinePath, &e.baselines); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("session baselines unreadable, starting empty", "error", err)
		}
		e.baselines = map[string]*SessionBaseline{}
	}
	return e
}

// Evaluate runs the full trust decision for a command.
//
// A threat signature match wins over everything, including explicit
// session trust: a trusted session running a known attack pattern is
// exactly the compromised-agent case this exists to catch.
func (e *Engine) Evaluate(command, sessionID, transcriptPath string) Verdict {
	v := Verdict{
		Level: LevelUnverified,
		Risk:  riskclass.Classify(command),
	}
	if sessionID != "" {
		v.TrustedSession = e.IsTrustedSession(sessionID)
	}

	if matches := e.db.Match(command); len(matches) > 0 {
		v.ThreatMatches = matches
		v.Level = LevelMalicious
		v.Recommendation = "BLOCK: Matches threat signature - " + matches[0].Name
		return v
	}

	if transcriptPath != "" {
		ctx := e.analyzeContext(transcriptPath, command)
		v.UserRequested = ctx.userRequested
		v.Context = ctx.messages
		v.Reasoning = ctx.reasoning

		switch {
		case v.TrustedSession && v.UserRequested:
			v.Level = LevelTrusted
			v.Recommendation = "ALLOW: Trusted session, user requested"
		case v.TrustedSession:
			v.Level = LevelVerified
			v.Recommendation = "ALLOW with logging: Trusted session, action not explicitly requested"
		case v.UserRequested:
			v.Level = LevelVerified
			v.Recommendation = "ALLOW: User requested this action"
		default:
			v.Level = LevelSuspicious
			v.Recommendation = "REVIEW: No trusted session or user request"
		}
		return v
	}

	// No session context: the command's own risk profile decides.
	switch v.Risk.Level {
	case riskclass.LevelHigh:
		v.Level = LevelSuspicious
		v.Recommendation = "REVIEW: " + v.Risk.Summary
	case riskclass.LevelMedium:
		v.Level = LevelUnverified
		v.Recommendation = "CAUTION: " + v.Risk.Summary
	case riskclass.LevelLow:
		v.Level = LevelVerified
		v.Recommendation = "LIKELY SAFE: " + v.Risk.Summary
	case riskclass.LevelMinimal:
		v.Level = LevelTrusted
		v.Recommendation = "SAFE: " + v.Risk.Summary
	default:
		v.Level = LevelUnverified
		v.Recommendation = "UNKNOWN: " + v.Risk.Summary
	}
	return v
}

// TrustSession marks a session as the user's own agent. Idempotent;
// persists immediately.
func (e *Engine) TrustSession(sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.sessions {
		if s == sessionID {
			return nil
		}
	}
	e.sessions = append(e.sessions, sessionID)
	return e.saveSessionsLocked()
}

// UntrustSession removes a session. Removing an unknown session is
// not an error.
func (e *Engine) UntrustSession(sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.sessions[:0]
	removed := false
	for _, s := range e.sessions {
		if s == sessionID {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	e.sessions = kept
	if !removed {
		return nil
	}
	return e.saveSessionsLocked()
}

// TrustedSessions returns a copy of the trusted session list.
func (e *Engine) TrustedSessions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.sessions))
	copy(out, e.sessions)
	return out
}

// IsTrustedSession matches on the first 8 characters in either
// direction, since session IDs get truncated in logs.
func (e *Engine) IsTrustedSession(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, trusted := range e.sessions {
		if hasPrefixEitherWay(sessionID, trusted) {
			return true
		}
	}
	return false
}

func hasPrefixEitherWay(a, b string) bool {
	return prefixMatch(a, b) || prefixMatch(b, a)
}

// prefixMatch reports whether a starts with the first 8 characters
// of b.
func prefixMatch(a, b string) bool {
	p := b
	if len(p) > 8 {
		p = p[:8]
	}
	return p != "" && len(a) >= len(p) && a[:len(p)] == p
}

func (e *Engine) saveSessionsLocked() error {
	return store.SaveJSON(e.sessionsPath, &persistedSessions{
		Sessions: e.sessions,
		Updated:  e.now().Format(time.RFC3339),
	})
}
