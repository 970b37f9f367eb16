// Package engine wires the detection components into one pipeline:
// every observed event updates the behavioral baselines, gets matched
// against threat signatures and trust state, and the resulting
// findings flow through the smart filter before becoming alerts.
package engine

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/agentsentry/agentsentry/internal/alert"
	"github.com/agentsentry/agentsentry/internal/audit"
	"github.com/agentsentry/agentsentry/internal/baseline"
	"github.com/agentsentry/agentsentry/internal/emit"
	"github.com/agentsentry/agentsentry/internal/event"
	"github.com/agentsentry/agentsentry/internal/smartfilter"
	"github.com/agentsentry/agentsentry/internal/threatdb"
	"github.com/agentsentry/agentsentry/internal/trust"
)

// Engine is the event-processing pipeline. All components are owned by
// the caller; the engine only coordinates them.
type Engine struct {
	db       *threatdb.DB
	baseline *baseline.Baseline
	trust    *trust.Engine
	filter   *smartfilter.Filter
	alerts   *alert.Log
	emitter  emit.Emitter
	auditLog *audit.Logger
}

func New(db *threatdb.DB, b *baseline.Baseline, t *trust.Engine, f *smartfilter.Filter, alerts *alert.Log, emitter emit.Emitter, auditLog *audit.Logger) *Engine {
	return &Engine{
		db:       db,
		baseline: b,
		trust:    t,
		filter:   f,
		alerts:   alerts,
		emitter:  emitter,
		auditLog: auditLog,
	}
}

// Process runs one event through the full pipeline and returns the
// alerts that survived filtering.
func (e *Engine) Process(ev event.Event) []alert.Alert {
	entry := audit.Entry{
		EventType: string(ev.Type),
		SessionID: ev.SessionID,
		Command:   ev.Command,
		Path:      ev.Path,
		Remote:    ev.Remote,
	}

	var raised []alert.Alert

	// Global baseline: check before recording so the event under
	// evaluation is compared against history, not against itself.
	if anomaly := e.baseline.CheckAnomaly(ev); anomaly != nil {
		entry.Anomalies = append(entry.Anomalies, anomaly.Reasons...)
		raised = append(raised, behavioralAlert(ev, anomaly))
	}
	e.baseline.Record(ev)

	switch ev.Type {
	case event.TypeExec:
		verdict := e.trust.Evaluate(ev.Command, ev.SessionID, "")
		entry.TrustLevel = string(verdict.Level)
		entry.Recommendation = verdict.Recommendation
		entry.RiskLevel = string(verdict.Risk.Level)
		for _, m := range verdict.ThreatMatches {
			entry.ThreatIDs = append(entry.ThreatIDs, m.ID)
		}
		if verdict.Blocked() {
			raised = append(raised, threatAlert(ev, verdict.ThreatMatches))
		}

		if ev.SessionID != "" {
			act := trust.Activity{Command: ev.Command}
			if sa := e.trust.CheckSessionAnomaly(ev.SessionID, act); sa != nil {
				entry.Anomalies = append(entry.Anomalies, sa.Reasons...)
				raised = append(raised, sessionAlert(ev, sa))
			}
			e.trust.UpdateBaseline(ev.SessionID, act)
		}

	case event.TypeNetwork:
		ip, port, host := splitRemote(ev.Remote)
		if matches := e.db.MatchNetwork(ip, port, host); len(matches) > 0 {
			for _, m := range matches {
				entry.ThreatIDs = append(entry.ThreatIDs, m.ID)
			}
			raised = append(raised, networkAlert(ev, matches))
		}

		if ev.SessionID != "" {
			act := trust.Activity{Host: host}
			if sa := e.trust.CheckSessionAnomaly(ev.SessionID, act); sa != nil {
				entry.Anomalies = append(entry.Anomalies, sa.Reasons...)
				raised = append(raised, sessionAlert(ev, sa))
			}
			e.trust.UpdateBaseline(ev.SessionID, act)
		}

	case event.TypeRead, event.TypeWrite, event.TypeEdit:
		if ev.SessionID != "" {
			act := trust.Activity{Path: ev.Path}
			if sa := e.trust.CheckSessionAnomaly(ev.SessionID, act); sa != nil {
				entry.Anomalies = append(entry.Anomalies, sa.Reasons...)
				raised = append(raised, sessionAlert(ev, sa))
			}
			e.trust.UpdateBaseline(ev.SessionID, act)
		}
	}

	var surviving []alert.Alert
	for _, a := range raised {
		if drop, reason := e.filter.ShouldSuppress(a); drop {
			entry.Suppressed = append(entry.Suppressed, reason)
			continue
		}
		added, err := e.alerts.Append(a)
		if err != nil {
			slog.Warn("alert log append failed", "error", err)
		}
		if !added {
			continue
		}
		surviving = append(surviving, a)
		if e.emitter != nil {
			if err := e.emitter.Emit(a); err != nil {
				slog.Warn("alert emit failed", "alert", a.ID, "error", err)
			}
		}
	}
	entry.AlertsRaised = len(surviving)

	if e.auditLog != nil {
		if err := e.auditLog.Log(entry); err != nil {
			slog.Warn("audit log write failed", "error", err)
		}
	}
	return surviving
}

// Dismiss drops an alert and teaches the filter from it.
func (e *Engine) Dismiss(id string) error {
	dismissed, err := e.alerts.Dismiss(id)
	if err != nil {
		return err
	}
	e.filter.LearnFromDismissal(dismissed)
	return nil
}

// Close flushes baselines so short-lived runs still contribute history.
func (e *Engine) Close() error {
	e.baseline.Flush()
	if err := e.trust.FlushBaselines(); err != nil {
		return err
	}
	if e.emitter != nil {
		return e.emitter.Close()
	}
	return nil
}

func behavioralAlert(ev event.Event, a *baseline.Anomaly) alert.Alert {
	sev := threatdb.SeverityMedium
	if a.Severity == "high" {
		sev = threatdb.SeverityHigh
	}
	return alert.New(sev, "behavioral_anomaly",
		"Activity Pattern: unusual "+string(ev.Type),
		strings.Join(a.Reasons, "; "),
		alert.Details{
			SessionID:    ev.SessionID,
			Command:      ev.Command,
			Path:         ev.Path,
			Remote:       ev.Remote,
			ActivityType: string(ev.Type),
			Reasons:      a.Reasons,
		})
}

func threatAlert(ev event.Event, matches []threatdb.Match) alert.Alert {
	top := matches[0]
	return alert.New(threatdb.MaxSeverity(matches), "threat_match",
		top.Name,
		top.Description,
		alert.Details{
			SessionID: ev.SessionID,
			Command:   ev.Command,
			Matches:   matches,
		})
}

func networkAlert(ev event.Event, matches []threatdb.Match) alert.Alert {
	top := matches[0]
	return alert.New(threatdb.MaxSeverity(matches), "network",
		top.Name,
		top.Description,
		alert.Details{
			SessionID: ev.SessionID,
			Remote:    ev.Remote,
			Matches:   matches,
		})
}

func sessionAlert(ev event.Event, sa *trust.SessionAnomaly) alert.Alert {
	return alert.New(threatdb.SeverityMedium, "session_anomaly",
		"Session behavior change: "+shortSession(ev.SessionID),
		fmt.Sprintf("%s (baseline: %d actions)", strings.Join(sa.Reasons, "; "), sa.BaselineActions),
		alert.Details{
			SessionID: ev.SessionID,
			Command:   ev.Command,
			Path:      ev.Path,
			Reasons:   sa.Reasons,
		})
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// splitRemote parses "host:port" remotes. The host half is returned as
// both candidate IP and hostname; the matcher decides which tables
// apply. A remote without a port yields port 0.
func splitRemote(remote string) (ip string, port int, hostname string) {
	host, portStr, err := net.SplitHostPort(remote)
	if err != nil {
		return remote, 0, remote
	}
	p, err := strconv.Atoi(portStr)
	if err != nil {
		p = 0
	}
	return host, p, host
}
