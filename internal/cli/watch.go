package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentsentry/agentsentry/internal/alert"
	"github.com/agentsentry/agentsentry/internal/audit"
	"github.com/agentsentry/agentsentry/internal/baseline"
	"github.com/agentsentry/agentsentry/internal/config"
	"github.com/agentsentry/agentsentry/internal/crypt"
	"github.com/agentsentry/agentsentry/internal/emit"
	"github.com/agentsentry/agentsentry/internal/engine"
	"github.com/agentsentry/agentsentry/internal/event"
	"github.com/agentsentry/agentsentry/internal/smartfilter"
	"github.com/agentsentry/agentsentry/internal/threatdb"
	"github.com/agentsentry/agentsentry/internal/trust"
)

var (
	watchInput    string
	watchNATSURL  string
	watchSubject  string
	watchAlertOut string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch an event stream and raise alerts",
	Long: `Read agent activity events (JSONL, one event per line) from a file or
stdin and run each through the detection pipeline. Surviving alerts are
persisted, printed, and optionally published to NATS.

Event format:
  {"type":"EXEC","command":"curl https://example.com","session_id":"abc123"}
  {"type":"NETWORK","remote":"203.0.113.9:4444"}

Examples:
  tail -f ~/.agent/events.jsonl | agentsentry watch
  agentsentry watch --input events.jsonl --nats-url nats://localhost:4222`,
	RunE: watchCommand,
}

func init() {
	watchCmd.Flags().StringVar(&watchInput, "input", "-", "Event stream file, or - for stdin")
	watchCmd.Flags().StringVar(&watchNATSURL, "nats-url", "", "Publish alerts to this NATS server")
	watchCmd.Flags().StringVar(&watchSubject, "nats-subject", emit.DefaultSubject, "NATS subject for alerts")
	watchCmd.Flags().StringVar(&watchAlertOut, "alert-file", "", "Also append alerts to this JSONL file")
	rootCmd.AddCommand(watchCmd)
}

func watchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var in io.ReadCloser = os.Stdin
	if watchInput != "" && watchInput != "-" {
		f, err := os.Open(watchInput)
		if err != nil {
			return fmt.Errorf("failed to open event stream: %w", err)
		}
		defer f.Close()
		in = f
	}

	// Flush state on SIGINT/SIGTERM so interrupted watches keep their
	// learned history.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		in.Close()
	}()

	slog.Info("watching event stream", "input", watchInput)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var processed, alerted int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev event.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			slog.Warn("skipping malformed event", "error", err)
			continue
		}
		processed++

		for _, a := range eng.Process(ev) {
			alerted++
			slog.Warn("alert",
				"severity", a.Severity,
				"category", a.Category,
				"title", a.Title,
				"session", a.Details.SessionID,
			)
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("event stream closed", "error", err)
	}

	slog.Info("watch finished", "events", processed, "alerts", alerted)
	return nil
}

// buildEngine assembles the full pipeline from config. The returned
// cleanup flushes baselines and closes emitters and logs.
func buildEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	db, err := threatdb.Load(cfg.PacksDir, cfg.ThreatIntelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load signatures: %w", err)
	}
	box, err := crypt.Open(cfg.CryptoConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load crypto config: %w", err)
	}
	// Encrypted baseline: without the passphrase the watch still runs,
	// it just starts from an empty profile and cannot persist.
	if unlocked, err := unlockInteractive(box); err != nil {
		return nil, nil, err
	} else if !unlocked {
		slog.Warn("baseline is encrypted and locked; running without persisted history")
	}
	alerts, err := alert.OpenLog(cfg.AlertLogPath, cfg.DismissedLogPath)
	if err != nil {
		return nil, nil, err
	}
	auditLog, err := audit.New(cfg.AuditLogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	var emitters []emit.Emitter
	if watchAlertOut != "" {
		fe, err := emit.NewFileEmitter(watchAlertOut)
		if err != nil {
			auditLog.Close()
			return nil, nil, err
		}
		emitters = append(emitters, fe)
	}
	if watchNATSURL != "" {
		ne, err := emit.NewNATSEmitter(watchNATSURL, watchSubject)
		if err != nil {
			auditLog.Close()
			return nil, nil, err
		}
		emitters = append(emitters, ne)
	}

	eng := engine.New(db,
		baseline.Open(cfg, box),
		trust.NewEngine(cfg, db),
		smartfilter.Open(cfg.LearnedPatternsPath),
		alerts,
		emit.NewMulti(emitters...),
		auditLog,
	)
	cleanup := func() {
		if err := eng.Close(); err != nil {
			slog.Warn("engine shutdown", "error", err)
		}
		auditLog.Close()
		box.Lock()
	}
	return eng, cleanup, nil
}
