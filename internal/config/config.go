package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".agentsentry"
	DefaultConfigFile = "config.yaml"
	SignaturePacksDir = "signatures.d"
)

// Config is the process-wide context object. Every component receives
// its persistence path and tunables from here instead of module-level
// constants, so tests can point components at temp directories.
type Config struct {
	ConfigDir string

	BaselinePath          string
	BaselineEncryptedPath string
	CryptoConfigPath      string
	TrustedSessionsPath   string
	SessionBaselinePath   string
	ThreatIntelPath       string
	LearnedPatternsPath   string
	AlertLogPath          string
	DismissedLogPath      string
	AuditLogPath          string
	PacksDir              string

	Tuning Tuning `yaml:"tuning"`
}

// Tuning holds the hand-tuned detection thresholds. They are
// workload-specific, so they load from config rather than being
// hard constants.
type Tuning struct {
	// Rate anomaly: flag when the current count exceeds RateMultiplier
	// x historical mean and the absolute RateFloor, or exceeds
	// NewActivityFloor for an activity type with no history at all.
	RateMultiplier   float64 `yaml:"rate_multiplier"`
	RateFloor        int     `yaml:"rate_floor"`
	NewActivityFloor int     `yaml:"new_activity_floor"`

	// Context verification: distinct >=4-char terms that must overlap
	// between a user message and the command.
	ContextTermOverlap int `yaml:"context_term_overlap"`

	// Baseline learning thresholds.
	MinWindows        int `yaml:"min_windows"`
	MaxWindows        int `yaml:"max_windows"`
	SessionMinActions int `yaml:"session_min_actions"`
}

// DefaultTuning returns the built-in thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		RateMultiplier:     3.0,
		RateFloor:          5,
		NewActivityFloor:   10,
		ContextTermOverlap: 2,
		MinWindows:         24,
		MaxWindows:         168,
		SessionMinActions:  50,
	}
}

// Load builds a Config rooted at dir. When dir is empty, the default
// ~/.agentsentry is used. An optional config.yaml in the directory
// overrides tunables; a missing config file falls back to defaults.
func Load(dir string) (*Config, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(homeDir, DefaultConfigDir)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigDir:             dir,
		BaselinePath:          filepath.Join(dir, "baseline.json"),
		BaselineEncryptedPath: filepath.Join(dir, "baseline.enc"),
		CryptoConfigPath:      filepath.Join(dir, "crypto-config.json"),
		TrustedSessionsPath:   filepath.Join(dir, "trusted-sessions.json"),
		SessionBaselinePath:   filepath.Join(dir, "session-baselines.json"),
		ThreatIntelPath:       filepath.Join(dir, "threat-intel.json"),
		LearnedPatternsPath:   filepath.Join(dir, "learned-patterns.json"),
		AlertLogPath:          filepath.Join(dir, "alerts.json"),
		DismissedLogPath:      filepath.Join(dir, "dismissed-alerts.json"),
		AuditLogPath:          filepath.Join(dir, "audit.jsonl"),
		PacksDir:              filepath.Join(dir, SignaturePacksDir),
		Tuning:                DefaultTuning(),
	}

	if err := cfg.applyFile(filepath.Join(dir, DefaultConfigFile)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays tunables from an optional YAML config file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var overlay struct {
		Tuning Tuning `yaml:"tuning"`
	}
	overlay.Tuning = c.Tuning
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}
	c.Tuning = overlay.Tuning
	return nil
}
