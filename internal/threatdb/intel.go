package threatdb

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/agentsentry/agentsentry/internal/store"
)

// Intel is the operator-maintained threat overlay: custom regex
// patterns plus blocked IPs and domains. Unlike the static signature
// packs it mutates at runtime and persists on every change.
type Intel struct {
	mu   sync.Mutex
	path string
	data intelData

	compiled map[string]*regexp.Regexp
}

type intelData struct {
	Patterns       map[string]intelPattern `json:"patterns,omitempty"`
	BlockedIPs     []string                `json:"blocked_ips,omitempty"`
	BlockedDomains []string                `json:"blocked_domains,omitempty"`
	Updated        string                  `json:"updated,omitempty"`
}

type intelPattern struct {
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

// LoadIntel reads the persisted overlay. A missing file yields an
// empty overlay; a corrupt file is an error the caller may log and
// replace with an empty overlay.
func LoadIntel(path string) (*Intel, error) {
	intel := &Intel{
		path:     path,
		data:     intelData{Patterns: make(map[string]intelPattern)},
		compiled: make(map[string]*regexp.Regexp),
	}
	if path == "" {
		return intel, nil
	}

	err := store.LoadJSON(path, &intel.data)
	if errors.Is(err, store.ErrNotFound) {
		return intel, nil
	}
	if err != nil {
		return nil, err
	}
	if intel.data.Patterns == nil {
		intel.data.Patterns = make(map[string]intelPattern)
	}
	for pattern := range intel.data.Patterns {
		compiled, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			// A bad persisted pattern is dropped rather than
			// disabling the whole overlay.
			delete(intel.data.Patterns, pattern)
			continue
		}
		intel.compiled[pattern] = compiled
	}
	return intel, nil
}

// AddPattern registers a custom regex pattern and persists the overlay.
func (in *Intel) AddPattern(pattern, reason string, severity Severity) error {
	compiled, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.data.Patterns[pattern] = intelPattern{Reason: reason, Severity: severity}
	in.compiled[pattern] = compiled
	return in.saveLocked()
}

// BlockIP adds an IP to the blocklist. Idempotent.
func (in *Intel) BlockIP(ip string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, existing := range in.data.BlockedIPs {
		if existing == ip {
			return nil
		}
	}
	in.data.BlockedIPs = append(in.data.BlockedIPs, ip)
	return in.saveLocked()
}

// BlockDomain adds a domain to the blocklist. Idempotent.
func (in *Intel) BlockDomain(domain string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, existing := range in.data.BlockedDomains {
		if strings.EqualFold(existing, domain) {
			return nil
		}
	}
	in.data.BlockedDomains = append(in.data.BlockedDomains, domain)
	return in.saveLocked()
}

// Match tests custom patterns and blocklists against arbitrary text.
func (in *Intel) Match(text string) []Match {
	in.mu.Lock()
	defer in.mu.Unlock()

	var matches []Match
	lower := strings.ToLower(text)

	for pattern, info := range in.data.Patterns {
		compiled, ok := in.compiled[pattern]
		if !ok || !compiled.MatchString(text) {
			continue
		}
		matches = append(matches, Match{
			ID:          "CUSTOM-" + pattern,
			Name:        "Custom Threat Pattern",
			Description: info.Reason,
			Severity:    info.Severity,
			Category:    "custom",
			Pattern:     pattern,
		})
	}
	for _, ip := range in.data.BlockedIPs {
		if strings.Contains(text, ip) {
			matches = append(matches, blockedMatch(ip, "Blocked IP address"))
		}
	}
	for _, domain := range in.data.BlockedDomains {
		if strings.Contains(lower, strings.ToLower(domain)) {
			matches = append(matches, blockedMatch(domain, "Blocked domain"))
		}
	}
	return matches
}

// MatchNetwork tests blocklists against a network destination.
func (in *Intel) MatchNetwork(remoteIP, hostname string) []Match {
	in.mu.Lock()
	defer in.mu.Unlock()

	var matches []Match
	for _, ip := range in.data.BlockedIPs {
		if remoteIP == ip {
			matches = append(matches, blockedMatch(ip, "Blocked IP address"))
		}
	}
	lowerHost := strings.ToLower(hostname)
	for _, domain := range in.data.BlockedDomains {
		if lowerHost != "" && strings.Contains(lowerHost, strings.ToLower(domain)) {
			matches = append(matches, blockedMatch(domain, "Blocked domain"))
		}
	}
	return matches
}

func blockedMatch(indicator, reason string) Match {
	return Match{
		ID:          "BLOCKED-" + indicator,
		Name:        "Blocked Indicator",
		Description: reason,
		Severity:    SeverityHigh,
		Category:    "custom",
		Pattern:     indicator,
	}
}

func (in *Intel) saveLocked() error {
	if in.path == "" {
		return nil
	}
	in.data.Updated = time.Now().Format(time.RFC3339)
	return store.SaveJSON(in.path, &in.data)
}
