// Package threatdb holds the static threat signature database and the
// mutable custom intel overlay. Signatures are data, not code: the
// built-in set is an embedded YAML pack, and deployments can append
// their own packs without recompiling.
package threatdb

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed signatures.yaml
var builtinPack []byte

// Pack is one YAML signature pack.
type Pack struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Version     string      `yaml:"version"`
	Signatures  []Signature `yaml:"signatures"`
	Network     NetworkPack `yaml:"network"`
}

// NetworkPack holds the suspicious destination tables of a pack.
type NetworkPack struct {
	Ports    []SuspiciousPort    `yaml:"ports"`
	Domains  []SuspiciousDomain  `yaml:"domains"`
	IPRanges []SuspiciousIPRange `yaml:"ip_ranges"`
}

// DB is the compiled signature database. Immutable after Load; the
// Intel overlay carries runtime-added patterns separately.
type DB struct {
	signatures []Signature
	ports      map[int]SuspiciousPort
	domains    []SuspiciousDomain
	ipRanges   []SuspiciousIPRange
	intel      *Intel
}

// Load compiles the built-in pack plus any .yaml packs found in
// packsDir (missing dir is fine), and attaches the custom intel
// overlay persisted at intelPath.
func Load(packsDir, intelPath string) (*DB, error) {
	db := &DB{ports: make(map[int]SuspiciousPort)}

	var base Pack
	if err := yaml.Unmarshal(builtinPack, &base); err != nil {
		return nil, fmt.Errorf("builtin signature pack: %w", err)
	}
	if err := db.merge(&base); err != nil {
		return nil, err
	}

	if packsDir != "" {
		if err := db.loadDir(packsDir); err != nil {
			return nil, err
		}
	}

	intel, err := LoadIntel(intelPath)
	if err != nil {
		return nil, err
	}
	db.intel = intel
	return db, nil
}

func (db *DB) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		// Packs prefixed with underscore are disabled.
		if strings.HasPrefix(entry.Name(), "_") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		var pack Pack
		if err := yaml.Unmarshal(data, &pack); err != nil {
			return fmt.Errorf("signature pack %s: %w", entry.Name(), err)
		}
		if err := db.merge(&pack); err != nil {
			return fmt.Errorf("signature pack %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (db *DB) merge(pack *Pack) error {
	for _, sig := range pack.Signatures {
		compiled, err := regexp.Compile("(?i)" + sig.Pattern)
		if err != nil {
			return fmt.Errorf("signature %s: %w", sig.ID, err)
		}
		sig.compiled = compiled
		db.signatures = append(db.signatures, sig)
	}
	for _, p := range pack.Network.Ports {
		db.ports[p.Port] = p
	}
	db.domains = append(db.domains, pack.Network.Domains...)
	db.ipRanges = append(db.ipRanges, pack.Network.IPRanges...)
	return nil
}

// Intel returns the mutable custom intel overlay.
func (db *DB) Intel() *Intel { return db.intel }

// Signatures returns the loaded signature list for display.
func (db *DB) Signatures() []Signature { return db.signatures }

// Match tests every signature against the input and returns one match
// per signature that fires, in registration order. Custom intel
// patterns and blocklists are tested after the built-in signatures.
// Pure function over static data; safe for concurrent use.
func (db *DB) Match(text string) []Match {
	var matches []Match
	for i := range db.signatures {
		sig := &db.signatures[i]
		if sig.compiled.MatchString(text) {
			matches = append(matches, matchFromSignature(sig))
		}
	}
	if db.intel != nil {
		matches = append(matches, db.intel.Match(text)...)
	}
	return matches
}

// MatchNetwork checks a network destination against the suspicious
// port, domain, and IP-range tables. All matches are returned; callers
// compute MaxSeverity.
func (db *DB) MatchNetwork(remoteIP string, port int, hostname string) []Match {
	var matches []Match

	if p, ok := db.ports[port]; ok {
		matches = append(matches, Match{
			ID:          fmt.Sprintf("NETPORT-%d", port),
			Name:        fmt.Sprintf("Suspicious Port %d (%s)", port, p.Name),
			Description: p.Description,
			Severity:    p.Severity,
			Category:    "network",
			Remediation: fmt.Sprintf("Investigate why port %d is being used.", port),
			Pattern:     fmt.Sprintf("port=%d", port),
		})
	}

	lowerHost := strings.ToLower(hostname)
	for _, d := range db.domains {
		if d.Domain == "" {
			continue
		}
		if strings.Contains(lowerHost, strings.ToLower(d.Domain)) {
			matches = append(matches, Match{
				ID:          "NETDOM-" + d.Domain,
				Name:        "Suspicious Destination " + d.Domain,
				Description: d.Description,
				Severity:    d.Severity,
				Category:    "network",
				Remediation: "Verify the agent was asked to contact " + d.Domain + ".",
				Pattern:     d.Domain,
			})
		}
	}

	for _, r := range db.ipRanges {
		if r.Prefix != "" && strings.HasPrefix(remoteIP, r.Prefix) {
			matches = append(matches, Match{
				ID:          "NETIP-" + r.Prefix,
				Name:        "Suspicious IP Range " + r.Prefix,
				Description: r.Description,
				Severity:    r.Severity,
				Category:    "network",
				Remediation: "Block the destination and review the connecting process.",
				Pattern:     r.Prefix,
			})
		}
	}

	if db.intel != nil {
		matches = append(matches, db.intel.MatchNetwork(remoteIP, hostname)...)
	}
	return matches
}

func matchFromSignature(sig *Signature) Match {
	return Match{
		ID:          sig.ID,
		Name:        sig.Name,
		Description: sig.Description,
		Severity:    sig.Severity,
		Category:    sig.Category,
		MitreID:     sig.MitreID,
		Remediation: sig.Remediation,
		Pattern:     sig.Pattern,
	}
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
