// Package config loads the session topology the protocol's components
// need: the three party addresses, the per-query deadline, and the
// correlated-randomness seed size, from a YAML document.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PartyEndpoint is one computing node's network identity: its party
// index, fixed for the whole session, and the host:port it listens
// on.
type PartyEndpoint struct {
	Index uint8 `yaml:"index"`

	// Address is the party's client-facing RPC endpoint. Each of the
	// three well-known service names listens on its own port.
	Address string `yaml:"address"`

	// RingAddress is the party's peer-to-peer listen address for the
	// AND-gate message ring and the correlated-randomness seed
	// handshake, separate from the client-facing RPC port.
	RingAddress string `yaml:"ring_address"`
}

// Duration wraps time.Duration so "5s"-style YAML values parse;
// yaml.v3 has no native duration support.
type Duration time.Duration

// UnmarshalYAML parses a duration string such as "5s" or "2m30s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Session is the session-wide topology every node and the
// orchestrator load at startup.
type Session struct {
	// Self is this process's own party index, used only by cmd/node.
	Self uint8 `yaml:"self"`

	// Parties lists all three nodes' addresses, in party-index order.
	Parties []PartyEndpoint `yaml:"parties"`

	// QueryTimeout bounds every suspension point: the AND gate
	// exchange, the transport setup handshake, and output emission.
	QueryTimeout Duration `yaml:"query_timeout"`

	// SeedKeySize is the configured width, in bytes, of the one-time
	// pairwise correlated-randomness seed. Defaults to 16 (128 bits).
	// core/corand does not read it: its seeds are always corand.SeedSize
	// (16 bytes) wide.
	SeedKeySize int `yaml:"seed_key_size"`
}

// Load parses a Session from the YAML document at path.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &s, nil
}

func (s *Session) validate() error {
	if len(s.Parties) != 3 {
		return fmt.Errorf("session must declare exactly 3 parties, got %d", len(s.Parties))
	}
	seen := map[uint8]bool{}
	for _, p := range s.Parties {
		if p.Index > 2 {
			return fmt.Errorf("party index %d out of range 0..2", p.Index)
		}
		if seen[p.Index] {
			return fmt.Errorf("duplicate party index %d", p.Index)
		}
		seen[p.Index] = true
		if p.Address == "" {
			return fmt.Errorf("party %d has no address", p.Index)
		}
		if p.RingAddress == "" {
			return fmt.Errorf("party %d has no ring_address", p.Index)
		}
	}
	if s.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be positive")
	}
	if s.SeedKeySize <= 0 {
		s.SeedKeySize = 16
	}
	return nil
}

// Endpoint returns the configured client-facing RPC address for party
// i, or an error if no such party was declared.
func (s *Session) Endpoint(i uint8) (string, error) {
	for _, p := range s.Parties {
		if p.Index == i {
			return p.Address, nil
		}
	}
	return "", fmt.Errorf("config: no endpoint declared for party %d", i)
}

// RingEndpoint returns the configured peer-to-peer ring address for
// party i, or an error if no such party was declared.
func (s *Session) RingEndpoint(i uint8) (string, error) {
	for _, p := range s.Parties {
		if p.Index == i {
			return p.RingAddress, nil
		}
	}
	return "", fmt.Errorf("config: no ring endpoint declared for party %d", i)
}
