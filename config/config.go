// Package config loads the planner's run-time configuration (SPEC_FULL.md
// §4.10): negotiation mode, search mode, iteration/time budget, the
// metric-acceptance switch, and the observer log level. It mirrors the
// teacher's agents.GlobalConfig: a plain YAML-tagged struct, a
// Load/Default pair, and no package-level mutable state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lexcodex/mapop/search"
)

// NegotiationMode selects how a found solution is accepted, matching
// search.SolutionMode's values under the YAML vocabulary spec.md uses.
type NegotiationMode string

const (
	NegotiationCooperative NegotiationMode = "cooperative"
	NegotiationBorda       NegotiationMode = "borda"
)

// SearchMode names the outer search strategy. Validate accepts both
// astar and idastar, but the outer search does not read this field:
// either value runs the same best-first search under the same
// timeout/iteration cap, with no bounded restarts.
type SearchMode string

const (
	SearchAStar   SearchMode = "astar"
	SearchIDAStar SearchMode = "idastar"
)

// Config is the planner's complete run configuration, loadable from a
// YAML file or constructed directly with Default().
type Config struct {
	NegotiationMode  NegotiationMode `yaml:"negotiation_mode"`
	SearchMode       SearchMode      `yaml:"search_mode"`
	TimeoutMs        int             `yaml:"timeout_ms"`
	MaxIterations    int             `yaml:"max_iterations"`
	MetricAcceptance bool            `yaml:"metric_acceptance"`
	LogLevel         string          `yaml:"log_level"`
}

// Default returns the configuration used when no file is given: a
// cooperative, unbounded-iteration A* search with a 30s budget.
func Default() *Config {
	return &Config{
		NegotiationMode:  NegotiationCooperative,
		SearchMode:       SearchAStar,
		TimeoutMs:        30000,
		MaxIterations:    0,
		MetricAcceptance: false,
		LogLevel:         "info",
	}
}

// Load reads and parses a YAML config file, filling in Default()'s
// values for any field the file omits, then validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating or truncating the file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %q: %w", path, err)
	}
	return nil
}

// Validate rejects a config naming an unsupported mode before a search
// ever starts — spec §7's UnsupportedFeature class of pre-search error,
// raised here rather than discovered mid-run.
func (c *Config) Validate() error {
	switch c.NegotiationMode {
	case NegotiationCooperative, NegotiationBorda:
	default:
		return fmt.Errorf("config: unsupported negotiation_mode %q", c.NegotiationMode)
	}
	switch c.SearchMode {
	case SearchAStar, SearchIDAStar:
	default:
		return fmt.Errorf("config: unsupported search_mode %q", c.SearchMode)
	}
	if c.TimeoutMs < 0 {
		return fmt.Errorf("config: timeout_ms must be >= 0, got %d", c.TimeoutMs)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("config: max_iterations must be >= 0, got %d", c.MaxIterations)
	}
	return nil
}

// SolutionMode translates the YAML negotiation mode into the
// search.SolutionMode the outer loop's acceptance check switches on.
func (c *Config) SolutionMode() search.SolutionMode {
	if c.MetricAcceptance {
		if c.NegotiationMode == NegotiationBorda {
			return search.Borda
		}
		return search.PrivateGoals
	}
	return search.Cooperative
}
