// Package config loads repolens configuration from YAML with
// documented defaults and environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/repolens/repolens/internal/report"
)

// DefaultPath is the config file location relative to the working
// directory.
const DefaultPath = ".repolens/config.yaml"

// AIConfig configures the AI-backed tag extractor.
type AIConfig struct {
	// Enabled toggles the AI extraction path. When false the agent
	// runs on the deterministic fallback alone.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Model is the extraction model. Empty selects the default
	// (overridable via REPOLENS_MODEL).
	Model string `yaml:"model"`

	// TimeoutSeconds bounds each extraction API call.
	// Default: 30, Range: 1-300
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// MaxConcurrentCalls caps in-flight API calls across all
	// repository workers (0 = unlimited).
	// Default: 3, Range: 0-64
	MaxConcurrentCalls int `yaml:"max_concurrent_calls"`
}

// ReportConfig mirrors report.Policy in YAML form.
type ReportConfig struct {
	TopTags              int     `yaml:"top_tags"`
	MinSupportCount      int     `yaml:"min_support_count"`
	MinSupportFraction   float64 `yaml:"min_support_fraction"`
	HighFraction         float64 `yaml:"high_fraction"`
	MediumFraction       float64 `yaml:"medium_fraction"`
	MaxSupportingDisplay int     `yaml:"max_supporting_display"`
}

// JournalConfig configures the SQLite event journal.
type JournalConfig struct {
	// Enabled toggles event journaling.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the journal database file.
	// Default: .repolens/journal.db
	Path string `yaml:"path"`
}

// Config is the top-level repolens configuration.
type Config struct {
	// GitHubToken authenticates issue fetching. Empty means anonymous
	// access. Overridable via REPOLENS_GITHUB_TOKEN or GITHUB_TOKEN.
	GitHubToken string `yaml:"github_token"`

	// MaxIssues caps how many issues one analyze run fetches.
	// Default: 100, Range: 1-1000
	MaxIssues int `yaml:"max_issues"`

	AI      AIConfig      `yaml:"ai"`
	Report  ReportConfig  `yaml:"report"`
	Journal JournalConfig `yaml:"journal"`
}

// Default returns the default configuration.
func Default() *Config {
	policy := report.DefaultPolicy()
	return &Config{
		MaxIssues: 100,
		AI: AIConfig{
			Enabled:            true,
			TimeoutSeconds:     30,
			MaxConcurrentCalls: 3,
		},
		Report: ReportConfig{
			TopTags:              policy.TopTags,
			MinSupportCount:      policy.MinSupportCount,
			MinSupportFraction:   policy.MinSupportFraction,
			HighFraction:         policy.HighFraction,
			MediumFraction:       policy.MediumFraction,
			MaxSupportingDisplay: policy.MaxSupportingDisplay,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    ".repolens/journal.db",
		},
	}
}

// Load reads the config file at path, or the default path when path
// is empty. A missing file yields the defaults; a malformed file is
// an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only; env overrides still apply below.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if token := os.Getenv("REPOLENS_GITHUB_TOKEN"); token != "" {
		cfg.GitHubToken = token
	} else if token := os.Getenv("GITHUB_TOKEN"); token != "" && cfg.GitHubToken == "" {
		cfg.GitHubToken = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Validate checks if the configuration has valid values.
func (c *Config) Validate() error {
	if c.MaxIssues < 1 || c.MaxIssues > 1000 {
		return fmt.Errorf("max_issues must be between 1 and 1000 (got %d)", c.MaxIssues)
	}
	if c.AI.TimeoutSeconds < 1 || c.AI.TimeoutSeconds > 300 {
		return fmt.Errorf("ai.timeout_seconds must be between 1 and 300 (got %d)", c.AI.TimeoutSeconds)
	}
	if c.AI.MaxConcurrentCalls < 0 || c.AI.MaxConcurrentCalls > 64 {
		return fmt.Errorf("ai.max_concurrent_calls must be between 0 and 64 (got %d)", c.AI.MaxConcurrentCalls)
	}
	if err := c.ReportPolicy().Validate(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	return nil
}

// ReportPolicy converts the report section into a report.Policy,
// keeping the urgency tag list at its default.
func (c *Config) ReportPolicy() report.Policy {
	policy := report.DefaultPolicy()
	policy.TopTags = c.Report.TopTags
	policy.MinSupportCount = c.Report.MinSupportCount
	policy.MinSupportFraction = c.Report.MinSupportFraction
	policy.HighFraction = c.Report.HighFraction
	policy.MediumFraction = c.Report.MediumFraction
	policy.MaxSupportingDisplay = c.Report.MaxSupportingDisplay
	return policy
}

// AITimeout returns the AI call timeout as a duration.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}
