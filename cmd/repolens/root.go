package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens/internal/agent"
	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/events"
	"github.com/repolens/repolens/internal/journal"
	"github.com/repolens/repolens/internal/report"
	"github.com/repolens/repolens/internal/source"
	"github.com/repolens/repolens/internal/tags"
	"github.com/repolens/repolens/internal/transport"
)

var (
	configPath  string
	journalPath string
)

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "Issue stream analysis for GitHub repositories",
	Long: `repolens ingests a repository's issues, extracts topic tags for each
issue (AI-backed with a deterministic fallback), and produces prioritized
summary reports of what the issue stream says about the project.

Analysis state lives for the duration of the process; every published
event is journaled to SQLite for later inspection with 'repolens tail'.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: .repolens/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "Journal database path (overrides config)")
}

// stack wires the analysis pipeline for one CLI invocation.
type stack struct {
	cfg     *config.Config
	bus     *transport.MemoryBus
	journal *journal.Journal // nil when journaling is disabled
	agent   *agent.Agent
	source  source.Source
}

// buildStack loads configuration and assembles bus, journal, extractor,
// agent and issue source.
func buildStack() (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if journalPath != "" {
		cfg.Journal.Enabled = true
		cfg.Journal.Path = journalPath
	}

	bus := transport.NewMemoryBus()

	var j *journal.Journal
	if cfg.Journal.Enabled {
		j, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			_ = bus.Close()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
	}

	var extractor tags.Extractor
	if cfg.AI.Enabled {
		if os.Getenv("ANTHROPIC_API_KEY") != "" {
			extractor, err = tags.NewAnthropicExtractor(&tags.AnthropicConfig{
				Model:              cfg.AI.Model,
				Timeout:            cfg.AITimeout(),
				MaxConcurrentCalls: cfg.AI.MaxConcurrentCalls,
			})
			if err != nil {
				closeQuietly(bus, j)
				return nil, err
			}
		} else {
			fmt.Fprintf(os.Stderr, "warning: ANTHROPIC_API_KEY not set, using fallback tag extraction\n")
		}
	}

	generator, err := report.NewGenerator(cfg.ReportPolicy())
	if err != nil {
		closeQuietly(bus, j)
		return nil, err
	}

	agentCfg := &agent.Config{
		Bus:       bus,
		Extractor: extractor,
		Generator: generator,
	}
	if j != nil {
		agentCfg.Recorder = j
	}
	a, err := agent.New(agentCfg)
	if err != nil {
		closeQuietly(bus, j)
		return nil, err
	}

	return &stack{
		cfg:     cfg,
		bus:     bus,
		journal: j,
		agent:   a,
		source:  source.NewGitHubSource(cfg.GitHubToken),
	}, nil
}

// Close tears the stack down in dependency order.
func (s *stack) Close() {
	s.agent.Close()
	closeQuietly(s.bus, s.journal)
}

func closeQuietly(bus *transport.MemoryBus, j *journal.Journal) {
	_ = bus.Close()
	if j != nil {
		_ = j.Close()
	}
}

// ingestRepository fetches issues and feeds them through the agent one
// event at a time. Returns the number of issues processed.
func ingestRepository(ctx context.Context, s *stack, owner, name string, max int) (int, error) {
	records, err := s.source.FetchIssues(ctx, owner, name, max)
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		event, err := events.NewIssueEvent(record)
		if err != nil {
			return 0, err
		}
		if s.journal != nil {
			if err := s.journal.Record(ctx, event); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to journal issue event: %v\n", err)
			}
		}
		if err := s.agent.HandleIssueEvent(ctx, event); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}

// parseRepo parses an "owner/repo" argument.
func parseRepo(arg string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(arg, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repository must be in owner/repo form (got %q)", arg)
	}
	return owner, name, nil
}
