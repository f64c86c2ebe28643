// Package repl implements the interactive repolens shell.
package repl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/repolens/repolens/internal/agent"
	"github.com/repolens/repolens/internal/events"
	"github.com/repolens/repolens/internal/source"
	"github.com/repolens/repolens/internal/types"
)

// Recorder journals inbound issue events; matches agent.Recorder.
type Recorder interface {
	Record(ctx context.Context, event *events.Event) error
}

// Config holds REPL configuration.
type Config struct {
	Agent  *agent.Agent  // Required
	Source source.Source // Required

	// Recorder journals fetched issue events. Optional.
	Recorder Recorder

	// MaxIssues caps each analyze fetch (default: 100)
	MaxIssues int
}

// CommandHandler handles a specific command.
type CommandHandler func(args []string) error

// REPL is the interactive shell. It drives the same agent the CLI
// commands use, so state accumulated by analyze is visible to report
// and status within the session.
type REPL struct {
	agent    *agent.Agent
	source   source.Source
	recorder Recorder
	max      int
	rl       *readline.Instance
	ctx      context.Context
	commands map[string]CommandHandler

	// analyzed tracks issue counts per repository for this session
	analyzed map[string]int
}

// New creates a new REPL instance.
func New(cfg *Config) (*REPL, error) {
	if cfg.Agent == nil {
		return nil, fmt.Errorf("agent is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("issue source is required")
	}

	max := cfg.MaxIssues
	if max <= 0 {
		max = 100
	}

	r := &REPL{
		agent:    cfg.Agent,
		source:   cfg.Source,
		recorder: cfg.Recorder,
		max:      max,
		commands: make(map[string]CommandHandler),
		analyzed: make(map[string]int),
	}
	r.registerCommands()
	return r, nil
}

// Run starts the REPL loop.
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("repolens> "),
		HistoryFile:       "",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			} else if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

// processInput dispatches a single line of input.
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := parts[0]
	args := parts[1:]

	if handler, ok := r.commands[command]; ok {
		return handler(args)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("%s Unknown command %q. Use 'help' for available commands.\n", yellow("Note:"), command)
	return nil
}

func (r *REPL) registerCommands() {
	r.commands["analyze"] = r.cmdAnalyze
	r.commands["report"] = r.cmdReport
	r.commands["status"] = r.cmdStatus
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
}

func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", cyan("Welcome to repolens"))
	fmt.Println("Issue stream analysis for GitHub repositories")
	fmt.Println()
	fmt.Println("Type 'help' for available commands, 'exit' to quit")
	fmt.Println()
}

// cmdAnalyze fetches a repository's issues and feeds them through the
// agent one event at a time.
func (r *REPL) cmdAnalyze(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: analyze <owner/repo> [max]")
	}
	owner, name, err := splitRepo(args[0])
	if err != nil {
		return err
	}

	max := r.max
	if len(args) > 1 {
		if _, err := fmt.Sscanf(args[1], "%d", &max); err != nil || max < 1 {
			return fmt.Errorf("invalid issue limit %q", args[1])
		}
	}

	repository := owner + "/" + name
	fmt.Printf("Fetching up to %d issues from %s...\n", max, repository)

	records, err := r.source.FetchIssues(r.ctx, owner, name, max)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s No issues found in %s\n", yellow("Note:"), repository)
		return nil
	}

	for _, record := range records {
		event, err := events.NewIssueEvent(record)
		if err != nil {
			return err
		}
		if r.recorder != nil {
			if err := r.recorder.Record(r.ctx, event); err != nil {
				fmt.Printf("warning: failed to journal issue event: %v\n", err)
			}
		}
		if err := r.agent.HandleIssueEvent(r.ctx, event); err != nil {
			return err
		}
	}
	r.analyzed[repository] += len(records)

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Analyzed %d issues from %s\n", green("✓"), len(records), repository)
	fmt.Println("Use 'report " + repository + "' to generate a summary report")
	return nil
}

// cmdReport generates and prints a summary report for a repository
// analyzed earlier in this session.
func (r *REPL) cmdReport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: report <owner/repo>")
	}
	if _, _, err := splitRepo(args[0]); err != nil {
		return err
	}

	rpt, err := r.agent.GenerateSummaryReport(r.ctx, args[0])
	if err != nil {
		return err
	}
	r.printReport(rpt)
	return nil
}

// cmdStatus shows what this session has analyzed so far.
func (r *REPL) cmdStatus(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Printf("\n%s\n", cyan("Session status"))

	repos := r.agent.Repositories()
	if len(repos) == 0 {
		fmt.Printf("  %s\n\n", gray("No repositories analyzed yet"))
		return nil
	}

	for _, repository := range repos {
		fmt.Printf("  %s  %d issue events processed\n", repository, r.analyzed[repository])
	}
	fmt.Println()
	return nil
}

func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{"analyze <owner/repo> [max]", "Fetch and analyze a repository's issues"},
		{"report <owner/repo>", "Generate a summary report for analyzed issues"},
		{"status", "Show repositories analyzed this session"},
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the shell"},
	}
	for _, cmd := range commands {
		fmt.Printf("  %-28s %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Println()
	return nil
}

func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s Goodbye!\n", green("✓"))
	if r.rl != nil {
		r.rl.Close()
	}
	return io.EOF
}

// printReport renders a summary report to stdout.
func (r *REPL) printReport(rpt *types.SummaryReport) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("\n%s\n", cyan("=== Summary Report: "+rpt.Repository+" ==="))
	fmt.Printf("Generated: %s\n", rpt.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Issues: %d total, %d open, %d closed\n", rpt.TotalIssues, rpt.OpenIssues, rpt.ClosedIssues)
	fmt.Printf("Span: %s to %s\n",
		rpt.OldestIssueDate.Format("2006-01-02"),
		rpt.NewestIssueDate.Format("2006-01-02"))

	if len(rpt.TopTags) > 0 {
		fmt.Printf("\n%s\n", yellow("Top tags:"))
		for _, stat := range rpt.TopTags {
			fmt.Printf("  %-24s %d\n", stat.Tag, stat.Count)
		}
	}

	if len(rpt.Recommendations) > 0 {
		fmt.Printf("\n%s\n", yellow("Recommendations:"))
		for _, rec := range rpt.Recommendations {
			fmt.Printf("  [%s] %s\n", priorityColor(rec.Priority)(strings.ToUpper(string(rec.Priority))), rec.Title)
			fmt.Printf("        %s\n", rec.Description)
			fmt.Printf("        Evidence: %s\n", strings.Join(rec.SupportingIssues, ", "))
		}
	}
	fmt.Println()
}

func priorityColor(p types.Priority) func(a ...interface{}) string {
	switch p {
	case types.PriorityHigh:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case types.PriorityMedium:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgHiBlack).SprintFunc()
	}
}

// splitRepo parses an "owner/name" argument.
func splitRepo(arg string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(arg, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repository must be in owner/repo form (got %q)", arg)
	}
	return owner, name, nil
}
