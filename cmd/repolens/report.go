package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/repolens/repolens/internal/types"
)

var reportCmd = &cobra.Command{
	Use:   "report <owner/repo>",
	Short: "Generate a summary report for a repository",
	Long: `Analyze a repository's issues and print a prioritized summary report.

Analysis state is per-process, so this command fetches the issues first
and then generates the report. Inside 'repolens repl' the report command
reuses state from earlier analyze runs instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		max, _ := cmd.Flags().GetInt("max")

		owner, name, err := parseRepo(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		s, err := buildStack()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()

		if max <= 0 {
			max = s.cfg.MaxIssues
		}

		ctx := context.Background()
		repository := owner + "/" + name

		count, err := ingestRepository(ctx, s, owner, name, max)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if count == 0 {
			fmt.Fprintf(os.Stderr, "Error: no issues found in %s, nothing to report\n", repository)
			os.Exit(1)
		}

		rpt, err := s.agent.GenerateSummaryReport(ctx, repository)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		renderReport(rpt)
	},
}

func init() {
	reportCmd.Flags().IntP("max", "m", 0, "Maximum issues to fetch (default: config max_issues)")
	rootCmd.AddCommand(reportCmd)
}

// renderReport prints a summary report to stdout.
func renderReport(rpt *types.SummaryReport) {
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

	if len(rpt.Recommendations) == 0 {
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s\n\n", gray("No recommendations: no tag cleared the support threshold"))
		return
	}

	fmt.Printf("\n%s\n", yellow("Recommendations:"))
	for _, rec := range rpt.Recommendations {
		fmt.Printf("  [%s] %s\n", priorityLabel(rec.Priority), rec.Title)
		fmt.Printf("        %s\n", rec.Description)
		fmt.Printf("        Evidence: %s\n", strings.Join(rec.SupportingIssues, ", "))
	}
	fmt.Println()
}

func priorityLabel(p types.Priority) string {
	label := strings.ToUpper(string(p))
	switch p {
	case types.PriorityHigh:
		return color.New(color.FgRed, color.Bold).Sprint(label)
	case types.PriorityMedium:
		return color.New(color.FgYellow).Sprint(label)
	default:
		return color.New(color.FgHiBlack).Sprint(label)
	}
}
