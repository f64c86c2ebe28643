package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <owner/repo>",
	Short: "Fetch and analyze a repository's issues",
	Long: `Fetch a repository's issues from GitHub, run tag extraction on each
one, and optionally generate a summary report at the end of the batch.

Every processed issue produces a tags-extracted event; with --report the
run finishes with a prioritized summary of the issue stream.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		max, _ := cmd.Flags().GetInt("max")
		withReport, _ := cmd.Flags().GetBool("report")

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
		fmt.Printf("Fetching up to %d issues from %s...\n", max, repository)

		count, err := ingestRepository(ctx, s, owner, name, max)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if count == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("%s No issues found in %s\n", yellow("Note:"), repository)
			return
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Analyzed %d issues from %s\n", green("✓"), count, repository)

		if withReport {
			rpt, err := s.agent.GenerateSummaryReport(ctx, repository)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			renderReport(rpt)
		}
	},
}

func init() {
	analyzeCmd.Flags().IntP("max", "m", 0, "Maximum issues to fetch (default: config max_issues)")
	analyzeCmd.Flags().BoolP("report", "r", false, "Generate a summary report after analysis")
	rootCmd.AddCommand(analyzeCmd)
}
