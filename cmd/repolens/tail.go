package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/events"
	"github.com/repolens/repolens/internal/journal"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent events from the journal",
	Long: `Display recent events from the SQLite event journal.

Shows issue ingestion, tag extraction results, and generated summary
reports recorded by previous analyze and report runs.`,
	Run: func(cmd *cobra.Command, args []string) {
		repo, _ := cmd.Flags().GetString("repo")
		eventType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path := cfg.Journal.Path
		if journalPath != "" {
			path = journalPath
		}

		j, err := journal.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = j.Close() }()

		recent, err := j.Query(context.Background(), journal.Filter{
			Repository: repo,
			Type:       events.EventType(eventType),
			Limit:      limit,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(recent) == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No events found\n\n", yellow("Note:"))
			return
		}

		// Query returns newest first; display oldest first.
		for i := len(recent) - 1; i >= 0; i-- {
			displayJournalEvent(recent[i])
		}
	},
}

func init() {
	tailCmd.Flags().StringP("repo", "r", "", "Filter events by repository (owner/repo)")
	tailCmd.Flags().StringP("type", "t", "", "Filter events by type (issue, tags_extracted, summary_report)")
	tailCmd.Flags().IntP("limit", "n", 20, "Number of recent events to show")
	rootCmd.AddCommand(tailCmd)
}
