package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start interactive shell",
	Long: `Start an interactive shell for issue stream analysis.

Analysis state accumulates across commands within the session, so
'analyze acme/widgets' followed by 'report acme/widgets' reuses the
fetched issues instead of refetching them.

Type 'help' in the shell for available commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		s, err := buildStack()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()

		cfg := &repl.Config{
			Agent:     s.agent,
			Source:    s.source,
			MaxIssues: s.cfg.MaxIssues,
		}
		if s.journal != nil {
			cfg.Recorder = s.journal
		}

		r, err := repl.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create shell: %v\n", err)
			os.Exit(1)
		}

		if err := r.Run(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
