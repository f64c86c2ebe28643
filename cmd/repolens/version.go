package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the repolens version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("repolens %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
