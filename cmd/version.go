package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Actual version can be specified with -ldflags "-X github.com/spigell/labconnect/cmd.version=...".
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the labconnect version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", app, version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
