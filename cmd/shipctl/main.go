// Command shipctl runs shiptrack's batch jobs and admin tasks without the
// HTTP server. It reads the same config file and environment as the server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shipctl",
		Short:         "shipctl - run shiptrack jobs from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", os.Getenv("CONFIG_PATH"), "path to a YAML config file")

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(notifyTestCmd())
	rootCmd.AddCommand(leaderboardCmd())
	rootCmd.AddCommand(hashSecretCmd())
	return rootCmd
}
