package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tracker/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Personal expense tracker with language model entry extraction",
	Long: `tracker turns a free-text description of a purchase into a log entry,
lets the user confirm or correct it, and keeps an analytics dashboard of
everything they have logged.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(workerCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
