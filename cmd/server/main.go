package main

import (
	"context"
	"os"

	_ "time/tzdata"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command. Running it without a subcommand
// starts the server.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "server",
		Short:        "User management REST API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		&cobra.Command{
			Use:     "migrate",
			Aliases: []string{"m"},
			Short:   "Apply the database schema and exit",
			Args:    cobra.NoArgs,
			RunE:    runMigrate,
		},
	)
	return rootCmd
}
