// Package commands implements the moneh-admin command line.
package commands

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	databaseURL string
	verbose     bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "moneh-admin",
		Short: "Maintenance tasks for a moneh database",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "database to operate on (default: DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	rootCmd.AddCommand(
		newMigrateCommand(opts),
		newUserCommand(opts),
		newBalanceCommand(opts),
		newSeedCommand(opts),
		newExportCommand(opts),
		newSessionsCommand(opts),
	)

	return rootCmd
}
