package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"moneh/internal/auth"
)

func newSessionsCommand(opts *rootOptions) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage login sessions",
	}

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			sessions := auth.NewSessionManager(a.store.Repository, a.cfg.SecretKey, a.cfg.SessionTTL, a.logger)
			n, err := sessions.PruneExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired sessions\n", n)
			return nil
		},
	})

	return sessionsCmd
}
