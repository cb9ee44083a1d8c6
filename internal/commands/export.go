package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"moneh/internal/export"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <username>",
		Short: "Write a user's entries to an .xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.lookupUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sum, err := a.entries().Summary(cmd.Context(), u.ID)
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = export.Filename(u.Username, time.Now())
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			if err := export.WriteXLSX(f, sum); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d entries to %s\n", len(sum.Entries), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default: moneh_<user>_<date>.xlsx)")

	return cmd
}
