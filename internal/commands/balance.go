package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"moneh/internal/core"
)

func newBalanceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <username>",
		Short: "Print a user's balance and warning",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User:     %s\n", u.Username)
			fmt.Fprintf(out, "Entries:  %d\n", len(sum.Entries))
			fmt.Fprintf(out, "Income:   %s\n", core.FormatAmount(sum.Income))
			fmt.Fprintf(out, "Expenses: %s\n", core.FormatAmount(sum.Expenses))
			fmt.Fprintf(out, "Balance:  %s\n", core.FormatAmount(sum.Balance))
			if msg := sum.Tier.Message(); msg != "" {
				fmt.Fprintf(out, "Warning:  %s\n", msg)
			}
			return nil
		},
	}
}
