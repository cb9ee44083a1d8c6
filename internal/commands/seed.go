package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"moneh/internal/core"
	"moneh/internal/services"
)

var (
	incomeCategories  = []string{"salary", "freelance", "refund", "gift"}
	expenseCategories = []string{"groceries", "rent", "transport", "utilities", "dining", "health", "leisure"}
)

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var count int
	var seed int64

	cmd := &cobra.Command{
		Use:   "seed <username>",
		Short: "Fill an existing account with fake entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.New("--count must be at least 1")
			}

			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.lookupUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			created, err := seedEntries(cmd.Context(), a.entries(), u.ID, gofakeit.New(seed), count)
			if err != nil {
				return fmt.Errorf("seeded %d of %d entries: %w", created, count, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %d entries for %s\n", created, u.Username)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 20, "number of entries to create")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed, 0 picks one")

	return cmd
}

// fakeEntry returns a plausible submission: roughly one income for every
// three expenses.
func fakeEntry(f *gofakeit.Faker) core.NewEntry {
	if f.Number(1, 4) == 1 {
		return core.NewEntry{
			Type:        string(core.Income),
			Amount:      decimal.NewFromFloat(f.Price(200, 3000)).StringFixed(core.AmountScale),
			Category:    f.RandomString(incomeCategories),
			Description: "Payment from " + f.Company(),
		}
	}
	return core.NewEntry{
		Type:        string(core.Expense),
		Amount:      decimal.NewFromFloat(f.Price(2, 250)).StringFixed(core.AmountScale),
		Category:    f.RandomString(expenseCategories),
		Description: f.Company(),
	}
}

func seedEntries(ctx context.Context, entries *services.EntryService, owner core.UserID, f *gofakeit.Faker, count int) (int, error) {
	for i := 0; i < count; i++ {
		if _, err := entries.Create(ctx, owner, fakeEntry(f)); err != nil {
			return i, err
		}
	}
	return count, nil
}
