package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"moneh/internal/auth"
	"moneh/internal/core"
)

func newUserCommand(opts *rootOptions) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	userCmd.AddCommand(newUserAddCommand(opts))
	return userCmd
}

func newUserAddCommand(opts *rootOptions) *cobra.Command {
	var password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("a password is required: use --password or --password-stdin")
			}

			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			creds := auth.NewCredentialService(a.store.Repository, auth.NewBcryptHasher(a.cfg.BcryptCost), a.logger)
			id, err := creds.Register(cmd.Context(), args[0], password, password)
			if err != nil {
				var verr *core.ValidationError
				if errors.As(err, &verr) {
					return errors.New(verr.Message)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", strings.TrimSpace(args[0]), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password for the new account")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	return cmd
}
