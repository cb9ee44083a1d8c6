package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"moneh/internal/backend"
	"moneh/internal/cli"
	"moneh/internal/config"
	"moneh/internal/core"
	"moneh/internal/log"
	"moneh/internal/services"
)

// app is what a subcommand works with: configuration, a stderr logger and
// an open backend. Close releases the backend.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	store  *backend.Result
}

func openApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := cli.LoadConfig(func(c *config.Config) error {
		if opts.databaseURL != "" {
			c.DatabaseURL = opts.databaseURL
		}
		return c.Validate()
	})
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelInfo
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    cmd.ErrOrStderr(),
	})

	store, err := backend.OpenURL(cmd.Context(), cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func (a *app) Close() error {
	return a.store.Cleanup()
}

func (a *app) entries() *services.EntryService {
	return services.NewEntryService(a.store.Repository, nil, nil, a.logger)
}

func (a *app) lookupUser(ctx context.Context, username string) (core.User, error) {
	u, err := a.store.Repository.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("user %q not found", username)
	}
	return u, err
}
