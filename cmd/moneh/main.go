package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneh/internal/amqp"
	"moneh/internal/auth"
	"moneh/internal/backend"
	"moneh/internal/cache"
	"moneh/internal/cli"
	"moneh/internal/config"
	"moneh/internal/core"
	apphttp "moneh/internal/http"
	"moneh/internal/log"
	"moneh/internal/scheduler"
	"moneh/internal/services"
)

const (
	summaryCacheSize = 1000
	summaryCacheTTL  = 5 * time.Minute
	shutdownTimeout  = 30 * time.Second
)

func main() {
	cfg := cli.MustLoadConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	if cfg.UsesDefaultSecret() {
		logger.Warn("SECRET_KEY is not set, using the development key; sessions are forgeable")
	}

	store, err := backend.OpenURL(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	repo := store.Repository

	// Entry events are optional: without AMQP_URL nothing is mirrored.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			store.Cleanup()
			return err
		}
		publisher = amqpClient
		logger.Info("Publishing entry events", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	cacheManager := cache.NewManager(logger)
	summaries := cache.NewLRUCache[core.UserID, core.Summary](summaryCacheSize, summaryCacheTTL)
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(time.Minute)

	credentials := auth.NewCredentialService(repo, auth.NewBcryptHasher(cfg.BcryptCost), logger)
	sessions := auth.NewSessionManager(repo, cfg.SecretKey, cfg.SessionTTL, logger)
	entries := services.NewEntryService(repo, publisher, summaries, logger)

	jobs := scheduler.New(logger)
	if err := jobs.Add("prune-sessions", cfg.SessionPruneSchedule, func(ctx context.Context) error {
		_, err := sessions.PruneExpired(ctx)
		return err
	}); err != nil {
		cacheManager.Stop()
		store.Cleanup()
		return err
	}
	jobs.Start()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Users:              repo,
		Credentials:        credentials,
		Sessions:           sessions,
		Entries:            entries,
		Ping:               repo.Ping,
		Logger:             logger,
		SecretKey:          cfg.SecretKey,
		CookieSecure:       cfg.CookieSecure,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting moneh server", "port", cfg.Port, "database", store.Type.String(), log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		cli.RunCleanup(logger, shutdownTimeout,
			func(context.Context) error { return store.Cleanup() },
			func(context.Context) error {
				if amqpClient == nil {
					return nil
				}
				return amqpClient.Close()
			},
			func(context.Context) error { cacheManager.Stop(); return nil },
			jobs.Stop,
			srv.Shutdown,
		)
		return nil
	})

	return g.Wait()
}
