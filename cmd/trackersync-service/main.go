// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/trackersync/lib/authgrant"
	"github.com/bureau-foundation/trackersync/lib/clock"
	"github.com/bureau-foundation/trackersync/lib/config"
	"github.com/bureau-foundation/trackersync/lib/feedbackstore"
	"github.com/bureau-foundation/trackersync/lib/github"
	"github.com/bureau-foundation/trackersync/lib/process"
	"github.com/bureau-foundation/trackersync/lib/richtext"
	"github.com/bureau-foundation/trackersync/lib/service"
	"github.com/bureau-foundation/trackersync/lib/sqlitepool"
	"github.com/bureau-foundation/trackersync/lib/trackersync"
	"github.com/bureau-foundation/trackersync/lib/version"
	"github.com/bureau-foundation/trackersync/lib/workerpool"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		logLevel    string
		showVersion bool
	)
	flags := pflag.NewFlagSet("trackersync-service", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "path to trackersync.yaml (default: $TRACKERSYNC_CONFIG)")
	flags.StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return process.Usage(err)
	}

	if showVersion {
		version.Print("trackersync-service")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return process.Usage(err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return process.Usage(fmt.Errorf("invalid configuration: %w", err))
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	realClock := clock.Real()

	database, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Database.Path,
		PoolSize: cfg.Database.PoolSize,
		Schema:   authgrant.Schema + feedbackstore.Schema,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	registry := authgrant.New(authgrant.Config{Pool: database, Clock: realClock, Logger: logger})
	store := feedbackstore.New(feedbackstore.Config{Pool: database, Clock: realClock, Logger: logger})

	pool := workerpool.New(workerpool.Config{
		MinWorkers:  cfg.Pool.MinWorkers,
		MaxWorkers:  cfg.Pool.MaxWorkers,
		IdleTimeout: cfg.Pool.IdleTimeout,
		Clock:       realClock,
		Logger:      logger.With("component", "workerpool"),
	})

	engineConfig := trackersync.Config{
		Enabled:    cfg.GitHub.Enabled,
		Domain:     cfg.GitHub.Domain,
		AuthExpiry: cfg.GitHub.AuthExpiry,
		Grants:     registry,
		Ideas:      store,
		Comments:   store,
		Users:      store,
		Projects:   store,
		RichText:   richtext.New(),
		Pool:       pool,
		Clock:      realClock,
		Logger:     logger.With("component", "trackersync"),
	}
	var webhookSecret []byte
	if cfg.GitHub.Enabled {
		loaded, err := loadCredentials(cfg, realClock, logger)
		if err != nil {
			return err
		}
		engineConfig.WebhookSecret = loaded.webhookSecret
		engineConfig.Provider = loaded.provider
		engineConfig.Authorizer = loaded.oauth
		webhookSecret = []byte(loaded.webhookSecret)
	} else {
		// Nothing can be linked, so no signed delivery should arrive;
		// the engine ignores any that do.
		if engineConfig.Domain == "" {
			engineConfig.Domain = "localhost"
		}
		webhookSecret = []byte("disabled")
	}
	engine := trackersync.New(engineConfig)

	go registry.RunReclaimer(ctx, cfg.GitHub.GrantReclaimInterval)

	trackerService := &TrackerService{
		engine:   engine,
		projects: store,
		ideas:    store,
		comments: store,
		logger:   logger,
	}
	webhookHandler := NewWebhookHandler(webhookSecret, engine, store, realClock, logger.With("component", "webhook"))

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address:      cfg.Server.Listen,
		Handler:      trackerService.routes(webhookHandler),
		Drain:        pool.Shutdown,
		DrainTimeout: cfg.Pool.ShutdownTimeout,
		Logger:       logger,
	})

	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.Serve(ctx)
	}()

	select {
	case <-httpServer.Ready():
		logger.Info("trackersync service running",
			"address", httpServer.Addr().String(),
			"github_enabled", cfg.GitHub.Enabled,
			"domain", cfg.GitHub.Domain,
			"version", version.Info(),
		)
	case err := <-httpDone:
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return <-httpDone
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

type credentials struct {
	webhookSecret string
	provider      *github.AppProvider
	oauth         *github.OAuth
}

// loadCredentials reads the GitHub App secrets named in the
// configuration and builds the app provider and OAuth exchanger.
func loadCredentials(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*credentials, error) {
	webhookSecret, err := config.ReadSecret(cfg.GitHub.WebhookSecretFile)
	if err != nil {
		return nil, fmt.Errorf("loading webhook secret: %w", err)
	}
	clientSecret, err := config.ReadSecret(cfg.GitHub.ClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("loading OAuth client secret: %w", err)
	}
	privateKey, err := config.ReadSecret(cfg.GitHub.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading app private key: %w", err)
	}

	githubLogger := logger.With("component", "github")
	provider, err := github.NewAppProvider(github.AppConfig{
		AppID:      cfg.GitHub.AppID,
		PrivateKey: []byte(privateKey),
		BaseURL:    cfg.GitHub.APIBaseURL,
		CacheTTL:   cfg.GitHub.InstallationCache.TTL,
		CacheSize:  cfg.GitHub.InstallationCache.MaxEntries,
		Clock:      clk,
		Logger:     githubLogger,
	})
	if err != nil {
		return nil, err
	}
	oauth, err := github.NewOAuth(github.OAuthConfig{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: clientSecret,
		RedirectURL:  trackersync.OAuthRedirectURL(cfg.GitHub.Domain),
		APIBaseURL:   cfg.GitHub.APIBaseURL,
		Logger:       githubLogger,
	})
	if err != nil {
		return nil, err
	}
	return &credentials{webhookSecret: webhookSecret, provider: provider, oauth: oauth}, nil
}
