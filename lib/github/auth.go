// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"

	"github.com/bureau-foundation/trackersync/lib/clock"
)

// Provider hands out authenticated clients. The sync engine asks for a
// client at the moment it needs one and never holds on to it, so an
// implementation is free to cache, rotate, or rebuild clients.
type Provider interface {
	// AppClient returns a client authenticated as the app itself
	// (JWT). It can only call app-level endpoints.
	AppClient(ctx context.Context) (*Client, error)

	// InstallationClient returns a client authenticated as the given
	// installation of the app.
	InstallationClient(ctx context.Context, installationID int64) (*Client, error)

	// RepositoryClient returns a client authenticated as whichever
	// installation owns the repository, resolved through the app
	// client.
	RepositoryClient(ctx context.Context, repositoryID int64) (*Client, error)
}

// Installation client cache defaults. Installation tokens live for one
// hour; ghinstallation refreshes them inside a cached client, so the
// TTL only bounds how long a removed installation lingers.
const (
	DefaultInstallationCacheTTL  = 50 * time.Minute
	DefaultInstallationCacheSize = 256
)

// AppConfig configures an AppProvider.
type AppConfig struct {
	// AppID is the GitHub App's numeric ID.
	AppID int64

	// PrivateKey is the PEM-encoded RSA private key for the app.
	PrivateKey []byte

	// BaseURL is the API root. Defaults to DefaultBaseURL. Must use
	// HTTPS.
	BaseURL string

	// Transport carries every request, including token exchanges.
	// Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	// CacheTTL bounds how long an installation client is reused.
	// Defaults to DefaultInstallationCacheTTL.
	CacheTTL time.Duration

	// CacheSize bounds how many installation clients are kept.
	// Defaults to DefaultInstallationCacheSize.
	CacheSize int

	// Clock drives cache expiry. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// AppProvider is the production Provider: a GitHub App authenticating
// with its private key.
type AppProvider struct {
	baseURL string
	apps    *ghinstallation.AppsTransport
	app     *Client
	cache   *clientCache
	logger  *slog.Logger
}

// NewAppProvider validates the app credentials and builds the shared
// app client. Installation clients are created on first use.
func NewAppProvider(config AppConfig) (*AppProvider, error) {
	if config.AppID == 0 {
		return nil, fmt.Errorf("github: AppID is required for App auth")
	}
	if len(config.PrivateKey) == 0 {
		return nil, fmt.Errorf("github: PrivateKey is required for App auth")
	}
	baseURL, err := normalizeBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	transport := config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = DefaultInstallationCacheTTL
	}
	size := config.CacheSize
	if size <= 0 {
		size = DefaultInstallationCacheSize
	}

	apps, err := ghinstallation.NewAppsTransport(transport, config.AppID, config.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("github: loading app private key: %w", err)
	}
	apps.BaseURL = baseURL

	app, err := NewClient(Config{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Transport: apps},
		Logger:     logger.With("app_id", config.AppID),
	})
	if err != nil {
		return nil, err
	}

	return &AppProvider{
		baseURL: baseURL,
		apps:    apps,
		app:     app,
		cache:   newClientCache(size, ttl, clk),
		logger:  logger,
	}, nil
}

// AppClient returns the shared app client.
func (provider *AppProvider) AppClient(_ context.Context) (*Client, error) {
	return provider.app, nil
}

// InstallationClient returns a cached client for the installation, or
// builds one. Building one mints an installation token immediately so
// that a revoked or unknown installation fails here rather than on the
// first API call.
func (provider *AppProvider) InstallationClient(ctx context.Context, installationID int64) (*Client, error) {
	if client, ok := provider.cache.get(installationID); ok {
		return client, nil
	}

	transport := ghinstallation.NewFromAppsTransport(provider.apps, installationID)
	if _, err := transport.Token(ctx); err != nil {
		return nil, fmt.Errorf("minting token for installation %d: %w", installationID, convertError(err))
	}

	client, err := NewClient(Config{
		BaseURL:    provider.baseURL,
		HTTPClient: &http.Client{Transport: transport},
		Logger:     provider.logger.With("installation_id", installationID),
	})
	if err != nil {
		return nil, err
	}
	provider.cache.put(installationID, client)
	return client, nil
}

// RepositoryClient resolves the installation that owns the repository
// and returns its client.
func (provider *AppProvider) RepositoryClient(ctx context.Context, repositoryID int64) (*Client, error) {
	installation, err := provider.app.FindRepositoryInstallation(ctx, repositoryID)
	if err != nil {
		return nil, err
	}
	return provider.InstallationClient(ctx, installation.GetID())
}
