// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackersync

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/trackersync/lib/authgrant"
	"github.com/bureau-foundation/trackersync/lib/clock"
	"github.com/bureau-foundation/trackersync/lib/feedback"
	"github.com/bureau-foundation/trackersync/lib/github"
	"github.com/bureau-foundation/trackersync/lib/workerpool"
)

// Grants records and looks up repository grants. *authgrant.Registry
// implements it.
type Grants interface {
	RecordGrants(ctx context.Context, accountID string, repoToInstallation map[int64]int64, ttl time.Duration) error

	// Grant fails with authgrant.ErrNotFound when there is no
	// unexpired grant.
	Grant(ctx context.Context, accountID string, repositoryID int64) (authgrant.Grant, error)
}

// Authorizer exchanges a user's OAuth authorization code for a client
// acting as that user. *github.OAuth implements it.
type Authorizer interface {
	Exchange(ctx context.Context, code string) (*github.Client, error)
}

// Config holds an Engine's settings and collaborators. Every
// collaborator is required, except that Provider and Authorizer may be
// nil while the integration is disabled.
type Config struct {
	// Enabled turns the integration on. When false, inbound handlers
	// do nothing, outbound operations complete empty, and
	// user-initiated operations fail with Unavailable.
	Enabled bool

	// Domain is the public host name webhooks are delivered to.
	Domain string

	// WebhookSecret is set on every webhook the engine creates.
	WebhookSecret string

	// AuthExpiry is the lifetime of recorded grants. Defaults to
	// authgrant.DefaultTTL.
	AuthExpiry time.Duration

	Grants     Grants
	Provider   github.Provider
	Authorizer Authorizer

	Ideas    feedback.Ideas
	Comments feedback.Comments
	Users    feedback.Users
	Projects feedback.Projects
	RichText feedback.RichText

	// Pool runs outbound tasks. The caller owns its lifecycle.
	Pool *workerpool.Pool

	Clock  clock.Clock
	Logger *slog.Logger
}

// Engine is the synchronization engine. It is safe for concurrent use.
type Engine struct {
	enabled       bool
	domain        string
	webhookSecret string
	authExpiry    time.Duration

	grants     Grants
	provider   github.Provider
	authorizer Authorizer

	ideas    feedback.Ideas
	comments feedback.Comments
	users    feedback.Users
	projects feedback.Projects
	richText feedback.RichText

	pool   *workerpool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// New returns an Engine. Panics if a collaborator is missing.
func New(config Config) *Engine {
	if config.Domain == "" {
		panic("trackersync: Domain is required")
	}
	if config.Grants == nil {
		panic("trackersync: Grants is required")
	}
	if config.Enabled && config.Provider == nil {
		panic("trackersync: Provider is required when Enabled")
	}
	if config.Enabled && config.Authorizer == nil {
		panic("trackersync: Authorizer is required when Enabled")
	}
	if config.Ideas == nil || config.Comments == nil || config.Users == nil || config.Projects == nil {
		panic("trackersync: Ideas, Comments, Users, and Projects are required")
	}
	if config.RichText == nil {
		panic("trackersync: RichText is required")
	}
	if config.Pool == nil {
		panic("trackersync: Pool is required")
	}
	if config.Clock == nil {
		panic("trackersync: Clock is required")
	}
	if config.Logger == nil {
		panic("trackersync: Logger is required")
	}
	authExpiry := config.AuthExpiry
	if authExpiry <= 0 {
		authExpiry = authgrant.DefaultTTL
	}

	return &Engine{
		enabled:       config.Enabled,
		domain:        config.Domain,
		webhookSecret: config.WebhookSecret,
		authExpiry:    authExpiry,
		grants:        config.Grants,
		provider:      config.Provider,
		authorizer:    config.Authorizer,
		ideas:         config.Ideas,
		comments:      config.Comments,
		users:         config.Users,
		projects:      config.Projects,
		richText:      config.RichText,
		pool:          config.Pool,
		clock:         config.Clock,
		logger:        config.Logger,
	}
}

// Enabled reports whether the integration is turned on.
func (e *Engine) Enabled() bool { return e.enabled }

// WebhookPath is the path, relative to the public domain, that a
// project's repository webhook delivers to.
func WebhookPath(projectID string) string {
	return "/api/v1/project/" + projectID + "/github/webhook"
}

// WebhookURL is the absolute delivery URL for a project's webhook.
func (e *Engine) WebhookURL(projectID string) string {
	return "https://" + e.domain + WebhookPath(projectID)
}

// OAuthRedirectURL is the callback registered on the GitHub App for
// the repository selection handshake.
func OAuthRedirectURL(domain string) string {
	return "https://" + domain + "/dashboard/settings/project/github"
}
