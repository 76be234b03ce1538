// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackersync

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/trackersync/lib/authgrant"
	"github.com/bureau-foundation/trackersync/lib/feedback"
	"github.com/bureau-foundation/trackersync/lib/github"
)

// webhookEvents are the events a project's repository webhook
// subscribes to.
var webhookEvents = []string{github.EventIssues, github.EventIssueComment}

// Link installs the project's webhook on the granted repository. It
// does not touch the project's configuration; the caller persists the
// new integration once Link succeeds.
func (e *Engine) Link(ctx context.Context, projectID string, grant authgrant.Grant) error {
	if !e.enabled {
		return errDisabled
	}
	logger := e.logger.With(
		"project_id", projectID,
		"repository_id", grant.RepositoryID,
		"installation_id", grant.InstallationID,
	)

	client, err := e.provider.InstallationClient(ctx, grant.InstallationID)
	if err != nil {
		return newError(Unauthorized, "GitHub app installation is not accessible", err)
	}
	repository, err := client.GetRepositoryByID(ctx, grant.RepositoryID)
	if err != nil {
		return newError(BadRequest, "repository is not accessible", err)
	}
	owner, name := github.RepositoryPath(repository)
	hook, err := client.CreateRepoWebhook(ctx, owner, name, github.CreateWebhookRequest{
		Events: webhookEvents,
		Config: github.CreateWebhookConfig{
			URL:         e.WebhookURL(projectID),
			ContentType: "json",
			Secret:      e.webhookSecret,
		},
	})
	if err != nil {
		return newError(BadRequest, "failed to create webhook on "+repository.GetFullName(), err)
	}
	logger.Info("repository linked", "repository", repository.GetFullName(), "webhook_id", hook.GetID())
	return nil
}

// UnlinkOutcome summarizes an Unlink.
type UnlinkOutcome int

const (
	// UnlinkSucceeded: every requested step succeeded, or none was
	// requested.
	UnlinkSucceeded UnlinkOutcome = iota

	// UnlinkPartiallyFailed: at least one step succeeded and at least
	// one failed.
	UnlinkPartiallyFailed

	// UnlinkFailed: every requested step failed.
	UnlinkFailed
)

func (o UnlinkOutcome) String() string {
	switch o {
	case UnlinkSucceeded:
		return "succeeded"
	case UnlinkPartiallyFailed:
		return "partially failed"
	case UnlinkFailed:
		return "failed"
	default:
		return fmt.Sprintf("UnlinkOutcome(%d)", int(o))
	}
}

// UnlinkResult reports each step of an Unlink. A nil step error means
// the step succeeded or was not requested.
type UnlinkResult struct {
	Outcome    UnlinkOutcome
	WebhookErr error
	ConfigErr  error
}

// Err joins the step errors, or returns nil if there were none.
func (r UnlinkResult) Err() error {
	return errors.Join(r.WebhookErr, r.ConfigErr)
}

// Unlink detaches a project from a repository. removeWebhook deletes
// the project's webhooks from the repository; removeFromConfig clears
// the project's integration if it still points at repositoryID. Both
// steps are attempted regardless of the other's failure.
func (e *Engine) Unlink(ctx context.Context, projectID string, repositoryID int64, removeFromConfig, removeWebhook bool) UnlinkResult {
	logger := e.logger.With("project_id", projectID, "repository_id", repositoryID)
	var result UnlinkResult
	attempted, failed := 0, 0

	if removeWebhook {
		attempted++
		if err := e.removeWebhooks(ctx, projectID, repositoryID); err != nil {
			failed++
			result.WebhookErr = err
			logger.Warn("removing webhook failed", "error", err)
		}
	}
	if removeFromConfig {
		attempted++
		if err := e.clearIntegration(ctx, projectID, repositoryID); err != nil {
			failed++
			result.ConfigErr = err
			logger.Warn("clearing integration failed", "error", err)
		}
	}

	switch {
	case failed == 0:
		result.Outcome = UnlinkSucceeded
	case failed == attempted:
		result.Outcome = UnlinkFailed
	default:
		result.Outcome = UnlinkPartiallyFailed
	}
	logger.Info("repository unlinked",
		"outcome", result.Outcome.String(),
		"remove_from_config", removeFromConfig,
		"remove_webhook", removeWebhook,
	)
	return result
}

// removeWebhooks deletes every active webhook on the repository that
// delivers to this project.
func (e *Engine) removeWebhooks(ctx context.Context, projectID string, repositoryID int64) error {
	if !e.enabled {
		return errDisabled
	}
	client, err := e.provider.RepositoryClient(ctx, repositoryID)
	if err != nil {
		return fmt.Errorf("getting client for repository %d: %w", repositoryID, err)
	}
	repository, err := client.GetRepositoryByID(ctx, repositoryID)
	if err != nil {
		return err
	}
	owner, name := github.RepositoryPath(repository)
	hooks, err := client.ListRepoWebhooks(ctx, owner, name)
	if err != nil {
		return err
	}

	deliveryURL := e.WebhookURL(projectID)
	var errs []error
	for _, hook := range hooks {
		if !hook.GetActive() || github.WebhookURL(hook) != deliveryURL {
			continue
		}
		if err := client.DeleteRepoWebhook(ctx, owner, name, hook.GetID()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// clearIntegration removes the project's integration if it is linked
// to repositoryID. A missing project or an integration pointing
// elsewhere leaves nothing to do.
func (e *Engine) clearIntegration(ctx context.Context, projectID string, repositoryID int64) error {
	project, err := e.projects.GetProject(ctx, projectID)
	if errors.Is(err, feedback.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading project %s: %w", projectID, err)
	}
	if project.Config.GitHub == nil || project.Config.GitHub.RepositoryID != repositoryID {
		return nil
	}
	config := project.Config
	config.GitHub = nil
	if _, err := e.projects.UpdateConfig(ctx, projectID, "", config); err != nil {
		return fmt.Errorf("clearing integration of project %s: %w", projectID, err)
	}
	return nil
}

// ConfigChanged reconciles GitHub with a project configuration change
// before the caller persists next. When the linked repository changes,
// the new one is linked with the account's grant and the old one's
// webhook is removed. The old integration is not cleared from the
// configuration, since next replaces it.
func (e *Engine) ConfigChanged(ctx context.Context, accountID, projectID string, previous *feedback.Config, next feedback.Config) error {
	previousRepositoryID := linkedRepository(previous)
	nextRepositoryID := linkedRepository(&next)
	if previousRepositoryID == nextRepositoryID {
		return nil
	}
	if !e.enabled {
		return errDisabled
	}

	if nextRepositoryID != 0 {
		grant, err := e.grants.Grant(ctx, accountID, nextRepositoryID)
		if errors.Is(err, authgrant.ErrNotFound) {
			return newError(Unauthorized, "access to this repository is expired, please refresh", err)
		}
		if err != nil {
			return fmt.Errorf("looking up grant for repository %d: %w", nextRepositoryID, err)
		}
		if err := e.Link(ctx, projectID, grant); err != nil {
			return err
		}
	}

	if previousRepositoryID != 0 {
		e.Unlink(ctx, projectID, previousRepositoryID, false, true)
	}
	return nil
}

func linkedRepository(config *feedback.Config) int64 {
	if config == nil || config.GitHub == nil {
		return 0
	}
	return config.GitHub.RepositoryID
}
