// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackersync

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/trackersync/lib/github"
)

// AvailableRepo is a repository the user may link a project to.
type AvailableRepo struct {
	RepositoryID int64  `json:"repositoryId"`
	FullName     string `json:"fullName"`
}

// AvailableRepos completes the OAuth handshake for an account: it
// exchanges code for a user token, lists every repository the user can
// reach through an installation of the app, and records a grant for
// each so a later ConfigChanged can link it.
func (e *Engine) AvailableRepos(ctx context.Context, accountID, code string) ([]AvailableRepo, error) {
	if !e.enabled {
		return nil, errDisabled
	}
	logger := e.logger.With("account_id", accountID)

	user, err := e.authorizer.Exchange(ctx, code)
	if err != nil {
		if github.IsAuthorizationDenied(err) {
			return nil, newError(Forbidden, "failed to authorize", err)
		}
		return nil, newError(Unavailable, "unexpected response from GitHub", err)
	}
	installations, err := user.ListUserInstallations(ctx)
	if err != nil {
		return nil, newError(Forbidden, "failed to list installations", err)
	}

	grants := make(map[int64]int64)
	var repos []AvailableRepo
	for _, installation := range installations {
		client, err := e.provider.InstallationClient(ctx, installation.GetID())
		if err != nil {
			return nil, newError(Forbidden, "failed to access installation", err)
		}
		repositories, err := client.ListInstallationRepositories(ctx)
		if err != nil {
			return nil, newError(Forbidden, "failed to list repositories", err)
		}
		for _, repository := range repositories {
			if _, seen := grants[repository.GetID()]; seen {
				continue
			}
			grants[repository.GetID()] = installation.GetID()
			repos = append(repos, AvailableRepo{
				RepositoryID: repository.GetID(),
				FullName:     repository.GetFullName(),
			})
		}
	}

	if err := e.grants.RecordGrants(ctx, accountID, grants, e.authExpiry); err != nil {
		return nil, fmt.Errorf("recording grants for account %s: %w", accountID, err)
	}
	logger.Info("repository grants recorded",
		"installations", len(installations),
		"repositories", len(repos),
	)
	return repos, nil
}
