// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v57/github"
)

// ListUserInstallations returns the app installations the
// authenticated user can access. Requires a user-to-server token.
func (client *Client) ListUserInstallations(ctx context.Context) ([]*Installation, error) {
	installations, err := collect(func(options *gh.ListOptions) ([]*Installation, *gh.Response, error) {
		return client.api.Apps.ListUserInstallations(ctx, options)
	})
	if err != nil {
		return nil, fmt.Errorf("listing user installations: %w", err)
	}
	return installations, nil
}

// ListInstallationRepositories returns the repositories the
// installation the client authenticates as was granted. Requires an
// installation token.
func (client *Client) ListInstallationRepositories(ctx context.Context) ([]*Repository, error) {
	repositories, err := collect(func(options *gh.ListOptions) ([]*Repository, *gh.Response, error) {
		list, response, err := client.api.Apps.ListRepos(ctx, options)
		if err != nil {
			return nil, response, err
		}
		return list.Repositories, response, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing installation repositories: %w", err)
	}
	return repositories, nil
}

// FindRepositoryInstallation returns the installation of this app on
// the repository with the given ID. Requires app (JWT) authentication.
func (client *Client) FindRepositoryInstallation(ctx context.Context, repositoryID int64) (*Installation, error) {
	installation, _, err := client.api.Apps.FindRepositoryInstallationByID(ctx, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("finding installation for repository %d: %w", repositoryID, convertError(err))
	}
	return installation, nil
}
