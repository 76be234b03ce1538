// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
)

// GetRepositoryByID returns the repository with the given numeric ID.
// Repository IDs survive renames and transfers; owner/name paths do
// not, so the sync engine stores only the ID and resolves the path
// here before every repo-scoped call.
func (client *Client) GetRepositoryByID(ctx context.Context, repositoryID int64) (*Repository, error) {
	repository, _, err := client.api.Repositories.GetByID(ctx, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("getting repository %d: %w", repositoryID, convertError(err))
	}
	return repository, nil
}
