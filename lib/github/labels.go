// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v57/github"
)

// CreateLabelRequest contains the fields for creating a repository
// label.
type CreateLabelRequest struct {
	Name        string
	Color       string // six hex digits, no leading "#"
	Description string
}

// FindRepoLabel looks a label up by exact name, paging through the
// repository's labels until it is found.
func (client *Client) FindRepoLabel(ctx context.Context, owner, repo, name string) (*Label, bool, error) {
	label, found, err := find(
		func(options *gh.ListOptions) ([]*Label, *gh.Response, error) {
			return client.api.Issues.ListLabels(ctx, owner, repo, options)
		},
		func(label *Label) bool { return label.GetName() == name },
	)
	if err != nil {
		return nil, false, fmt.Errorf("listing labels on %s/%s: %w", owner, repo, err)
	}
	return label, found, nil
}

// CreateRepoLabel creates a label on a repository.
func (client *Client) CreateRepoLabel(ctx context.Context, owner, repo string, request CreateLabelRequest) (*Label, error) {
	label := &gh.Label{
		Name:  gh.String(request.Name),
		Color: gh.String(request.Color),
	}
	if request.Description != "" {
		label.Description = gh.String(request.Description)
	}
	created, _, err := client.api.Issues.CreateLabel(ctx, owner, repo, label)
	if err != nil {
		return nil, fmt.Errorf("creating label %q on %s/%s: %w", request.Name, owner, repo, convertError(err))
	}
	return created, nil
}

// AddLabelsToIssue adds labels to an issue and returns the issue's
// full label set afterwards.
func (client *Client) AddLabelsToIssue(ctx context.Context, owner, repo string, number int, names []string) ([]*Label, error) {
	labels, _, err := client.api.Issues.AddLabelsToIssue(ctx, owner, repo, number, names)
	if err != nil {
		return nil, fmt.Errorf("labeling %s/%s#%d: %w", owner, repo, number, convertError(err))
	}
	return labels, nil
}

// RemoveLabelFromIssue removes one label from an issue.
func (client *Client) RemoveLabelFromIssue(ctx context.Context, owner, repo string, number int, name string) error {
	if _, err := client.api.Issues.RemoveLabelForIssue(ctx, owner, repo, number, name); err != nil {
		return fmt.Errorf("removing label %q from %s/%s#%d: %w", name, owner, repo, number, convertError(err))
	}
	return nil
}
