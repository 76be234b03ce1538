// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v57/github"
)

// GetIssue returns a single issue by number.
func (client *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	issue, _, err := client.api.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("getting issue %s/%s#%d: %w", owner, repo, number, convertError(err))
	}
	return issue, nil
}

// CreateComment posts a markdown comment on an issue.
func (client *Client) CreateComment(ctx context.Context, owner, repo string, number int, body string) (*IssueComment, error) {
	comment, _, err := client.api.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{
		Body: gh.String(body),
	})
	if err != nil {
		return nil, fmt.Errorf("commenting on %s/%s#%d: %w", owner, repo, number, convertError(err))
	}
	return comment, nil
}

// SetIssueState opens or closes an issue. state is StateOpen or
// StateClosed.
func (client *Client) SetIssueState(ctx context.Context, owner, repo string, number int, state string) (*Issue, error) {
	if state != StateOpen && state != StateClosed {
		return nil, fmt.Errorf("github: invalid issue state %q", state)
	}
	issue, _, err := client.api.Issues.Edit(ctx, owner, repo, number, &gh.IssueRequest{
		State: gh.String(state),
	})
	if err != nil {
		return nil, fmt.Errorf("setting %s/%s#%d %s: %w", owner, repo, number, state, convertError(err))
	}
	return issue, nil
}
