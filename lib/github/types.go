// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import gh "github.com/google/go-github/v57/github"

// The REST resource and webhook payload types are go-github's. Callers
// use the generated Get* accessors, which are nil-safe.
type (
	User              = gh.User
	Installation      = gh.Installation
	Repository        = gh.Repository
	Issue             = gh.Issue
	IssueComment      = gh.IssueComment
	Label             = gh.Label
	Webhook           = gh.Hook
	Timestamp         = gh.Timestamp
	IssuesEvent       = gh.IssuesEvent
	IssueCommentEvent = gh.IssueCommentEvent
	PingEvent         = gh.PingEvent
)

// Issue states accepted by SetIssueState.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// RepositoryPath returns the owner login and repository name used to
// address repo-scoped endpoints.
func RepositoryPath(repository *Repository) (owner, name string) {
	return repository.GetOwner().GetLogin(), repository.GetName()
}
