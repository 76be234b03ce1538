// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackersync

import (
	"context"
	"sync"

	"github.com/bureau-foundation/trackersync/lib/feedback"
	"github.com/bureau-foundation/trackersync/lib/github"
	"github.com/bureau-foundation/trackersync/lib/identity"
)

// resolveUser returns the board user standing in for a GitHub user,
// creating it on first sight. Users created here are never moderators.
func (e *Engine) resolveUser(ctx context.Context, projectID string, repositoryID int64, author *github.User) (*feedback.User, error) {
	profile := &profileLookup{
		engine:       e,
		ctx:          ctx,
		repositoryID: repositoryID,
		author:       author,
	}
	return e.users.FetchOrCreateUser(ctx, projectID, identity.UserID(author.GetID()),
		profile.email, profile.name, false)
}

// profileLookup fetches a GitHub user's public profile at most once,
// and only if the user store asks for it. Webhook payloads carry just
// the login and ID.
type profileLookup struct {
	engine       *Engine
	ctx          context.Context
	repositoryID int64
	author       *github.User

	once    sync.Once
	profile *github.User
}

func (p *profileLookup) fetch() *github.User {
	p.once.Do(func() {
		logger := p.engine.logger.With("github_user_id", p.author.GetID(), "repository_id", p.repositoryID)
		client, err := p.engine.provider.RepositoryClient(p.ctx, p.repositoryID)
		if err != nil {
			logger.Warn("fetching github profile failed", "error", err)
			return
		}
		profile, err := client.GetUser(p.ctx, p.author.GetID())
		if err != nil {
			logger.Warn("fetching github profile failed", "error", err)
			return
		}
		p.profile = profile
	})
	return p.profile
}

func (p *profileLookup) email() string {
	return p.fetch().GetEmail()
}

// name prefers the profile's display name and falls back to the login
// when the profile was fetched but has no name set.
func (p *profileLookup) name() string {
	profile := p.fetch()
	if profile == nil {
		return ""
	}
	if name := profile.GetName(); name != "" {
		return name
	}
	return profile.GetLogin()
}
