// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackersync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bureau-foundation/trackersync/lib/feedback"
	"github.com/bureau-foundation/trackersync/lib/github"
	"github.com/bureau-foundation/trackersync/lib/identity"
)

// HandleIssueEvent applies an "issues" delivery to the project's
// board. It returns the store's indexing handle for the mutation, or
// nil when the event changed nothing. The payload's signature must
// already have been verified.
func (e *Engine) HandleIssueEvent(ctx context.Context, project *feedback.Project, event *github.IssuesEvent) (*feedback.Indexing, error) {
	integration, ok := e.inboundIntegration(project, event.GetRepo())
	if !ok {
		return nil, nil
	}

	issue := event.GetIssue()
	repositoryID := event.GetRepo().GetID()
	ideaID := identity.IdeaID(issue.GetNumber(), issue.GetID(), repositoryID)
	action := ParseIssueAction(event.GetAction())
	logger := e.logger.With(
		"project_id", project.ID,
		"repository_id", repositoryID,
		"issue_number", issue.GetNumber(),
		"idea_id", ideaID,
		"action", event.GetAction(),
	)

	switch action {
	case IssueActionOpened:
		return e.issueOpened(ctx, logger, project, integration, ideaID, event)

	case IssueActionReopened, IssueActionClosed:
		if integration.StatusSync == nil {
			return nil, nil
		}
		target := integration.StatusSync.ClosedStatus
		if action == IssueActionReopened {
			target = integration.StatusSync.OpenStatus
		}
		if target == "" {
			return nil, nil
		}
		idea, err := e.ideas.GetIdea(ctx, project.ID, ideaID)
		if errors.Is(err, feedback.ErrNotFound) {
			logger.Debug("issue has no idea, ignoring state change")
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading idea %s: %w", ideaID, err)
		}
		if idea.StatusID == target {
			return nil, nil
		}
		return e.updateIdea(ctx, logger, project.ID, ideaID, feedback.IdeaUpdate{StatusID: &target})

	case IssueActionEdited:
		changes := event.GetChanges()
		var update feedback.IdeaUpdate
		if changes.GetTitle() != nil {
			title := issue.GetTitle()
			update.Title = &title
		}
		if changes.GetBody() != nil {
			description, err := e.richText.MarkdownToHTML(issue.GetBody())
			if err != nil {
				return nil, fmt.Errorf("converting issue body: %w", err)
			}
			update.Description = &description
		}
		if update.IsEmpty() {
			return nil, nil
		}
		return e.updateIdea(ctx, logger, project.ID, ideaID, update)

	case IssueActionDeleted:
		indexing, err := e.ideas.DeleteIdea(ctx, project.ID, ideaID)
		if errors.Is(err, feedback.ErrNotFound) {
			logger.Debug("deleted issue has no idea")
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("deleting idea %s: %w", ideaID, err)
		}
		logger.Info("idea deleted from github")
		return indexing, nil

	default:
		logger.Debug("ignoring issue action")
		return nil, nil
	}
}

func (e *Engine) issueOpened(ctx context.Context, logger *slog.Logger, project *feedback.Project, integration *feedback.Integration, ideaID string, event *github.IssuesEvent) (*feedback.Indexing, error) {
	issue := event.GetIssue()
	repositoryID := event.GetRepo().GetID()

	author, err := e.resolveUser(ctx, project.ID, repositoryID, issue.GetUser())
	if err != nil {
		return nil, fmt.Errorf("resolving author of issue #%d: %w", issue.GetNumber(), err)
	}
	description, err := e.richText.MarkdownToHTML(issue.GetBody())
	if err != nil {
		return nil, fmt.Errorf("converting issue body: %w", err)
	}

	statusID := integration.InitialStatusID
	if statusID == "" {
		if category, ok := project.Config.Category(integration.CreateWithCategoryID); ok {
			statusID = category.Workflow.EntryStatus
		}
	}

	indexing, err := e.ideas.CreateIdea(ctx, feedback.Idea{
		ProjectID:    project.ID,
		ID:           ideaID,
		AuthorUserID: author.ID,
		AuthorName:   author.Name,
		AuthorIsMod:  author.IsMod,
		Created:      e.clock.Now(),
		Title:        issue.GetTitle(),
		Description:  description,
		CategoryID:   integration.CreateWithCategoryID,
		StatusID:     statusID,
		TagIDs:       slices.Clone(integration.CreateWithTags),
		External: &feedback.ExternalIssue{
			RepositoryID: repositoryID,
			IssueNumber:  issue.GetNumber(),
			IssueID:      issue.GetID(),
			URL:          issue.GetHTMLURL(),
		},
	})
	if errors.Is(err, feedback.ErrAlreadyExists) {
		logger.Debug("idea for issue already exists")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating idea %s: %w", ideaID, err)
	}
	logger.Info("idea created from github issue", "author_user_id", author.ID)
	return indexing, nil
}

func (e *Engine) updateIdea(ctx context.Context, logger *slog.Logger, projectID, ideaID string, update feedback.IdeaUpdate) (*feedback.Indexing, error) {
	indexing, err := e.ideas.UpdateIdea(ctx, projectID, ideaID, update)
	if errors.Is(err, feedback.ErrNotFound) {
		logger.Debug("issue has no idea, ignoring update")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updating idea %s: %w", ideaID, err)
	}
	return indexing, nil
}

// HandleIssueCommentEvent applies an "issue_comment" delivery. raw is
// the undecoded payload, checked for changes.body when the typed event
// does not carry it.
func (e *Engine) HandleIssueCommentEvent(ctx context.Context, project *feedback.Project, event *github.IssueCommentEvent, raw []byte) (*feedback.Indexing, error) {
	integration, ok := e.inboundIntegration(project, event.GetRepo())
	if !ok || !integration.CommentSync {
		return nil, nil
	}

	issue := event.GetIssue()
	comment := event.GetComment()
	repositoryID := event.GetRepo().GetID()
	ideaID := identity.IdeaID(issue.GetNumber(), issue.GetID(), repositoryID)
	commentID := identity.CommentID(comment.GetID())
	logger := e.logger.With(
		"project_id", project.ID,
		"repository_id", repositoryID,
		"issue_number", issue.GetNumber(),
		"idea_id", ideaID,
		"comment_id", commentID,
		"action", event.GetAction(),
	)

	switch ParseCommentAction(event.GetAction()) {
	case CommentActionCreated:
		if _, err := e.ideas.GetIdea(ctx, project.ID, ideaID); err != nil {
			if errors.Is(err, feedback.ErrNotFound) {
				logger.Debug("comment on an issue with no idea, ignoring")
				return nil, nil
			}
			return nil, fmt.Errorf("reading idea %s: %w", ideaID, err)
		}
		author, err := e.resolveUser(ctx, project.ID, repositoryID, comment.GetUser())
		if err != nil {
			return nil, fmt.Errorf("resolving author of comment %d: %w", comment.GetID(), err)
		}
		content, err := e.richText.MarkdownToHTML(comment.GetBody())
		if err != nil {
			return nil, fmt.Errorf("converting comment body: %w", err)
		}
		indexing, err := e.comments.CreateComment(ctx, feedback.Comment{
			ProjectID:    project.ID,
			IdeaID:       ideaID,
			ID:           commentID,
			AuthorUserID: author.ID,
			AuthorName:   author.Name,
			AuthorIsMod:  author.IsMod,
			Created:      e.clock.Now(),
			Content:      content,
		})
		if errors.Is(err, feedback.ErrAlreadyExists) {
			logger.Debug("comment already exists")
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("creating comment %s: %w", commentID, err)
		}
		return indexing, nil

	case CommentActionEdited:
		if event.GetChanges().GetBody() == nil && !rawBodyChanged(raw) {
			return nil, nil
		}
		content, err := e.richText.MarkdownToHTML(comment.GetBody())
		if err != nil {
			return nil, fmt.Errorf("converting comment body: %w", err)
		}
		edited := comment.GetUpdatedAt().Time
		if edited.IsZero() {
			edited = e.clock.Now()
		}
		indexing, err := e.comments.UpdateComment(ctx, project.ID, ideaID, commentID, edited, feedback.CommentUpdate{Content: content})
		if errors.Is(err, feedback.ErrNotFound) {
			logger.Debug("edited comment does not exist")
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("updating comment %s: %w", commentID, err)
		}
		return indexing, nil

	case CommentActionDeleted:
		indexing, err := e.comments.MarkCommentDeleted(ctx, project.ID, ideaID, commentID)
		if errors.Is(err, feedback.ErrNotFound) {
			logger.Debug("deleted comment does not exist")
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("deleting comment %s: %w", commentID, err)
		}
		return indexing, nil

	default:
		logger.Debug("ignoring comment action")
		return nil, nil
	}
}

// inboundIntegration returns the project's integration if inbound
// events should be applied: the feature is on, the project is linked,
// and the event comes from the linked repository. A webhook left behind
// on a previously linked repository delivers to the same URL.
func (e *Engine) inboundIntegration(project *feedback.Project, repository *github.Repository) (*feedback.Integration, bool) {
	if !e.enabled {
		e.logger.Debug("github integration disabled, ignoring event")
		return nil, false
	}
	integration := project.Config.GitHub
	if integration == nil {
		e.logger.Debug("project has no github integration, ignoring event", "project_id", project.ID)
		return nil, false
	}
	if repository.GetID() != integration.RepositoryID {
		e.logger.Info("event from a repository the project is not linked to, ignoring",
			"project_id", project.ID,
			"repository_id", repository.GetID(),
			"linked_repository_id", integration.RepositoryID,
		)
		return nil, false
	}
	return integration, true
}

// rawBodyChanged reports whether the payload carries a non-null
// changes.body.
func rawBodyChanged(raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	var payload struct {
		Changes struct {
			Body json.RawMessage `json:"body"`
		} `json:"changes"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false
	}
	body := payload.Changes.Body
	return len(body) > 0 && string(body) != "null"
}
