// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackersync

import (
	"context"
	"errors"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/bureau-foundation/trackersync/lib/feedback"
	"github.com/bureau-foundation/trackersync/lib/github"
	"github.com/bureau-foundation/trackersync/lib/workerpool"
)

// statusLabelDescription is set on labels the engine creates for
// workflow statuses.
const statusLabelDescription = "Managed by trackersync"

// StatusAndResponse is the result of StatusAndOrResponseChanged. Issue
// is set when the issue's open/closed state was checked; Response is
// set when a response comment was posted.
type StatusAndResponse struct {
	Issue    *github.Issue
	Response *github.IssueComment
}

// CommentCreated mirrors a new board comment onto the idea's linked
// issue. The returned Future is already complete, holding nil, when
// there is nothing to mirror.
func (e *Engine) CommentCreated(ctx context.Context, project *feedback.Project, idea *feedback.Idea, comment *feedback.Comment) *workerpool.Future[*github.IssueComment] {
	integration, external, ok := e.outboundIntegration(project, idea)
	if !ok || !integration.CommentSync {
		return workerpool.Done[*github.IssueComment](nil)
	}

	projectID := project.ID
	repositoryID := integration.RepositoryID
	ideaID := idea.ID
	posted := *comment

	return workerpool.Go(ctx, e.pool, "comment_created", func(ctx context.Context) (*github.IssueComment, error) {
		client, owner, name, err := e.repository(ctx, projectID, repositoryID)
		if err != nil {
			return nil, err
		}
		body, err := e.commentBody(ctx, projectID, ideaID, &posted)
		if err != nil {
			return nil, err
		}
		created, err := client.CreateComment(ctx, owner, name, external.IssueNumber, body)
		if err != nil {
			return nil, e.checkPermission(ctx, projectID, repositoryID, err)
		}
		e.logger.Info("comment mirrored to github",
			"project_id", projectID,
			"idea_id", ideaID,
			"comment_id", posted.ID,
			"github_comment_id", created.GetID(),
		)
		return created, nil
	})
}

// StatusAndOrResponseChanged mirrors an idea's moderator response as
// a signed comment, then its status as a label (and, when configured,
// as the issue's open/closed state). The returned Future is
// already complete, holding nil, when there is nothing to mirror.
func (e *Engine) StatusAndOrResponseChanged(ctx context.Context, project *feedback.Project, idea *feedback.Idea, statusChanged, responseChanged bool) *workerpool.Future[*StatusAndResponse] {
	integration, external, ok := e.outboundIntegration(project, idea)
	if !ok {
		return workerpool.Done[*StatusAndResponse](nil)
	}

	var status *feedback.Status
	var statusNames []string
	if statusChanged && integration.StatusSync != nil && idea.StatusID != "" {
		if category, found := project.Config.Category(idea.CategoryID); found {
			status, _ = category.Workflow.Status(idea.StatusID)
			statusNames = category.Workflow.StatusNames()
		}
	}
	syncResponse := responseChanged && integration.ResponseSync &&
		idea.Response != "" && idea.ResponseAuthorName != ""
	if status == nil && !syncResponse {
		return workerpool.Done[*StatusAndResponse](nil)
	}

	projectID := project.ID
	repositoryID := integration.RepositoryID
	statusSync := integration.StatusSync
	snapshot := *idea

	return workerpool.Go(ctx, e.pool, "status_and_response_changed", func(ctx context.Context) (*StatusAndResponse, error) {
		client, owner, name, err := e.repository(ctx, projectID, repositoryID)
		if err != nil {
			return nil, err
		}
		target := issueRef{client: client, owner: owner, name: name, number: external.IssueNumber}
		result := &StatusAndResponse{}

		if syncResponse {
			sanitized := e.richText.Sanitize(snapshot.Response)
			body, err := e.richText.HTMLToMarkdown(sign(snapshot.ResponseAuthorName, true, sanitized))
			if err != nil {
				return nil, fmt.Errorf("converting response of idea %s: %w", snapshot.ID, err)
			}
			comment, err := client.CreateComment(ctx, owner, name, external.IssueNumber, body)
			if err != nil {
				return nil, e.checkPermission(ctx, projectID, repositoryID, err)
			}
			result.Response = comment
		}

		if status != nil {
			if err := e.applyStatusLabel(ctx, target, *status, statusNames); err != nil {
				return nil, e.checkPermission(ctx, projectID, repositoryID, err)
			}
			if len(statusSync.ClosedStatuses) > 0 {
				issue, err := e.applyIssueState(ctx, target, statusSync.IsClosedStatus(snapshot.StatusID))
				if err != nil {
					return nil, e.checkPermission(ctx, projectID, repositoryID, err)
				}
				result.Issue = issue
			}
		}
		return result, nil
	})
}

// issueRef addresses one issue through a repository client.
type issueRef struct {
	client *github.Client
	owner  string
	name   string
	number int
}

// applyStatusLabel puts the status's label on the issue and takes off
// any label named after another status of the same workflow.
func (e *Engine) applyStatusLabel(ctx context.Context, target issueRef, status feedback.Status, statusNames []string) error {
	_, found, err := target.client.FindRepoLabel(ctx, target.owner, target.name, status.Name)
	if err != nil {
		return err
	}
	if !found {
		color := strings.TrimPrefix(status.Color, "#")
		if color == "" {
			color = "000000"
		}
		if _, err := target.client.CreateRepoLabel(ctx, target.owner, target.name, github.CreateLabelRequest{
			Name:        status.Name,
			Color:       color,
			Description: statusLabelDescription,
		}); err != nil {
			return err
		}
	}

	labels, err := target.client.AddLabelsToIssue(ctx, target.owner, target.name, target.number, []string{status.Name})
	if err != nil {
		return err
	}
	for _, label := range labels {
		labelName := label.GetName()
		if labelName == status.Name || !slices.Contains(statusNames, labelName) {
			continue
		}
		if err := target.client.RemoveLabelFromIssue(ctx, target.owner, target.name, target.number, labelName); err != nil {
			return err
		}
	}
	return nil
}

// applyIssueState closes or reopens the issue when its state disagrees
// with closed.
func (e *Engine) applyIssueState(ctx context.Context, target issueRef, closed bool) (*github.Issue, error) {
	want := github.StateOpen
	if closed {
		want = github.StateClosed
	}
	issue, err := target.client.GetIssue(ctx, target.owner, target.name, target.number)
	if err != nil {
		return nil, err
	}
	if issue.GetState() == want {
		return issue, nil
	}
	return target.client.SetIssueState(ctx, target.owner, target.name, target.number, want)
}

// outboundIntegration returns the project's integration and the idea's
// issue when the idea is linked to the repository the project is
// currently linked to.
func (e *Engine) outboundIntegration(project *feedback.Project, idea *feedback.Idea) (*feedback.Integration, feedback.ExternalIssue, bool) {
	if !e.enabled {
		return nil, feedback.ExternalIssue{}, false
	}
	integration := project.Config.GitHub
	if integration == nil || idea.External == nil {
		return nil, feedback.ExternalIssue{}, false
	}
	if idea.External.RepositoryID != integration.RepositoryID {
		return nil, feedback.ExternalIssue{}, false
	}
	return integration, *idea.External, true
}

// repository returns a client for the repository together with its
// current owner and name. Repositories can be renamed or transferred,
// so the path is resolved from the ID on every task.
func (e *Engine) repository(ctx context.Context, projectID string, repositoryID int64) (*github.Client, string, string, error) {
	client, err := e.provider.RepositoryClient(ctx, repositoryID)
	if err != nil {
		return nil, "", "", e.checkPermission(ctx, projectID, repositoryID,
			fmt.Errorf("getting client for repository %d: %w", repositoryID, err))
	}
	repository, err := client.GetRepositoryByID(ctx, repositoryID)
	if err != nil {
		return nil, "", "", e.checkPermission(ctx, projectID, repositoryID, err)
	}
	owner, name := github.RepositoryPath(repository)
	return client, owner, name, nil
}

// checkPermission unlinks the project from the repository when err
// says GitHub refused access, so later board activity stops producing
// tasks that cannot succeed. It returns err, wrapped when an unlink
// was attempted.
func (e *Engine) checkPermission(ctx context.Context, projectID string, repositoryID int64, err error) error {
	if !github.IsForbidden(err) {
		return err
	}
	logger := e.logger.With("project_id", projectID, "repository_id", repositoryID)
	logger.Warn("github refused access, unlinking repository", "error", err)
	result := e.Unlink(ctx, projectID, repositoryID, true, false)
	if result.Outcome != UnlinkSucceeded {
		logger.Warn("unlinking after permission loss failed", "error", result.Err())
	}
	return fmt.Errorf("access to repository %d revoked, unlinked from project %s: %w", repositoryID, projectID, err)
}

// commentBody renders a board comment as issue markdown: the signed
// comment, preceded by a signed quote of its parent when the parent
// still has an author.
func (e *Engine) commentBody(ctx context.Context, projectID, ideaID string, comment *feedback.Comment) (string, error) {
	var builder strings.Builder
	if parentID := comment.ParentID(); parentID != "" {
		parent, err := e.comments.GetComment(ctx, projectID, ideaID, parentID)
		switch {
		case errors.Is(err, feedback.ErrNotFound):
		case err != nil:
			return "", fmt.Errorf("reading parent comment %s: %w", parentID, err)
		case parent.AuthorUserID != "":
			builder.WriteString("<blockquote>")
			builder.WriteString(sign(parent.AuthorName, parent.AuthorIsMod, e.richText.Sanitize(parent.Content)))
			builder.WriteString("</blockquote>")
		}
	}
	builder.WriteString(sign(comment.AuthorName, comment.AuthorIsMod, e.richText.Sanitize(comment.Content)))

	body, err := e.richText.HTMLToMarkdown(builder.String())
	if err != nil {
		return "", fmt.Errorf("converting comment %s: %w", comment.ID, err)
	}
	return body, nil
}

// sign prefixes already-sanitized HTML with its author's name.
func sign(authorName string, isMod bool, content string) string {
	prefix := ""
	if isMod {
		prefix = "Moderator "
	}
	return prefix + "<b>" + html.EscapeString(authorName) + "</b>:" + content
}
