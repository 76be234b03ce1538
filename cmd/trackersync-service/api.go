// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bureau-foundation/trackersync/lib/feedback"
	"github.com/bureau-foundation/trackersync/lib/trackersync"
	"github.com/bureau-foundation/trackersync/lib/workerpool"
)

// maxRequestBodySize bounds API request bodies, which are small JSON
// documents.
const maxRequestBodySize = 1 << 20

// --- Repository linking ---

type availableReposResponse struct {
	Repos []trackersync.AvailableRepo `json:"repos"`
}

// handleAvailableRepos completes the OAuth handshake for an account
// and lists the repositories it may link.
func (s *TrackerService) handleAvailableRepos(writer http.ResponseWriter, request *http.Request) {
	accountID := request.PathValue("accountId")
	code := request.URL.Query().Get("code")
	if code == "" {
		writeJSON(writer, http.StatusBadRequest, errorResponse{Error: "code is required"})
		return
	}

	logger := s.logger.With("account_id", accountID)
	repos, err := s.engine.AvailableRepos(request.Context(), accountID, code)
	if err != nil {
		writeError(writer, logger, err)
		return
	}
	if repos == nil {
		repos = []trackersync.AvailableRepo{}
	}
	logger.Info("listed linkable repositories", "count", len(repos))
	writeJSON(writer, http.StatusOK, availableReposResponse{Repos: repos})
}

type setRepositoryRequest struct {
	AccountID string `json:"accountId"`

	// RepositoryID is the repository to link. Zero unlinks.
	RepositoryID int64 `json:"repositoryId"`

	// Settings replaces the integration settings. When omitted the
	// current settings are kept with the new repository.
	Settings *feedback.Integration `json:"settings,omitempty"`
}

type setRepositoryResponse struct {
	Version string                `json:"version"`
	GitHub  *feedback.Integration `json:"github"`
}

// handleSetRepository switches the repository a project is linked to.
// GitHub is reconciled first (new webhook installed, old one removed)
// and the configuration is persisted only if that succeeds. The write
// is conditional on the version read at the start of the request.
func (s *TrackerService) handleSetRepository(writer http.ResponseWriter, request *http.Request) {
	projectID := request.PathValue("projectId")
	logger := s.logger.With("project_id", projectID)

	var body setRepositoryRequest
	decoder := json.NewDecoder(io.LimitReader(request.Body, maxRequestBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeJSON(writer, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if body.RepositoryID < 0 {
		writeJSON(writer, http.StatusBadRequest, errorResponse{Error: "repositoryId must not be negative"})
		return
	}
	if body.RepositoryID != 0 && body.AccountID == "" {
		writeJSON(writer, http.StatusBadRequest, errorResponse{Error: "accountId is required to link a repository"})
		return
	}

	project, err := s.projects.GetProject(request.Context(), projectID)
	if err != nil {
		writeStoreError(writer, logger, "project", err)
		return
	}

	next := project.Config
	switch {
	case body.RepositoryID == 0:
		next.GitHub = nil
	case body.Settings != nil:
		integration := *body.Settings
		integration.RepositoryID = body.RepositoryID
		next.GitHub = &integration
	case project.Config.GitHub != nil:
		integration := *project.Config.GitHub
		integration.RepositoryID = body.RepositoryID
		next.GitHub = &integration
	default:
		writeJSON(writer, http.StatusBadRequest, errorResponse{Error: "settings are required to link a project for the first time"})
		return
	}
	if next.GitHub != nil {
		if _, ok := next.Category(next.GitHub.CreateWithCategoryID); !ok {
			writeJSON(writer, http.StatusBadRequest, errorResponse{Error: "settings name an unknown category"})
			return
		}
	}

	if err := s.engine.ConfigChanged(request.Context(), body.AccountID, projectID, &project.Config, next); err != nil {
		writeError(writer, logger, err)
		return
	}

	updated, err := s.projects.UpdateConfig(request.Context(), projectID, project.Version, next)
	if errors.Is(err, feedback.ErrVersionMismatch) {
		s.restoreLink(request.Context(), logger, body.AccountID, projectID, next)
		writeJSON(writer, http.StatusConflict, errorResponse{Error: "project configuration changed concurrently, please retry"})
		return
	}
	if err != nil {
		writeStoreError(writer, logger, "project", err)
		return
	}

	logger.Info("project repository changed", "repository_id", body.RepositoryID)
	writeJSON(writer, http.StatusOK, setRepositoryResponse{Version: updated.Version, GitHub: updated.Config.GitHub})
}

// restoreLink moves the webhooks from the rejected configuration back
// to whatever configuration won the concurrent update.
func (s *TrackerService) restoreLink(ctx context.Context, logger *slog.Logger, accountID, projectID string, rejected feedback.Config) {
	current, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		logger.Warn("reading project to restore webhooks failed", "error", err)
		return
	}
	if err := s.engine.ConfigChanged(ctx, accountID, projectID, &rejected, current.Config); err != nil {
		logger.Warn("restoring webhooks after a conflicting update failed", "error", err)
	}
}

// --- Board notifications ---

type scheduledResponse struct {
	TaskID string `json:"taskId"`
}

// handleCommentCreated pushes a new board comment to the linked issue.
func (s *TrackerService) handleCommentCreated(writer http.ResponseWriter, request *http.Request) {
	projectID := request.PathValue("projectId")
	ideaID := request.PathValue("ideaId")
	commentID := request.PathValue("commentId")
	logger := s.logger.With("project_id", projectID, "idea_id", ideaID, "comment_id", commentID)

	project, idea, ok := s.loadIdea(writer, logger, request, projectID, ideaID)
	if !ok {
		return
	}
	comment, err := s.comments.GetComment(request.Context(), projectID, ideaID, commentID)
	if err != nil {
		writeStoreError(writer, logger, "comment", err)
		return
	}

	future := s.engine.CommentCreated(request.Context(), project, idea, comment)
	writeScheduled(writer, logger, future)
}

type statusChangedRequest struct {
	StatusChanged   bool `json:"statusChanged"`
	ResponseChanged bool `json:"responseChanged"`
}

// handleStatusChanged pushes an idea's new status and/or moderator
// response to the linked issue.
func (s *TrackerService) handleStatusChanged(writer http.ResponseWriter, request *http.Request) {
	projectID := request.PathValue("projectId")
	ideaID := request.PathValue("ideaId")
	logger := s.logger.With("project_id", projectID, "idea_id", ideaID)

	var body statusChangedRequest
	if err := json.NewDecoder(io.LimitReader(request.Body, maxRequestBodySize)).Decode(&body); err != nil {
		writeJSON(writer, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	project, idea, ok := s.loadIdea(writer, logger, request, projectID, ideaID)
	if !ok {
		return
	}

	future := s.engine.StatusAndOrResponseChanged(request.Context(), project, idea, body.StatusChanged, body.ResponseChanged)
	writeScheduled(writer, logger, future)
}

func (s *TrackerService) loadIdea(writer http.ResponseWriter, logger *slog.Logger, request *http.Request, projectID, ideaID string) (*feedback.Project, *feedback.Idea, bool) {
	project, err := s.projects.GetProject(request.Context(), projectID)
	if err != nil {
		writeStoreError(writer, logger, "project", err)
		return nil, nil, false
	}
	idea, err := s.ideas.GetIdea(request.Context(), projectID, ideaID)
	if err != nil {
		writeStoreError(writer, logger, "idea", err)
		return nil, nil, false
	}
	return project, idea, true
}

// writeScheduled answers 202 with the task ID when work was queued and
// 204 when the notification needed no GitHub update. A queued task's
// outcome is logged by the pool, not reported here.
func writeScheduled[T any](writer http.ResponseWriter, logger *slog.Logger, future *workerpool.Future[T]) {
	if future.ID == "" {
		// Futures without a task are already complete.
		if _, err := future.Wait(context.Background()); err != nil {
			if errors.Is(err, workerpool.ErrClosed) {
				writeJSON(writer, http.StatusServiceUnavailable, errorResponse{Error: "shutting down"})
				return
			}
			writeError(writer, logger, err)
			return
		}
		writer.WriteHeader(http.StatusNoContent)
		return
	}
	logger.Debug("github update scheduled", "task_id", future.ID)
	writeJSON(writer, http.StatusAccepted, scheduledResponse{TaskID: future.ID})
}
