// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bureau-foundation/trackersync/lib/feedback"
	"github.com/bureau-foundation/trackersync/lib/github"
	"github.com/bureau-foundation/trackersync/lib/trackersync"
	"github.com/bureau-foundation/trackersync/lib/workerpool"
)

// syncEngine is the part of *trackersync.Engine the HTTP surfaces
// drive.
type syncEngine interface {
	HandleIssueEvent(ctx context.Context, project *feedback.Project, event *github.IssuesEvent) (*feedback.Indexing, error)
	HandleIssueCommentEvent(ctx context.Context, project *feedback.Project, event *github.IssueCommentEvent, raw []byte) (*feedback.Indexing, error)

	AvailableRepos(ctx context.Context, accountID, code string) ([]trackersync.AvailableRepo, error)
	ConfigChanged(ctx context.Context, accountID, projectID string, previous *feedback.Config, next feedback.Config) error

	CommentCreated(ctx context.Context, project *feedback.Project, idea *feedback.Idea, comment *feedback.Comment) *workerpool.Future[*github.IssueComment]
	StatusAndOrResponseChanged(ctx context.Context, project *feedback.Project, idea *feedback.Idea, statusChanged, responseChanged bool) *workerpool.Future[*trackersync.StatusAndResponse]
}

var _ syncEngine = (*trackersync.Engine)(nil)

type ideaReader interface {
	GetIdea(ctx context.Context, projectID, ideaID string) (*feedback.Idea, error)
}

type commentReader interface {
	GetComment(ctx context.Context, projectID, ideaID, commentID string) (*feedback.Comment, error)
}

// TrackerService serves the repository linking API and the board
// notification endpoints.
type TrackerService struct {
	engine   syncEngine
	projects feedback.Projects
	ideas    ideaReader
	comments commentReader
	logger   *slog.Logger
}

func (s *TrackerService) routes(webhook http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST "+trackersync.WebhookPath("{projectId}"), webhook)
	mux.HandleFunc("POST /api/v1/account/{accountId}/github/repos", s.handleAvailableRepos)
	mux.HandleFunc("PUT /api/v1/project/{projectId}/github/repository", s.handleSetRepository)
	mux.HandleFunc("POST /api/v1/project/{projectId}/idea/{ideaId}/comment/{commentId}/github", s.handleCommentCreated)
	mux.HandleFunc("POST /api/v1/project/{projectId}/idea/{ideaId}/github/status", s.handleStatusChanged)
	mux.HandleFunc("GET /healthz", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	return mux
}

// --- Responses ---

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

// writeError maps a trackersync.Kind to a status code. Only the
// classified message reaches the client; the cause is logged.
func writeError(writer http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	switch trackersync.KindOf(err) {
	case trackersync.Unavailable:
		status = http.StatusServiceUnavailable
	case trackersync.Unauthorized:
		status = http.StatusUnauthorized
	case trackersync.Forbidden:
		status = http.StatusForbidden
	case trackersync.BadRequest:
		status = http.StatusBadRequest
	}

	message := "internal error"
	var classified *trackersync.Error
	if errors.As(err, &classified) {
		message = classified.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}
	writeJSON(writer, status, errorResponse{Error: message})
}

// writeStoreError answers a failed store read: 404 for a missing
// record, 500 otherwise.
func writeStoreError(writer http.ResponseWriter, logger *slog.Logger, what string, err error) {
	if errors.Is(err, feedback.ErrNotFound) {
		writeJSON(writer, http.StatusNotFound, errorResponse{Error: what + " not found"})
		return
	}
	logger.Error("reading "+what+" failed", "error", err)
	writeJSON(writer, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
