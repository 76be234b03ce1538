// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bureau-foundation/trackersync/lib/clock"
	"github.com/bureau-foundation/trackersync/lib/feedback"
	"github.com/bureau-foundation/trackersync/lib/github"
)

// maxWebhookBodySize is the maximum size of a webhook payload we will
// accept. GitHub's documented maximum is ~25 MB. Issue payloads are far
// smaller, but a large issue body must not be cut short.
const maxWebhookBodySize = 32 * 1024 * 1024

// deduplicationWindow is how long we track delivery IDs for replay
// protection. GitHub typically retries within minutes.
const deduplicationWindow = 1 * time.Hour

// indexingWait bounds how long a delivery waits for the store's
// follow-up indexing before it is acknowledged anyway.
const indexingWait = 10 * time.Second

// WebhookHandler processes GitHub webhook deliveries for one project
// each, addressed by the {projectId} path segment. It verifies
// HMAC-SHA256 signatures, deduplicates deliveries, and hands issue and
// issue comment events to the engine.
type WebhookHandler struct {
	secret   []byte
	engine   syncEngine
	projects feedback.Projects
	clock    clock.Clock
	logger   *slog.Logger

	// deliveries tracks recently processed delivery IDs. Keys are
	// X-GitHub-Delivery values; values are when the delivery was
	// first accepted.
	mu         sync.Mutex
	deliveries map[string]time.Time
}

// NewWebhookHandler creates a handler that verifies deliveries with
// the given secret. Panics if any argument is missing.
func NewWebhookHandler(secret []byte, engine syncEngine, projects feedback.Projects, clk clock.Clock, logger *slog.Logger) *WebhookHandler {
	if len(secret) == 0 {
		panic("WebhookHandler: secret is required")
	}
	if engine == nil {
		panic("WebhookHandler: engine is required")
	}
	if projects == nil {
		panic("WebhookHandler: projects is required")
	}
	if clk == nil {
		panic("WebhookHandler: clock is required")
	}
	if logger == nil {
		panic("WebhookHandler: logger is required")
	}
	return &WebhookHandler{
		secret:     secret,
		engine:     engine,
		projects:   projects,
		clock:      clk,
		logger:     logger,
		deliveries: make(map[string]time.Time),
	}
}

// ServeHTTP handles a single delivery. Anything GitHub should retry
// (unknown project, store failure) answers non-2xx and releases the
// delivery ID so the redelivery is processed.
func (h *WebhookHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}
	projectID := request.PathValue("projectId")

	// HMAC verification requires the raw bytes.
	body, err := io.ReadAll(io.LimitReader(request.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Error("webhook: failed to read body", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	if err := github.ValidateSignature(request.Header.Get(github.SignatureHeader), body, h.secret); err != nil {
		h.logger.Warn("webhook: signature verification failed",
			"error", err,
			"project_id", projectID,
			"remote_addr", request.RemoteAddr,
		)
		http.Error(writer, "", http.StatusUnauthorized)
		return
	}

	eventType := request.Header.Get(github.EventHeader)
	deliveryID := request.Header.Get(github.DeliveryHeader)
	if eventType == "" {
		h.logger.Warn("webhook: missing event header", "project_id", projectID)
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	logger := h.logger.With(
		"project_id", projectID,
		"event_type", eventType,
		"delivery_id", deliveryID,
	)

	if deliveryID != "" && h.isDuplicate(deliveryID) {
		logger.Debug("webhook: duplicate delivery, ignoring")
		// 200 so GitHub doesn't retry.
		writer.WriteHeader(http.StatusOK)
		return
	}

	status := h.dispatch(request.Context(), logger, projectID, eventType, body)
	if status >= http.StatusMultipleChoices && deliveryID != "" {
		h.release(deliveryID)
	}
	writer.WriteHeader(status)
}

// dispatch routes a verified delivery and returns the response status.
func (h *WebhookHandler) dispatch(ctx context.Context, logger *slog.Logger, projectID, eventType string, body []byte) int {
	var handle func(project *feedback.Project) (*feedback.Indexing, error)
	switch eventType {
	case github.EventIssues:
		event, err := github.ParseIssuesEvent(body)
		if err != nil {
			logger.Warn("webhook: malformed payload", "error", err)
			return http.StatusBadRequest
		}
		handle = func(project *feedback.Project) (*feedback.Indexing, error) {
			return h.engine.HandleIssueEvent(ctx, project, event)
		}
	case github.EventIssueComment:
		event, err := github.ParseIssueCommentEvent(body)
		if err != nil {
			logger.Warn("webhook: malformed payload", "error", err)
			return http.StatusBadRequest
		}
		handle = func(project *feedback.Project) (*feedback.Indexing, error) {
			return h.engine.HandleIssueCommentEvent(ctx, project, event, body)
		}
	case github.EventPing:
		// Sent once when the webhook is created.
		logger.Info("webhook: ping received")
		return http.StatusOK
	default:
		// Event types we never subscribe to. Acknowledge so a
		// hand-edited webhook doesn't pile up failed deliveries.
		logger.Debug("webhook: unhandled event type, ignoring")
		return http.StatusOK
	}

	project, err := h.projects.GetProject(ctx, projectID)
	if errors.Is(err, feedback.ErrNotFound) {
		logger.Warn("webhook: delivery for unknown project")
		return http.StatusNotFound
	}
	if err != nil {
		logger.Error("webhook: reading project failed", "error", err)
		return http.StatusInternalServerError
	}

	indexing, err := handle(project)
	if err != nil {
		logger.Error("webhook: handling event failed", "error", err)
		return http.StatusInternalServerError
	}

	waitCtx, cancel := context.WithTimeout(ctx, indexingWait)
	defer cancel()
	if err := indexing.Wait(waitCtx); err != nil {
		logger.Warn("webhook: indexing did not complete", "error", err)
	}
	logger.Info("webhook processed")
	return http.StatusOK
}

// isDuplicate checks and records a delivery ID. Returns true if the
// delivery was already accepted within the deduplication window.
// Prunes expired entries on every call.
func (h *WebhookHandler) isDuplicate(deliveryID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	for id, receivedAt := range h.deliveries {
		if now.Sub(receivedAt) > deduplicationWindow {
			delete(h.deliveries, id)
		}
	}

	if _, exists := h.deliveries[deliveryID]; exists {
		return true
	}
	h.deliveries[deliveryID] = now
	return false
}

// release forgets a delivery so that GitHub's redelivery of it is
// processed.
func (h *WebhookHandler) release(deliveryID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.deliveries, deliveryID)
}
