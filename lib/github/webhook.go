// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"fmt"

	gh "github.com/google/go-github/v57/github"
)

// Webhook delivery headers.
const (
	EventHeader     = "X-GitHub-Event"
	DeliveryHeader  = "X-GitHub-Delivery"
	SignatureHeader = "X-Hub-Signature-256"
)

// Webhook event types trackersync subscribes to or tolerates.
const (
	EventIssues       = "issues"
	EventIssueComment = "issue_comment"
	EventPing         = "ping"
)

// ValidateSignature checks a delivery's "sha256=<hex>" signature
// header against the payload and the shared secret in constant time.
func ValidateSignature(signature string, payload, secret []byte) error {
	if signature == "" {
		return fmt.Errorf("github: missing %s header", SignatureHeader)
	}
	if err := gh.ValidateSignature(signature, payload, secret); err != nil {
		return fmt.Errorf("github: %w", err)
	}
	return nil
}

// ParseIssuesEvent decodes an "issues" delivery.
func ParseIssuesEvent(payload []byte) (*IssuesEvent, error) {
	event, err := gh.ParseWebHook(EventIssues, payload)
	if err != nil {
		return nil, fmt.Errorf("parsing issues event: %w", err)
	}
	return event.(*IssuesEvent), nil
}

// ParseIssueCommentEvent decodes an "issue_comment" delivery.
func ParseIssueCommentEvent(payload []byte) (*IssueCommentEvent, error) {
	event, err := gh.ParseWebHook(EventIssueComment, payload)
	if err != nil {
		return nil, fmt.Errorf("parsing issue_comment event: %w", err)
	}
	return event.(*IssueCommentEvent), nil
}
