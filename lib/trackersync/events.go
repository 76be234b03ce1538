// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackersync

// IssueAction is the action of an "issues" webhook delivery.
// Actions trackersync does not act on parse to IssueActionUnhandled.
type IssueAction int

const (
	IssueActionUnhandled IssueAction = iota
	IssueActionOpened
	IssueActionReopened
	IssueActionClosed
	IssueActionEdited
	IssueActionDeleted
)

// ParseIssueAction maps the payload's action string.
func ParseIssueAction(action string) IssueAction {
	switch action {
	case "opened":
		return IssueActionOpened
	case "reopened":
		return IssueActionReopened
	case "closed":
		return IssueActionClosed
	case "edited":
		return IssueActionEdited
	case "deleted":
		return IssueActionDeleted
	default:
		return IssueActionUnhandled
	}
}

func (a IssueAction) String() string {
	switch a {
	case IssueActionOpened:
		return "opened"
	case IssueActionReopened:
		return "reopened"
	case IssueActionClosed:
		return "closed"
	case IssueActionEdited:
		return "edited"
	case IssueActionDeleted:
		return "deleted"
	default:
		return "unhandled"
	}
}

// CommentAction is the action of an "issue_comment" webhook delivery.
type CommentAction int

const (
	CommentActionUnhandled CommentAction = iota
	CommentActionCreated
	CommentActionEdited
	CommentActionDeleted
)

// ParseCommentAction maps the payload's action string.
func ParseCommentAction(action string) CommentAction {
	switch action {
	case "created":
		return CommentActionCreated
	case "edited":
		return CommentActionEdited
	case "deleted":
		return CommentActionDeleted
	default:
		return CommentActionUnhandled
	}
}

func (a CommentAction) String() string {
	switch a {
	case CommentActionCreated:
		return "created"
	case CommentActionEdited:
		return "edited"
	case CommentActionDeleted:
		return "deleted"
	default:
		return "unhandled"
	}
}
