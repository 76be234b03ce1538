// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package feedback

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports that the addressed record does not exist.
	ErrNotFound = errors.New("feedback: not found")

	// ErrAlreadyExists reports a create of an ID that is taken.
	ErrAlreadyExists = errors.New("feedback: already exists")

	// ErrVersionMismatch reports a conditional configuration update
	// whose expected version is stale.
	ErrVersionMismatch = errors.New("feedback: configuration version mismatch")
)

// Ideas stores ideas.
type Ideas interface {
	// CreateIdea fails with ErrAlreadyExists if the ID is taken.
	CreateIdea(ctx context.Context, idea Idea) (*Indexing, error)

	// GetIdea fails with ErrNotFound if the idea does not exist.
	GetIdea(ctx context.Context, projectID, ideaID string) (*Idea, error)

	// UpdateIdea fails with ErrNotFound if the idea does not exist.
	UpdateIdea(ctx context.Context, projectID, ideaID string, update IdeaUpdate) (*Indexing, error)

	// DeleteIdea fails with ErrNotFound if the idea does not exist.
	DeleteIdea(ctx context.Context, projectID, ideaID string) (*Indexing, error)
}

// Comments stores comments.
type Comments interface {
	CreateComment(ctx context.Context, comment Comment) (*Indexing, error)
	GetComment(ctx context.Context, projectID, ideaID, commentID string) (*Comment, error)
	UpdateComment(ctx context.Context, projectID, ideaID, commentID string, edited time.Time, update CommentUpdate) (*Indexing, error)

	// MarkCommentDeleted blanks the comment but keeps its place in the
	// thread. Fails with ErrNotFound if the comment does not exist.
	MarkCommentDeleted(ctx context.Context, projectID, ideaID, commentID string) (*Indexing, error)
}

// Supplier lazily produces an optional profile field. It returns ""
// when the value is unknown or could not be fetched.
type Supplier func() string

// Users stores project members.
type Users interface {
	// FetchOrCreateUser returns the user with the given ID, creating
	// it if absent. The suppliers run only when the user is created.
	FetchOrCreateUser(ctx context.Context, projectID, userID string, email, name Supplier, isMod bool) (*User, error)
}

// Projects stores project configuration.
type Projects interface {
	// GetProject fails with ErrNotFound if the project does not exist.
	GetProject(ctx context.Context, projectID string) (*Project, error)

	// UpdateConfig replaces the configuration. A non-empty
	// expectedVersion makes the write conditional: it fails with
	// ErrVersionMismatch unless the stored version still matches. An
	// empty expectedVersion overwrites unconditionally.
	UpdateConfig(ctx context.Context, projectID, expectedVersion string, config Config) (*Project, error)
}

// RichText converts between GitHub markdown and the HTML ideas and
// comments are stored as.
type RichText interface {
	MarkdownToHTML(markdown string) (string, error)
	HTMLToMarkdown(html string) (string, error)

	// Sanitize strips markup that must never leave the system (scripts,
	// event handlers, unknown elements) from stored HTML.
	Sanitize(html string) string
}
