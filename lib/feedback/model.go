// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package feedback

import (
	"slices"
	"time"
)

// Project is a feedback board together with its versioned
// configuration. Version changes whenever Config changes.
type Project struct {
	ID      string
	Version string
	Config  Config
}

// Config is a project's administrator configuration.
type Config struct {
	Name       string       `json:"name"`
	Categories []Category   `json:"categories,omitempty"`
	GitHub     *Integration `json:"github,omitempty"`
}

// Category returns the category with the given ID.
func (c *Config) Category(categoryID string) (*Category, bool) {
	for index := range c.Categories {
		if c.Categories[index].ID == categoryID {
			return &c.Categories[index], true
		}
	}
	return nil, false
}

// Status looks up a status through its category's workflow.
func (c *Config) Status(categoryID, statusID string) (*Status, bool) {
	category, ok := c.Category(categoryID)
	if !ok {
		return nil, false
	}
	return category.Workflow.Status(statusID)
}

// Category groups ideas that share a workflow.
type Category struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Workflow Workflow `json:"workflow"`
}

// Workflow is the ordered set of statuses an idea in a category moves
// through.
type Workflow struct {
	// EntryStatus is the status new ideas start in when nothing else
	// says otherwise. Empty means no status.
	EntryStatus string   `json:"entryStatus,omitempty"`
	Statuses    []Status `json:"statuses,omitempty"`
}

// Status returns the workflow status with the given ID.
func (w *Workflow) Status(statusID string) (*Status, bool) {
	for index := range w.Statuses {
		if w.Statuses[index].ID == statusID {
			return &w.Statuses[index], true
		}
	}
	return nil, false
}

// StatusNames returns the display names of every status in the
// workflow.
func (w *Workflow) StatusNames() []string {
	names := make([]string, 0, len(w.Statuses))
	for _, status := range w.Statuses {
		names = append(names, status.Name)
	}
	return names
}

// Status is one step of a workflow.
type Status struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Color is a CSS color, normally "#rrggbb". Optional.
	Color string `json:"color,omitempty"`
}

// Integration links a project to one GitHub repository.
type Integration struct {
	RepositoryID int64 `json:"repositoryId"`

	// CreateWithCategoryID is the category issues become ideas in.
	CreateWithCategoryID string   `json:"createWithCategoryId"`
	CreateWithTags       []string `json:"createWithTags,omitempty"`

	// InitialStatusID overrides the category's entry status for ideas
	// created from issues.
	InitialStatusID string `json:"initialStatusId,omitempty"`

	// StatusSync is nil when statuses are not synchronized.
	StatusSync *StatusSync `json:"statusSync,omitempty"`

	CommentSync  bool `json:"commentSync,omitempty"`
	ResponseSync bool `json:"responseSync,omitempty"`
}

// StatusSync maps between idea statuses and the open/closed state of
// the linked issue.
type StatusSync struct {
	// OpenStatus is applied when an issue is reopened. Empty means
	// reopening leaves the status alone.
	OpenStatus string `json:"openStatus,omitempty"`

	// ClosedStatus is applied when an issue is closed.
	ClosedStatus string `json:"closedStatus,omitempty"`

	// ClosedStatuses lists the statuses under which the issue should
	// be closed. When empty, status changes never open or close the
	// issue.
	ClosedStatuses []string `json:"closedStatuses,omitempty"`
}

// IsClosedStatus reports whether statusID is one of the closed
// statuses.
func (s *StatusSync) IsClosedStatus(statusID string) bool {
	return slices.Contains(s.ClosedStatuses, statusID)
}

// ExternalIssue records the GitHub issue an idea was created from.
type ExternalIssue struct {
	RepositoryID int64
	IssueNumber  int
	IssueID      int64
	URL          string
}

// Idea is a feedback post. Description and Response are HTML.
type Idea struct {
	ProjectID    string
	ID           string
	AuthorUserID string
	AuthorName   string
	AuthorIsMod  bool
	Created      time.Time

	Title       string
	Description string
	CategoryID  string
	StatusID    string
	TagIDs      []string

	Response           string
	ResponseAuthorName string

	// External is nil for ideas that did not come from GitHub.
	External *ExternalIssue
}

// IdeaUpdate names the fields to change. Nil fields are left alone.
type IdeaUpdate struct {
	Title              *string
	Description        *string
	StatusID           *string
	Response           *string
	ResponseAuthorName *string
}

// IsEmpty reports whether the update changes nothing.
func (u IdeaUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.StatusID == nil &&
		u.Response == nil && u.ResponseAuthorName == nil
}

// Comment is a reply on an idea. Content is HTML.
type Comment struct {
	ProjectID string
	IdeaID    string
	ID        string

	// ParentCommentIDs is the ancestor chain, root first. The
	// immediate parent is the last element.
	ParentCommentIDs []string

	AuthorUserID string
	AuthorName   string
	AuthorIsMod  bool
	Created      time.Time
	Edited       time.Time
	Content      string
	Deleted      bool
}

// ParentID returns the immediate parent's ID, or "" for a top-level
// comment.
func (c *Comment) ParentID() string {
	if len(c.ParentCommentIDs) == 0 {
		return ""
	}
	return c.ParentCommentIDs[len(c.ParentCommentIDs)-1]
}

// CommentUpdate replaces a comment's content.
type CommentUpdate struct {
	Content string
}

// User is a project member.
type User struct {
	ProjectID string
	ID        string
	Name      string
	Email     string
	IsMod     bool
}
