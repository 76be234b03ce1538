// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package feedbackstore

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/trackersync/lib/feedback"
)

const ideaColumns = `id, author_user_id, author_name, author_is_mod, created, title,
	description, category_id, status_id, tag_ids, response, response_author_name,
	github_repository_id, github_issue_number, github_issue_id, github_url`

// CreateIdea implements feedback.Ideas.
func (s *Store) CreateIdea(ctx context.Context, idea feedback.Idea) (*feedback.Indexing, error) {
	tags, err := encodeList(idea.TagIDs)
	if err != nil {
		return nil, fmt.Errorf("encoding tags of idea %s: %w", idea.ID, err)
	}
	created := idea.Created
	if created.IsZero() {
		created = s.clock.Now()
	}

	var repositoryID, issueNumber, issueID, url any
	if external := idea.External; external != nil {
		repositoryID, issueNumber, issueID, url = external.RepositoryID, external.IssueNumber, external.IssueID, external.URL
	}

	err = s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT INTO ideas (project_id, `+ideaColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				idea.ProjectID, idea.ID, idea.AuthorUserID, idea.AuthorName, boolInt(idea.AuthorIsMod),
				created.UnixMilli(), idea.Title, idea.Description, idea.CategoryID, idea.StatusID,
				tags, idea.Response, idea.ResponseAuthorName,
				repositoryID, issueNumber, issueID, url,
			}})
	})
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("creating idea %s: %w", idea.ID, feedback.ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("creating idea %s: %w", idea.ID, err)
	}
	return feedback.Indexed(nil), nil
}

// GetIdea implements feedback.Ideas.
func (s *Store) GetIdea(ctx context.Context, projectID, ideaID string) (*feedback.Idea, error) {
	ideas, err := s.queryIdeas(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE project_id = ? AND id = ?`, projectID, ideaID)
	if err != nil {
		return nil, fmt.Errorf("reading idea %s: %w", ideaID, err)
	}
	if len(ideas) == 0 {
		return nil, fmt.Errorf("reading idea %s: %w", ideaID, feedback.ErrNotFound)
	}
	return &ideas[0], nil
}

// ListIdeas returns every idea in a project, oldest first.
func (s *Store) ListIdeas(ctx context.Context, projectID string) ([]feedback.Idea, error) {
	ideas, err := s.queryIdeas(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE project_id = ? ORDER BY created, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing ideas of project %s: %w", projectID, err)
	}
	return ideas, nil
}

func (s *Store) queryIdeas(ctx context.Context, query, projectID string, args ...any) ([]feedback.Idea, error) {
	var ideas []feedback.Idea
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: append([]any{projectID}, args...),
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tags, err := decodeList(stmt, 9)
				if err != nil {
					return err
				}
				idea := feedback.Idea{
					ProjectID:          projectID,
					ID:                 stmt.ColumnText(0),
					AuthorUserID:       stmt.ColumnText(1),
					AuthorName:         stmt.ColumnText(2),
					AuthorIsMod:        stmt.ColumnBool(3),
					Created:            timeColumn(stmt, 4),
					Title:              stmt.ColumnText(5),
					Description:        stmt.ColumnText(6),
					CategoryID:         stmt.ColumnText(7),
					StatusID:           stmt.ColumnText(8),
					TagIDs:             tags,
					Response:           stmt.ColumnText(10),
					ResponseAuthorName: stmt.ColumnText(11),
				}
				if stmt.ColumnType(12) != sqlite.TypeNull {
					idea.External = &feedback.ExternalIssue{
						RepositoryID: stmt.ColumnInt64(12),
						IssueNumber:  stmt.ColumnInt(13),
						IssueID:      stmt.ColumnInt64(14),
						URL:          stmt.ColumnText(15),
					}
				}
				ideas = append(ideas, idea)
				return nil
			},
		})
	})
	return ideas, err
}

// UpdateIdea implements feedback.Ideas.
func (s *Store) UpdateIdea(ctx context.Context, projectID, ideaID string, update feedback.IdeaUpdate) (*feedback.Indexing, error) {
	assignments := []struct {
		column string
		value  *string
	}{
		{"title", update.Title},
		{"description", update.Description},
		{"status_id", update.StatusID},
		{"response", update.Response},
		{"response_author_name", update.ResponseAuthorName},
	}

	query := "UPDATE ideas SET "
	var args []any
	for _, assignment := range assignments {
		if assignment.value == nil {
			continue
		}
		if len(args) > 0 {
			query += ", "
		}
		query += assignment.column + " = ?"
		args = append(args, *assignment.value)
	}
	if len(args) == 0 {
		// Nothing to write, but the idea must still exist.
		if _, err := s.GetIdea(ctx, projectID, ideaID); err != nil {
			return nil, err
		}
		return feedback.Indexed(nil), nil
	}
	query += " WHERE project_id = ? AND id = ?"
	args = append(args, projectID, ideaID)

	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
			return err
		}
		return changed(conn)
	})
	if err != nil {
		return nil, fmt.Errorf("updating idea %s: %w", ideaID, err)
	}
	return feedback.Indexed(nil), nil
}

// DeleteIdea implements feedback.Ideas. The idea's comments go with
// it.
func (s *Store) DeleteIdea(ctx context.Context, projectID, ideaID string) (*feedback.Indexing, error) {
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `DELETE FROM ideas WHERE project_id = ? AND id = ?`,
			&sqlitex.ExecOptions{Args: []any{projectID, ideaID}}); err != nil {
			return err
		}
		if err := changed(conn); err != nil {
			return err
		}
		return sqlitex.Execute(conn, `DELETE FROM comments WHERE project_id = ? AND idea_id = ?`,
			&sqlitex.ExecOptions{Args: []any{projectID, ideaID}})
	})
	if err != nil {
		return nil, fmt.Errorf("deleting idea %s: %w", ideaID, err)
	}
	return feedback.Indexed(nil), nil
}
