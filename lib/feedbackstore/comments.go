// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package feedbackstore

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/trackersync/lib/feedback"
)

// CreateComment implements feedback.Comments.
func (s *Store) CreateComment(ctx context.Context, comment feedback.Comment) (*feedback.Indexing, error) {
	parents, err := encodeList(comment.ParentCommentIDs)
	if err != nil {
		return nil, fmt.Errorf("encoding parents of comment %s: %w", comment.ID, err)
	}
	created := comment.Created
	if created.IsZero() {
		created = s.clock.Now()
	}

	err = s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO comments (project_id, idea_id, id, parent_comment_ids, author_user_id,
				author_name, author_is_mod, created, edited, content, deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				comment.ProjectID, comment.IdeaID, comment.ID, parents, comment.AuthorUserID,
				comment.AuthorName, boolInt(comment.AuthorIsMod), created.UnixMilli(),
				unixMilli(comment.Edited), comment.Content, boolInt(comment.Deleted),
			}})
	})
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("creating comment %s: %w", comment.ID, feedback.ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("creating comment %s: %w", comment.ID, err)
	}
	return feedback.Indexed(nil), nil
}

// GetComment implements feedback.Comments.
func (s *Store) GetComment(ctx context.Context, projectID, ideaID, commentID string) (*feedback.Comment, error) {
	var comment *feedback.Comment
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT parent_comment_ids, author_user_id, author_name, author_is_mod,
				created, edited, content, deleted
			FROM comments WHERE project_id = ? AND idea_id = ? AND id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{projectID, ideaID, commentID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					parents, err := decodeList(stmt, 0)
					if err != nil {
						return err
					}
					comment = &feedback.Comment{
						ProjectID:        projectID,
						IdeaID:           ideaID,
						ID:               commentID,
						ParentCommentIDs: parents,
						AuthorUserID:     stmt.ColumnText(1),
						AuthorName:       stmt.ColumnText(2),
						AuthorIsMod:      stmt.ColumnBool(3),
						Created:          timeColumn(stmt, 4),
						Edited:           timeColumn(stmt, 5),
						Content:          stmt.ColumnText(6),
						Deleted:          stmt.ColumnBool(7),
					}
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("reading comment %s: %w", commentID, err)
	}
	if comment == nil {
		return nil, fmt.Errorf("reading comment %s: %w", commentID, feedback.ErrNotFound)
	}
	return comment, nil
}

// UpdateComment implements feedback.Comments.
func (s *Store) UpdateComment(ctx context.Context, projectID, ideaID, commentID string, edited time.Time, update feedback.CommentUpdate) (*feedback.Indexing, error) {
	if edited.IsZero() {
		edited = s.clock.Now()
	}
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `
			UPDATE comments SET content = ?, edited = ?
			WHERE project_id = ? AND idea_id = ? AND id = ? AND deleted = 0`,
			&sqlitex.ExecOptions{Args: []any{update.Content, edited.UnixMilli(), projectID, ideaID, commentID}}); err != nil {
			return err
		}
		return changed(conn)
	})
	if err != nil {
		return nil, fmt.Errorf("updating comment %s: %w", commentID, err)
	}
	return feedback.Indexed(nil), nil
}

// MarkCommentDeleted implements feedback.Comments. The author and
// content are cleared; the row stays so replies keep their parent.
func (s *Store) MarkCommentDeleted(ctx context.Context, projectID, ideaID, commentID string) (*feedback.Indexing, error) {
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `
			UPDATE comments SET deleted = 1, content = '', author_user_id = '', author_name = '', edited = ?
			WHERE project_id = ? AND idea_id = ? AND id = ?`,
			&sqlitex.ExecOptions{Args: []any{s.clock.Now().UnixMilli(), projectID, ideaID, commentID}}); err != nil {
			return err
		}
		return changed(conn)
	})
	if err != nil {
		return nil, fmt.Errorf("deleting comment %s: %w", commentID, err)
	}
	return feedback.Indexed(nil), nil
}
