// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package feedbackstore is a SQLite implementation of the feedback
// store contracts: projects, ideas, comments, and users.
//
// Project configuration is stored as a deterministic CBOR blob. Its
// version is a BLAKE3 digest of that blob, so the version changes
// exactly when the configuration does and a conditional update can
// compare versions without a separate counter.
package feedbackstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/trackersync/lib/clock"
	"github.com/bureau-foundation/trackersync/lib/codec"
	"github.com/bureau-foundation/trackersync/lib/feedback"
	"github.com/bureau-foundation/trackersync/lib/sqlitepool"
)

// Schema creates the store's tables.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
	id      TEXT PRIMARY KEY,
	version TEXT NOT NULL,
	config  BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	project_id TEXT NOT NULL,
	id         TEXT NOT NULL,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	is_mod     INTEGER NOT NULL,
	PRIMARY KEY (project_id, id)
);
CREATE TABLE IF NOT EXISTS ideas (
	project_id           TEXT NOT NULL,
	id                   TEXT NOT NULL,
	author_user_id       TEXT NOT NULL,
	author_name          TEXT NOT NULL,
	author_is_mod        INTEGER NOT NULL,
	created              INTEGER NOT NULL,
	title                TEXT NOT NULL,
	description          TEXT NOT NULL,
	category_id          TEXT NOT NULL,
	status_id            TEXT NOT NULL,
	tag_ids              BLOB,
	response             TEXT NOT NULL,
	response_author_name TEXT NOT NULL,
	github_repository_id INTEGER,
	github_issue_number  INTEGER,
	github_issue_id      INTEGER,
	github_url           TEXT,
	PRIMARY KEY (project_id, id)
);
CREATE TABLE IF NOT EXISTS comments (
	project_id         TEXT NOT NULL,
	idea_id            TEXT NOT NULL,
	id                 TEXT NOT NULL,
	parent_comment_ids BLOB,
	author_user_id     TEXT NOT NULL,
	author_name        TEXT NOT NULL,
	author_is_mod      INTEGER NOT NULL,
	created            INTEGER NOT NULL,
	edited             INTEGER,
	content            TEXT NOT NULL,
	deleted            INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (project_id, idea_id, id)
);
`

// Config holds a Store's dependencies.
type Config struct {
	// Pool must have been opened with Schema applied.
	Pool   *sqlitepool.Pool
	Clock  clock.Clock
	Logger *slog.Logger
}

// Store implements feedback.Ideas, feedback.Comments, feedback.Users,
// and feedback.Projects.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

var (
	_ feedback.Ideas    = (*Store)(nil)
	_ feedback.Comments = (*Store)(nil)
	_ feedback.Users    = (*Store)(nil)
	_ feedback.Projects = (*Store)(nil)
)

// New returns a Store. Panics if a dependency is missing.
func New(config Config) *Store {
	if config.Pool == nil {
		panic("feedbackstore: Pool is required")
	}
	if config.Clock == nil {
		panic("feedbackstore: Clock is required")
	}
	if config.Logger == nil {
		panic("feedbackstore: Logger is required")
	}
	return &Store{pool: config.Pool, clock: config.Clock, logger: config.Logger}
}

// isConstraintViolation reports whether err is a primary key clash.
func isConstraintViolation(err error) bool {
	code := sqlite.ErrCode(err)
	return code == sqlite.ResultConstraintPrimaryKey || code == sqlite.ResultConstraintUnique
}

// changed returns ErrNotFound when the last statement touched no rows.
func changed(conn *sqlite.Conn) error {
	if conn.Changes() == 0 {
		return feedback.ErrNotFound
	}
	return nil
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func unixMilli(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func timeColumn(stmt *sqlite.Stmt, column int) time.Time {
	if stmt.ColumnType(column) == sqlite.TypeNull {
		return time.Time{}
	}
	return time.UnixMilli(stmt.ColumnInt64(column)).UTC()
}

// encodeList stores a string list as a CBOR blob; nil for an empty
// list.
func encodeList(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return codec.Marshal(values)
}

func decodeList(stmt *sqlite.Stmt, column int) ([]string, error) {
	if stmt.ColumnType(column) == sqlite.TypeNull {
		return nil, nil
	}
	data := make([]byte, stmt.ColumnLen(column))
	stmt.ColumnBytes(column, data)
	var values []string
	if err := codec.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// --- Projects ---

// encodeConfig returns the stored form of a configuration and its
// version.
func encodeConfig(config feedback.Config) ([]byte, string, error) {
	data, err := codec.Marshal(config)
	if err != nil {
		return nil, "", err
	}
	digest := blake3.Sum256(data)
	return data, hex.EncodeToString(digest[:16]), nil
}

// CreateProject stores a new project. Fails with
// feedback.ErrAlreadyExists if the ID is taken.
func (s *Store) CreateProject(ctx context.Context, projectID string, config feedback.Config) (*feedback.Project, error) {
	data, version, err := encodeConfig(config)
	if err != nil {
		return nil, fmt.Errorf("encoding config for project %s: %w", projectID, err)
	}
	err = s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT INTO projects (id, version, config) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{projectID, version, data}})
	})
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("creating project %s: %w", projectID, feedback.ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("creating project %s: %w", projectID, err)
	}
	return &feedback.Project{ID: projectID, Version: version, Config: config}, nil
}

// GetProject implements feedback.Projects.
func (s *Store) GetProject(ctx context.Context, projectID string) (*feedback.Project, error) {
	var project *feedback.Project
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		project, err = getProject(conn, projectID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", projectID, err)
	}
	return project, nil
}

func getProject(conn *sqlite.Conn, projectID string) (*feedback.Project, error) {
	var project *feedback.Project
	err := sqlitex.Execute(conn, `SELECT version, config FROM projects WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{projectID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			data := make([]byte, stmt.ColumnLen(1))
			stmt.ColumnBytes(1, data)
			project = &feedback.Project{ID: projectID, Version: stmt.ColumnText(0)}
			return codec.Unmarshal(data, &project.Config)
		},
	})
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, feedback.ErrNotFound
	}
	return project, nil
}

// UpdateConfig implements feedback.Projects.
func (s *Store) UpdateConfig(ctx context.Context, projectID, expectedVersion string, config feedback.Config) (*feedback.Project, error) {
	data, version, err := encodeConfig(config)
	if err != nil {
		return nil, fmt.Errorf("encoding config for project %s: %w", projectID, err)
	}
	err = s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		current, err := getProject(conn, projectID)
		if err != nil {
			return err
		}
		if expectedVersion != "" && current.Version != expectedVersion {
			return feedback.ErrVersionMismatch
		}
		return sqlitex.Execute(conn, `UPDATE projects SET version = ?, config = ? WHERE id = ?`,
			&sqlitex.ExecOptions{Args: []any{version, data, projectID}})
	})
	if err != nil {
		return nil, fmt.Errorf("updating config of project %s: %w", projectID, err)
	}
	s.logger.Debug("project config updated", "project_id", projectID, "version", version)
	return &feedback.Project{ID: projectID, Version: version, Config: config}, nil
}

// --- Users ---

// FetchOrCreateUser implements feedback.Users. The suppliers run
// outside the write transaction since they may call GitHub.
func (s *Store) FetchOrCreateUser(ctx context.Context, projectID, userID string, email, name feedback.Supplier, isMod bool) (*feedback.User, error) {
	existing, err := s.getUser(ctx, projectID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, feedback.ErrNotFound) {
		return nil, err
	}

	user := &feedback.User{ProjectID: projectID, ID: userID, IsMod: isMod}
	if email != nil {
		user.Email = email()
	}
	if name != nil {
		user.Name = name()
	}

	err = s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO users (project_id, id, name, email, is_mod) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (project_id, id) DO NOTHING`,
			&sqlitex.ExecOptions{Args: []any{projectID, userID, user.Name, user.Email, boolInt(isMod)}})
	})
	if err != nil {
		return nil, fmt.Errorf("creating user %s in project %s: %w", userID, projectID, err)
	}
	// A concurrent creator may have won the insert.
	return s.getUser(ctx, projectID, userID)
}

func (s *Store) getUser(ctx context.Context, projectID, userID string) (*feedback.User, error) {
	var user *feedback.User
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT name, email, is_mod FROM users WHERE project_id = ? AND id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{projectID, userID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					user = &feedback.User{
						ProjectID: projectID,
						ID:        userID,
						Name:      stmt.ColumnText(0),
						Email:     stmt.ColumnText(1),
						IsMod:     stmt.ColumnBool(2),
					}
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("reading user %s in project %s: %w", userID, projectID, err)
	}
	if user == nil {
		return nil, feedback.ErrNotFound
	}
	return user, nil
}
