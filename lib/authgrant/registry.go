// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package authgrant records which GitHub repositories an account may
// link, as discovered during the OAuth handshake, for a limited time.
//
// A grant proves only that, when it was issued, the account could see
// the repository through an installation of the GitHub App. It is not
// re-verified: the GitHub call that consumes it performs the live
// permission check. Expiry is enforced when a grant is read. Expired
// rows stay on disk until Reclaim deletes them, and a read never
// returns one in the meantime.
package authgrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/trackersync/lib/clock"
	"github.com/bureau-foundation/trackersync/lib/sqlitepool"
)

// Schema creates the grant table. Pass it (possibly joined with other
// schemas) as sqlitepool.Config.Schema.
const Schema = `
CREATE TABLE IF NOT EXISTS github_grants (
	account_id      TEXT    NOT NULL,
	repository_id   INTEGER NOT NULL,
	installation_id INTEGER NOT NULL,
	expires_at      INTEGER NOT NULL,
	PRIMARY KEY (account_id, repository_id)
);
CREATE INDEX IF NOT EXISTS idx_github_grants_expiry ON github_grants(expires_at);
`

// DefaultTTL is how long a grant stays valid unless configured
// otherwise.
const DefaultTTL = 24 * time.Hour

// batchSize bounds the rows written per transaction.
const batchSize = 25

// ErrNotFound is returned by Grant when there is no unexpired grant.
var ErrNotFound = errors.New("authgrant: no unexpired grant")

// Grant is an account's time-limited permission to link a repository.
type Grant struct {
	AccountID      string
	RepositoryID   int64
	InstallationID int64

	// Expiry has one-second resolution.
	Expiry time.Time
}

// Config holds a Registry's dependencies.
type Config struct {
	// Pool must have been opened with Schema applied.
	Pool *sqlitepool.Pool

	Clock  clock.Clock
	Logger *slog.Logger
}

// Registry stores grants.
type Registry struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// New returns a Registry. Panics if a dependency is missing.
func New(config Config) *Registry {
	if config.Pool == nil {
		panic("authgrant: Pool is required")
	}
	if config.Clock == nil {
		panic("authgrant: Clock is required")
	}
	if config.Logger == nil {
		panic("authgrant: Logger is required")
	}
	return &Registry{pool: config.Pool, clock: config.Clock, logger: config.Logger}
}

// RecordGrants writes one grant per repository, each expiring ttl from
// now. repoToInstallation maps repository ID to the installation that
// exposes it. An empty map writes nothing.
//
// Rows are written in batches, one transaction per batch. A failed
// batch does not undo the batches before it; the returned error says
// how many grants were written.
func (r *Registry) RecordGrants(ctx context.Context, accountID string, repoToInstallation map[int64]int64, ttl time.Duration) error {
	if len(repoToInstallation) == 0 {
		return nil
	}

	expiresAt := r.clock.Now().Add(ttl).Unix()
	repositoryIDs := slices.Sorted(maps.Keys(repoToInstallation))

	written := 0
	for batch := range slices.Chunk(repositoryIDs, batchSize) {
		err := r.pool.Write(ctx, func(conn *sqlite.Conn) error {
			for _, repositoryID := range batch {
				err := sqlitex.Execute(conn, `
					INSERT INTO github_grants (account_id, repository_id, installation_id, expires_at)
					VALUES (?, ?, ?, ?)
					ON CONFLICT (account_id, repository_id) DO UPDATE SET
						installation_id = excluded.installation_id,
						expires_at = excluded.expires_at`,
					&sqlitex.ExecOptions{
						Args: []any{accountID, repositoryID, repoToInstallation[repositoryID], expiresAt},
					})
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("recording grants for account %s (%d of %d written): %w",
				accountID, written, len(repositoryIDs), err)
		}
		written += len(batch)
	}

	r.logger.Info("github grants recorded",
		"account_id", accountID,
		"repositories", written,
		"expires_at", time.Unix(expiresAt, 0).UTC(),
	)
	return nil
}

// Grant returns the account's grant for a repository. It returns
// ErrNotFound if there is none or if it expired before now, whether or
// not Reclaim has removed it yet.
func (r *Registry) Grant(ctx context.Context, accountID string, repositoryID int64) (Grant, error) {
	var grant Grant
	found := false

	err := r.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT installation_id, expires_at FROM github_grants
			WHERE account_id = ? AND repository_id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{accountID, repositoryID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					found = true
					grant = Grant{
						AccountID:      accountID,
						RepositoryID:   repositoryID,
						InstallationID: stmt.ColumnInt64(0),
						Expiry:         time.Unix(stmt.ColumnInt64(1), 0).UTC(),
					}
					return nil
				},
			})
	})
	if err != nil {
		return Grant{}, fmt.Errorf("reading grant for account %s repository %d: %w", accountID, repositoryID, err)
	}
	if !found {
		return Grant{}, ErrNotFound
	}
	if grant.Expiry.Unix() < r.clock.Now().Unix() {
		r.logger.Debug("github grant expired",
			"account_id", accountID,
			"repository_id", repositoryID,
			"expired_at", grant.Expiry,
		)
		return Grant{}, ErrNotFound
	}
	return grant, nil
}

// Reclaim deletes every expired grant and returns how many it removed.
func (r *Registry) Reclaim(ctx context.Context) (int, error) {
	var removed int
	err := r.pool.Write(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `DELETE FROM github_grants WHERE expires_at < ?`, &sqlitex.ExecOptions{
			Args: []any{r.clock.Now().Unix()},
		}); err != nil {
			return err
		}
		removed = conn.Changes()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reclaiming expired grants: %w", err)
	}
	return removed, nil
}

// RunReclaimer calls Reclaim every interval until ctx ends.
func (r *Registry) RunReclaimer(ctx context.Context, interval time.Duration) {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := r.Reclaim(ctx)
			if err != nil {
				r.logger.Warn("grant reclamation failed", "error", err)
				continue
			}
			if removed > 0 {
				r.logger.Info("expired github grants reclaimed", "removed", removed)
			}
		}
	}
}
