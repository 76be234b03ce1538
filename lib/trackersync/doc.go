// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trackersync keeps a project's feedback board (ideas,
// comments, statuses) and its linked GitHub repository consistent in
// both directions.
//
// Inbound, HandleIssueEvent and HandleIssueCommentEvent translate one
// webhook delivery into at most one store mutation. Idea and comment
// IDs are derived from the GitHub identifiers (lib/identity), so a
// redelivered event addresses the same record and replays are
// harmless: duplicate creates and deletes of missing records are
// swallowed.
//
// Outbound, CommentCreated and StatusAndOrResponseChanged run on the
// worker pool and return a Future. A 403 from GitHub means the app lost
// access to the repository: the project is unlinked and the task fails.
//
// Linking is user-initiated. AvailableRepos performs the OAuth
// handshake and records short-lived grants; ConfigChanged consumes a
// grant to Link the new repository and Unlinks the old one.
//
// The engine shares no locks with the stores it writes to. Inbound and
// outbound traffic for the same idea may interleave; the stores apply
// field-level last-write-wins.
package trackersync
