// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity derives internal record IDs from GitHub
// identifiers. The mapping is never stored: every webhook handler
// recomputes it, so a redelivered event lands on the record the first
// delivery created, and a create of an already-handled issue fails
// with an "already exists" condition instead of duplicating it.
//
// Idea and comment IDs are BLAKE3 keyed hashes. Each input integer is
// written as a fixed-width 8-byte big-endian field, so no two distinct
// input tuples share an encoding and no separator is needed. Each kind
// of ID hashes under its own domain key, so an idea and a comment can
// never share an ID even when their inputs coincide.
package identity

import (
	"encoding/base32"
	"encoding/binary"
	"strconv"

	"github.com/zeebo/blake3"
)

// Prefix marks every ID derived from a GitHub identifier.
const Prefix = "gh-"

// digestSize is the number of hash bytes kept. 160 bits leaves
// collisions out of reach for any realistic number of issues.
const digestSize = 20

type domainKey [32]byte

// The keys are the ASCII domain names, zero-padded to 32 bytes.
// Changing one re-keys every existing record in that domain.
var (
	ideaDomainKey = domainKey{
		't', 'r', 'a', 'c', 'k', 'e', 'r', 's', 'y', 'n', 'c', '.',
		'g', 'i', 't', 'h', 'u', 'b', '.', 'i', 's', 's', 'u', 'e',
	}

	commentDomainKey = domainKey{
		't', 'r', 'a', 'c', 'k', 'e', 'r', 's', 'y', 'n', 'c', '.',
		'g', 'i', 't', 'h', 'u', 'b', '.', 'c', 'o', 'm', 'm', 'e', 'n', 't',
	}
)

var encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// IdeaID returns the idea ID for a GitHub issue. The issue number and
// the issue's global ID are both part of the key, as is the repository,
// so a transferred issue that keeps its number maps to a new idea.
func IdeaID(issueNumber int, issueID, repositoryID int64) string {
	var fields [24]byte
	binary.BigEndian.PutUint64(fields[0:8], uint64(issueNumber))
	binary.BigEndian.PutUint64(fields[8:16], uint64(issueID))
	binary.BigEndian.PutUint64(fields[16:24], uint64(repositoryID))
	return derive(ideaDomainKey, fields[:])
}

// CommentID returns the comment ID for a GitHub issue comment.
func CommentID(commentID int64) string {
	var field [8]byte
	binary.BigEndian.PutUint64(field[:], uint64(commentID))
	return derive(commentDomainKey, field[:])
}

// UserID returns the internal user ID for a GitHub account. User IDs
// stay readable since operators look them up by GitHub account ID.
func UserID(githubUserID int64) string {
	return Prefix + strconv.FormatInt(githubUserID, 10)
}

func derive(key domainKey, data []byte) string {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("identity: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest [digestSize]byte
	hasher.Digest().Read(digest[:])
	return Prefix + encoding.EncodeToString(digest[:])
}
