// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package feedback defines the feedback-tracking records trackersync
// keeps in step with GitHub (projects, ideas, comments, users) and the
// store contracts it consumes them through.
//
// The stores are owned elsewhere. trackersync depends only on the
// interfaces here, matches failures with errors.Is against the
// sentinels below, and treats ErrNotFound and ErrAlreadyExists as the
// normal outcome of a redelivered webhook. The feedbackstore package
// is a SQLite implementation used by the service binary and tests.
package feedback
