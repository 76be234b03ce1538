// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package github is the tracker client layer for trackersync. It wraps
// go-github with the handful of REST calls the sync engine makes
// (users, app installations, repositories, webhooks, issues, labels)
// and classifies failures into *APIError values that callers test with
// IsNotFound, IsForbidden and IsRateLimited.
//
// Authentication is layered on top: a Provider hands out clients
// authenticated as the GitHub App (JWT) or as one of its installations
// (short-lived installation tokens via ghinstallation), caching
// installation clients in a bounded TTL cache. OAuth exchanges a user
// authorization code for a user-scoped client.
//
// Every base URL must use HTTPS.
package github
