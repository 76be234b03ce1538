// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the HTTP listener the trackersync service
// runs behind.
//
// [HTTPServer] owns the TCP listener and graceful shutdown; the caller
// provides the http.Handler (routing, signature verification, payload
// processing). Serve blocks until its context is cancelled, drains
// in-flight requests, then runs the configured Drain hook so
// background work started by those requests (outbound GitHub updates
// on the worker pool) gets a bounded chance to finish before the
// process exits.
package service
