// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for trackersync
// packages.
//
// [RequireReceive], [RequireClosed], and [Eventually]
// encapsulate the timeout safety valve pattern (select with time.After
// fallback) so that individual tests do not need direct time.After
// calls. These are the only place in the test suite where real
// wall-clock timeouts are used; everything that expires, retires, or
// sweeps in production code runs on an injected lib/clock and is
// driven by a fake clock in tests.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation. Use it instead of time.Now() when tests need unique
// webhook delivery IDs, project IDs, or message bodies.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no trackersync-internal dependencies.
package testutil
