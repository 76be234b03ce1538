// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the
// trackersync service.
//
// Configuration is loaded from a single file specified by either the
// TRACKERSYNC_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search.
//
// The file may carry environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production turns debug logging off
// unless the file says otherwise.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${TRACKERSYNC_ROOT}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Secrets never appear in the file itself. The file names the files
// holding them and [ReadSecret] loads each one.
//
// Key exports:
//
//   - [Config] -- master struct with Server, Database, GitHub, Pool, Logging
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other trackersync packages.
package config
