// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// trackersync service. Keeps feedback board projects in step with the
// GitHub repositories they are linked to.
//
// One HTTP listener carries three surfaces:
//   - Webhook ingestion from GitHub (HMAC-SHA256 verified, deduplicated
//     by delivery ID): issue and issue comment events become ideas and
//     comments on the linked project.
//   - Repository linking: the OAuth handshake that lists the
//     repositories a board account may link, and the endpoint that
//     switches a project's linked repository.
//   - Board notifications: the board reports new comments and
//     status/response changes, which are pushed to the linked issue on
//     the worker pool.
//
// Configuration comes from a YAML file named by --config or
// TRACKERSYNC_CONFIG; see lib/config.
package main
