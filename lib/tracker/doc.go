// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracker is the issue tracker gateway used by task
// synchronization.
//
// [Gateway] is the contract. Two adapters implement it against GitHub:
// [CLI] shells out to the gh command, which reuses the user's existing
// gh login, and [REST] talks to the REST API through lib/github with a
// token. Both normalize issues to [ExternalIssue] (lowercase state,
// label names only) and report failures as task.GatewayError values so
// callers can match task.ErrGateway and task.ErrTimeout.
package tracker
