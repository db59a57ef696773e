// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tasksync reconciles local tasks with an issue tracker in both
// directions.
//
// Pull imports issues: an unknown issue becomes a new task, a known one
// updates its task only when the issue changed after the task's last
// sync (last writer wins by timestamp), and a completed task never
// reopens. Push publishes a task as a new issue, or with Force
// overwrites the issue it is already linked to. Loops are sequential:
// pull follows the tracker's order and push follows task ID order.
//
// The issue body and labels a push produces are deterministic; see
// [ComposeIssueBody] and [ComposeLabels].
package tasksync
