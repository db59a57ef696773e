// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle owns the task state machine: capturing work,
// starting or resuming it with exclusive focus, completing it, and
// recommending what to do next.
//
// The [Engine] drives a task.Repository and, when configured, a [VCS]
// working tree. VCS steps happen at fixed points: Start creates or
// checks out the task branch, Complete optionally commits, merges into
// the main branch, and deletes the task branch. Branch creation on
// Start, checkout on resume, and branch deletion after a merge are soft
// failures: they are logged and reported in the result's Warnings
// without aborting the operation. Every other failure is returned.
package lifecycle
