// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskstore is the SQLite-backed task repository.
//
// It implements [task.Repository] on top of [sqlitepool]. Writes that
// touch more than one row (focusing a task, creating an already-focused
// task) run inside a single IMMEDIATE transaction so the exclusive
// focus invariant survives a crash mid-operation.
package taskstore
