// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"time"
)

// Repository persists tasks and notes. Implementations must make Focus,
// and Create of a task that carries FocusedAt, atomic with respect to
// the exclusive-focus invariant: after either call returns, exactly the
// named task is focused, and a failure leaves the previous focus intact.
type Repository interface {
	// Create inserts task and returns it with ID and timestamps filled.
	// A non-nil FocusedAt clears focus on every other task in the same
	// transaction.
	Create(ctx context.Context, task Task) (Task, error)

	// Get returns the task with the given ID, or an error matching
	// ErrNotFound.
	Get(ctx context.Context, id int64) (Task, error)

	// FindByExternal returns the task linked to the given provider
	// issue, or an error matching ErrNotFound.
	FindByExternal(ctx context.Context, provider, externalID string) (Task, error)

	// Update applies the non-nil fields of changes and returns the
	// updated task.
	Update(ctx context.Context, id int64, changes Changes) (Task, error)

	// Focus clears focus on every task, sets FocusedAt on id, and
	// applies changes, all in one transaction.
	Focus(ctx context.Context, id int64, at time.Time, changes Changes) (Task, error)

	// Query returns tasks matching filter in the given order. A limit
	// of zero or less means no limit.
	Query(ctx context.Context, filter Filter, order Order, limit int) ([]Task, error)

	// Count returns the number of tasks matching filter.
	Count(ctx context.Context, filter Filter) (int, error)

	CreateNote(ctx context.Context, taskID int64, content, source string) (Note, error)

	// ListNotes returns the task's notes oldest first.
	ListNotes(ctx context.Context, taskID int64) ([]Note, error)
}

// Filter selects tasks. Zero-valued fields do not constrain the result.
type Filter struct {
	Status   Status
	Priority Priority
	Module   string

	// Synced, when non-nil, restricts to tasks whose is_synced flag
	// equals the pointed-to value.
	Synced *bool

	// Focused restricts to tasks with a non-null FocusedAt.
	Focused bool
}

// Order is a result ordering for Query.
type Order int

const (
	// OrderNewest sorts by creation time, newest first.
	OrderNewest Order = iota
	// OrderOldest sorts by creation time, oldest first.
	OrderOldest
	// OrderPriority sorts urgent first, then by creation, oldest first.
	OrderPriority
	// OrderRecentlyFocused sorts by FocusedAt, newest first.
	OrderRecentlyFocused
	// OrderRecentlyCompleted sorts by CompletedAt, newest first.
	OrderRecentlyCompleted
)

// Changes is a partial update. Nil fields are left untouched. Pointer to
// pointer fields distinguish "leave alone" (nil) from "set to NULL"
// (pointer to nil).
type Changes struct {
	Title        *string
	Description  *string
	Status       *Status
	Priority     *Priority
	Module       *string
	Branch       *string
	Files        *[]string
	Synced       *bool
	CompletedAt  **time.Time
	LastSyncedAt **time.Time

	ExternalProvider *string
	ExternalID       *string
	ExternalURL      *string
}

// Empty reports whether changes would modify nothing.
func (c Changes) Empty() bool {
	return c == Changes{}
}

// Ptr returns a pointer to v. It keeps Changes literals readable:
//
//	task.Changes{Status: task.Ptr(task.StatusCompleted)}
func Ptr[T any](v T) *T {
	return &v
}
