// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// Number of entries in each Summary list.
const summaryListLength = 3

// NextRecommended returns the pending task to work on next: highest
// priority first, oldest first among equals. Module and Priority in
// filter narrow the candidates; other fields are ignored. Returns nil
// when nothing is pending.
func (e *Engine) NextRecommended(ctx context.Context, filter task.Filter) (*task.Task, error) {
	candidates, err := e.recommendations(ctx, filter, 1)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	return &candidates[0], nil
}

func (e *Engine) recommendations(ctx context.Context, filter task.Filter, limit int) ([]task.Task, error) {
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", task.ErrValidation, filter.Priority)
	}
	return e.repository.Query(ctx, task.Filter{
		Status:   task.StatusPending,
		Priority: filter.Priority,
		Module:   filter.Module,
	}, task.OrderPriority, limit)
}

// List returns tasks matching filter, newest first. A limit of zero or
// less returns everything.
func (e *Engine) List(ctx context.Context, filter task.Filter, limit int) ([]task.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", task.ErrValidation, filter.Status)
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", task.ErrValidation, filter.Priority)
	}
	return e.repository.Query(ctx, filter, task.OrderNewest, limit)
}

// Show returns a task with its notes.
func (e *Engine) Show(ctx context.Context, id int64) (task.Detail, error) {
	found, err := e.get(ctx, id)
	if err != nil {
		return task.Detail{}, err
	}
	notes, err := e.repository.ListNotes(ctx, id)
	if err != nil {
		return task.Detail{}, err
	}
	return task.Detail{Task: found, Notes: notes}, nil
}

// Summary is a snapshot of where work stands.
type Summary struct {
	// Current is the focused in_progress task, if any.
	Current      *task.Task  `json:"current,omitempty"`
	InProgress   int         `json:"in_progress"`
	Pending      int         `json:"pending"`
	Next         []task.Task `json:"next"`
	RecentlyDone []task.Task `json:"recently_completed"`
}

// Summary reports the current task, counts, the next recommendations,
// and the most recently completed tasks.
func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	var summary Summary

	focused, err := e.repository.Query(ctx, task.Filter{Status: task.StatusInProgress, Focused: true}, task.OrderRecentlyFocused, 1)
	if err != nil {
		return Summary{}, err
	}
	if len(focused) > 0 {
		summary.Current = &focused[0]
	}

	if summary.InProgress, err = e.repository.Count(ctx, task.Filter{Status: task.StatusInProgress}); err != nil {
		return Summary{}, err
	}
	if summary.Pending, err = e.repository.Count(ctx, task.Filter{Status: task.StatusPending}); err != nil {
		return Summary{}, err
	}
	if summary.Next, err = e.recommendations(ctx, task.Filter{}, summaryListLength); err != nil {
		return Summary{}, err
	}
	summary.RecentlyDone, err = e.repository.Query(ctx, task.Filter{Status: task.StatusCompleted}, task.OrderRecentlyCompleted, summaryListLength)
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}
